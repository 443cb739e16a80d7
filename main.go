package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"hibikido/internal/analysis"
	"hibikido/internal/config"
	"hibikido/internal/controller"
	"hibikido/internal/describer"
	"hibikido/internal/embedding"
	"hibikido/internal/index"
	"hibikido/internal/orchestrator"
	"hibikido/internal/pcm"
	"hibikido/internal/store"
	"hibikido/internal/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hibikido: %v\n", err)
		os.Exit(1)
	}

	logFile := setupLogging(cfg.TraceLog)
	if logFile != nil {
		defer logFile.Close()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC: %v", r)
			panic(r)
		}
	}()

	if err := run(cfg); err != nil {
		log.Printf("hibikido: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	modelsDir := filepath.Join(cfg.Database.DataDir, "models")
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}

	st, err := store.Open(cfg.Database.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	emb := embedding.New(modelsDir, cfg.Embedding.ModelName)
	defer emb.Close()

	// A corrupt index is logged and replaced with an empty one;
	// rebuild_index restores it from the Store.
	idx, err := index.Load(cfg.Embedding.IndexFile, embedding.Dim)
	if err != nil {
		log.Printf("[Index] load failed, starting empty: %v", err)
		idx = index.New(embedding.Dim)
	}
	log.Printf("[Index] %d vectors loaded", idx.Len())

	start := time.Now()
	clock := func() float64 { return time.Since(start).Seconds() }
	orch := orchestrator.New(cfg.Orchestrator.BarkSimilarityThreshold, clock)

	desc := describer.New(cfg.Semantic.BaseURL, cfg.Semantic.Model, cfg.Semantic.APIKey)

	ctrl := controller.New(
		st,
		pcm.NewSource(cfg.Audio.AudioDirectory),
		analysis.NewAudioAnalyzer(),
		emb,
		idx,
		orch,
		desc,
		controller.Config{
			IndexPath: cfg.Embedding.IndexFile,
			TopK:      cfg.Search.TopK,
			MinScore:  cfg.Search.MinScore,
		},
	)

	var diag *transport.Diagnostics
	if cfg.Transport.DiagnosticsPort > 0 {
		diag = transport.NewDiagnostics()
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", diag.HandleWebSocket)
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.Transport.ListenIP, cfg.Transport.DiagnosticsPort)
			log.Printf("[diagnostics] listening on ws://%s/ws", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("[diagnostics] server stopped: %v", err)
			}
		}()
	}

	srv, err := transport.NewServer(ctrl, cfg.Transport.ListenIP, cfg.Transport.ListenPort, cfg.Transport.SendIP, cfg.Transport.SendPort, diag)
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	orch.OnManifest(func(a orchestrator.Announcement) {
		srv.SendManifest(a.Index, a.Collection, a.Score, a.Path, a.Description, a.Start, a.End, a.MetadataJSON)
	})

	tickStop := make(chan struct{})
	go orch.Run(time.Duration(cfg.Orchestrator.TickIntervalSeconds*float64(time.Second)), tickStop)

	go transport.ServeAdmin(filepath.Join(cfg.Database.DataDir, "admin.sock"), ctrl)

	done := make(chan struct{})
	srv.OnStop(func() {
		close(done)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go srv.Serve(context.Background())
	log.Printf("hibikido listening on %s:%d, replying to %s:%d",
		cfg.Transport.ListenIP, cfg.Transport.ListenPort, cfg.Transport.SendIP, cfg.Transport.SendPort)

	select {
	case <-done:
		log.Println("stop command received, shutting down")
	case sig := <-sigCh:
		log.Printf("signal %v received, shutting down", sig)
		if err := ctrl.Stop(); err != nil {
			log.Printf("shutdown persist: %v", err)
		}
	}

	close(tickStop)
	srv.Close()
	return nil
}

func setupLogging(path string) *os.File {
	if path == "" {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open trace log %s: %v\n", path, err)
		return nil
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("trace log attached: %s", path)

	return file
}
