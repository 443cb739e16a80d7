// Package config loads the Hibikidō process configuration: a single
// encoding/json unmarshal of the documented shape plus the CLI flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// Config is the fully-resolved process configuration.
type Config struct {
	Database struct {
		DataDir string `json:"data_dir"`
	} `json:"database"`

	Embedding struct {
		ModelName string `json:"model_name"`
		IndexFile string `json:"index_file"`
	} `json:"embedding"`

	Transport struct {
		ListenIP   string `json:"listen_ip"`
		ListenPort int    `json:"listen_port"`
		SendIP     string `json:"send_ip"`
		SendPort   int    `json:"send_port"`
		// DiagnosticsPort serves the read-only operator WebSocket feed;
		// 0 disables it.
		DiagnosticsPort int `json:"diagnostics_port"`
	} `json:"transport"`

	Search struct {
		TopK     int     `json:"top_k"`
		MinScore float64 `json:"min_score"`
	} `json:"search"`

	Orchestrator struct {
		BarkSimilarityThreshold float64 `json:"bark_similarity_threshold"`
		TickIntervalSeconds     float64 `json:"tick_interval_seconds"`
	} `json:"orchestrator"`

	Audio struct {
		AudioDirectory string `json:"audio_directory"`
	} `json:"audio"`

	Semantic struct {
		APIKey string `json:"api_key"`
		// BaseURL and Model point at the optional description-generation
		// collaborator (Ollama-compatible chat endpoint); empty BaseURL
		// means generate_description always uses its local fallback.
		BaseURL string `json:"base_url"`
		Model   string `json:"model"`
	} `json:"semantic"`

	// LogLevel is not part of the JSON document; it arrives from --log-level.
	LogLevel string `json:"-"`
	// TraceLog, if set, mirrors log output to this file.
	TraceLog string `json:"-"`
}

func defaults() *Config {
	c := &Config{}
	c.Database.DataDir = "data"
	c.Embedding.ModelName = "minilm-l6-v2"
	c.Embedding.IndexFile = "data/index.bin"
	c.Transport.ListenIP = "0.0.0.0"
	c.Transport.ListenPort = 9000
	c.Transport.SendIP = "127.0.0.1"
	c.Transport.SendPort = 9001
	c.Search.TopK = 10
	c.Search.MinScore = 0.3
	c.Orchestrator.BarkSimilarityThreshold = 0.5
	c.Orchestrator.TickIntervalSeconds = 0.1
	c.Audio.AudioDirectory = "audio"
	c.Semantic.Model = "llama3.2"
	c.LogLevel = "info"
	return c
}

// Load parses CLI flags and the JSON config file they name, returning a
// fully-populated Config (unspecified fields keep their documented default).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("hibikido", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to JSON configuration file")
	logLevel := fs.String("log-level", "info", "Log verbosity: debug, info, warn, error")
	traceLog := fs.String("trace-log", "", "Optional path to mirror log output to")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaults()
	cfg.LogLevel = *logLevel
	cfg.TraceLog = *traceLog

	if *configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", *configPath, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", *configPath, err)
	}
	cfg.LogLevel = *logLevel
	cfg.TraceLog = *traceLog
	return cfg, nil
}
