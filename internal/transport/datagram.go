package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"

	"hibikido/internal/controller"
)

// Dispatcher is the subset of Controller the datagram server invokes. It
// exists so the transport package depends on a narrow contract rather
// than the full Controller surface.
type Dispatcher interface {
	Invoke(ctx context.Context, text string) (string, error)
	AddRecording(ctx context.Context, path, description string, tags []string) (string, error)
	AddSegment(ctx context.Context, path, description string, start, end float64, tags []string) (string, error)
	AddEffect(path, description string) (string, error)
	AddPreset(ctx context.Context, description, effectPath string, parameters []float64) (string, error)
	RebuildIndex(ctx context.Context) (string, error)
	Stats() controller.StatsResult
	ListSegments(n int) []controller.SegmentSummary
	GetSegmentField(id int, fieldPath string) (any, error)
	GenerateDescription(ctx context.Context, collection string, id int, force bool) (string, error)
	Stop() error
}

// Server is the datagram control-protocol handler: it listens for inbound
// command datagrams on listenAddr, dispatches each to a Dispatcher, and
// sends replies/manifests to sendAddr.
type Server struct {
	dispatcher  Dispatcher
	conn        *net.UDPConn
	sendAddr    *net.UDPAddr
	stopCh      chan struct{}
	diagnostics *Diagnostics
	onStop      func()
}

// NewServer binds a UDP socket at listenIP:listenPort and sends outbound
// messages to the peer at sendIP:sendPort. diag may be nil to skip the
// diagnostics fan-out.
func NewServer(dispatcher Dispatcher, listenIP string, listenPort int, sendIP string, sendPort int, diag *Diagnostics) (*Server, error) {
	listenAddr := &net.UDPAddr{IP: net.ParseIP(listenIP), Port: listenPort}
	conn, err := net.ListenUDP("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s:%d: %w", listenIP, listenPort, err)
	}
	sendAddr := &net.UDPAddr{IP: net.ParseIP(sendIP), Port: sendPort}

	return &Server{dispatcher: dispatcher, conn: conn, sendAddr: sendAddr, stopCh: make(chan struct{}), diagnostics: diag}, nil
}

// Serve reads inbound datagrams until Close is called, dispatching each
// to its handler on its own goroutine so a slow command (analysis,
// embedding inference) never blocks the next invoke/stats from being
// read off the socket.
func (s *Server) Serve(ctx context.Context) {
	buf := make([]byte, 65536)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.Printf("[transport] read error: %v", err)
				continue
			}
		}
		payload := append([]byte(nil), buf[:n]...)
		go s.handle(ctx, payload)
	}
}

// OnStop registers fn to run after a `stop` command has been dispatched
// and confirmed; main wires process shutdown here. Not safe to call once
// Serve has started.
func (s *Server) OnStop(fn func()) {
	s.onStop = fn
}

// Close stops accepting new commands and releases the socket. In-flight
// handle goroutines are not forcibly canceled: a clean shutdown lets the
// current command finish.
func (s *Server) Close() error {
	close(s.stopCh)
	return s.conn.Close()
}

func (s *Server) handle(ctx context.Context, payload []byte) {
	m, err := decode(payload)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid input: malformed message: %v", err))
		return
	}

	reply, err := dispatch(ctx, s.dispatcher, m, s)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if reply != "" {
		s.sendConfirm(reply)
	}
	if m.Address == "stop" && s.onStop != nil {
		s.onStop()
	}
}

func (s *Server) send(address string, args ...any) {
	data, err := encode(address, args...)
	if err != nil {
		log.Printf("[transport] encode %s: %v", address, err)
		return
	}
	if _, err := s.conn.WriteToUDP(data, s.sendAddr); err != nil {
		log.Printf("[transport] send %s: %v", address, err)
	}
	if s.diagnostics != nil {
		s.diagnostics.broadcast(address, args...)
	}
}

func (s *Server) sendConfirm(text string) { s.send("confirm", text) }
func (s *Server) sendError(text string)   { s.send("error", text) }

// SendManifest emits one manifest message, the outbound shape of an
// Orchestrator-authorized Announcement. It is wired as the Orchestrator's
// manifest callback.
func (s *Server) SendManifest(index int, collection string, score float64, path, description string, start, end float64, metadataJSON string) {
	s.send("manifest", index, collection, score, path, description, start, end, metadataJSON)
}

func (s *Server) sendStatsResult(stats controller.StatsResult) {
	s.send("stats_result", stats.Recordings, stats.Segments, stats.Effects, stats.Presets, stats.Embeddings, stats.ActiveNiches, stats.Queued)
}

func resolveUDP(addr string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", addr)
}

func (s *Server) sendSegmentField(id int, fieldPath string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid input: cannot encode field value: %v", err))
		return
	}
	s.send("segment_field", id, fieldPath, json.RawMessage(raw))
}
