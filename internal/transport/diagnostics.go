package transport

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// diagnosticsClient is a connected operator, fed a read-only stream of the
// same confirm/error/manifest/stats_result events sent to the configured
// control peer.
type diagnosticsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *diagnosticsClient) send(event diagnosticEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

type diagnosticEvent struct {
	Address string `json:"address"`
	Args    []any  `json:"args,omitempty"`
}

// Diagnostics is a read-only WebSocket broadcast hub for every outbound
// message the datagram Server emits: operators can watch manifests clear
// in real time without participating in the control protocol itself.
type Diagnostics struct {
	mu      sync.Mutex
	clients map[*diagnosticsClient]bool
}

// NewDiagnostics constructs an empty hub.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{clients: make(map[*diagnosticsClient]bool)}
}

// HandleWebSocket upgrades r into a diagnostics client and registers it
// until the connection closes.
func (d *Diagnostics) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[diagnostics] upgrade failed: %v", err)
		return
	}
	client := &diagnosticsClient{conn: conn}

	d.mu.Lock()
	d.clients[client] = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.clients, client)
		d.mu.Unlock()
		conn.Close()
	}()

	// The feed is read-only from the operator's perspective; drain and
	// discard any inbound frames so control frames are processed and a
	// disconnect ends this loop. No read deadline is set.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast fans address/args out to every connected diagnostics client,
// dropping (and unregistering) any that errors.
func (d *Diagnostics) broadcast(address string, args ...any) {
	d.mu.Lock()
	if len(d.clients) == 0 {
		d.mu.Unlock()
		return
	}
	targets := make([]*diagnosticsClient, 0, len(d.clients))
	for c := range d.clients {
		targets = append(targets, c)
	}
	d.mu.Unlock()

	event := diagnosticEvent{Address: address, Args: args}
	for _, c := range targets {
		if err := c.send(event); err != nil {
			log.Printf("[diagnostics] send error: %v", err)
			d.mu.Lock()
			delete(d.clients, c)
			d.mu.Unlock()
		}
	}
}
