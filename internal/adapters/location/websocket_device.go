package location

import (
	"context"
	"errors"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// optionsMessage tells connected clients how to sample their receiver.
type optionsMessage struct {
	Type         string `json:"type"`
	HighAccuracy bool   `json:"high_accuracy"`
	MaximumAgeMs int64  `json:"maximum_age_ms"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type wsClient struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// WebSocketDevice is a LocationDevice fed by browser or phone clients that
// stream JSON fixes over a WebSocket. Each connected client receives the
// currently requested fix options when it connects and whenever they change.
type WebSocketDevice struct {
	hub      *fixHub
	upgrader websocket.Upgrader

	mu      sync.Mutex
	opts    ports.FixOptions
	clients map[*wsClient]struct{}
}

func NewWebSocketDevice() *WebSocketDevice {
	return &WebSocketDevice{
		hub: newFixHub(nil),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		opts:    ports.FixOptions{HighAccuracy: true, MaximumAge: time.Second},
		clients: make(map[*wsClient]struct{}),
	}
}

func (d *WebSocketDevice) CurrentFix(ctx context.Context, opts ports.FixOptions) (domain.Fix, error) {
	d.requestOptions(opts)
	return d.hub.CurrentFix(ctx, opts)
}

func (d *WebSocketDevice) Watch(ctx context.Context, opts ports.FixOptions) (<-chan domain.Fix, error) {
	d.requestOptions(opts)
	return d.hub.Watch(ctx, opts)
}

// Publish injects a fix as if a client had sent it.
func (d *WebSocketDevice) Publish(f domain.Fix) error {
	return d.hub.Publish(f)
}

func (d *WebSocketDevice) requestOptions(opts ports.FixOptions) {
	d.mu.Lock()
	if d.opts == opts {
		d.mu.Unlock()
		return
	}
	d.opts = opts
	clients := make([]*wsClient, 0, len(d.clients))
	for c := range d.clients {
		clients = append(clients, c)
	}
	d.mu.Unlock()

	msg := toOptionsMessage(opts)
	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			log.Printf("location: send options to %s failed: %v", c.conn.RemoteAddr(), err)
		}
	}
}

func toOptionsMessage(opts ports.FixOptions) optionsMessage {
	return optionsMessage{
		Type:         "options",
		HighAccuracy: opts.HighAccuracy,
		MaximumAgeMs: opts.MaximumAge.Milliseconds(),
	}
}

// ServeHTTP upgrades the request and reads fixes until the client leaves.
func (d *WebSocketDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("location: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The server's read and write timeouts still apply to the hijacked conn.
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	client := &wsClient{conn: conn}

	d.mu.Lock()
	d.clients[client] = struct{}{}
	opts := d.opts
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.clients, client)
		d.mu.Unlock()
	}()

	if err := client.writeJSON(toOptionsMessage(opts)); err != nil {
		log.Printf("location: send options to %s failed: %v", conn.RemoteAddr(), err)
		return
	}

	log.Printf("location: websocket client connected remote=%s", conn.RemoteAddr())

	for {
		var msg fixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Printf("location: websocket read failed remote=%s err=%v", conn.RemoteAddr(), err)
			}
			return
		}

		fix, err := msg.toFix()
		if err == nil {
			err = d.hub.Publish(fix)
		}
		if err != nil {
			_ = client.writeJSON(errorMessage{Type: "error", Error: err.Error()})
		}
	}
}
