package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/status"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	clientSendBuf = 32
	broadcastBuf  = 128
)

// Frame is the wire envelope for websocket messages.
type Frame struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// EventData is the data of a "button_event" frame.
type EventData struct {
	Name   string `json:"name"`
	Event  string `json:"event"`
	Mode   string `json:"mode"`
	HeldMs int64  `json:"held_ms,omitempty"`
}

// Hub fans button events out to websocket clients. Call Run to start it.
// Clients that cannot keep up are disconnected.
type Hub struct {
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	clients map[*client]struct{} // owned by Run
	count   atomic.Int32
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client),
		unregister: make(chan *client, 64),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run processes hub events until ctx is canceled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
			log.Printf("web: websocket client %s connected (%d clients)", c.addr, len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				log.Printf("web: websocket client %s disconnected (%d clients)", c.addr, len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.remove(c)
					log.Printf("web: dropped slow websocket client %s", c.addr)
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	delete(h.clients, c)
	h.count.Store(int32(len(h.clients)))
	close(c.send)
	c.conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Broadcast queues a button event for every connected client.
// It never blocks; the event is dropped if the queue is full.
func (h *Hub) Broadcast(event logic.Event) {
	msg, err := FormatEventFrame(event)
	if err != nil {
		log.Printf("web: format event frame: %v", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("web: broadcast queue full, dropping %s %s", event.Button, event.Type)
	}
}

// FormatEventFrame creates the "button_event" frame for an event.
func FormatEventFrame(event logic.Event) ([]byte, error) {
	data, err := json.Marshal(EventData{
		Name:   event.Button,
		Event:  string(event.Type),
		Mode:   event.Mode,
		HeldMs: event.Held.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: "button_event", Ts: event.Timestamp.UTC(), Data: data})
}

func formatStatusFrame(snap status.Snapshot) ([]byte, error) {
	return json.Marshal(Frame{Type: "status", Ts: snap.Now.UTC(), Data: status.FormatJSON(snap)})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWS upgrades the connection, queues a status frame and registers the
// client with the hub.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, snap status.Snapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuf), addr: r.RemoteAddr}
	if msg, err := formatStatusFrame(snap); err == nil {
		c.send <- msg
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	// The pumps outlive the request; the hub owns the connection from here.
	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards incoming messages and unregisters the client once the
// connection fails.
func (c *client) readPump(h *Hub) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) && !errors.Is(err, websocket.ErrCloseSent) {
				log.Printf("web: websocket read %s: %v", c.addr, err)
			}
			break
		}
	}

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
