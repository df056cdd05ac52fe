package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// progressMessage is the JSON pushed to browsers while CompareModels runs.
type progressMessage struct {
	Type string `json:"type"`
	experiment.Progress
}

type envelope struct {
	runID   string
	payload []byte
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	runID string // empty subscribes to every run
}

// Hub fans progress messages out to the websocket clients watching a run.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	upgrader   websocket.Upgrader
	logger     log.Logger
	done       chan struct{}
}

// NewHub creates a hub. Run must be started for messages to be delivered.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log.GetLoggerWithName("hub"),
		done:   make(chan struct{}),
	}
}

// Run delivers messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("Client connected", log.RunIDKey, c.runID, "clients", len(h.clients))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if c.runID != "" && c.runID != msg.runID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// slow client
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Publish queues a progress event. Events are dropped when the queue is full.
func (h *Hub) Publish(p experiment.Progress) {
	payload, err := json.Marshal(progressMessage{Type: "progress", Progress: p})
	if err != nil {
		h.logger.Error("Failed to encode progress", err)
		return
	}
	select {
	case h.broadcast <- envelope{runID: p.RunID, payload: payload}:
	default:
		h.logger.Warn("Progress queue full, event dropped", log.RunIDKey, p.RunID)
	}
}

// ServeWS upgrades the request and subscribes the connection to the run given
// by the "run" query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64), runID: r.URL.Query().Get("run")}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// readPump drains the connection so pongs and close frames are processed.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
