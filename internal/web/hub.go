// Package web serves the browser control surface: a websocket hub that
// mirrors every joint update to all connected clients and accepts slider
// input back, plus a small JSON API for pose persistence.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visiona/armdeck/internal/pose"
)

// Callbacks contains the operations the hub dispatches client input to.
type Callbacks struct {
	OnSetJoint func(name string, angle float64)
	OnRestore  func(p pose.Pose, animate bool, duration time.Duration)
	OnHome     func(animate bool)
	OnHover    func(name string, hovered bool)
	Snapshot   func() pose.Pose
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 32
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
}

// Hub tracks connected browser clients and fans outbound events to them.
type Hub struct {
	forward   chan []byte
	join      chan *client
	leave     chan *client
	clients   map[*client]bool
	callbacks Callbacks
}

// NewHub creates a hub dispatching inbound messages to callbacks.
func NewHub(callbacks Callbacks) *Hub {
	return &Hub{
		forward:   make(chan []byte, messageBufferSize),
		join:      make(chan *client),
		leave:     make(chan *client),
		clients:   make(map[*client]bool),
		callbacks: callbacks,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.join:
			h.clients[c] = true
			slog.Info("web client joined", "clients", len(h.clients))
		case c := <-h.leave:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			slog.Info("web client left", "clients", len(h.clients))
		case msg := <-h.forward:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; it resyncs from the next full pose event.
				}
			}
		}
	}
}

// Broadcast queues msg for delivery to every connected client without
// blocking the caller.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.forward <- msg:
	default:
		slog.Debug("web broadcast queue full, dropping event")
	}
}

// ServeHTTP upgrades the connection and runs the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		hub:    h,
	}

	// Seed the new client with the full current pose so its sliders render
	// the real arm state before any update arrives.
	if h.callbacks.Snapshot != nil {
		if msg, err := encodeEvent(poseEvent(h.callbacks.Snapshot())); err == nil {
			c.send <- msg
		}
	}

	h.join <- c
	defer func() { h.leave <- c }()
	go c.write()
	c.read()
}
