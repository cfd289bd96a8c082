// Package ws pushes UI state snapshots over a websocket so the front-end can
// render transcript, typing flag and recent chats without polling.
package ws

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/qanoon/legal-assistant/backend/internal/service/session"
)

// Handler upgrades connections and streams snapshots on every state change.
type Handler struct {
	notifier *session.Notifier
	snapshot func() interface{}
	upgrader websocket.Upgrader
}

// New builds the feed. snapshot must be safe for concurrent use.
func New(notifier *session.Notifier, snapshot func() interface{}) *Handler {
	return &Handler{
		notifier: notifier,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleFeed)
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticks, cancel := h.notifier.Subscribe()
	defer cancel()

	// Reads are discarded; the socket exists to detect disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.snapshot()); err != nil {
		log.Printf("[ws] initial snapshot write failed: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ticks:
			if err := conn.WriteJSON(h.snapshot()); err != nil {
				log.Printf("[ws] snapshot write failed: %v", err)
				return
			}
		}
	}
}
