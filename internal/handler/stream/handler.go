// Package stream exposes the UI state as Server-Sent Events for clients
// that cannot hold a websocket open.
package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qanoon/legal-assistant/backend/internal/service/session"
	"github.com/qanoon/legal-assistant/backend/pkg/utils"
)

const heartbeatInterval = 25 * time.Second

// Handler streams state snapshots and keep-alive heartbeats.
type Handler struct {
	notifier *session.Notifier
	snapshot func() interface{}
}

// New builds the SSE handler over the shared change notifier.
func New(notifier *session.Notifier, snapshot func() interface{}) *Handler {
	return &Handler{notifier: notifier, snapshot: snapshot}
}

// RegisterRoutes mounts the SSE endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	ticks, cancel := h.notifier.Subscribe()
	defer cancel()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	utils.SendSSEEvent(w, flusher, "state", h.snapshot())

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticks:
			utils.SendSSEEvent(w, flusher, "state", h.snapshot())
		case t := <-ticker.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			})
		}
	}
}
