package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	chathandler "github.com/qanoon/legal-assistant/backend/internal/handler/chat"
	"github.com/qanoon/legal-assistant/backend/internal/handler/stream"
	"github.com/qanoon/legal-assistant/backend/internal/handler/ws"
	middlewarePkg "github.com/qanoon/legal-assistant/backend/internal/middleware"
	"github.com/qanoon/legal-assistant/backend/internal/service/dispatch"
	"github.com/qanoon/legal-assistant/backend/internal/service/recents"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
)

// NewRouter wires HTTP routes to the conversation services.
func NewRouter(
	sessions *session.Manager,
	view *recents.View,
	dispatcher *dispatch.Dispatcher,
	prompts *chathandler.Prompts,
	resolver auth.Resolver,
	identity *auth.Broadcaster,
	notifier *session.Notifier,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(sessions, view, dispatcher, prompts, resolver, identity)
	snapshot := func() interface{} { return chatHandler.State() }

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		ws.New(notifier, snapshot).RegisterRoutes(api)
		stream.New(notifier, snapshot).RegisterRoutes(api)
	})

	return r
}
