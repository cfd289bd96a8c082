package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	chatmodel "github.com/qanoon/legal-assistant/backend/internal/model/chat"
	"github.com/qanoon/legal-assistant/backend/internal/service/dispatch"
	"github.com/qanoon/legal-assistant/backend/internal/service/recents"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
	"github.com/qanoon/legal-assistant/backend/internal/store"
	"github.com/qanoon/legal-assistant/backend/pkg/utils"
)

// Handler exposes the conversation surface consumed by the browser UI.
type Handler struct {
	sessions   *session.Manager
	recents    *recents.View
	dispatcher *dispatch.Dispatcher
	prompts    *Prompts
	resolver   auth.Resolver
	identity   *auth.Broadcaster
}

// New creates the chat surface handler.
func New(sessions *session.Manager, view *recents.View, dispatcher *dispatch.Dispatcher, prompts *Prompts, resolver auth.Resolver, identity *auth.Broadcaster) *Handler {
	return &Handler{
		sessions:   sessions,
		recents:    view,
		dispatcher: dispatcher,
		prompts:    prompts,
		resolver:   resolver,
		identity:   identity,
	}
}

// RegisterRoutes mounts the conversation endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleSendMessage)
	r.Post("/chats", h.handleStartNewChat)
	r.Post("/chats/{chatID}/activate", h.handleSwitchChat)
	r.Get("/chats/recent", h.handleRecentChats)
	r.Get("/state", h.handleState)
	r.Put("/context", h.handleSetContext)
}

// UIState is the observable state pushed to the UI: the transcript mirror,
// busy flag, context, prompts and the recent-chats sidebar.
type UIState struct {
	session.State
	Country          chatmodel.Country   `json:"country,omitempty"`
	Language         chatmodel.Language  `json:"language"`
	WelcomeMessage   string              `json:"welcomeMessage"`
	RecentChats      []chatmodel.Session `json:"recentChats"`
	IsLoadingChats   bool                `json:"isLoadingChats"`
	ShowCountryModal bool                `json:"showCountryModal"`
	ShowLoginModal   bool                `json:"showLoginModal"`
}

// State assembles the current UI state snapshot.
func (h *Handler) State() UIState {
	showCountry, showLogin := h.prompts.State()
	country := h.dispatcher.Country()
	language := h.dispatcher.Language()
	return UIState{
		State:            h.sessions.Snapshot(),
		Country:          country,
		Language:         language,
		WelcomeMessage:   chatmodel.WelcomeMessage(country, language),
		RecentChats:      h.recents.Sessions(),
		IsLoadingChats:   h.recents.Loading(),
		ShowCountryModal: showCountry,
		ShowLoginModal:   showLogin,
	}
}

func (h *Handler) currentUser(r *http.Request) *auth.User {
	user := h.resolver.FromRequest(r)
	h.identity.Observe(user)
	return user
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := h.currentUser(r)
	outcome := h.dispatcher.Dispatch(r.Context(), user, payload.Content)
	if outcome == dispatch.OutcomeEmpty {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"state":   h.State(),
	})
}

func (h *Handler) handleStartNewChat(w http.ResponseWriter, r *http.Request) {
	h.currentUser(r)
	h.sessions.StartNew()
	utils.RespondJSON(w, http.StatusOK, h.State())
}

func (h *Handler) handleSwitchChat(w http.ResponseWriter, r *http.Request) {
	h.currentUser(r)
	chatID := chi.URLParam(r, "chatID")

	if err := h.sessions.SwitchTo(r.Context(), chatID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load chat")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.State())
}

func (h *Handler) handleRecentChats(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.recents.Refresh(r.Context(), userID)

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"chats":     h.recents.Sessions(),
		"isLoading": h.recents.Loading(),
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.currentUser(r)
	utils.RespondJSON(w, http.StatusOK, h.State())
}

func (h *Handler) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Country  chatmodel.Country  `json:"country"`
		Language chatmodel.Language `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.currentUser(r)

	if payload.Country != "" {
		if !payload.Country.Valid() {
			utils.RespondError(w, http.StatusBadRequest, "unsupported country")
			return
		}
		h.dispatcher.SetCountry(payload.Country)
		h.prompts.DismissCountry()
	}
	if payload.Language != "" {
		if !payload.Language.Valid() {
			utils.RespondError(w, http.StatusBadRequest, "unsupported language")
			return
		}
		h.dispatcher.SetLanguage(payload.Language)
	}

	utils.RespondJSON(w, http.StatusOK, h.State())
}
