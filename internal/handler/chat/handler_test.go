package chat_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	chathandler "github.com/qanoon/legal-assistant/backend/internal/handler/chat"
	"github.com/qanoon/legal-assistant/backend/internal/service/completion"
	"github.com/qanoon/legal-assistant/backend/internal/service/dispatch"
	"github.com/qanoon/legal-assistant/backend/internal/service/recents"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
	"github.com/qanoon/legal-assistant/backend/internal/store"
)

type testEnv struct {
	router   *chi.Mux
	sessions *session.Manager
	mem      *store.Memory
}

func setupRouter(t *testing.T, completionURL string, requireLogin bool) *testEnv {
	t.Helper()

	mem := store.NewMemory()
	notifier := session.NewNotifier()
	sessions := session.NewManager(mem, notifier)
	// A long debounce keeps the delayed refresh out of these tests; the
	// endpoints under test refresh synchronously.
	view := recents.NewView(mem, 5, time.Minute, notifier)
	prompts := chathandler.NewPrompts(notifier)
	completer := completion.NewClient(completionURL, 0)
	dispatcher := dispatch.New(sessions, completer, view, prompts, requireLogin)
	dispatcher.SetLanguage("english")

	identity := auth.NewBroadcaster()
	identity.Subscribe(sessions.HandleAuthChange)
	identity.Subscribe(view.HandleAuthChange)
	identity.Subscribe(func(user *auth.User) {
		if user != nil {
			prompts.DismissLogin()
		}
	})

	handler := chathandler.New(sessions, view, dispatcher, prompts, auth.HeaderResolver{}, identity)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	t.Cleanup(view.Stop)
	return &testEnv{router: r, sessions: sessions, mem: mem}
}

func fakeCompletionServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"response":  "the answer",
			"thread_id": "t1",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func selectCountry(t *testing.T, env *testEnv, userID string) {
	t.Helper()
	resp := doJSON(t, env.router, http.MethodPut, "/context", map[string]string{"country": "uae"}, userID)
	if resp.Code != http.StatusOK {
		t.Fatalf("set context: expected 200, got %d", resp.Code)
	}
}

func TestSendMessageRequiresContent(t *testing.T) {
	env := setupRouter(t, "http://unused", true)
	resp := doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "  "}, "user-1")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageCountryGate(t *testing.T) {
	env := setupRouter(t, "http://unused", true)
	resp := doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "hello"}, "user-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Outcome string `json:"outcome"`
		State   struct {
			ShowCountryModal bool `json:"showCountryModal"`
		} `json:"state"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Outcome != "country_required" {
		t.Fatalf("outcome: got %s", body.Outcome)
	}
	if !body.State.ShowCountryModal {
		t.Fatal("country modal not requested")
	}
}

func TestSendMessageLoginGate(t *testing.T) {
	env := setupRouter(t, "http://unused", true)
	selectCountry(t, env, "")

	resp := doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "hello"}, "")
	var body struct {
		Outcome string `json:"outcome"`
		State   struct {
			Messages       []struct{} `json:"messages"`
			ShowLoginModal bool       `json:"showLoginModal"`
		} `json:"state"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Outcome != "login_required" {
		t.Fatalf("outcome: got %s", body.Outcome)
	}
	if !body.State.ShowLoginModal {
		t.Fatal("login modal not requested")
	}
	if len(body.State.Messages) != 0 {
		t.Fatal("gated message leaked into the transcript")
	}
}

func TestSendMessageFullExchange(t *testing.T) {
	srv := fakeCompletionServer(t)
	env := setupRouter(t, srv.URL, true)
	selectCountry(t, env, "user-1")

	resp := doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "What is labour law?"}, "user-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Outcome string `json:"outcome"`
		State   struct {
			Messages []struct {
				Content string `json:"content"`
				Sender  string `json:"sender"`
			} `json:"messages"`
			IsTyping     bool   `json:"isTyping"`
			ActiveChatID string `json:"activeChatId"`
		} `json:"state"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Outcome != "sent" {
		t.Fatalf("outcome: got %s", body.Outcome)
	}
	if len(body.State.Messages) != 2 {
		t.Fatalf("transcript length: got %d want 2", len(body.State.Messages))
	}
	if body.State.Messages[1].Content != "the answer" || body.State.Messages[1].Sender != "bot" {
		t.Fatalf("assistant turn: got %+v", body.State.Messages[1])
	}
	if body.State.IsTyping {
		t.Fatal("typing flag must be false after the exchange")
	}
	if body.State.ActiveChatID == "" {
		t.Fatal("a session must have been created")
	}

	env.sessions.Flush()
	recent := doJSON(t, env.router, http.MethodGet, "/chats/recent", nil, "user-1")
	var recentBody struct {
		Chats []struct {
			Title       string `json:"title"`
			LastMessage string `json:"lastMessage"`
		} `json:"chats"`
	}
	if err := json.Unmarshal(recent.Body.Bytes(), &recentBody); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(recentBody.Chats) != 1 {
		t.Fatalf("recent chats: got %d want 1", len(recentBody.Chats))
	}
	if recentBody.Chats[0].Title != "What is labour law?" {
		t.Fatalf("chat title: got %q", recentBody.Chats[0].Title)
	}
}

func TestStartNewChatClearsActive(t *testing.T) {
	srv := fakeCompletionServer(t)
	env := setupRouter(t, srv.URL, true)
	selectCountry(t, env, "user-1")
	doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "hello"}, "user-1")

	resp := doJSON(t, env.router, http.MethodPost, "/chats", nil, "user-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var state struct {
		Messages     []struct{} `json:"messages"`
		ActiveChatID string     `json:"activeChatId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Messages) != 0 || state.ActiveChatID != "" {
		t.Fatalf("state not cleared: %+v", state)
	}
}

func TestSwitchChat(t *testing.T) {
	srv := fakeCompletionServer(t)
	env := setupRouter(t, srv.URL, true)
	selectCountry(t, env, "user-1")

	doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "first chat"}, "user-1")
	env.sessions.Flush()
	firstChat := env.sessions.ActiveID()

	doJSON(t, env.router, http.MethodPost, "/chats", nil, "user-1")
	doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "second chat"}, "user-1")
	env.sessions.Flush()

	resp := doJSON(t, env.router, http.MethodPost, "/chats/"+firstChat+"/activate", nil, "user-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var state struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
		ActiveChatID string `json:"activeChatId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveChatID != firstChat {
		t.Fatalf("active id: got %s want %s", state.ActiveChatID, firstChat)
	}
	if len(state.Messages) != 2 || state.Messages[0].Content != "first chat" {
		t.Fatalf("transcript not replaced: %+v", state.Messages)
	}
}

func TestSwitchChatNotFound(t *testing.T) {
	env := setupRouter(t, "http://unused", true)
	resp := doJSON(t, env.router, http.MethodPost, "/chats/missing/activate", nil, "user-1")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSetContextRejectsUnknownCountry(t *testing.T) {
	env := setupRouter(t, "http://unused", true)
	resp := doJSON(t, env.router, http.MethodPut, "/context", map[string]string{"country": "atlantis"}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStateCarriesWelcomeMessage(t *testing.T) {
	env := setupRouter(t, "http://unused", true)
	selectCountry(t, env, "")

	resp := doJSON(t, env.router, http.MethodGet, "/state", nil, "")
	var state struct {
		WelcomeMessage string `json:"welcomeMessage"`
		Language       string `json:"language"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.WelcomeMessage == "" {
		t.Fatal("welcome message missing")
	}
	if state.Language != "english" {
		t.Fatalf("language: got %s", state.Language)
	}
}

func TestSignOutClearsRecentList(t *testing.T) {
	srv := fakeCompletionServer(t)
	env := setupRouter(t, srv.URL, true)
	selectCountry(t, env, "user-1")
	doJSON(t, env.router, http.MethodPost, "/messages", map[string]string{"content": "hello"}, "user-1")
	env.sessions.Flush()

	// An anonymous request is the sign-out transition.
	resp := doJSON(t, env.router, http.MethodGet, "/state", nil, "")
	var state struct {
		ActiveChatID string     `json:"activeChatId"`
		RecentChats  []struct{} `json:"recentChats"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveChatID != "" {
		t.Fatal("sign-out must clear the active chat id")
	}
	if len(state.RecentChats) != 0 {
		t.Fatal("sign-out must clear the recent list")
	}
}
