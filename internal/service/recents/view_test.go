package recents_test

import (
	"context"
	"testing"
	"time"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
	"github.com/qanoon/legal-assistant/backend/internal/service/recents"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
	"github.com/qanoon/legal-assistant/backend/internal/store"
)

func seedSessions(t *testing.T, mem *store.Memory, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := mem.CreateSession(context.Background(), userID, "", chat.CountryUAE, chat.LanguageEnglish); err != nil {
			t.Fatalf("CreateSession err: %v", err)
		}
	}
}

func TestRefreshAnonymousClears(t *testing.T) {
	mem := store.NewMemory()
	seedSessions(t, mem, "user-1", 2)
	view := recents.NewView(mem, 5, time.Millisecond, session.NewNotifier())

	view.Refresh(context.Background(), "user-1")
	if got := len(view.Sessions()); got != 2 {
		t.Fatalf("sessions: got %d want 2", got)
	}

	view.Refresh(context.Background(), "")
	if got := len(view.Sessions()); got != 0 {
		t.Fatalf("sessions after anonymous refresh: got %d want 0", got)
	}
}

func TestRefreshRespectsLimit(t *testing.T) {
	mem := store.NewMemory()
	seedSessions(t, mem, "user-1", 8)
	view := recents.NewView(mem, 5, time.Millisecond, session.NewNotifier())

	view.Refresh(context.Background(), "user-1")
	if got := len(view.Sessions()); got != 5 {
		t.Fatalf("sessions: got %d want 5", got)
	}
	if view.Loading() {
		t.Fatal("loading flag stuck after refresh")
	}
}

func TestRefreshSoonDebounces(t *testing.T) {
	mem := store.NewMemory()
	view := recents.NewView(mem, 5, 30*time.Millisecond, session.NewNotifier())
	defer view.Stop()

	seedSessions(t, mem, "user-1", 1)
	view.RefreshSoon("user-1")
	view.RefreshSoon("user-1")

	if got := len(view.Sessions()); got != 0 {
		t.Fatal("refresh must not run before the delay elapses")
	}

	deadline := time.After(time.Second)
	for len(view.Sessions()) != 1 {
		select {
		case <-deadline:
			t.Fatal("delayed refresh never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHandleAuthChange(t *testing.T) {
	mem := store.NewMemory()
	seedSessions(t, mem, "user-1", 3)
	view := recents.NewView(mem, 5, time.Millisecond, session.NewNotifier())

	view.HandleAuthChange(&auth.User{ID: "user-1"})
	if got := len(view.Sessions()); got != 3 {
		t.Fatalf("sessions after sign-in: got %d want 3", got)
	}

	view.HandleAuthChange(nil)
	if got := len(view.Sessions()); got != 0 {
		t.Fatalf("sessions after sign-out: got %d want 0", got)
	}
}

// degradedStore simulates a store whose recency query keeps failing; the
// contract is an empty list, never an error reaching the view's caller.
type degradedStore struct {
	store.Store
}

func (d *degradedStore) ListRecentSessions(_ context.Context, _ string, _ int) []chat.Session {
	return nil
}

func TestRefreshDegradesToEmpty(t *testing.T) {
	mem := store.NewMemory()
	seedSessions(t, mem, "user-1", 2)
	view := recents.NewView(&degradedStore{Store: mem}, 5, time.Millisecond, session.NewNotifier())

	view.Refresh(context.Background(), "user-1")
	if got := len(view.Sessions()); got != 0 {
		t.Fatalf("degraded refresh must yield empty, got %d", got)
	}
	if view.Loading() {
		t.Fatal("loading flag stuck after degraded refresh")
	}
}
