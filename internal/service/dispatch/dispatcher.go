// Package dispatch runs the gated send-message flow: country and login
// gates, lazy session creation, the optimistic local append, the remote
// completion call and the error surfacing that keeps the transcript honest.
package dispatch

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
	"github.com/qanoon/legal-assistant/backend/internal/service/completion"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
)

// Completer asks the remote completion endpoint for a reply.
type Completer interface {
	Ask(ctx context.Context, req completion.Request) (completion.Reply, error)
	// BaseURL reports the endpoint's base URL for error messages.
	BaseURL() string
}

// Refresher keeps the recent-sessions list in sync with new activity.
type Refresher interface {
	// Refresh reloads the list immediately.
	Refresh(ctx context.Context, userID string)
	// RefreshSoon schedules a delayed reload, giving the store's summary
	// write time to land.
	RefreshSoon(userID string)
}

// Signals carries UI prompts raised by gating. Implementations must not block.
type Signals interface {
	// ShowCountrySelector asks the UI to open the country picker.
	ShowCountrySelector()
	// ShowLogin asks the UI to open the login dialog. The user's input text
	// is not consumed, so intent survives the gate.
	ShowLogin()
}

// Outcome tells the caller how a dispatch ended.
type Outcome string

const (
	// OutcomeEmpty means the text was blank and silently rejected.
	OutcomeEmpty Outcome = "empty"
	// OutcomeCountryRequired means the country gate fired.
	OutcomeCountryRequired Outcome = "country_required"
	// OutcomeLoginRequired means the login gate fired; nothing was appended.
	OutcomeLoginRequired Outcome = "login_required"
	// OutcomeSent means the exchange completed with an assistant reply.
	OutcomeSent Outcome = "sent"
	// OutcomeFailed means the remote call failed; the transcript carries a
	// visible error message instead of a reply.
	OutcomeFailed Outcome = "failed"
)

// Dispatcher coordinates one conversation's message flow. Callers serialize
// dispatches per session; the busy flag is the UI's cue to disable send.
type Dispatcher struct {
	sessions     *session.Manager
	completer    Completer
	recents      Refresher
	signals      Signals
	requireLogin bool

	mu       sync.RWMutex
	country  chat.Country
	language chat.Language
}

// New builds a dispatcher. signals may be nil when no UI prompt channel
// exists (tests, headless runs).
func New(sessions *session.Manager, completer Completer, recents Refresher, signals Signals, requireLogin bool) *Dispatcher {
	return &Dispatcher{
		sessions:     sessions,
		completer:    completer,
		recents:      recents,
		signals:      signals,
		requireLogin: requireLogin,
		language:     chat.LanguageEnglish,
	}
}

// SetCountry selects the jurisdiction for subsequent dispatches.
func (d *Dispatcher) SetCountry(country chat.Country) {
	d.mu.Lock()
	d.country = country
	d.mu.Unlock()
}

// SetLanguage selects the conversation language.
func (d *Dispatcher) SetLanguage(language chat.Language) {
	d.mu.Lock()
	d.language = language
	d.mu.Unlock()
}

// Country returns the configured jurisdiction, possibly empty.
func (d *Dispatcher) Country() chat.Country {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.country
}

// Language returns the configured conversation language.
func (d *Dispatcher) Language() chat.Language {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.language
}

// Dispatch sends one user message through the gates and the remote endpoint.
// No failure escapes as an error; everything the user must know lands in the
// transcript or in a signal.
func (d *Dispatcher) Dispatch(ctx context.Context, user *auth.User, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return OutcomeEmpty
	}

	country := d.Country()
	language := d.Language()

	if !country.Valid() {
		d.sessions.Append(ctx, chat.LocalMessage{
			Content: chat.SelectCountryPrompt(language),
			Sender:  chat.SenderBot,
		}, false)
		if d.signals != nil {
			d.signals.ShowCountrySelector()
		}
		return OutcomeCountryRequired
	}

	if user == nil && d.requireLogin {
		if d.signals != nil {
			d.signals.ShowLogin()
		}
		return OutcomeLoginRequired
	}

	userID := ""
	if user != nil {
		userID = user.ID
	}
	hadActive := d.sessions.ActiveID() != ""
	_, ok := d.sessions.EnsureActive(ctx, userID, country, language)
	if ok && !hadActive && d.recents != nil {
		// A freshly created session belongs in the sidebar right away.
		d.recents.Refresh(ctx, userID)
	}

	persist := user != nil
	d.sessions.Append(ctx, chat.LocalMessage{Content: text, Sender: chat.SenderUser}, persist)

	d.sessions.SetTyping(true)
	reply, err := d.completer.Ask(ctx, completion.Request{
		Message:          text,
		Country:          &country,
		ThreadID:         optional(d.sessions.ThreadID()),
		Language:         language,
		ResponseLanguage: language,
	})
	d.sessions.SetTyping(false)

	if err != nil {
		log.Printf("[dispatch] completion call failed: %v", err)
		content := chat.ConnectionError(language, err.Error())
		var statusErr *completion.StatusError
		if !errors.As(err, &statusErr) {
			// The endpoint never answered; point at the backend itself.
			content += chat.TransportHint(language, d.completer.BaseURL())
		}
		d.sessions.Append(ctx, chat.LocalMessage{
			Content: content,
			Sender:  chat.SenderBot,
			Error:   true,
		}, false)
		// The user's turn was already persisted, so the summary moved.
		if userID != "" && d.recents != nil {
			d.recents.RefreshSoon(userID)
		}
		return OutcomeFailed
	}

	if reply.ThreadID != "" {
		d.sessions.SetThreadID(reply.ThreadID)
	}
	d.sessions.Append(ctx, chat.LocalMessage{Content: reply.Response, Sender: chat.SenderBot}, persist)

	if userID != "" && d.recents != nil {
		d.recents.RefreshSoon(userID)
	}
	return OutcomeSent
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
