package chat

import (
	"sync"

	"github.com/qanoon/legal-assistant/backend/internal/service/session"
)

// Prompts tracks which UI dialogs the subsystem has asked for. It backs the
// dispatcher's gating signals and the modal flags on the state surface.
type Prompts struct {
	mu          sync.Mutex
	showCountry bool
	showLogin   bool
	notifier    *session.Notifier
}

// NewPrompts builds an empty prompt state.
func NewPrompts(notifier *session.Notifier) *Prompts {
	return &Prompts{notifier: notifier}
}

// ShowCountrySelector raises the country-picker prompt.
func (p *Prompts) ShowCountrySelector() { p.set(func() { p.showCountry = true }) }

// ShowLogin raises the login prompt.
func (p *Prompts) ShowLogin() { p.set(func() { p.showLogin = true }) }

// DismissCountry clears the country-picker prompt, typically after a country
// was selected.
func (p *Prompts) DismissCountry() { p.set(func() { p.showCountry = false }) }

// DismissLogin clears the login prompt, typically after sign-in.
func (p *Prompts) DismissLogin() { p.set(func() { p.showLogin = false }) }

// State reports the raised prompts.
func (p *Prompts) State() (showCountry, showLogin bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showCountry, p.showLogin
}

func (p *Prompts) set(apply func()) {
	p.mu.Lock()
	apply()
	p.mu.Unlock()
	if p.notifier != nil {
		p.notifier.Broadcast()
	}
}
