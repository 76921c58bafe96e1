package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Factory is the sole constructor of sessions and enforces one live
// session per (from, to) pair. It also owns teardown: a closed
// session is dropped from the registry and its correlation state
// cleared.
type Factory struct {
	from string
	cfg  Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewFactory builds a factory for the local endpoint named from.
func NewFactory(from string, cfg Config) *Factory {
	return &Factory{
		from:     from,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// From returns the local endpoint name shared by all sessions.
func (f *Factory) From() string { return f.from }

// Session returns the session toward to, constructing it on first
// use.
func (f *Factory) Session(to string) *Session {
	f.mu.RLock()
	s, ok := f.sessions[to]
	f.mu.RUnlock()
	if ok {
		return s
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[to]; ok {
		return s
	}
	s = &Session{
		from:            f.from,
		to:              to,
		instance:        uuid.NewString(),
		factory:         f,
		cfg:             f.cfg,
		outbound:        newOutboundQueue(f.cfg.MaxOutbound),
		pending:         newPendingTable(),
		defaultResponse: NopHandler{},
	}
	f.sessions[to] = s
	log.Debug().
		Str("from", f.from).
		Str("to", to).
		Str("session", s.instance).
		Msg("session opened")
	return s
}

// Lookup returns the session toward to without constructing one.
func (f *Factory) Lookup(to string) (*Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.sessions[to]
	return s, ok
}

// CloseSession tears down s: further sends fail, awaiting-response
// state is cleared, and the (from, to) slot frees up for a future
// session.
func (f *Factory) CloseSession(s *Session) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.ClearPending()

	f.mu.Lock()
	if cur, ok := f.sessions[s.to]; ok && cur == s {
		delete(f.sessions, s.to)
	}
	f.mu.Unlock()

	log.Debug().
		Str("from", s.from).
		Str("to", s.to).
		Str("session", s.instance).
		Msg("session closed")
}

// CloseAll tears down every live session.
func (f *Factory) CloseAll() {
	f.mu.RLock()
	open := make([]*Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		open = append(open, s)
	}
	f.mu.RUnlock()

	for _, s := range open {
		f.CloseSession(s)
	}
}
