package session

import "github.com/danmuck/peerlink/internal/protocol"

// Handler is the caller-supplied capability for one-shot responses.
//
// Both methods report whether the event was fully handled; a false
// return is a normal "not interested" outcome and routes the event to
// the session's default handler. Handlers are invoked from the
// transport goroutine and must be safe to call there.
type Handler interface {
	OnReceive(s *Session, msg protocol.Message) bool
	OnException(s *Session, msg protocol.Message, err error) bool
}

// NopHandler declines everything. It is the default-handler null
// object, so session code never checks for a nil handler.
type NopHandler struct{}

func (NopHandler) OnReceive(*Session, protocol.Message) bool { return false }

func (NopHandler) OnException(*Session, protocol.Message, error) bool { return false }

// HandlerFuncs adapts plain functions to Handler. Nil fields decline.
type HandlerFuncs struct {
	Receive   func(s *Session, msg protocol.Message) bool
	Exception func(s *Session, msg protocol.Message, err error) bool
}

func (h HandlerFuncs) OnReceive(s *Session, msg protocol.Message) bool {
	if h.Receive == nil {
		return false
	}
	return h.Receive(s, msg)
}

func (h HandlerFuncs) OnException(s *Session, msg protocol.Message, err error) bool {
	if h.Exception == nil {
		return false
	}
	return h.Exception(s, msg, err)
}
