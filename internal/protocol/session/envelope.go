package session

import (
	"time"

	"github.com/danmuck/peerlink/internal/protocol"
)

// Envelope wraps one message with its delivery metadata while it sits
// in the outbound queue or the pending-response table. The session
// back-reference is for routing only; the envelope is owned by
// whichever container currently holds it.
type Envelope struct {
	sess *Session
	msg  protocol.Message

	tag           string
	deadline      time.Time
	handler       Handler
	needsResponse bool
}

func newEnvelope(s *Session, msg protocol.Message, timeout time.Duration) *Envelope {
	return &Envelope{
		sess:     s,
		msg:      msg,
		tag:      msg.Tag(),
		deadline: time.Now().Add(timeout),
		handler:  NopHandler{},
	}
}

// inboundEnvelope wraps a message arriving from the transport; it
// carries no deadline and is never queued.
func inboundEnvelope(s *Session, msg protocol.Message) *Envelope {
	return &Envelope{
		sess:    s,
		msg:     msg,
		tag:     msg.Tag(),
		handler: NopHandler{},
	}
}

func (e *Envelope) Session() *Session { return e.sess }

func (e *Envelope) Msg() protocol.Message { return e.msg }

// Tag is the correlation key matching this envelope to its reply.
func (e *Envelope) Tag() string { return e.tag }

func (e *Envelope) Deadline() time.Time { return e.deadline }

// NeedsResponse reports whether the envelope moves to the
// pending-response table after a successful send.
func (e *Envelope) NeedsResponse() bool { return e.needsResponse }

func (e *Envelope) expired(now time.Time) bool {
	return now.After(e.deadline)
}
