package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/peerlink/internal/observability"
	"github.com/danmuck/peerlink/internal/protocol"
)

var (
	ErrQueueFull     = errors.New("session: outbound queue full")
	ErrSessionClosed = errors.New("session: session closed")
)

// Session correlates outbound requests with their replies for one
// (from, to) peer pair. Identity is immutable after construction;
// sessions are built only through a Factory.
//
// Three actors touch a session concurrently: application code sending
// and cancelling, the transport driver draining and delivering, and
// the timeout reaper. No method blocks.
type Session struct {
	from     string
	to       string
	instance string

	factory *Factory
	cfg     Config

	outbound *outboundQueue
	pending  *pendingTable

	seq    atomic.Uint64
	closed atomic.Bool

	mu              sync.RWMutex
	defaultResponse Handler
}

// From returns the local endpoint name.
func (s *Session) From() string { return s.from }

// To returns the peer endpoint name.
func (s *Session) To() string { return s.to }

// Instance is a unique label for this session object, used in logs
// and metrics.
func (s *Session) Instance() string { return s.instance }

// SendMsg queues msg for transmission. A fresh monotonic identifier
// is assigned in place unless the caller pre-set one. A non-nil
// handler marks the message as expecting a reply routed back to that
// handler. timeout is clamped to the 500ms floor; zero means the
// session default, which is unbounded unless configured.
//
// The only error under normal use is ErrQueueFull on a capped queue.
func (s *Session) SendMsg(msg *protocol.Message, handler Handler, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !msg.Assigned() {
		msg.ID = s.seq.Add(1)
	}
	env := newEnvelope(s, *msg, s.cfg.clampTimeout(timeout))
	if handler != nil {
		env.handler = handler
		env.needsResponse = true
	}
	if err := s.outbound.push(env); err != nil {
		return err
	}
	observability.RecordEnqueue(s.instance, "send")
	return nil
}

// ReplyMsg queues reply as the answer to original: the reply reuses
// the original's identifier as its correlation tag and never expects
// a response of its own.
func (s *Session) ReplyMsg(reply *protocol.Message, original protocol.Message) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	reply.ID = original.ID
	env := newEnvelope(s, *reply, s.cfg.clampTimeout(0))
	if err := s.outbound.push(env); err != nil {
		return err
	}
	observability.RecordEnqueue(s.instance, "reply")
	return nil
}

// CancelMsg removes msg's envelope from whichever container holds it.
// Cancellation is best effort: if transmission or dispatch already
// consumed the envelope this is a silent no-op, not an error.
func (s *Session) CancelMsg(msg protocol.Message) {
	tag := msg.Tag()
	if s.outbound.removeTag(tag) {
		observability.RecordCancel(s.instance, "queued")
		return
	}
	if _, ok := s.pending.take(tag); ok {
		observability.RecordCancel(s.instance, "pending")
		return
	}
	observability.RecordCancel(s.instance, "miss")
}

// SetDefaultResponse replaces the fallback handler. A nil handler is
// ignored so the reference never goes empty.
func (s *Session) SetDefaultResponse(h Handler) {
	if h == nil {
		return
	}
	s.mu.Lock()
	s.defaultResponse = h
	s.mu.Unlock()
}

// RemoveDefaultResponse resets the fallback handler to the declining
// null object.
func (s *Session) RemoveDefaultResponse() {
	s.mu.Lock()
	s.defaultResponse = NopHandler{}
	s.mu.Unlock()
}

func (s *Session) defaultHandler() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultResponse
}

// Close tears the session down through its factory.
func (s *Session) Close() {
	s.factory.CloseSession(s)
}

// HasOutbound reports whether any envelope awaits transmission.
func (s *Session) HasOutbound() bool {
	return s.outbound.length() > 0
}

// NextOutbound pops the next envelope awaiting transmission. Entries
// already past their deadline are discarded permanently, each firing
// exactly one ErrSendTimeout through the exception path, before the
// first live entry is returned.
func (s *Session) NextOutbound() (*Envelope, bool) {
	now := time.Now()
	for {
		env, ok := s.outbound.pop()
		if !ok {
			return nil, false
		}
		if env.expired(now) {
			observability.RecordTimeout(s.instance, "send")
			s.DispatchException(env, protocol.ErrSendTimeout)
			continue
		}
		return env, true
	}
}

// MarkSent records a successful transmission. Envelopes expecting a
// reply move into the pending-response table; fire-and-forget
// envelopes are dropped here.
func (s *Session) MarkSent(env *Envelope) {
	if env.needsResponse {
		s.pending.put(env)
	}
	observability.RecordSent(s.instance, "ok")
}

// MarkSendFailed re-enqueues env at the queue tail for another
// attempt. There is no backoff or attempt cap at this layer; the
// unchanged deadline eventually expires a message that never sends.
// The retry bypasses any MaxOutbound cap so a failed send is never
// silently dropped.
func (s *Session) MarkSendFailed(env *Envelope) {
	s.outbound.requeue(env)
	observability.RecordSent(s.instance, "retry")
}

// DispatchMsg routes an inbound message: the pending entry matching
// its correlation tag is removed and offered the message first; a
// declined or unmatched message falls back to the default handler.
// The return value reports whether anyone handled it.
func (s *Session) DispatchMsg(msg protocol.Message) bool {
	if env, ok := s.pending.take(msg.Tag()); ok {
		if env.handler.OnReceive(s, msg) {
			observability.RecordDispatch(s.instance, "handler")
			return true
		}
	}
	if s.defaultHandler().OnReceive(s, msg) {
		observability.RecordDispatch(s.instance, "default")
		return true
	}
	observability.RecordDispatch(s.instance, "unhandled")
	return false
}

// DispatchException offers err to the envelope's own handler, then to
// the default handler. A decline from both absorbs the exception
// silently; declining is a normal outcome, never a failure.
func (s *Session) DispatchException(env *Envelope, err error) bool {
	if env.handler.OnException(s, env.msg, err) {
		return true
	}
	return s.defaultHandler().OnException(s, env.msg, err)
}

// DispatchError routes a transport-reported error for msg. A pending
// entry matching the message's tag is consumed and its handler
// offered the error first; otherwise the error goes straight to the
// default handler.
func (s *Session) DispatchError(msg protocol.Message, err error) bool {
	if env, ok := s.pending.take(msg.Tag()); ok {
		return s.DispatchException(env, err)
	}
	return s.DispatchException(inboundEnvelope(s, msg), err)
}

// ReapResponseTimeouts sweeps the pending-response table, firing one
// ErrResponseTimeout per expired entry. Collection and removal happen
// before any handler runs, so a concurrent reply dispatch for the
// same tag resolves to exactly one of the two outcomes. Returns the
// number of entries reaped.
func (s *Session) ReapResponseTimeouts() int {
	expired := s.pending.takeExpired(time.Now())
	for _, env := range expired {
		observability.RecordTimeout(s.instance, "response")
		s.DispatchException(env, protocol.ErrResponseTimeout)
	}
	return len(expired)
}

// ClearPending evicts every awaiting-response entry; used on
// teardown.
func (s *Session) ClearPending() {
	s.pending.clear()
}

// ClearPendingBefore evicts awaiting-response entries whose numeric
// tag is strictly below threshold, dropping replies made meaningless
// by a sequence reset. Non-numeric tags are skipped.
func (s *Session) ClearPendingBefore(threshold uint64) int {
	return s.pending.clearBefore(threshold)
}
