package session

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/peerlink/internal/protocol"
	"github.com/danmuck/peerlink/internal/testutil/testlog"
)

func testSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	f := NewFactory("peer.local", cfg)
	s := f.Session("peer.remote")
	t.Cleanup(f.CloseAll)
	return s
}

func queuedEnvelope(s *Session, id uint64, timeout time.Duration) *Envelope {
	return newEnvelope(s, protocol.Message{ID: id}, timeout)
}

func TestOutboundQueueFIFO(t *testing.T) {
	testlog.Start(t)
	s := testSession(t, DefaultConfig())
	q := newOutboundQueue(0)
	for id := uint64(1); id <= 3; id++ {
		if err := q.push(queuedEnvelope(s, id, time.Minute)); err != nil {
			t.Fatalf("push %d: %v", id, err)
		}
	}
	for want := uint64(1); want <= 3; want++ {
		env, ok := q.pop()
		if !ok {
			t.Fatalf("queue empty at %d", want)
		}
		if env.Msg().ID != want {
			t.Fatalf("got id=%d want=%d", env.Msg().ID, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatalf("queue should be empty")
	}
}

func TestOutboundQueueCap(t *testing.T) {
	testlog.Start(t)
	s := testSession(t, DefaultConfig())
	q := newOutboundQueue(2)
	if err := q.push(queuedEnvelope(s, 1, time.Minute)); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := q.push(queuedEnvelope(s, 2, time.Minute)); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if err := q.push(queuedEnvelope(s, 3, time.Minute)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	// retries bypass the cap so a failed send is never dropped
	q.requeue(queuedEnvelope(s, 4, time.Minute))
	if got := q.length(); got != 3 {
		t.Fatalf("length=%d want=3", got)
	}
}

func TestOutboundQueueRemoveTag(t *testing.T) {
	testlog.Start(t)
	s := testSession(t, DefaultConfig())
	q := newOutboundQueue(0)
	for id := uint64(1); id <= 3; id++ {
		if err := q.push(queuedEnvelope(s, id, time.Minute)); err != nil {
			t.Fatalf("push %d: %v", id, err)
		}
	}
	if !q.removeTag("2") {
		t.Fatalf("expected removal of tag 2")
	}
	if q.removeTag("2") {
		t.Fatalf("tag 2 should already be gone")
	}
	first, _ := q.pop()
	second, _ := q.pop()
	if first.Tag() != "1" || second.Tag() != "3" {
		t.Fatalf("unexpected order after removal: %s, %s", first.Tag(), second.Tag())
	}
}
