package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/peerlink/internal/protocol"
)

var ErrLoopbackUnbound = errors.New("transport: loopback not bound to a peer driver")

// Loopback is an in-memory Transport handing each message straight to
// the peer's driver. It lets two sessions talk without sockets, which
// is all the demo binary and the driver tests need.
type Loopback struct {
	mu   sync.RWMutex
	peer *Driver
	fail func(protocol.Message) error
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

// Bind points the loopback at the driver receiving its traffic.
// Binding happens after both drivers exist.
func (l *Loopback) Bind(peer *Driver) {
	l.mu.Lock()
	l.peer = peer
	l.mu.Unlock()
}

// FailWith installs a fault hook consulted before delivery; a non-nil
// return is reported as a send failure. Tests use this to exercise
// the requeue path.
func (l *Loopback) FailWith(fn func(protocol.Message) error) {
	l.mu.Lock()
	l.fail = fn
	l.mu.Unlock()
}

func (l *Loopback) Send(ctx context.Context, msg protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	peer, fail := l.peer, l.fail
	l.mu.RUnlock()
	if fail != nil {
		if err := fail(msg); err != nil {
			return err
		}
	}
	if peer == nil {
		return ErrLoopbackUnbound
	}
	peer.Deliver(msg)
	return nil
}
