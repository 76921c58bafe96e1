package transport

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/peerlink/internal/protocol"
	"github.com/danmuck/peerlink/internal/protocol/session"
	"github.com/danmuck/peerlink/internal/testutil/testlog"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ReapInterval = 50 * time.Millisecond
	cfg.Backoff.Jitter = false
	cfg.Backoff.InitialDelay = time.Millisecond
	cfg.Backoff.MaxDelay = 10 * time.Millisecond
	return cfg
}

// linked wires two endpoints over loopback and starts both pumps.
func linked(t *testing.T, ctx context.Context) (*session.Session, *session.Session) {
	t.Helper()
	local := session.NewFactory("peer.local", session.DefaultConfig())
	remote := session.NewFactory("peer.remote", session.DefaultConfig())
	t.Cleanup(local.CloseAll)
	t.Cleanup(remote.CloseAll)

	toRemote := local.Session("peer.remote")
	toLocal := remote.Session("peer.local")

	localLink := NewLoopback()
	remoteLink := NewLoopback()
	localDriver, err := NewDriver(toRemote, localLink, testConfig())
	if err != nil {
		t.Fatalf("local driver: %v", err)
	}
	remoteDriver, err := NewDriver(toLocal, remoteLink, testConfig())
	if err != nil {
		t.Fatalf("remote driver: %v", err)
	}
	localLink.Bind(remoteDriver)
	remoteLink.Bind(localDriver)

	go localDriver.Run(ctx)
	go remoteDriver.Run(ctx)
	return toRemote, toLocal
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.ReapInterval = session.MinTimeout
	if err := bad.Validate(); !errors.Is(err, ErrReapIntervalTooLong) {
		t.Fatalf("expected ErrReapIntervalTooLong, got %v", err)
	}
	bad = DefaultConfig()
	bad.PollInterval = 0
	if err := bad.Validate(); !errors.Is(err, ErrPollIntervalInvalid) {
		t.Fatalf("expected ErrPollIntervalInvalid, got %v", err)
	}
}

func TestNewDriverRejectsNilCollaborators(t *testing.T) {
	testlog.Start(t)
	f := session.NewFactory("peer.local", session.DefaultConfig())
	defer f.CloseAll()
	s := f.Session("peer.remote")
	if _, err := NewDriver(nil, NewLoopback(), DefaultConfig()); !errors.Is(err, ErrNilSession) {
		t.Fatalf("expected ErrNilSession, got %v", err)
	}
	if _, err := NewDriver(s, nil, DefaultConfig()); !errors.Is(err, ErrNilTransport) {
		t.Fatalf("expected ErrNilTransport, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	toRemote, toLocal := linked(t, ctx)

	toLocal.SetDefaultResponse(session.HandlerFuncs{
		Receive: func(s *session.Session, msg protocol.Message) bool {
			if msg.Kind != "ping" {
				return false
			}
			pong := &protocol.Message{Kind: "pong"}
			if err := s.ReplyMsg(pong, msg); err != nil {
				t.Errorf("reply: %v", err)
			}
			return true
		},
	})

	got := make(chan protocol.Message, 1)
	ping := &protocol.Message{Kind: "ping"}
	err := toRemote.SendMsg(ping, session.HandlerFuncs{
		Receive: func(_ *session.Session, msg protocol.Message) bool {
			got <- msg
			return true
		},
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-got:
		if msg.Kind != "pong" || msg.ID != ping.ID {
			t.Fatalf("unexpected reply: %+v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("no reply before deadline")
	}
}

func TestSendFailureRetriesUntilDelivered(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	local := session.NewFactory("peer.local", session.DefaultConfig())
	remote := session.NewFactory("peer.remote", session.DefaultConfig())
	defer local.CloseAll()
	defer remote.CloseAll()
	toRemote := local.Session("peer.remote")
	toLocal := remote.Session("peer.local")

	delivered := make(chan protocol.Message, 1)
	toLocal.SetDefaultResponse(session.HandlerFuncs{
		Receive: func(_ *session.Session, msg protocol.Message) bool {
			delivered <- msg
			return true
		},
	})

	localLink := NewLoopback()
	remoteLink := NewLoopback()
	localDriver, err := NewDriver(toRemote, localLink, testConfig())
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	remoteDriver, err := NewDriver(toLocal, remoteLink, testConfig())
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	localLink.Bind(remoteDriver)
	remoteLink.Bind(localDriver)

	var attempts atomic.Int32
	localLink.FailWith(func(protocol.Message) error {
		if attempts.Add(1) <= 3 {
			return errors.New("carrier down")
		}
		return nil
	})

	go localDriver.Run(ctx)
	go remoteDriver.Run(ctx)

	if err := toRemote.SendMsg(&protocol.Message{Kind: "retry"}, nil, 2*time.Second); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case msg := <-delivered:
		if msg.Kind != "retry" {
			t.Fatalf("unexpected delivery: %+v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("message never survived the retries")
	}
	if got := attempts.Load(); got < 4 {
		t.Fatalf("attempts=%d want>=4", got)
	}
}

func TestDriverReapsResponseTimeouts(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	toRemote, _ := linked(t, ctx)

	timedOut := make(chan error, 1)
	msg := &protocol.Message{Kind: "void"}
	err := toRemote.SendMsg(msg, session.HandlerFuncs{
		Exception: func(_ *session.Session, _ protocol.Message, err error) bool {
			timedOut <- err
			return true
		},
	}, session.MinTimeout)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case err := <-timedOut:
		if !errors.Is(err, protocol.ErrResponseTimeout) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("reaper never fired")
	}
}

func TestDeliverErrorReachesPendingHandler(t *testing.T) {
	testlog.Start(t)
	f := session.NewFactory("peer.local", session.DefaultConfig())
	defer f.CloseAll()
	s := f.Session("peer.remote")
	link := NewLoopback()
	driver, err := NewDriver(s, link, testConfig())
	if err != nil {
		t.Fatalf("driver: %v", err)
	}

	caught := make(chan error, 1)
	msg := &protocol.Message{Kind: "rpc"}
	err = s.SendMsg(msg, session.HandlerFuncs{
		Exception: func(_ *session.Session, _ protocol.Message, err error) bool {
			caught <- err
			return true
		},
	}, time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	env, ok := s.NextOutbound()
	if !ok {
		t.Fatalf("missing envelope")
	}
	s.MarkSent(env)

	boom := errors.New("peer vanished")
	if !driver.DeliverError(protocol.Message{ID: msg.ID}, boom) {
		t.Fatalf("pending handler should claim the transport error")
	}
	if got := <-caught; !errors.Is(got, boom) {
		t.Fatalf("error must pass through unchanged, got %v", got)
	}
}

func TestLoopbackUnbound(t *testing.T) {
	testlog.Start(t)
	link := NewLoopback()
	err := link.Send(context.Background(), protocol.Message{})
	if !errors.Is(err, ErrLoopbackUnbound) {
		t.Fatalf("expected ErrLoopbackUnbound, got %v", err)
	}
}

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 50*time.Millisecond {
		t.Fatalf("streak1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 100*time.Millisecond {
		t.Fatalf("streak2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != time.Second {
		t.Fatalf("streak6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(7))
	got := NextBackoffDelay(cfg, 2, rng)
	if got < 100*time.Millisecond || got > 300*time.Millisecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}
