package transport

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/danmuck/peerlink/internal/protocol"
	"github.com/danmuck/peerlink/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrNilTransport        = errors.New("transport: nil transport")
	ErrNilSession          = errors.New("transport: nil session")
	ErrReapIntervalTooLong = errors.New("transport: reap interval must stay below the session timeout floor")
	ErrPollIntervalInvalid = errors.New("transport: poll interval must be positive")
)

// Transport carries one message toward the peer. Framing, byte I/O,
// and reconnect live behind this interface.
type Transport interface {
	Send(ctx context.Context, msg protocol.Message) error
}

// Config defines driver pacing.
type Config struct {
	// PollInterval bounds how long a queued envelope waits before the
	// next drain pass picks it up.
	PollInterval time.Duration

	// ReapInterval schedules the response-timeout sweep. It must stay
	// below session.MinTimeout so reaping latency never exceeds the
	// shortest allowed timeout.
	ReapInterval time.Duration

	Backoff BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 20 * time.Millisecond,
		ReapInterval: 250 * time.Millisecond,
		Backoff: BackoffConfig{
			InitialDelay: 50 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrPollIntervalInvalid
	}
	if c.ReapInterval <= 0 || c.ReapInterval >= session.MinTimeout {
		return ErrReapIntervalTooLong
	}
	return nil
}

// Driver pumps one session over one Transport: it drains the outbound
// queue, reports each attempt back to the session, delivers inbound
// traffic, and runs the timeout sweep on schedule.
type Driver struct {
	sess *session.Session
	tr   Transport
	cfg  Config
	rng  *rand.Rand

	// consecutive send failures, reset on the first success; paces
	// retry attempts, not queue admission.
	failures int
}

func NewDriver(sess *session.Session, tr Transport, cfg Config) (*Driver, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	if tr == nil {
		return nil, ErrNilTransport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		sess: sess,
		tr:   tr,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (d *Driver) Session() *session.Session { return d.sess }

// Run pumps until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	poll := time.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()
	reap := time.NewTicker(d.cfg.ReapInterval)
	defer reap.Stop()

	log.Debug().
		Str("session", d.sess.Instance()).
		Str("to", d.sess.To()).
		Msg("driver running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reap.C:
			if n := d.sess.ReapResponseTimeouts(); n > 0 {
				log.Debug().
					Str("session", d.sess.Instance()).
					Int("reaped", n).
					Msg("response timeouts reaped")
			}
		case <-poll.C:
			d.drain(ctx)
		}
	}
}

// drain sends queued envelopes until the queue empties or a send
// fails. A failed envelope goes back to the queue tail and the pass
// ends after a backoff pause, so a dead transport does not spin.
func (d *Driver) drain(ctx context.Context) {
	for {
		env, ok := d.sess.NextOutbound()
		if !ok {
			return
		}
		if err := d.tr.Send(ctx, env.Msg()); err != nil {
			d.failures++
			d.sess.MarkSendFailed(env)
			log.Warn().
				Err(err).
				Str("session", d.sess.Instance()).
				Str("tag", env.Tag()).
				Int("failures", d.failures).
				Msg("send failed, requeued")
			delay := NextBackoffDelay(d.cfg.Backoff, d.failures, d.rng)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			return
		}
		d.failures = 0
		d.sess.MarkSent(env)
	}
}

// Deliver routes one inbound message into the session dispatcher.
func (d *Driver) Deliver(msg protocol.Message) bool {
	return d.sess.DispatchMsg(msg)
}

// DeliverError routes a transport-level error for msg into the
// session exception path.
func (d *Driver) DeliverError(msg protocol.Message, err error) bool {
	return d.sess.DispatchError(msg, err)
}
