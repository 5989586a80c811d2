// Package live keeps a push subscription to the server's change events
// open, reconnecting with exponential backoff whenever it drops.
package live

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/model"
)

const (
	InitialRetryDelay = 1 * time.Second
	MaxRetryDelay     = 30 * time.Second
)

// State of the subscription.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// EventHandler receives every well-formed change event.
type EventHandler func(model.ChangeEvent)

// ConnectionHandler is told when the subscription comes up or goes down.
type ConnectionHandler func(connected bool)

// Channel is a resilient push subscription. Callbacks run on the channel's
// own goroutine and never after Disconnect returns.
type Channel struct {
	transport  Transport
	after      func(time.Duration) <-chan time.Time
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Channel.
type Option func(*Channel)

// WithAfter replaces time.After for reconnect delays.
func WithAfter(fn func(time.Duration) <-chan time.Time) Option {
	return func(c *Channel) { c.after = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// NewBackOff returns the reconnect schedule: 1s doubling to a 30s ceiling,
// without jitter, retrying forever.
func NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = InitialRetryDelay
	b.Multiplier = 2
	b.MaxInterval = MaxRetryDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// NewChannel creates a disconnected channel over t.
func NewChannel(t Transport, opts ...Option) *Channel {
	c := &Channel{
		transport:  t,
		after:      time.After,
		newBackOff: NewBackOff,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current subscription state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
}

// Connect starts the subscription to endpoint in the background. Any
// previous subscription is disconnected first. The subscription ends when
// ctx is cancelled or Disconnect is called.
func (c *Channel) Connect(ctx context.Context, endpoint string, onEvent EventHandler, onConn ConnectionHandler) {
	c.Disconnect()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.setState(Connecting)
	go c.run(runCtx, endpoint, onEvent, onConn, done)
}

// Disconnect cancels any pending reconnect, closes the active stream and
// waits for the run loop to exit. It must not be called from a callback.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.setState(Disconnected)
}

func (c *Channel) run(ctx context.Context, endpoint string, onEvent EventHandler, onConn ConnectionHandler, done chan struct{}) {
	defer close(done)
	defer c.setState(Disconnected)

	logger := c.logger.With().Str("endpoint", endpoint).Logger()
	bo := c.newBackOff()
	attempt := 0

	for {
		c.setState(Connecting)
		stream, err := c.transport.Open(ctx, endpoint)
		if err == nil {
			bo.Reset()
			attempt = 0
			c.setState(Connected)
			logger.Info().Msg("live updates connected")
			if ctx.Err() == nil {
				onConn(true)
			}
			err = c.consume(ctx, stream, onEvent, &logger)
			_ = stream.Close()
		}

		if ctx.Err() != nil {
			return
		}

		onConn(false)
		c.setState(Reconnecting)

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			delay = MaxRetryDelay
		}
		attempt++
		logger.Warn().
			Err(err).
			Dur("delay", delay).
			Int("attempt", attempt).
			Msg("live updates disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-c.after(delay):
		}
	}
}

func (c *Channel) consume(ctx context.Context, stream Stream, onEvent EventHandler, logger *zerolog.Logger) error {
	for {
		msg, err := stream.Recv(ctx)
		if err != nil {
			return err
		}
		ev, err := model.ParseChangeEvent(msg)
		if err != nil {
			logger.Warn().Err(err).Msg("dropping malformed change event")
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onEvent(ev)
	}
}
