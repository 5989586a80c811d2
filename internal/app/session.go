// Package app assembles one client session: the local cache, the API
// client, the reconciliation store, the sync engine and the live channel.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/client"
	"github.com/erauner12/groceries/internal/config"
	"github.com/erauner12/groceries/internal/live"
	"github.com/erauner12/groceries/internal/localstore"
	"github.com/erauner12/groceries/internal/model"
	"github.com/erauner12/groceries/internal/reconcile"
	"github.com/erauner12/groceries/internal/syncq"
)

// Session owns every client component. Close releases them.
type Session struct {
	cfg    config.Config
	logger zerolog.Logger

	local   *localstore.Store
	client  *client.Client
	store   *reconcile.Store
	engine  *syncq.Engine
	channel *live.Channel

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

type options struct {
	logger     zerolog.Logger
	httpClient *http.Client
	transport  live.Transport
	storeOpts  []reconcile.Option
	liveOpts   []live.Option
}

// Option configures a Session.
type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient replaces the REST client's http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTransport overrides the live transport chosen from the config.
func WithTransport(t live.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithStoreOptions passes options to the reconciliation store.
func WithStoreOptions(opts ...reconcile.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// WithLiveOptions passes options to the live channel.
func WithLiveOptions(opts ...live.Option) Option {
	return func(o *options) { o.liveOpts = append(o.liveOpts, opts...) }
}

// Open validates cfg, opens the local cache in cfg.DataDir and hydrates the
// store from it. Nothing touches the network until Start or Watch.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	local, err := localstore.OpenDir(cfg.DataDir, o.logger)
	if err != nil {
		return nil, err
	}

	clientOpts := []client.Option{client.WithLogger(o.logger)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(o.httpClient))
	}
	api := client.New(cfg.APIBaseURL, clientOpts...)

	store := reconcile.New(api, local, append([]reconcile.Option{reconcile.WithLogger(o.logger)}, o.storeOpts...)...)

	sessCtx, cancel := context.WithCancel(context.Background())

	engine := syncq.New(local, syncq.NewHandlers(api),
		syncq.WithOnline(store.Online),
		syncq.WithChangeIssuer(store.IssueChangeID),
		syncq.WithProgress(func() {
			if err := store.RefreshPending(sessCtx); err != nil {
				o.logger.Warn().Err(err).Msg("refresh pending count")
			}
		}),
		syncq.WithLogger(o.logger),
	)

	transport := o.transport
	if transport == nil {
		transport = transportFor(cfg.Transport, o.httpClient)
	}

	s := &Session{
		cfg:     *cfg,
		logger:  o.logger,
		local:   local,
		client:  api,
		store:   store,
		engine:  engine,
		channel: live.NewChannel(transport, append([]live.Option{live.WithLogger(o.logger)}, o.liveOpts...)...),
		ctx:     sessCtx,
		cancel:  cancel,
	}
	store.OnReconnect(s.onReconnect)

	if err := store.LoadCached(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("load cache: %w", err)
	}
	return s, nil
}

func transportFor(kind string, hc *http.Client) live.Transport {
	if kind == config.TransportWebSocket {
		return live.WebSocketTransport{}
	}
	// The stream client must not inherit the REST timeout.
	var stream *http.Client
	if hc != nil {
		c := *hc
		c.Timeout = 0
		stream = &c
	}
	return live.SSETransport{Client: stream}
}

// LiveEndpoint is the push URL for the configured transport.
func (s *Session) LiveEndpoint() string {
	if s.cfg.Transport == config.TransportWebSocket {
		return live.WebSocketURL(s.cfg.EventsURL() + "/ws")
	}
	return s.cfg.EventsURL()
}

// Store is the reconciliation store the UI reads and mutates.
func (s *Session) Store() *reconcile.Store { return s.store }

// Config returns the session configuration.
func (s *Session) Config() config.Config { return s.cfg }

// Start fetches everything and replays queued mutations. A network failure
// while fetching is not an error: the store keeps the cached snapshot.
func (s *Session) Start(ctx context.Context) error {
	if err := s.store.FetchAll(ctx); err != nil {
		if !client.IsNetwork(err) {
			return err
		}
		s.logger.Warn().Err(err).Msg("server unreachable, using cached data")
		return nil
	}
	if s.store.PendingSyncs() > 0 && s.store.Online() {
		if _, err := s.Sync(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sync drains the mutation queue and then refetches everything, so server
// identities replace temporary ones and changes pushed while the channel was
// down are picked up. A skipped or halted drain leaves the store as is.
func (s *Session) Sync(ctx context.Context) (syncq.DrainResult, error) {
	res, err := s.engine.Drain(ctx)
	if perr := s.store.RefreshPending(ctx); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return res, err
	}
	if !res.Skipped && !res.Halted {
		if ferr := s.store.FetchAll(ctx); ferr != nil && !client.IsNetwork(ferr) {
			return res, ferr
		}
	}
	return res, nil
}

// onReconnect runs on the live channel goroutine, so the drain happens on
// its own goroutine.
func (s *Session) onReconnect() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.Sync(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("sync after reconnect failed")
			return
		}
		s.logger.Info().
			Int("processed", res.Processed).
			Int("remaining", res.Remaining).
			Bool("skipped", res.Skipped).
			Msg("sync after reconnect")
	}()
}

// WatchHandlers observe the live channel after the store has merged.
// Either may be nil.
type WatchHandlers struct {
	OnEvent      func(model.ChangeEvent)
	OnConnection func(connected bool)
}

// Watch connects the live channel. Remote changes are merged into the store
// before h.OnEvent runs; echoes of our own writes are dropped silently.
// Watch returns immediately; call Unwatch or Close to stop.
func (s *Session) Watch(h WatchHandlers) {
	s.channel.Connect(s.ctx, s.LiveEndpoint(),
		func(ev model.ChangeEvent) {
			applied, err := s.store.ApplyRemoteChange(s.ctx, ev)
			if err != nil {
				s.logger.Warn().Err(err).Str("eventType", string(ev.Type)).Msg("dropped live event")
				return
			}
			if applied && h.OnEvent != nil {
				h.OnEvent(ev)
			}
		},
		func(connected bool) {
			s.store.SetOnline(connected)
			if h.OnConnection != nil {
				h.OnConnection(connected)
			}
		},
	)
}

// Unwatch disconnects the live channel and cancels pending reconnects.
func (s *Session) Unwatch() {
	s.channel.Disconnect()
}

// LiveState reports the live channel state.
func (s *Session) LiveState() live.State { return s.channel.State() }

// Close stops the live channel, waits for background syncs and closes the
// local cache. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.channel.Disconnect()
		s.cancel()
		s.wg.Wait()
		err = s.local.Close()
	})
	return err
}
