// Package syncq replays the durable mutation queue against the server once
// connectivity returns.
package syncq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/client"
	"github.com/erauner12/groceries/internal/model"
)

// Queue is the durable store the engine drains. Resolve must remove the
// entry and record the mapping atomically, so a drain interrupted after a
// create still rewrites the entries that follow it.
type Queue interface {
	Queue(ctx context.Context) ([]model.QueueEntry, error)
	Remove(ctx context.Context, entryID int64) error
	Resolve(ctx context.Context, entryID int64, r model.ResolvedID) error
	ResolvedIDs(ctx context.Context) ([]model.ResolvedID, error)
}

// DrainResult summarizes one Drain call.
type DrainResult struct {
	Processed int
	Discarded int
	Remaining int
	// Halted is set when a network failure stopped the drain early.
	Halted bool
	// Skipped is set when the call did nothing because a drain was already
	// running or the client is offline.
	Skipped bool
}

// Engine drains the queue in FIFO order. At most one drain runs at a time.
type Engine struct {
	queue     Queue
	handlers  map[model.Action]Handler
	online    func() bool
	issue     func() string
	retryable func(error) bool
	progress  func()
	logger    zerolog.Logger

	running atomic.Bool

	mu    sync.Mutex
	idMap map[model.Kind]map[int64]int64 // temporary id -> server id
}

// Option configures an Engine.
type Option func(*Engine)

// WithOnline sets the connectivity probe. Drain is a no-op while it
// reports false.
func WithOnline(fn func() bool) Option {
	return func(e *Engine) { e.online = fn }
}

// WithChangeIssuer sets the source of change identifiers for replayed calls.
func WithChangeIssuer(fn func() string) Option {
	return func(e *Engine) { e.issue = fn }
}

// WithRetryable sets the test for failures that halt the drain and keep the
// entry queued. The default is client.IsRetryable.
func WithRetryable(fn func(error) bool) Option {
	return func(e *Engine) { e.retryable = fn }
}

// WithProgress registers a callback run after each entry leaves the queue.
func WithProgress(fn func()) Option {
	return func(e *Engine) { e.progress = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine over q using handlers from NewHandlers.
func New(q Queue, handlers map[model.Action]Handler, opts ...Option) *Engine {
	e := &Engine{
		queue:     q,
		handlers:  handlers,
		online:    func() bool { return true },
		issue:     uuid.NewString,
		retryable: client.IsRetryable,
		progress:  func() {},
		logger:    log.Logger,
		idMap:     make(map[model.Kind]map[int64]int64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a drain is in progress.
func (e *Engine) Running() bool { return e.running.Load() }

// ResolveID returns the server id a temporary id was replaced with.
func (e *Engine) ResolveID(kind model.Kind, tempID int64) (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.idMap[kind][tempID]
	return id, ok
}

// Drain replays queued mutations oldest first. Successful and definitively
// failed entries are removed; a network failure stops the drain and leaves
// the failing entry and everything after it queued. The returned error is
// only set when the queue itself could not be read or updated.
func (e *Engine) Drain(ctx context.Context) (DrainResult, error) {
	if !e.online() {
		return DrainResult{Skipped: true}, nil
	}
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug().Msg("drain already running")
		return DrainResult{Skipped: true}, nil
	}
	defer e.running.Store(false)

	if err := e.loadResolved(ctx); err != nil {
		return DrainResult{}, err
	}
	entries, err := e.queue.Queue(ctx)
	if err != nil {
		return DrainResult{}, fmt.Errorf("read sync queue: %w", err)
	}

	var res DrainResult
	for i, entry := range entries {
		if ctx.Err() != nil {
			res.Remaining = len(entries) - i
			return res, ctx.Err()
		}

		logger := e.logger.With().
			Int64("entryId", entry.ID).
			Str("action", string(entry.Action)).
			Logger()

		handler, ok := e.handlers[entry.Action]
		if !ok {
			logger.Warn().Msg("no handler for queued action, discarding")
			if err := e.remove(ctx, entry.ID); err != nil {
				return res, err
			}
			res.Discarded++
			continue
		}

		payload, ok := e.rewrite(entry.Action, entry.Payload)
		if !ok {
			logger.Warn().Int64("id", entry.Payload.ID).Msg("queued entry references a record that was never created, discarding")
			if err := e.remove(ctx, entry.ID); err != nil {
				return res, err
			}
			res.Discarded++
			continue
		}

		changeID := e.issue()
		createdID, err := handler(ctx, payload, changeID)
		if err != nil {
			if e.retryable(err) {
				logger.Info().Err(err).Msg("network failure during drain, will retry later")
				res.Halted = true
				res.Remaining = len(entries) - i
				return res, nil
			}
			if ctx.Err() != nil {
				res.Remaining = len(entries) - i
				return res, ctx.Err()
			}
			logger.Warn().Err(err).Str("changeId", changeID).Msg("queued mutation rejected, discarding")
			if err := e.remove(ctx, entry.ID); err != nil {
				return res, err
			}
			res.Discarded++
			continue
		}

		if entry.Action.IsCreate() && model.IsTemporary(entry.Payload.ID) && createdID != 0 {
			r := model.ResolvedID{Kind: entry.Action.Kind(), TempID: entry.Payload.ID, ID: createdID}
			if err := e.queue.Resolve(ctx, entry.ID, r); err != nil {
				return res, fmt.Errorf("resolve queue entry %d: %w", entry.ID, err)
			}
			e.remember(r.Kind, r.TempID, r.ID)
			e.progress()
		} else if err := e.remove(ctx, entry.ID); err != nil {
			return res, err
		}
		res.Processed++
		logger.Debug().Str("changeId", changeID).Msg("queued mutation replayed")
	}

	if res.Processed > 0 || res.Discarded > 0 {
		e.logger.Info().
			Int("processed", res.Processed).
			Int("discarded", res.Discarded).
			Msg("sync queue drained")
	}
	return res, nil
}

func (e *Engine) remove(ctx context.Context, id int64) error {
	if err := e.queue.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove queue entry %d: %w", id, err)
	}
	e.progress()
	return nil
}

// loadResolved replaces the in-memory id map with the durable one, which
// survives restarts and is emptied together with the queue.
func (e *Engine) loadResolved(ctx context.Context) error {
	resolved, err := e.queue.ResolvedIDs(ctx)
	if err != nil {
		return fmt.Errorf("read resolved ids: %w", err)
	}
	e.mu.Lock()
	e.idMap = make(map[model.Kind]map[int64]int64)
	e.mu.Unlock()
	for _, r := range resolved {
		e.remember(r.Kind, r.TempID, r.ID)
	}
	return nil
}

func (e *Engine) remember(kind model.Kind, tempID, id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.idMap[kind]
	if !ok {
		m = make(map[int64]int64)
		e.idMap[kind] = m
	}
	m[tempID] = id
}

func (e *Engine) lookup(kind model.Kind, id int64) (int64, bool) {
	if !model.IsTemporary(id) {
		return id, true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	mapped, ok := e.idMap[kind][id]
	return mapped, ok
}

// rewrite replaces temporary ids with the server ids learned earlier in the
// drain. It reports false when the entry targets a temporary record whose
// create never succeeded.
func (e *Engine) rewrite(action model.Action, p model.MutationPayload) (model.MutationPayload, bool) {
	if !action.IsCreate() && p.ID != 0 {
		id, ok := e.lookup(action.Kind(), p.ID)
		if !ok {
			return p, false
		}
		p.ID = id
	}

	if p.Item != nil {
		in := *p.Item
		in.CategoryID = e.categoryRef(in.CategoryID)
		p.Item = &in
	}

	if p.Recipe != nil {
		in := *p.Recipe
		ings := make([]model.IngredientInput, len(in.Ingredients))
		for i, ing := range in.Ingredients {
			ing.CategoryID = e.categoryRef(ing.CategoryID)
			ings[i] = ing
		}
		in.Ingredients = ings
		p.Recipe = &in
	}

	if len(p.Categories) > 0 {
		order := make([]model.SortOrder, 0, len(p.Categories))
		for _, so := range p.Categories {
			id, ok := e.lookup(model.KindCategories, so.ID)
			if !ok {
				continue
			}
			order = append(order, model.SortOrder{ID: id, SortOrder: so.SortOrder})
		}
		p.Categories = order
	}
	return p, true
}

// categoryRef maps a temporary category reference, or drops it if the
// category was never created.
func (e *Engine) categoryRef(ref *int64) *int64 {
	if ref == nil || !model.IsTemporary(*ref) {
		return ref
	}
	id, ok := e.lookup(model.KindCategories, *ref)
	if !ok {
		return nil
	}
	return &id
}
