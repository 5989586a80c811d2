// Package reconcile holds the in-memory state the UI renders. It applies
// mutations optimistically, falls back to the local cache and the durable
// queue when the server is unreachable, and merges push events from other
// clients while ignoring echoes of its own writes.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/model"
	"github.com/erauner12/groceries/internal/syncq"
)

// NotificationTTL is how long an error notification stays up.
const NotificationTTL = 5 * time.Second

// ErrNotCached is returned when a mutation needs the current value of a
// record that is not loaded.
var ErrNotCached = errors.New("record not loaded")

// Remote is the server API the store talks to.
type Remote interface {
	syncq.Remote
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	ListRecipes(ctx context.Context) ([]model.Recipe, error)
}

// Local is the persistent cache and mutation queue.
type Local interface {
	Categories(ctx context.Context) ([]model.Category, error)
	Items(ctx context.Context) ([]model.Item, error)
	Recipes(ctx context.Context) ([]model.Recipe, error)
	ReplaceCategories(ctx context.Context, cats []model.Category) error
	ReplaceItems(ctx context.Context, items []model.Item) error
	ReplaceRecipes(ctx context.Context, recipes []model.Recipe) error
	PutCategory(ctx context.Context, c model.Category) error
	PutItem(ctx context.Context, it model.Item) error
	PutRecipe(ctx context.Context, r model.Recipe) error
	Delete(ctx context.Context, kind model.Kind, id int64) error
	DeleteChecked(ctx context.Context) (int, error)
	Enqueue(ctx context.Context, action model.Action, payload model.MutationPayload) (model.QueueEntry, error)
	QueueLen(ctx context.Context) (int, error)
}

// AfterFunc schedules f after d and returns a stop function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Store is the reconciliation store. One instance exists per session.
type Store struct {
	remote    Remote
	local     Local
	own       *OwnChanges
	now       func() time.Time
	newID     func() string
	afterFunc AfterFunc
	logger    zerolog.Logger

	mu           sync.Mutex
	categories   []model.Category
	items        []model.Item
	recipes      []model.Recipe
	loading      int
	pending      int
	online       bool
	notification string
	dismiss      func() bool
	nextTemp     int64
	onReconnect  func()

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for own-change expiry and
// optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithChangeIDs sets the change identifier generator.
func WithChangeIDs(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithAfterFunc sets the timer used to dismiss notifications.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Store) { s.afterFunc = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a store. It starts online with empty state; call LoadCached
// to hydrate from the local cache.
func New(remote Remote, local Local, opts ...Option) *Store {
	s := &Store{
		remote:    remote,
		local:     local,
		now:       time.Now,
		newID:     uuid.NewString,
		afterFunc: timeAfterFunc,
		logger:    log.Logger,
		online:    true,
		nextTemp:  -1,
		subs:      make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.own = NewOwnChanges(OwnChangeTTL, func() time.Time { return s.now() })
	return s
}

// OnReconnect registers fn to run on every offline to online transition.
func (s *Store) OnReconnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnect = fn
}

// IssueChangeID creates a change identifier and records it as our own.
func (s *Store) IssueChangeID() string {
	id := s.newID()
	s.own.Add(id)
	return id
}

// OwnChanges exposes the own-change set.
func (s *Store) OwnChanges() *OwnChanges { return s.own }

// LoadCached replaces memory with the local cache snapshot and refreshes the
// pending counter. Temporary ids continue below the lowest cached one.
func (s *Store) LoadCached(ctx context.Context) error {
	cats, err := s.local.Categories(ctx)
	if err != nil {
		return err
	}
	items, err := s.local.Items(ctx)
	if err != nil {
		return err
	}
	recipes, err := s.local.Recipes(ctx)
	if err != nil {
		return err
	}

	s.update(func() {
		s.categories = cats
		s.items = items
		s.recipes = recipes
		model.SortCategories(s.categories)
		model.SortRecipes(s.recipes)
		s.redecorate()
		for _, c := range cats {
			s.reserveTemp(c.ID)
		}
		for _, it := range items {
			s.reserveTemp(it.ID)
		}
		for _, r := range recipes {
			s.reserveTemp(r.ID)
		}
	})
	return s.RefreshPending(ctx)
}

// RefreshPending resets the pending counter to the queue length.
func (s *Store) RefreshPending(ctx context.Context) error {
	n, err := s.local.QueueLen(ctx)
	if err != nil {
		return err
	}
	s.update(func() { s.pending = n })
	return nil
}

// SetOnline records connectivity. Going from offline to online runs the
// reconnect hook.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	hook := s.onReconnect
	s.mu.Unlock()

	if was == online {
		return
	}
	s.logger.Info().Bool("online", online).Msg("connectivity changed")
	s.signal()
	if online && hook != nil {
		hook()
	}
}

func (s *Store) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// PendingSyncs is the number of queued mutations.
func (s *Store) PendingSyncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Categories returns categories in sort order.
func (s *Store) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.Category(nil), s.categories...)
	model.SortCategories(out)
	return out
}

// Items returns the list in display order.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.Item(nil), s.items...)
	model.SortItems(out)
	return out
}

// Recipes returns recipes ordered by name.
func (s *Store) Recipes() []model.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.Recipe(nil), s.recipes...)
	model.SortRecipes(out)
	return out
}

// Item returns one item by id.
func (s *Store) Item(id int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.items, id)
	if i < 0 {
		return model.Item{}, false
	}
	return s.items[i], true
}

// Recipe returns one recipe by id.
func (s *Store) Recipe(id int64) (model.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.recipes, id)
	if i < 0 {
		return model.Recipe{}, false
	}
	return s.recipes[i], true
}

// Notification returns the current error message, if any.
func (s *Store) Notification() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notification
}

// ClearNotification dismisses the current error message.
func (s *Store) ClearNotification() {
	s.update(func() {
		s.notification = ""
		if s.dismiss != nil {
			s.dismiss()
			s.dismiss = nil
		}
	})
}

func (s *Store) notify(msg string) {
	s.update(func() {
		if s.dismiss != nil {
			s.dismiss()
		}
		s.notification = msg
		s.dismiss = s.afterFunc(NotificationTTL, s.ClearNotification)
	})
}

// Subscribe returns a channel signalled after state changes. Signals
// coalesce; receivers should re-read state on each.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) signal() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// update runs fn under the state lock and notifies subscribers.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.signal()
}

// tempID hands out the next temporary id. Callers hold s.mu.
func (s *Store) tempID() int64 {
	id := s.nextTemp
	s.nextTemp--
	return id
}

func (s *Store) reserveTemp(id int64) {
	if id <= s.nextTemp {
		s.nextTemp = id - 1
	}
}

func indexOf[T model.Record](recs []T, id int64) int {
	for i, r := range recs {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func upsert[T model.Record](recs []T, rec T) []T {
	if i := indexOf(recs, rec.RecordID()); i >= 0 {
		recs[i] = rec
		return recs
	}
	return append(recs, rec)
}

func remove[T model.Record](recs []T, id int64) []T {
	if i := indexOf(recs, id); i >= 0 {
		return append(recs[:i], recs[i+1:]...)
	}
	return recs
}

// decorate fills the joined category fields from the loaded categories,
// keeping what the server sent when the category is not loaded.
// Callers hold s.mu.
func (s *Store) decorate(it *model.Item) {
	if it.CategoryID == nil {
		it.CategoryName, it.CategorySortOrder = nil, nil
		return
	}
	if i := indexOf(s.categories, *it.CategoryID); i >= 0 {
		name, order := s.categories[i].Name, s.categories[i].SortOrder
		it.CategoryName, it.CategorySortOrder = &name, &order
	}
}

func (s *Store) redecorate() {
	for i := range s.items {
		s.decorate(&s.items[i])
	}
}
