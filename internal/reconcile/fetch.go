package reconcile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/erauner12/groceries/internal/client"
	"github.com/erauner12/groceries/internal/model"
)

// collection binds one entity list to its remote and local sources.
type collection[T model.Record] struct {
	list    func(ctx context.Context) ([]T, error)
	cached  func(ctx context.Context) ([]T, error)
	replace func(ctx context.Context, recs []T) error
	get     func() []T
	set     func(recs []T)
}

// fetch loads from the server, falling back to the local snapshot while
// offline. Records with temporary ids survive a refresh while their
// mutations are still queued.
func fetch[T model.Record](ctx context.Context, s *Store, c collection[T]) error {
	s.update(func() { s.loading++ })
	defer s.update(func() { s.loading-- })

	recs, err := c.list(ctx)
	if err != nil {
		if client.IsNetwork(err) {
			s.SetOnline(false)
			cached, cerr := c.cached(ctx)
			if cerr != nil {
				return cerr
			}
			s.update(func() { c.set(cached) })
			return nil
		}
		if ctx.Err() == nil {
			s.notify(err.Error())
		}
		return err
	}

	s.SetOnline(true)
	var merged []T
	s.update(func() {
		merged = append([]T(nil), recs...)
		if s.pending > 0 {
			for _, r := range c.get() {
				if model.IsTemporary(r.RecordID()) && indexOf(merged, r.RecordID()) < 0 {
					merged = append(merged, r)
				}
			}
		}
		c.set(merged)
	})
	return c.replace(ctx, merged)
}

func (s *Store) categoryCollection() collection[model.Category] {
	return collection[model.Category]{
		list:    s.remote.ListCategories,
		cached:  s.local.Categories,
		replace: s.local.ReplaceCategories,
		get:     func() []model.Category { return s.categories },
		set: func(recs []model.Category) {
			s.categories = recs
			model.SortCategories(s.categories)
			s.redecorate()
		},
	}
}

func (s *Store) itemCollection() collection[model.Item] {
	return collection[model.Item]{
		list:    s.remote.ListItems,
		cached:  s.local.Items,
		replace: s.local.ReplaceItems,
		get:     func() []model.Item { return s.items },
		set: func(recs []model.Item) {
			s.items = recs
			s.redecorate()
		},
	}
}

func (s *Store) recipeCollection() collection[model.Recipe] {
	return collection[model.Recipe]{
		list:    s.remote.ListRecipes,
		cached:  s.local.Recipes,
		replace: s.local.ReplaceRecipes,
		get:     func() []model.Recipe { return s.recipes },
		set: func(recs []model.Recipe) {
			s.recipes = recs
			model.SortRecipes(s.recipes)
		},
	}
}

func (s *Store) FetchCategories(ctx context.Context) error {
	return fetch(ctx, s, s.categoryCollection())
}

func (s *Store) FetchItems(ctx context.Context) error {
	return fetch(ctx, s, s.itemCollection())
}

func (s *Store) FetchRecipes(ctx context.Context) error {
	return fetch(ctx, s, s.recipeCollection())
}

// FetchAll refreshes the three lists concurrently. One list failing does
// not stop the others; the first error is returned.
func (s *Store) FetchAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.FetchCategories(ctx) })
	g.Go(func() error { return s.FetchItems(ctx) })
	g.Go(func() error { return s.FetchRecipes(ctx) })
	return g.Wait()
}
