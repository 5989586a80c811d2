package reconcile

import (
	"context"

	"github.com/erauner12/groceries/internal/model"
)

// CreateCategory adds a category at the end of the sort order.
func (s *Store) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	s.mu.Lock()
	temp := model.Category{
		ID:        s.tempID(),
		Name:      name,
		SortOrder: model.NextSortOrder(s.categories),
		CreatedAt: s.now().UTC(),
	}
	s.mu.Unlock()

	return optimistic(ctx, s, mutation[model.Category]{
		action:  model.ActionCategoryCreate,
		value:   temp,
		payload: model.MutationPayload{ID: temp.ID, Name: name},
		apply: func() {
			s.categories = append(s.categories, temp)
		},
		persist: func(ctx context.Context) error {
			return s.local.PutCategory(ctx, temp)
		},
		remote: func(ctx context.Context, changeID string) (model.Category, error) {
			return s.remote.CreateCategory(ctx, name, changeID)
		},
		commit: func(c model.Category) {
			s.categories = upsert(remove(s.categories, temp.ID), c)
			s.redecorate()
		},
		persistResult: func(ctx context.Context, c model.Category) error {
			if err := s.local.Delete(ctx, model.KindCategories, temp.ID); err != nil {
				return err
			}
			return s.local.PutCategory(ctx, c)
		},
	})
}

// UpdateCategory renames a category.
func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (model.Category, error) {
	s.mu.Lock()
	i := indexOf(s.categories, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Category{}, ErrNotCached
	}
	next := s.categories[i]
	s.mu.Unlock()
	next.Name = name

	return optimistic(ctx, s, mutation[model.Category]{
		action:  model.ActionCategoryUpdate,
		value:   next,
		payload: model.MutationPayload{ID: id, Name: name},
		apply: func() {
			s.categories = upsert(s.categories, next)
			s.redecorate()
		},
		persist: func(ctx context.Context) error {
			return s.local.PutCategory(ctx, next)
		},
		remote: func(ctx context.Context, changeID string) (model.Category, error) {
			return s.remote.UpdateCategory(ctx, id, name, changeID)
		},
		commit: func(c model.Category) {
			s.categories = upsert(s.categories, c)
			s.redecorate()
		},
		persistResult: func(ctx context.Context, c model.Category) error {
			return s.local.PutCategory(ctx, c)
		},
	})
}

// DeleteCategory removes a category. The server refuses while items still
// use it; the local removal is not undone in that case.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	_, err := optimistic(ctx, s, mutation[struct{}]{
		action:  model.ActionCategoryDelete,
		payload: model.MutationPayload{ID: id},
		apply: func() {
			s.categories = remove(s.categories, id)
		},
		persist: func(ctx context.Context) error {
			return s.local.Delete(ctx, model.KindCategories, id)
		},
		remote: func(ctx context.Context, changeID string) (struct{}, error) {
			return struct{}{}, s.remote.DeleteCategory(ctx, id, changeID)
		},
	})
	return err
}

// ReorderCategories assigns sort orders 1..n following ids.
func (s *Store) ReorderCategories(ctx context.Context, ids []int64) ([]model.Category, error) {
	order := model.DenseOrder(ids)

	var optimisticCats []model.Category
	cats, err := optimistic(ctx, s, mutation[[]model.Category]{
		action:  model.ActionCategoryReorder,
		payload: model.MutationPayload{Categories: order},
		apply: func() {
			for _, so := range order {
				if i := indexOf(s.categories, so.ID); i >= 0 {
					s.categories[i].SortOrder = so.SortOrder
				}
			}
			model.SortCategories(s.categories)
			s.redecorate()
			optimisticCats = append([]model.Category(nil), s.categories...)
		},
		persist: func(ctx context.Context) error {
			return s.local.ReplaceCategories(ctx, optimisticCats)
		},
		remote: func(ctx context.Context, changeID string) ([]model.Category, error) {
			return s.remote.ReorderCategories(ctx, order, changeID)
		},
		commit: func(cats []model.Category) {
			for _, c := range cats {
				s.categories = upsert(s.categories, c)
			}
			model.SortCategories(s.categories)
			s.redecorate()
		},
		persistResult: func(ctx context.Context, cats []model.Category) error {
			for _, c := range cats {
				if err := s.local.PutCategory(ctx, c); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if err == nil && cats == nil {
		// Queued: report the optimistic order.
		cats = s.Categories()
	}
	return cats, err
}
