package reconcile

import (
	"context"

	"github.com/erauner12/groceries/internal/model"
)

// CreateItem adds an item to the end of the list.
func (s *Store) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	now := s.now().UTC()
	s.mu.Lock()
	temp := model.Item{
		ID:          s.tempID(),
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		Position:    model.NextPosition(s.items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.decorate(&temp)
	s.mu.Unlock()

	return optimistic(ctx, s, mutation[model.Item]{
		action:  model.ActionItemCreate,
		value:   temp,
		payload: model.MutationPayload{ID: temp.ID, Item: &in},
		apply: func() {
			s.items = append(s.items, temp)
		},
		persist: func(ctx context.Context) error {
			return s.local.PutItem(ctx, temp)
		},
		remote: func(ctx context.Context, changeID string) (model.Item, error) {
			return s.remote.CreateItem(ctx, in, changeID)
		},
		commit: func(it model.Item) {
			s.decorate(&it)
			s.items = upsert(remove(s.items, temp.ID), it)
		},
		persistResult: func(ctx context.Context, it model.Item) error {
			if err := s.local.Delete(ctx, model.KindItems, temp.ID); err != nil {
				return err
			}
			return s.local.PutItem(ctx, it)
		},
	})
}

// UpdateItem replaces the editable fields of an item.
func (s *Store) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (model.Item, error) {
	s.mu.Lock()
	i := indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Item{}, ErrNotCached
	}
	next := s.items[i]
	next.Name = in.Name
	next.Description = in.Description
	next.Amount = in.Amount
	next.CategoryID = in.CategoryID
	next.UpdatedAt = s.now().UTC()
	s.decorate(&next)
	s.mu.Unlock()

	return optimistic(ctx, s, mutation[model.Item]{
		action:  model.ActionItemUpdate,
		value:   next,
		payload: model.MutationPayload{ID: id, Item: &in},
		apply: func() {
			s.items = upsert(s.items, next)
		},
		persist: func(ctx context.Context) error {
			return s.local.PutItem(ctx, next)
		},
		remote: func(ctx context.Context, changeID string) (model.Item, error) {
			return s.remote.UpdateItem(ctx, id, in, changeID)
		},
		commit: func(it model.Item) {
			s.decorate(&it)
			s.items = upsert(s.items, it)
		},
		persistResult: func(ctx context.Context, it model.Item) error {
			return s.local.PutItem(ctx, it)
		},
	})
}

// ToggleCheck checks or unchecks an item. Unchecking moves the item to the
// end of its category. This is the one write that is rolled back when the
// server rejects it.
func (s *Store) ToggleCheck(ctx context.Context, id int64, checked bool) (model.Item, error) {
	s.mu.Lock()
	i := indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Item{}, ErrNotCached
	}
	before := s.items[i]
	next := before
	next.Checked = model.Flag(checked)
	if !checked {
		next.Position = model.NextUncheckedPosition(s.items, next.CategoryID, id)
	}
	next.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	return optimistic(ctx, s, mutation[model.Item]{
		action:  model.ActionItemToggleCheck,
		value:   next,
		payload: model.MutationPayload{ID: id, Checked: &checked},
		apply: func() {
			s.items = upsert(s.items, next)
		},
		persist: func(ctx context.Context) error {
			return s.local.PutItem(ctx, next)
		},
		remote: func(ctx context.Context, changeID string) (model.Item, error) {
			return s.remote.ToggleItemCheck(ctx, id, checked, changeID)
		},
		commit: func(it model.Item) {
			s.decorate(&it)
			s.items = upsert(s.items, it)
		},
		persistResult: func(ctx context.Context, it model.Item) error {
			return s.local.PutItem(ctx, it)
		},
		revert: func() {
			s.items = upsert(s.items, before)
		},
		persistRevert: func(ctx context.Context) error {
			return s.local.PutItem(ctx, before)
		},
	})
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	_, err := optimistic(ctx, s, mutation[struct{}]{
		action:  model.ActionItemDelete,
		payload: model.MutationPayload{ID: id},
		apply: func() {
			s.items = remove(s.items, id)
		},
		persist: func(ctx context.Context) error {
			return s.local.Delete(ctx, model.KindItems, id)
		},
		remote: func(ctx context.Context, changeID string) (struct{}, error) {
			return struct{}{}, s.remote.DeleteItem(ctx, id, changeID)
		},
	})
	return err
}

// DeleteCheckedItems clears every checked item and returns how many were
// removed.
func (s *Store) DeleteCheckedItems(ctx context.Context) (int, error) {
	var removed int
	return optimistic(ctx, s, mutation[int]{
		action: model.ActionItemDeleteChecked,
		queued: func() int { return removed },
		apply: func() {
			kept := s.items[:0]
			for _, it := range s.items {
				if it.Checked {
					removed++
					continue
				}
				kept = append(kept, it)
			}
			s.items = kept
		},
		persist: func(ctx context.Context) error {
			_, err := s.local.DeleteChecked(ctx)
			return err
		},
		remote: func(ctx context.Context, changeID string) (int, error) {
			return s.remote.DeleteCheckedItems(ctx, changeID)
		},
	})
}
