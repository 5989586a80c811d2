package reconcile

import (
	"context"

	"github.com/erauner12/groceries/internal/model"
)

// HandleRemoteChange merges a push event into memory and the local cache.
// Echoes of our own writes are dropped. Applying the same event twice is
// harmless: creates upsert and deletes of missing ids are no-ops.
//
// Only a payload that cannot be decoded is returned as an error. Local
// cache failures are logged and the in-memory merge stands.
func (s *Store) HandleRemoteChange(ctx context.Context, ev model.ChangeEvent) error {
	_, err := s.ApplyRemoteChange(ctx, ev)
	return err
}

// ApplyRemoteChange is HandleRemoteChange that also reports whether the
// event changed anything: false for our own echoes and unknown types.
func (s *Store) ApplyRemoteChange(ctx context.Context, ev model.ChangeEvent) (bool, error) {
	logger := s.logger.With().
		Str("eventType", string(ev.Type)).
		Str("changeId", ev.ChangeID).
		Logger()

	if ev.ChangeID != "" && s.own.Contains(ev.ChangeID) {
		logger.Debug().Msg("ignoring echo of own change")
		return false, nil
	}

	var persistErr error
	switch ev.Type {
	case model.EventItemCreated, model.EventItemUpdated:
		var it model.Item
		if err := ev.DecodeData(&it); err != nil {
			return false, err
		}
		s.update(func() {
			s.decorate(&it)
			s.items = upsert(s.items, it)
		})
		persistErr = s.local.PutItem(ctx, it)

	case model.EventItemDeleted:
		var ref model.DeletedRef
		if err := ev.DecodeData(&ref); err != nil {
			return false, err
		}
		s.update(func() { s.items = remove(s.items, ref.ID) })
		persistErr = s.local.Delete(ctx, model.KindItems, ref.ID)

	case model.EventItemsDeletedChecked:
		s.update(func() {
			kept := s.items[:0]
			for _, it := range s.items {
				if !it.Checked {
					kept = append(kept, it)
				}
			}
			s.items = kept
		})
		_, persistErr = s.local.DeleteChecked(ctx)

	case model.EventCategoryCreated, model.EventCategoryUpdated:
		var c model.Category
		if err := ev.DecodeData(&c); err != nil {
			return false, err
		}
		s.update(func() {
			s.categories = upsert(s.categories, c)
			model.SortCategories(s.categories)
			s.redecorate()
		})
		persistErr = s.local.PutCategory(ctx, c)

	case model.EventCategoryDeleted:
		var ref model.DeletedRef
		if err := ev.DecodeData(&ref); err != nil {
			return false, err
		}
		s.update(func() { s.categories = remove(s.categories, ref.ID) })
		persistErr = s.local.Delete(ctx, model.KindCategories, ref.ID)

	case model.EventCategoriesReordered:
		var cats []model.Category
		if err := ev.DecodeData(&cats); err != nil {
			return false, err
		}
		s.update(func() {
			for _, c := range cats {
				s.categories = upsert(s.categories, c)
			}
			model.SortCategories(s.categories)
			s.redecorate()
		})
		for _, c := range cats {
			if err := s.local.PutCategory(ctx, c); err != nil {
				persistErr = err
				break
			}
		}

	case model.EventRecipeCreated, model.EventRecipeUpdated:
		var r model.Recipe
		if err := ev.DecodeData(&r); err != nil {
			return false, err
		}
		s.update(func() {
			s.recipes = upsert(s.recipes, r)
			model.SortRecipes(s.recipes)
		})
		persistErr = s.local.PutRecipe(ctx, r)

	case model.EventRecipeDeleted:
		var ref model.DeletedRef
		if err := ev.DecodeData(&ref); err != nil {
			return false, err
		}
		s.update(func() { s.recipes = remove(s.recipes, ref.ID) })
		persistErr = s.local.Delete(ctx, model.KindRecipes, ref.ID)

	default:
		logger.Warn().Msg("ignoring unknown change event type")
		return false, nil
	}

	if persistErr != nil {
		logger.Error().Err(persistErr).Msg("failed to cache remote change")
	}
	logger.Debug().Msg("remote change applied")
	return true, nil
}
