package reconcile

import (
	"context"
	"fmt"

	"github.com/erauner12/groceries/internal/model"
)

func ingredientsFrom(recipeID int64, in []model.IngredientInput) []model.Ingredient {
	out := make([]model.Ingredient, len(in))
	for i, ing := range in {
		pos := ing.Position
		if pos == 0 {
			pos = i + 1
		}
		out[i] = model.Ingredient{
			RecipeID:    recipeID,
			Name:        ing.Name,
			Description: ing.Description,
			Amount:      ing.Amount,
			CategoryID:  ing.CategoryID,
			Position:    pos,
		}
	}
	return out
}

// CreateRecipe adds a recipe with its ingredients.
func (s *Store) CreateRecipe(ctx context.Context, in model.RecipeInput) (model.Recipe, error) {
	now := s.now().UTC()
	s.mu.Lock()
	id := s.tempID()
	s.mu.Unlock()
	temp := model.Recipe{
		ID:          id,
		Name:        in.Name,
		Ingredients: ingredientsFrom(id, in.Ingredients),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return optimistic(ctx, s, mutation[model.Recipe]{
		action:  model.ActionRecipeCreate,
		value:   temp,
		payload: model.MutationPayload{ID: temp.ID, Recipe: &in},
		apply: func() {
			s.recipes = append(s.recipes, temp)
		},
		persist: func(ctx context.Context) error {
			return s.local.PutRecipe(ctx, temp)
		},
		remote: func(ctx context.Context, changeID string) (model.Recipe, error) {
			return s.remote.CreateRecipe(ctx, in, changeID)
		},
		commit: func(r model.Recipe) {
			s.recipes = upsert(remove(s.recipes, temp.ID), r)
		},
		persistResult: func(ctx context.Context, r model.Recipe) error {
			if err := s.local.Delete(ctx, model.KindRecipes, temp.ID); err != nil {
				return err
			}
			return s.local.PutRecipe(ctx, r)
		},
	})
}

// UpdateRecipe replaces a recipe's name and ingredient list.
func (s *Store) UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (model.Recipe, error) {
	s.mu.Lock()
	i := indexOf(s.recipes, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Recipe{}, ErrNotCached
	}
	next := s.recipes[i]
	s.mu.Unlock()
	next.Name = in.Name
	next.Ingredients = ingredientsFrom(id, in.Ingredients)
	next.UpdatedAt = s.now().UTC()

	return optimistic(ctx, s, mutation[model.Recipe]{
		action:  model.ActionRecipeUpdate,
		value:   next,
		payload: model.MutationPayload{ID: id, Recipe: &in},
		apply: func() {
			s.recipes = upsert(s.recipes, next)
		},
		persist: func(ctx context.Context) error {
			return s.local.PutRecipe(ctx, next)
		},
		remote: func(ctx context.Context, changeID string) (model.Recipe, error) {
			return s.remote.UpdateRecipe(ctx, id, in, changeID)
		},
		commit: func(r model.Recipe) {
			s.recipes = upsert(s.recipes, r)
		},
		persistResult: func(ctx context.Context, r model.Recipe) error {
			return s.local.PutRecipe(ctx, r)
		},
	})
}

// DeleteRecipe removes a recipe and its ingredients.
func (s *Store) DeleteRecipe(ctx context.Context, id int64) error {
	_, err := optimistic(ctx, s, mutation[struct{}]{
		action:  model.ActionRecipeDelete,
		payload: model.MutationPayload{ID: id},
		apply: func() {
			s.recipes = remove(s.recipes, id)
		},
		persist: func(ctx context.Context) error {
			return s.local.Delete(ctx, model.KindRecipes, id)
		},
		remote: func(ctx context.Context, changeID string) (struct{}, error) {
			return struct{}{}, s.remote.DeleteRecipe(ctx, id, changeID)
		},
	})
	return err
}

// AddRecipeToList puts every ingredient of a loaded recipe on the list.
func (s *Store) AddRecipeToList(ctx context.Context, recipeID int64) ([]model.Item, error) {
	now := s.now().UTC()
	s.mu.Lock()
	ri := indexOf(s.recipes, recipeID)
	if ri < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("recipe %d: %w", recipeID, ErrNotCached)
	}
	recipe := s.recipes[ri]
	pos := model.NextPosition(s.items)
	temps := make([]model.Item, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		it := model.Item{
			ID:          s.tempID(),
			Name:        ing.Name,
			Description: ing.Description,
			Amount:      ing.Amount,
			CategoryID:  ing.CategoryID,
			Position:    pos,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.decorate(&it)
		temps = append(temps, it)
		pos++
	}
	s.mu.Unlock()

	return optimistic(ctx, s, mutation[[]model.Item]{
		action:  model.ActionRecipeAddToList,
		value:   temps,
		payload: model.MutationPayload{ID: recipeID},
		apply: func() {
			s.items = append(s.items, temps...)
		},
		persist: func(ctx context.Context) error {
			for _, it := range temps {
				if err := s.local.PutItem(ctx, it); err != nil {
					return err
				}
			}
			return nil
		},
		remote: func(ctx context.Context, changeID string) ([]model.Item, error) {
			return s.remote.AddRecipeToList(ctx, recipeID, changeID)
		},
		commit: func(items []model.Item) {
			for _, it := range temps {
				s.items = remove(s.items, it.ID)
			}
			for _, it := range items {
				s.decorate(&it)
				s.items = upsert(s.items, it)
			}
		},
		persistResult: func(ctx context.Context, items []model.Item) error {
			for _, it := range temps {
				if err := s.local.Delete(ctx, model.KindItems, it.ID); err != nil {
					return err
				}
			}
			for _, it := range items {
				if err := s.local.PutItem(ctx, it); err != nil {
					return err
				}
			}
			return nil
		},
	})
}
