package syncq

import (
	"context"
	"errors"

	"github.com/erauner12/groceries/internal/model"
)

// ErrInvalidPayload marks a queue entry whose payload lacks the fields its
// action needs. Such entries are discarded.
var ErrInvalidPayload = errors.New("invalid queued payload")

// Remote is the subset of the API client the queued actions replay against.
type Remote interface {
	CreateCategory(ctx context.Context, name, changeID string) (model.Category, error)
	UpdateCategory(ctx context.Context, id int64, name, changeID string) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64, changeID string) error
	ReorderCategories(ctx context.Context, order []model.SortOrder, changeID string) ([]model.Category, error)

	CreateItem(ctx context.Context, in model.ItemInput, changeID string) (model.Item, error)
	UpdateItem(ctx context.Context, id int64, in model.ItemInput, changeID string) (model.Item, error)
	ToggleItemCheck(ctx context.Context, id int64, checked bool, changeID string) (model.Item, error)
	DeleteItem(ctx context.Context, id int64, changeID string) error
	DeleteCheckedItems(ctx context.Context, changeID string) (int, error)

	CreateRecipe(ctx context.Context, in model.RecipeInput, changeID string) (model.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput, changeID string) (model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64, changeID string) error
	AddRecipeToList(ctx context.Context, id int64, changeID string) ([]model.Item, error)
}

// Handler replays one queued mutation. Creates return the server-assigned
// id so later entries referencing the temporary id can be rewritten.
type Handler func(ctx context.Context, p model.MutationPayload, changeID string) (createdID int64, err error)

// NewHandlers maps every action tag to its Remote call.
func NewHandlers(r Remote) map[model.Action]Handler {
	return map[model.Action]Handler{
		model.ActionCategoryCreate: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			c, err := r.CreateCategory(ctx, p.Name, changeID)
			return c.ID, err
		},
		model.ActionCategoryUpdate: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			_, err := r.UpdateCategory(ctx, p.ID, p.Name, changeID)
			return 0, err
		},
		model.ActionCategoryDelete: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			return 0, r.DeleteCategory(ctx, p.ID, changeID)
		},
		model.ActionCategoryReorder: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			_, err := r.ReorderCategories(ctx, p.Categories, changeID)
			return 0, err
		},

		model.ActionItemCreate: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			if p.Item == nil {
				return 0, ErrInvalidPayload
			}
			it, err := r.CreateItem(ctx, *p.Item, changeID)
			return it.ID, err
		},
		model.ActionItemUpdate: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			if p.Item == nil {
				return 0, ErrInvalidPayload
			}
			_, err := r.UpdateItem(ctx, p.ID, *p.Item, changeID)
			return 0, err
		},
		model.ActionItemToggleCheck: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			if p.Checked == nil {
				return 0, ErrInvalidPayload
			}
			_, err := r.ToggleItemCheck(ctx, p.ID, *p.Checked, changeID)
			return 0, err
		},
		model.ActionItemDelete: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			return 0, r.DeleteItem(ctx, p.ID, changeID)
		},
		model.ActionItemDeleteChecked: func(ctx context.Context, _ model.MutationPayload, changeID string) (int64, error) {
			_, err := r.DeleteCheckedItems(ctx, changeID)
			return 0, err
		},

		model.ActionRecipeCreate: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			if p.Recipe == nil {
				return 0, ErrInvalidPayload
			}
			rec, err := r.CreateRecipe(ctx, *p.Recipe, changeID)
			return rec.ID, err
		},
		model.ActionRecipeUpdate: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			if p.Recipe == nil {
				return 0, ErrInvalidPayload
			}
			_, err := r.UpdateRecipe(ctx, p.ID, *p.Recipe, changeID)
			return 0, err
		},
		model.ActionRecipeDelete: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			return 0, r.DeleteRecipe(ctx, p.ID, changeID)
		},
		model.ActionRecipeAddToList: func(ctx context.Context, p model.MutationPayload, changeID string) (int64, error) {
			_, err := r.AddRecipeToList(ctx, p.ID, changeID)
			return 0, err
		},
	}
}
