// Package repo stores the shared shopping list for the reference server.
// Memory and Postgres implementations share the same semantics and tests.
package repo

import (
	"context"
	"strings"

	"github.com/erauner12/groceries/internal/model"
)

// Repository is the storage behind the HTTP API.
type Repository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name string) (model.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ReorderCategories(ctx context.Context, order []model.SortOrder) ([]model.Category, error)
	// SeedCategories inserts the default categories into an empty table and
	// returns how many were added.
	SeedCategories(ctx context.Context) (int, error)

	ListItems(ctx context.Context) ([]model.Item, error)
	CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error)
	UpdateItem(ctx context.Context, id int64, in model.ItemInput) (model.Item, error)
	SetChecked(ctx context.Context, id int64, checked bool) (model.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	DeleteChecked(ctx context.Context) (int, error)

	ListRecipes(ctx context.Context) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (model.Recipe, error)
	CreateRecipe(ctx context.Context, in model.RecipeInput) (model.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput) (model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
	AddRecipeToList(ctx context.Context, id int64) ([]model.Item, error)

	// SuggestCategory returns the category last used for an item name.
	SuggestCategory(ctx context.Context, name string) (*int64, error)
}

// DefaultCategories are seeded into an empty database, in sort order.
var DefaultCategories = []string{
	"Fruit & Vegetables",
	"Meat & Seafood",
	"Bakery",
	"Pantry",
	"Beverages",
	"Snacks",
	"Household Items",
	"Dairy & Eggs",
	"Frozen Foods",
	"Other",
}

// mappingKey normalizes an item name for the learned category mapping.
func mappingKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func requireName(name, message string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Message: message}
	}
	return name, nil
}

// trimOptional trims free text and maps blanks to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return model.StringPtr(strings.TrimSpace(*s))
}

// cleanIngredients validates and trims ingredient inputs. Positions
// default to list order.
func cleanIngredients(in []model.IngredientInput) ([]model.IngredientInput, error) {
	out := make([]model.IngredientInput, 0, len(in))
	for i, ing := range in {
		name, err := requireName(ing.Name, "Each ingredient must have a name")
		if err != nil {
			return nil, err
		}
		ing.Name = name
		ing.Description = trimOptional(ing.Description)
		ing.Amount = trimOptional(ing.Amount)
		if ing.Position == 0 {
			ing.Position = i + 1
		}
		out = append(out, ing)
	}
	return out, nil
}
