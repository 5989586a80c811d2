package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erauner12/groceries/internal/model"
)

type recipeRequest struct {
	model.RecipeInput
	ChangeID string `json:"changeId,omitempty"`
}

type addToListResponse struct {
	Message    string       `json:"message"`
	ItemsAdded int          `json:"itemsAdded"`
	Items      []model.Item `json:"items"`
}

func (c *Client) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	var out []model.Recipe
	if err := c.do(ctx, "list recipes", http.MethodGet, "/recipes", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecipe returns one recipe with its ingredients.
func (c *Client) GetRecipe(ctx context.Context, id int64) (model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, "get recipe", http.MethodGet, fmt.Sprintf("/recipes/%d", id), "", nil, &out)
	return out, err
}

func (c *Client) CreateRecipe(ctx context.Context, in model.RecipeInput, changeID string) (model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, "create recipe", http.MethodPost, "/recipes", changeID,
		recipeRequest{RecipeInput: normalizeRecipe(in), ChangeID: changeID}, &out)
	return out, err
}

// UpdateRecipe replaces the recipe name and its full ingredient list.
func (c *Client) UpdateRecipe(ctx context.Context, id int64, in model.RecipeInput, changeID string) (model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, "update recipe", http.MethodPut, fmt.Sprintf("/recipes/%d", id), changeID,
		recipeRequest{RecipeInput: normalizeRecipe(in), ChangeID: changeID}, &out)
	return out, err
}

func (c *Client) DeleteRecipe(ctx context.Context, id int64, changeID string) error {
	return c.do(ctx, "delete recipe", http.MethodDelete, fmt.Sprintf("/recipes/%d", id), changeID, nil, nil)
}

// AddRecipeToList copies the recipe's ingredients onto the list and returns
// the created items.
func (c *Client) AddRecipeToList(ctx context.Context, id int64, changeID string) ([]model.Item, error) {
	var out addToListResponse
	err := c.do(ctx, "add recipe to list", http.MethodPost, fmt.Sprintf("/recipes/%d/add-to-list", id), changeID,
		changeRequest{ChangeID: changeID}, &out)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

func normalizeRecipe(in model.RecipeInput) model.RecipeInput {
	if in.Ingredients == nil {
		in.Ingredients = []model.IngredientInput{}
	}
	return in
}
