package httpapi

import (
	"fmt"
	"net/http"

	"github.com/erauner12/groceries/internal/model"
)

type recipeBody struct {
	model.RecipeInput
	ChangeID string `json:"changeId"`
}

type addToListResponse struct {
	Message    string       `json:"message"`
	ItemsAdded int          `json:"itemsAdded"`
	Items      []model.Item `json:"items"`
}

func (s *Server) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.Repo.ListRecipes(r.Context())
	if err != nil {
		writeRepoError(w, r, "fetch recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	recipe, err := s.Repo.GetRecipe(r.Context(), id)
	if err != nil {
		writeRepoError(w, r, "fetch recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var body recipeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	recipe, err := s.Repo.CreateRecipe(r.Context(), body.RecipeInput)
	if err != nil {
		writeRepoError(w, r, "create recipe", err)
		return
	}
	s.publish(r, model.EventRecipeCreated, recipe, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusCreated, recipe)
}

// UpdateRecipe replaces the name and the whole ingredient list.
func (s *Server) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body recipeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	recipe, err := s.Repo.UpdateRecipe(r.Context(), id, body.RecipeInput)
	if err != nil {
		writeRepoError(w, r, "update recipe", err)
		return
	}
	s.publish(r, model.EventRecipeUpdated, recipe, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body changeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.Repo.DeleteRecipe(r.Context(), id); err != nil {
		writeRepoError(w, r, "delete recipe", err)
		return
	}
	s.publish(r, model.EventRecipeDeleted, model.DeletedRef{ID: id}, changeID(r, body.ChangeID))
	w.WriteHeader(http.StatusNoContent)
}

// AddRecipeToList handles POST /api/recipes/{id}/add-to-list. Each new item
// is broadcast as its own item-created event.
func (s *Server) AddRecipeToList(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body changeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	items, err := s.Repo.AddRecipeToList(r.Context(), id)
	if err != nil {
		writeRepoError(w, r, "add recipe to list", err)
		return
	}
	cid := changeID(r, body.ChangeID)
	for _, it := range items {
		s.publish(r, model.EventItemCreated, it, cid)
	}
	writeJSON(w, http.StatusOK, addToListResponse{
		Message:    fmt.Sprintf("Added %d items to list", len(items)),
		ItemsAdded: len(items),
		Items:      items,
	})
}
