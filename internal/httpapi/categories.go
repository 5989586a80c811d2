package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/erauner12/groceries/internal/model"
)

const maxBodyBytes = 1 << 20

type categoryBody struct {
	Name     string `json:"name"`
	ChangeID string `json:"changeId"`
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return true
	}
	if err := json.Unmarshal(b, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// ListCategories handles GET /api/categories
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Repo.ListCategories(r.Context())
	if err != nil {
		writeRepoError(w, r, "fetch categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// CreateCategory handles POST /api/categories
func (s *Server) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if !decodeJSON(w, r, &body) {
		return
	}
	cat, err := s.Repo.CreateCategory(r.Context(), body.Name)
	if err != nil {
		writeRepoError(w, r, "create category", err)
		return
	}
	s.publish(r, model.EventCategoryCreated, cat, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusCreated, cat)
}

// UpdateCategory handles PUT /api/categories/{id}
func (s *Server) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body categoryBody
	if !decodeJSON(w, r, &body) {
		return
	}
	cat, err := s.Repo.UpdateCategory(r.Context(), id, body.Name)
	if err != nil {
		writeRepoError(w, r, "update category", err)
		return
	}
	s.publish(r, model.EventCategoryUpdated, cat, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (s *Server) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body changeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.Repo.DeleteCategory(r.Context(), id); err != nil {
		writeRepoError(w, r, "delete category", err)
		return
	}
	s.publish(r, model.EventCategoryDeleted, model.DeletedRef{ID: id}, changeID(r, body.ChangeID))
	w.WriteHeader(http.StatusNoContent)
}

// ReorderCategories handles PUT /api/categories/reorder. The body is a bare
// array, so the change id comes from the header only.
func (s *Server) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		writeError(w, r, http.StatusBadRequest, "Request body must be an array")
		return
	}
	var order []model.SortOrder
	if err := json.Unmarshal(trimmed, &order); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}

	cats, err := s.Repo.ReorderCategories(r.Context(), order)
	if err != nil {
		writeRepoError(w, r, "reorder categories", err)
		return
	}
	s.publish(r, model.EventCategoriesReordered, cats, changeID(r, ""))
	writeJSON(w, http.StatusOK, cats)
}

type changeBody struct {
	ChangeID string `json:"changeId"`
}
