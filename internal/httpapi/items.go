package httpapi

import (
	"fmt"
	"net/http"

	"github.com/erauner12/groceries/internal/model"
)

type itemBody struct {
	model.ItemInput
	ChangeID string `json:"changeId"`
}

type checkBody struct {
	Checked  *bool  `json:"checked"`
	ChangeID string `json:"changeId"`
}

type deleteCheckedResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

// ListItems handles GET /api/items
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.Repo.ListItems(r.Context())
	if err != nil {
		writeRepoError(w, r, "fetch items", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateItem handles POST /api/items
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var body itemBody
	if !decodeJSON(w, r, &body) {
		return
	}
	item, err := s.Repo.CreateItem(r.Context(), body.ItemInput)
	if err != nil {
		writeRepoError(w, r, "create item", err)
		return
	}
	s.publish(r, model.EventItemCreated, item, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/items/{id}
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body itemBody
	if !decodeJSON(w, r, &body) {
		return
	}
	item, err := s.Repo.UpdateItem(r.Context(), id, body.ItemInput)
	if err != nil {
		writeRepoError(w, r, "update item", err)
		return
	}
	s.publish(r, model.EventItemUpdated, item, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusOK, item)
}

// ToggleItem handles PATCH /api/items/{id}/check
func (s *Server) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body checkBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Checked == nil {
		writeError(w, r, http.StatusBadRequest, "checked must be a boolean")
		return
	}
	item, err := s.Repo.SetChecked(r.Context(), id, *body.Checked)
	if err != nil {
		writeRepoError(w, r, "update item", err)
		return
	}
	s.publish(r, model.EventItemUpdated, item, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{id}
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var body changeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.Repo.DeleteItem(r.Context(), id); err != nil {
		writeRepoError(w, r, "delete item", err)
		return
	}
	s.publish(r, model.EventItemDeleted, model.DeletedRef{ID: id}, changeID(r, body.ChangeID))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCheckedItems handles DELETE /api/items/checked
func (s *Server) DeleteCheckedItems(w http.ResponseWriter, r *http.Request) {
	var body changeBody
	if !decodeJSON(w, r, &body) {
		return
	}
	n, err := s.Repo.DeleteChecked(r.Context())
	if err != nil {
		writeRepoError(w, r, "delete checked items", err)
		return
	}
	s.publish(r, model.EventItemsDeletedChecked, model.DeletedChecked{DeletedCount: n}, changeID(r, body.ChangeID))
	writeJSON(w, http.StatusOK, deleteCheckedResponse{
		Message:      fmt.Sprintf("Deleted %d checked items", n),
		DeletedCount: n,
	})
}
