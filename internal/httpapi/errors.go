package httpapi

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/erauner12/groceries/internal/repo"
)

type errorResponse struct {
	Error     string `json:"error"`
	ItemCount int    `json:"itemCount,omitempty"`
}

// writeError writes the {error} body every client parses.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if code >= 500 {
		log.Ctx(r.Context()).Error().Int("status", code).Str("path", r.URL.Path).Msg(msg)
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeRepoError maps repository errors onto status codes. op is used for
// the 500 message only.
func writeRepoError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		ve    *repo.ValidationError
		inUse *repo.CategoryInUseError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, r, http.StatusBadRequest, ve.Message)
	case repo.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrDuplicateName):
		writeError(w, r, http.StatusConflict, "Category name already exists")
	case errors.As(err, &inUse):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     "Cannot delete category with items",
			ItemCount: inUse.ItemCount,
		})
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg(op + " failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to " + op})
	}
}
