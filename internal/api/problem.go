// Package api holds the HTTP helpers shared by the route packages: RFC 7807
// problem responses and JSON encoding.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Vasu1712/scenyx-present/internal/auth"
	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes a problem+json response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	if r != nil {
		problem.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteErr maps a domain error to its status. Unknown errors are logged and
// reported as 500 without detail.
func WriteErr(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, deck.ErrMalformedDocument):
		WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		WriteError(w, r, http.StatusUnauthorized, "presenter authorization required")
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		WriteError(w, r, http.StatusInternalServerError, "an unexpected error occurred")
	}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
