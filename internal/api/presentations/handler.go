// Package presentations serves the presentation store over HTTP.
package presentations

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Vasu1712/scenyx-present/internal/api"
	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// maxBodySize bounds a saved presentation.
const maxBodySize = 4 << 20

// Handler holds the dependencies of the presentation routes.
type Handler struct {
	Store storage.Store
	Log   *slog.Logger
}

// SaveRequest is the body of a save. Content is a markdown string, or deck
// JSON given either as an object or as a string.
type SaveRequest struct {
	Name     string                  `json:"name"`
	Filename string                  `json:"filename"`
	Type     models.PresentationType `json:"type"`
	Content  json.RawMessage         `json:"content"`
}

func (req SaveRequest) contentBytes() ([]byte, error) {
	if len(req.Content) == 0 || string(req.Content) == "null" {
		return nil, fmt.Errorf("content is required")
	}
	if req.Content[0] == '"' {
		var s string
		if err := json.Unmarshal(req.Content, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	return req.Content, nil
}

func (h *Handler) log() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

// List returns every presentation, newest first, without content.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context())
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// Get returns one presentation with its content.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Get(r.Context(), mux.Vars(r)["file"])
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// Save creates or overwrites a presentation.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		api.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		h.log().Debug("invalid save body", "err", err)
		return
	}
	content, err := req.contentBytes()
	if err != nil {
		api.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" && req.Filename == "" {
		api.WriteError(w, r, http.StatusBadRequest, "name or filename is required")
		return
	}

	p, err := h.Store.Save(r.Context(), req.Name, req.Filename, req.Type, content)
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	h.log().Info("presentation saved", "presentation", p.Filename, "type", p.Type)
	api.WriteJSON(w, http.StatusOK, p.Summary())
}

// Delete removes a presentation.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if err := h.Store.Delete(r.Context(), file); err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	h.log().Info("presentation deleted", "presentation", file)
	w.WriteHeader(http.StatusNoContent)
}

// Slides renders a presentation to slide markup. ?preview=1 renders deck
// scenes unstaged, as the builder shows them.
func (h *Handler) Slides(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Get(r.Context(), mux.Vars(r)["file"])
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	var markup string
	switch r.URL.Query().Get("preview") {
	case "1", "true":
		markup = deck.RenderPreview(p)
	default:
		markup = deck.RenderPresentation(p)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(markup))
}

// Index returns the slide count and notes index of a presentation.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Get(r.Context(), mux.Vars(r)["file"])
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	index, err := deck.IndexOf(p)
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, index)
}
