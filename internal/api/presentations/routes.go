package presentations

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the presentation routes on r.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.Methods(http.MethodGet).Path("/api/presentations").HandlerFunc(h.List)
	r.Methods(http.MethodPost).Path("/api/presentations").HandlerFunc(h.Save)
	r.Methods(http.MethodGet).Path("/api/presentations/{file}").HandlerFunc(h.Get)
	r.Methods(http.MethodDelete).Path("/api/presentations/{file}").HandlerFunc(h.Delete)
	r.Methods(http.MethodGet).Path("/api/presentations/{file}/slides").HandlerFunc(h.Slides)
	r.Methods(http.MethodGet).Path("/api/presentations/{file}/index").HandlerFunc(h.Index)
}
