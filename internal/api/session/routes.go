package session

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the session routes on r.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.Path("/ws").HandlerFunc(h.ServeWS)
	r.Methods(http.MethodGet).Path("/api/state").HandlerFunc(h.State)
	r.Methods(http.MethodGet).Path("/api/info").HandlerFunc(h.Info)
	r.Methods(http.MethodPost).Path("/api/auth/presenter").HandlerFunc(h.Login)
}
