// Package session serves the live session: the sync websocket, the current
// navigation state, viewer URLs and presenter login.
package session

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Vasu1712/scenyx-present/internal/api"
	"github.com/Vasu1712/scenyx-present/internal/auth"
	"github.com/Vasu1712/scenyx-present/internal/relay"
	"github.com/Vasu1712/scenyx-present/internal/ws"
)

// Handler holds the dependencies of the session routes.
type Handler struct {
	Hub  *ws.Hub
	Auth *auth.Authority
	// ClientRate and ClientBurst bound inbound events per connection.
	ClientRate  rate.Limit
	ClientBurst int
	// AllowedOrigin is checked against the websocket Origin header; "*"
	// accepts any origin.
	AllowedOrigin string
	// Addr is the listen address, used to build viewer URLs when PublicURL
	// is empty.
	Addr      string
	PublicURL string
	Log       *slog.Logger
}

func (h *Handler) log() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

// bearer extracts a token from the Authorization header or the token query
// parameter; browsers cannot set headers on websocket requests.
func bearer(r *http.Request) string {
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.AllowedOrigin == "" || h.AllowedOrigin == "*" {
		return true
	}
	return origin == h.AllowedOrigin
}

// ServeWS upgrades to the sync channel. ?role=presenter requires a valid
// presenter token when authority is enabled.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := relay.ParseRole(r.URL.Query().Get("role"))
	if role == relay.RolePresenter {
		if _, err := h.Auth.Verify(bearer(r)); err != nil {
			h.log().Warn("presenter claim rejected", "remote", r.RemoteAddr, "err", err)
			api.WriteErr(w, r, h.log(), err)
			return
		}
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log().Debug("upgrade failed", "err", err)
		return
	}
	limit := h.ClientRate
	if limit <= 0 {
		limit = rate.Inf
	}
	h.Hub.Serve(ws.NewConn(conn, role, rate.NewLimiter(limit, h.ClientBurst), h.log()))
}

// State returns the current navigation state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.Hub.State(r.Context())
	if err != nil {
		api.WriteErr(w, r, h.log(), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, state)
}

// Info describes where viewers can reach this server.
type Info struct {
	IP          string `json:"ip"`
	Port        string `json:"port"`
	RemoteURL   string `json:"remoteUrl"`
	AudienceURL string `json:"audienceUrl"`
	SyncURL     string `json:"syncUrl"`
}

// Info returns the viewer URLs.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	ip := localIP()
	_, port, err := net.SplitHostPort(h.Addr)
	if err != nil {
		port = strings.TrimPrefix(h.Addr, ":")
	}
	base := h.PublicURL
	if base == "" {
		base = "http://" + net.JoinHostPort(ip, port)
	}
	api.WriteJSON(w, http.StatusOK, Info{
		IP:          ip,
		Port:        port,
		RemoteURL:   base + "/remote.html",
		AudienceURL: base + "/audience.html",
		SyncURL:     "ws" + strings.TrimPrefix(base, "http") + "/ws",
	})
}

// localIP returns the first non-loopback IPv4 address, or localhost.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if v4 := ipnet.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "localhost"
}

type loginRequest struct {
	Passphrase string `json:"passphrase"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login exchanges the presenter passphrase for a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		api.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	token, expires, err := h.Auth.Login(req.Passphrase)
	if err != nil {
		h.log().Warn("presenter login failed", "remote", r.RemoteAddr)
		api.WriteErr(w, r, h.log(), err)
		return
	}
	api.WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}
