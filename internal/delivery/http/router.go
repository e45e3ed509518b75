package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mmuslimabdulj/goat-canvas/internal/middleware"
)

// NewRouter wires the relay routes. Every response carries the security
// headers and an access log line; API and websocket routes are rate limited
// per client IP.
func NewRouter(h *Handler, limiters middleware.Limiters) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.AccessLog)
	r.Use(middleware.SecurityHeaders)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(h.HandleHealth)
	r.Methods(http.MethodGet).Path("/ws").
		HandlerFunc(middleware.RateLimitFunc(limiters.WebSocket, h.HandleWebSocket))

	// API routes live on the root router: a mux subrouter answers 404
	// instead of 405 for a wrong method on its first route
	apiLimit := middleware.RateLimitMiddleware(limiters.API)
	r.Methods(http.MethodPost).Path("/api/room/create").Handler(apiLimit(http.HandlerFunc(h.HandleCreateRoom)))
	r.Methods(http.MethodPost).Path("/api/room/join").Handler(apiLimit(http.HandlerFunc(h.HandleJoinRoom)))

	return r
}
