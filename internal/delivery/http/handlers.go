package http

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/goat-canvas/internal/config"
	"github.com/mmuslimabdulj/goat-canvas/internal/delivery/ws"
)

var (
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// sanitizeRoomName cleans and validates room name input
func sanitizeRoomName(name string) string {
	name = strings.TrimSpace(name)

	// Limit length to 50 characters
	if utf8.RuneCountInString(name) > 50 {
		runes := []rune(name)
		name = string(runes[:50])
	}

	name = htmlTagRegex.ReplaceAllString(name, "")
	name = controlCharRegex.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if name == "" {
		name = "Canvas"
	}
	return name
}

// Handler serves the relay's HTTP surface
type Handler struct {
	roomManager *ws.RoomManager
	cfg         *config.Config
	upgrader    websocket.Upgrader
}

// NewHandler creates a handler for the given rooms and configuration
func NewHandler(rm *ws.RoomManager, cfg *config.Config) *Handler {
	h := &Handler{
		roomManager: rm,
		cfg:         cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return h.isOriginAllowed(r.Header.Get("Origin"))
		},
	}
	return h
}

// isOriginAllowed checks if the origin is in the allowed list
func (h *Handler) isOriginAllowed(origin string) bool {
	// Empty origin is allowed (non-browser clients, same-origin requests)
	if origin == "" {
		return true
	}

	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleCreateRoom creates a new room and returns the code
func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	room := h.roomManager.CreateRoom(sanitizeRoomName(req.Name))
	log.Printf("[relay] room %s created", room.Code)

	writeJSON(w, http.StatusOK, map[string]string{
		"code": room.Code,
		"name": room.Name,
	})
}

// HandleJoinRoom validates room code and returns room info
func (h *Handler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	room := h.roomManager.GetRoom(req.Code)
	if room == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "Room not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"code": room.Code,
		"name": room.Name,
	})
}

// HandleWebSocket upgrades HTTP to WebSocket for a room. Without a room
// parameter the client joins the default room.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := h.roomManager.GetRoom(r.URL.Query().Get("room"))
	if room == nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}

	client := ws.NewClient(room.Hub, conn, h.cfg.MaxMessageSize)
	room.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleHealth reports liveness and the number of open rooms
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  h.roomManager.GetRoomCount(),
	})
}
