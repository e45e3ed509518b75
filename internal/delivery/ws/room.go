package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

// Room is one shared canvas channel with its own hub
type Room struct {
	Code string // 12-character unique code, or "lobby"
	Name string // User-defined room name
	Hub  *Hub
}

// RoomOption configures a RoomManager
type RoomOption func(*RoomManager)

// WithGracePeriod sets how long an empty room survives before it is closed
func WithGracePeriod(d time.Duration) RoomOption {
	return func(rm *RoomManager) {
		rm.gracePeriod = d
	}
}

// RoomManager manages all active rooms
type RoomManager struct {
	mu          sync.RWMutex
	rooms       map[string]*Room // map[code]*Room
	gracePeriod time.Duration
}

// NewRoomManager creates a room manager with the default room already open
func NewRoomManager(opts ...RoomOption) *RoomManager {
	rm := &RoomManager{
		rooms:       make(map[string]*Room),
		gracePeriod: domain.RoomGracePeriod,
	}
	for _, opt := range opts {
		opt(rm)
	}
	rm.rooms[domain.DefaultRoomCode] = rm.newRoom(domain.DefaultRoomCode, "Lobby")
	return rm
}

// GenerateRoomCode generates a 12-character hex code
func GenerateRoomCode() string {
	bytes := make([]byte, 6) // 6 bytes = 12 hex characters
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func (rm *RoomManager) newRoom(code, name string) *Room {
	hub := NewHub()
	hub.gracePeriod = rm.gracePeriod
	hub.SetRoomInfo(code, name, rm)
	go hub.Run()

	return &Room{
		Code: code,
		Name: name,
		Hub:  hub,
	}
}

// CreateRoom creates a new room with the given name
func (rm *RoomManager) CreateRoom(name string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code := GenerateRoomCode()
	for rm.rooms[code] != nil {
		code = GenerateRoomCode()
	}

	room := rm.newRoom(code, name)
	rm.rooms[code] = room
	// a room nobody joins is closed like one everybody left
	room.Hub.mu.Lock()
	room.Hub.scheduleShutdown()
	room.Hub.mu.Unlock()
	return room
}

// GetRoom returns a room by its code; an empty code means the default room
func (rm *RoomManager) GetRoom(code string) *Room {
	if code == "" {
		code = domain.DefaultRoomCode
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[code]
}

// DeleteRoom closes a room and disconnects its clients. The default room
// cannot be deleted.
func (rm *RoomManager) DeleteRoom(code string) {
	if code == domain.DefaultRoomCode {
		return
	}
	rm.mu.Lock()
	room, exists := rm.rooms[code]
	delete(rm.rooms, code)
	rm.mu.Unlock()

	if exists {
		room.Hub.Stop()
	}
}

// RoomExists checks if a room exists
func (rm *RoomManager) RoomExists(code string) bool {
	return rm.GetRoom(code) != nil
}

// GetRoomCount returns the number of active rooms, the default room included
func (rm *RoomManager) GetRoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// Close stops every hub
func (rm *RoomManager) Close() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for code, room := range rm.rooms {
		room.Hub.Stop()
		delete(rm.rooms, code)
	}
}
