package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the default maximum inbound WebSocket frame size in bytes.
// Whole snapshots travel on every edit, so this is far larger than a chat line.
const MaxMessageSize = 512 * 1024

// ==== Room Constants ====

const (
	// DefaultRoomCode is the always-present room used when a client names none
	DefaultRoomCode = "lobby"

	// RoomGracePeriod is the time to wait before destroying an empty room
	RoomGracePeriod = 60 * time.Second
)

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket upgrades (req/sec)
	DefaultRateLimitWS = 5
)

// ==== Canvas Constants ====

const (
	// DefaultRectSize is the width and height of a freshly created rectangle
	DefaultRectSize = 50.0

	// MinRectSize is the smallest width or height a resize may produce
	MinRectSize = 5.0

	// DefaultStrokeColor is used for rectangles created without a color
	DefaultStrokeColor = "black"

	// TextBaselineOffset shifts placed text below the editor anchor
	TextBaselineOffset = 6.0
)
