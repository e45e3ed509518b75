package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
	"golang.org/x/time/rate"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string

	// Security
	AllowedOrigins []string

	// Rate Limiting
	RateLimitAPI rate.Limit
	RateLimitWS  rate.Limit

	// Logging
	LogLevel string

	// WebSocket
	MaxMessageSize  int64
	RoomGracePeriod time.Duration
	PresenceTTL     time.Duration // 0 keeps departed cursors forever

	// Discovery
	MDNSEnabled  bool
	MDNSInstance string
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	host, _ := os.Hostname()
	if host == "" {
		host = "goat-canvas"
	}
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"http://localhost:8080", "http://localhost:3000"},
		RateLimitAPI:    domain.DefaultRateLimitAPI,
		RateLimitWS:     domain.DefaultRateLimitWS,
		LogLevel:        "info", // Options: info, silent, off
		MaxMessageSize:  domain.MaxMessageSize,
		RoomGracePeriod: domain.RoomGracePeriod,
		MDNSInstance:    host,
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	// Server
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Security
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	// Rate Limiting
	if rl := os.Getenv("RATE_LIMIT_API"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitAPI = rate.Limit(val)
		}
	}

	if rl := os.Getenv("RATE_LIMIT_WS"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitWS = rate.Limit(val)
		}
	}

	// Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	// WebSocket
	if size := os.Getenv("MAX_MESSAGE_SIZE"); size != "" {
		if val, err := strconv.ParseInt(size, 10, 64); err == nil && val > 0 {
			cfg.MaxMessageSize = val
		}
	}

	if secs := os.Getenv("ROOM_GRACE_SECONDS"); secs != "" {
		if val, err := strconv.Atoi(secs); err == nil && val >= 0 {
			cfg.RoomGracePeriod = time.Duration(val) * time.Second
		}
	}

	if secs := os.Getenv("PRESENCE_TTL_SECONDS"); secs != "" {
		if val, err := strconv.Atoi(secs); err == nil && val >= 0 {
			cfg.PresenceTTL = time.Duration(val) * time.Second
		}
	}

	// Discovery
	if enabled := os.Getenv("MDNS_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.MDNSEnabled = val
		}
	}

	if instance := os.Getenv("MDNS_INSTANCE"); instance != "" {
		cfg.MDNSInstance = instance
	}

	return cfg
}

// Silent reports whether logging is switched off
func (c *Config) Silent() bool {
	return c.LogLevel == "silent" || c.LogLevel == "off"
}

// parseOrigins parses comma-separated origins
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Global configuration instance
var AppConfig = LoadFromEnv()
