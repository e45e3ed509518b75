package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmuslimabdulj/goat-canvas/internal/config"
	httpHandler "github.com/mmuslimabdulj/goat-canvas/internal/delivery/http"
	"github.com/mmuslimabdulj/goat-canvas/internal/delivery/ws"
	"github.com/mmuslimabdulj/goat-canvas/internal/discovery"
	"github.com/mmuslimabdulj/goat-canvas/internal/middleware"
)

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	// Reload config after loading .env
	config.AppConfig = config.LoadFromEnv()
	cfg := config.AppConfig

	if cfg.Silent() {
		log.SetOutput(io.Discard)
	}

	roomManager := ws.NewRoomManager(ws.WithGracePeriod(cfg.RoomGracePeriod))
	handler := httpHandler.NewHandler(roomManager, cfg)

	limiters := middleware.NewLimiters(cfg)
	stopCleanup := make(chan struct{})
	go limiters.API.CleanupLoop(5*time.Minute, stopCleanup)
	go limiters.WebSocket.CleanupLoop(5*time.Minute, stopCleanup)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     httpHandler.NewRouter(handler, limiters),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: it would cut off hijacked websocket connections
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("goat-canvas relay running at http://localhost:%s (ws: /ws?room=<code>)", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	if cfg.MDNSEnabled {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil {
			log.Printf("[relay] mDNS disabled, port %q is not numeric", cfg.Port)
		} else if mdnsServer, err := discovery.Advertise(cfg.MDNSInstance, port); err != nil {
			log.Printf("[relay] mDNS disabled: %v", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	close(stopCleanup)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	roomManager.Close()

	log.Println("Server exited gracefully")
}
