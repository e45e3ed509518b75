package middleware

import (
	"log"
	"net/http"

	"github.com/felixge/httpsnoop"
)

// AccessLog logs method, path, status and duration of every request. Query
// strings are left out so room codes do not end up in logs.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Printf("[http] %s %s %d %v", r.Method, r.URL.Path, m.Code, m.Duration)
	})
}
