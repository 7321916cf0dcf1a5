package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"matchmaking_server/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request. 5xx responses log at error level.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			}
			if id := r.Header.Get(auth.HeaderManagerID); id != "" {
				fields = append(fields, zap.String("manager", id))
			}
			if rec.status >= http.StatusInternalServerError {
				log.Error("❌ Request failed", fields...)
				return
			}
			log.Info("➡️ Request served", fields...)
		})
	}
}
