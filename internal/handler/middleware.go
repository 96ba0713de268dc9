package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/auth"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/logger"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/ratelimit"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/service"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	actorKey
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Logger attaches a request-scoped logger to the context and writes one
// access log line per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		l := logger.L().With(
			slog.String("req_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		).With(logger.AttrsFromCtx(r.Context())...)
		ctx := context.WithValue(r.Context(), loggerKey, l)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(ctx))

		level := slog.LevelInfo
		switch {
		case sw.status >= 500:
			level = slog.LevelError
		case sw.status >= 400:
			level = slog.LevelWarn
		}

		l.LogAttrs(ctx, level, "http_request",
			slog.Int("status", sw.status),
			slog.Int64("bytes", sw.bytes),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_ip", r.RemoteAddr),
		)
	})
}

// L returns the request logger stored by Logger, or the global one.
func L(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return logger.L()
}

// ActorFrom returns the caller authenticated by Auth. Outside Auth it is
// the zero Actor, which owns nothing and administers nothing.
func ActorFrom(ctx context.Context) model.Actor {
	a, _ := ctx.Value(actorKey).(model.Actor)
	return a
}

// Auth requires a valid bearer token and stores the caller in the context.
func Auth(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			actor, err := v.Actor(strings.TrimSpace(token))
			if err != nil {
				L(r.Context()).Warn("token rejected", slog.String("err", err.Error()))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers without the administrator role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).IsAdmin {
			writeError(w, http.StatusForbidden, "administrator privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles mutating requests per caller, falling back to the
// client address when no caller is known. Reads are not limited.
func RateLimit(store *ratelimit.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := ActorFrom(r.Context()).UserID
			if key == "" {
				key = clientIP(r)
			}
			if !store.Allow(key) {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SweepBeforeRequest purges expired reservations before the request is
// handled. A failed sweep is logged and does not fail the request.
func SweepBeforeRequest(sw *service.Sweeper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := sw.SweepNow(r.Context()); err != nil {
				L(r.Context()).Warn("sweep before request failed", slog.String("err", err.Error()))
			}
			next.ServeHTTP(w, r)
		})
	}
}
