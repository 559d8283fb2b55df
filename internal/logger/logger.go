// Package logger provides the process-wide structured logger built on
// log/slog, plus request-scoped loggers tagged with the request id that
// echo's RequestID middleware assigns.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
)

// L is the base logger. It is usable before Init is called.
var L = slog.Default()

type ctxKey struct{}

// Init configures L for the given environment: JSON for production log
// aggregation, human-readable text otherwise.
func Init(env string) *slog.Logger {
	return InitWriter(env, os.Stdout)
}

// InitWriter is Init with an explicit destination.
func InitWriter(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	L = slog.New(handler)
	slog.SetDefault(L)
	return L
}

// Inject stores a request-scoped logger in ctx.
func Inject(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// WithCtx returns the logger stored in ctx, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// FromEcho returns a logger tagged with the request id of c.
func FromEcho(c echo.Context) *slog.Logger {
	if log, ok := c.Request().Context().Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		return L.With("request_id", rid)
	}
	return L
}

// Middleware attaches a request-scoped logger to the request context so
// services reached from the handler log with the same request id. It must
// run after echo's RequestID middleware.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := L.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			req := c.Request()
			c.SetRequest(req.WithContext(Inject(req.Context(), log)))
			return next(c)
		}
	}
}
