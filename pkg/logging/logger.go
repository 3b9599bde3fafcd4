package logging

import (
	"context"
	"log/slog"
)

type ctxLoggerKey struct {
	Key string
}

var (
	cKey    = ctxLoggerKey{Key: "logger"}
	reqKey  = ctxLoggerKey{Key: "request_id"}
	userKey = ctxLoggerKey{Key: "user_id"}
)

func GetLoggerFromContext(ctx context.Context) *slog.Logger {
	var l *slog.Logger

	logger := ctx.Value(cKey)
	if logger != nil {
		l = logger.(*slog.Logger)
	} else {
		l = slog.Default()
	}

	// Always attach request ID from context if available
	if requestID := GetRequestIDFromCtx(ctx); requestID != "" {
		l = l.With(slog.String("request_id", requestID))
	}

	if userID := GetUserIDFromCtx(ctx); userID != "" {
		l = l.With(slog.String("user_id", userID))
	}

	return l
}

// Returns logger from context and attaches operation name
func GetLoggerFromContextWithOp(ctx context.Context, op string) *slog.Logger {
	l := GetLoggerFromContext(ctx)

	// Attach operation
	l = l.With(slog.String("op", op))

	return l
}

func MakeContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, cKey, logger)
	return ctx
}

func GetUserIDFromCtx(ctx context.Context) string {
	if v := ctx.Value(userKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func MakeContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}
