package service

import (
	"context"
	"log/slog"

	"github.com/xiaot623/gogo/voiceagent/internal/session"
)

type loggerKey struct{}

func withLogger(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, loggerKey{}, sess.Logger)
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
