package logger

import (
	"context"
	"promptsculptor/internal/reqctx"

	"go.uber.org/zap"
)

// WithCtx возвращает логгер, обогащённый полями из контекста запроса
// (request_id, user_id — если они там есть).
func WithCtx(ctx context.Context) *zap.Logger {
	log := Log
	if log == nil {
		return zap.NewNop()
	}
	if rid, ok := reqctx.GetRequestID(ctx); ok {
		log = log.With(zap.String("request_id", rid))
	}
	if uid, ok := reqctx.GetUserID(ctx); ok {
		log = log.With(zap.Int("user_id", uid))
	}
	return log
}
