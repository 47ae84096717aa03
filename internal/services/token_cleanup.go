package services

import (
	"context"
	"promptsculptor/internal/logger"
	"time"

	"go.uber.org/zap"
)

// TokenCleanupStore — минимум, который нужен чистильщику от хранилища.
type TokenCleanupStore interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanupService периодически удаляет истёкшие и давно использованные
// токены сброса. RunOnce дергается и тикером, и админской ручкой;
// параллельные прогоны безопасны — перекрывающиеся DELETE-ы сходятся
// к одному итогу.
type TokenCleanupService struct {
	store     TokenCleanupStore
	interval  time.Duration
	retention time.Duration
}

func NewTokenCleanupService(store TokenCleanupStore, interval, retention time.Duration) *TokenCleanupService {
	return &TokenCleanupService{
		store:     store,
		interval:  interval,
		retention: retention,
	}
}

// RunOnce — один проход чистки. Возвращает количество удалённых строк.
func (s *TokenCleanupService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	removed, err := s.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		logger.Log.Error("Ошибка чистки токенов сброса", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		logger.Log.Info("Чистка токенов сброса", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

// Start запускает периодическую чистку в фоне.
func (s *TokenCleanupService) Start() {
	t := time.NewTicker(s.interval)
	go func() {
		for range t.C {
			_, _ = s.RunOnce(context.Background())
		}
	}()
}
