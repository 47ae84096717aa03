package middleware

import (
	"net"
	"net/http"
	"promptsculptor/internal/logger"
	"time"

	"go.uber.org/zap"
)

// Limiter — внешний ограничитель (valkey). Ядро сброса паролей его не
// реализует, только потребляет: несколько инстансов процесса должны
// считать запросы в одном месте.
type Limiter interface {
	CheckLimit(identifier, endpoint string, maxRequests int, windowDuration time.Duration) (bool, error)
}

// RateLimit ограничивает запросы к endpoint по IP клиента.
// limiter == nil (valkey не настроен) — пропускаем всё.
// Ошибки limiter-а — тоже пропускаем (fail-open): лимитер не должен
// превращаться в рубильник для сброса пароля.
func RateLimit(limiter Limiter, endpoint string, maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			allowed, err := limiter.CheckLimit(ip, endpoint, maxRequests, window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("Rate limiter недоступен, пропускаем запрос", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logger.WithCtx(r.Context()).Warn("Превышен лимит запросов",
					zap.String("endpoint", endpoint),
					zap.String("ip", ip),
				)
				http.Error(w, "Слишком много запросов, попробуйте позже", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
