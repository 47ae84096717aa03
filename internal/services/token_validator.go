package services

import (
	"promptsculptor/internal/models"
	"time"
)

// RejectReason — внутренний структурированный код отказа. Наружу все
// варианты схлопываются в один ответ, но в логах различаются: по ним
// живёт админский мониторинг безопасности.
type RejectReason string

const (
	ReasonNotFound  RejectReason = "not_found"
	ReasonUsed      RejectReason = "used"
	ReasonExpired   RejectReason = "expired"
	ReasonMalformed RejectReason = "malformed"
	ReasonRaceLost  RejectReason = "race_lost"
)

// ValidateResetToken решает, годен ли токен. Порядок проверок фиксирован:
// нет записи -> not_found, погашен -> used, истёк -> expired.
func ValidateResetToken(t *models.ResetToken, now time.Time) (bool, RejectReason) {
	if t == nil {
		return false, ReasonNotFound
	}
	if t.Used {
		return false, ReasonUsed
	}
	if t.IsExpired(now) {
		return false, ReasonExpired
	}
	return true, ""
}

// CheckTokenFormat — быстрый отсев синтаксически невозможных токенов
// до похода в базу. Чистая оптимизация: снаружи ответ неотличим от
// "токен не найден".
func CheckTokenFormat(rawToken string) bool {
	if len(rawToken) != rawTokenLen {
		return false
	}
	for i := 0; i < len(rawToken); i++ {
		c := rawToken[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
