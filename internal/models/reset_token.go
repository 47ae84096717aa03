package models

import (
	"time"

	"github.com/google/uuid"
)

// ResetToken — запись о токене сброса пароля.
// В базе хранится ТОЛЬКО хеш токена, сам токен уходит пользователю в письме.
type ResetToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired — истёк ли токен на момент now.
func (t *ResetToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// TokenStats — агрегаты по таблице токенов для админки.
type TokenStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Expired int64 `json:"expired"`
	Used    int64 `json:"used"`
}
