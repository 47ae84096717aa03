package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// rawTokenBytes — 32 байта = 256 бит энтропии.
const rawTokenBytes = 32

// rawTokenLen — длина base64url-представления 32 байт без паддинга.
const rawTokenLen = 43

// TokenCodec генерирует токены сброса и считает их хеш для хранения.
// Чистая логика: без I/O, без логирования. Источник случайности —
// crypto/rand, обычный PRNG здесь недопустим.
type TokenCodec struct{}

func NewTokenCodec() *TokenCodec {
	return &TokenCodec{}
}

// Generate возвращает сырой токен (уходит в письмо), его хеш (уходит в базу)
// и момент истечения.
func (c *TokenCodec) Generate(ttl time.Duration) (rawToken, tokenHash string, expiresAt time.Time, err error) {
	raw := make([]byte, rawTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", time.Time{}, err
	}
	rawToken = base64.RawURLEncoding.EncodeToString(raw)
	tokenHash = c.Hash(rawToken)
	expiresAt = time.Now().Add(ttl)
	return rawToken, tokenHash, expiresAt, nil
}

// Hash — детерминированный односторонний дайджест сырого токена.
// Та же функция применяется при погашении для поиска записи.
func (c *TokenCodec) Hash(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
