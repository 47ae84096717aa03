package repository

import (
	"context"
	"errors"
	"promptsculptor/internal/logger"
	"promptsculptor/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrTokenHashConflict — коллизия по token_hash (уникальный индекс).
// При 256 битах энтропии на практике не случается.
var ErrTokenHashConflict = errors.New("token hash conflict")

type ResetTokenRepository struct {
	db *pgxpool.Pool
}

func NewResetTokenRepository(db *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// ResetTokenRepo — контракт хранилища токенов сброса.
// Таблица password_reset_tokens — единственный разделяемый ресурс:
// все гонки между конкурентными запросами решаются атомарностью
// этих операций, in-memory блокировок в сервисах нет.
type ResetTokenRepo interface {
	Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) (*models.ResetToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	InvalidateAllForUser(ctx context.Context, userID int, exceptID uuid.UUID) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (*models.TokenStats, error)
}

func (r *ResetTokenRepository) Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) (*models.ResetToken, error) {
	t := &models.ResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt).Scan(&t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrTokenHashConflict
		}
		logger.Log.Error("Ошибка сохранения токена сброса (repo)", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}
	return t, nil
}

// FindByHash возвращает запись независимо от used/expires_at — решение
// о валидности принимает сервис. Нет записи — (nil, nil).
func (r *ResetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.ResetToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`, tokenHash)

	var t models.ResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.Log.Error("Ошибка поиска токена по хешу (repo)", zap.Error(err))
		return nil, err
	}
	return &t, nil
}

// MarkUsed — условный апдейт used: false -> true. Возвращает false,
// если токен уже использован: из конкурентных попыток погашения ровно
// одна увидит true, остальные проиграли гонку.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used = true
		WHERE id = $1 AND used = false
	`, id)
	if err != nil {
		logger.Log.Error("Ошибка пометки токена использованным (repo)", zap.Error(err), zap.String("token_id", id.String()))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// InvalidateAllForUser гасит все живые токены пользователя, кроме exceptID.
// Вызывается после успешного сброса: старые ссылки из писем перестают работать.
func (r *ResetTokenRepository) InvalidateAllForUser(ctx context.Context, userID int, exceptID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used = true
		WHERE user_id = $1 AND used = false AND id <> $2
	`, userID, exceptID)
	if err != nil {
		logger.Log.Error("Ошибка инвалидации токенов пользователя (repo)", zap.Error(err), zap.Int("user_id", userID))
	}
	return err
}

// DeleteExpiredBefore удаляет токены, истёкшие до cutoff, и использованные
// токены старше cutoff. Живой токен (used=false, expires_at в будущем)
// под условие не попадает никогда.
func (r *ResetTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM password_reset_tokens
		WHERE expires_at < $1
		   OR (used = true AND created_at < $1)
	`, cutoff)
	if err != nil {
		logger.Log.Error("Ошибка чистки токенов (repo)", zap.Error(err))
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ResetTokenRepository) Stats(ctx context.Context) (*models.TokenStats, error) {
	row := r.db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE used = false AND expires_at > now()),
		       count(*) FILTER (WHERE used = false AND expires_at <= now()),
		       count(*) FILTER (WHERE used = true)
		FROM password_reset_tokens
	`)

	var s models.TokenStats
	if err := row.Scan(&s.Total, &s.Active, &s.Expired, &s.Used); err != nil {
		logger.Log.Error("Ошибка получения статистики токенов (repo)", zap.Error(err))
		return nil, err
	}
	return &s, nil
}
