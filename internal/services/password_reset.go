package services

import (
	"context"
	"errors"
	"fmt"
	"promptsculptor/internal/logger"
	"promptsculptor/internal/models"
	"promptsculptor/internal/repository"
	"promptsculptor/internal/utils"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrResetTokenInvalid — единый внешний ответ на not_found/used/expired/
	// malformed/race_lost. Какая именно причина — только в логах.
	ErrResetTokenInvalid = errors.New("invalid or expired token")

	// ErrWeakPassword показывается пользователю как есть: помочь выбрать
	// нормальный пароль — не утечка.
	ErrWeakPassword = errors.New("password too short")

	// ErrResetIncomplete — инфраструктурный сбой после того, как токен уже
	// погашен. Токен потрачен, пароль не обновлён: пользователю нужен
	// новый запрос сброса, клиенту — 5xx, не "невалидный токен".
	ErrResetIncomplete = errors.New("reset could not be completed")
)

const minPasswordLen = 8

type PasswordResetService struct {
	tokens      repository.ResetTokenRepo
	users       ResetUserStore
	codec       *TokenCodec
	emailSender EmailSender
	appURL      string // фронтовый URL: ссылка вида /reset?token=...
	tokenTTL    time.Duration
}

// ResetUserStore — что сервису нужно от пользователей: найти по почте,
// сменить пароль, убить сессии.
type ResetUserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	InvalidateSessions(ctx context.Context, userID int) error
}

type EmailSender interface {
	SendPasswordReset(ctx context.Context, to, resetLink string, ttl time.Duration) error
}

func NewPasswordResetService(
	tokens repository.ResetTokenRepo,
	users ResetUserStore,
	emailSender EmailSender,
	appURL string,
	tokenTTL time.Duration,
) *PasswordResetService {
	return &PasswordResetService{
		tokens:      tokens,
		users:       users,
		codec:       NewTokenCodec(),
		emailSender: emailSender,
		appURL:      appURL,
		tokenTTL:    tokenTTL,
	}
}

// RequestReset генерирует одноразовый токен и отправляет письмо со ссылкой.
// Возвращает nil всегда (не раскрываем, существует ли такой e-mail).
// Ветки "нашли/не нашли" делают одинаковую работу, чтобы не было
// тайминг-оракула; сама отправка письма асинхронная.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	logger.WithCtx(ctx).Info("Запрос на сброс пароля")

	user, lookupErr := s.users.GetUserByEmail(ctx, email)

	// Токен генерируем в обеих ветках — одинаковое количество работы.
	raw, tokenHash, expires, genErr := s.codec.Generate(s.tokenTTL)
	if genErr != nil {
		logger.Log.Error("Ошибка генерации токена сброса", zap.Error(genErr))
		return nil
	}

	if lookupErr != nil {
		// Не раскрываем наличие почты пользователю, но логируем для нас:
		logger.WithCtx(ctx).Warn("Сброс запрошен для неизвестного email",
			zap.String("email_masked", maskEmail(email)),
		)
		return nil
	}

	if _, err := s.tokens.Create(ctx, user.ID, tokenHash, expires); err != nil {
		logger.Log.Error("Ошибка сохранения токена сброса пароля",
			zap.Int("user_id", user.ID),
			zap.Error(err),
		)
		return nil
	}

	resetLink := fmt.Sprintf("%s/reset?token=%s", s.appURL, raw)
	if err := s.emailSender.SendPasswordReset(ctx, email, resetLink, s.tokenTTL); err != nil {
		// Не фейлим намеренно — чтобы нельзя было брутить наличие e-mail
		logger.Log.Error("Ошибка постановки письма сброса в очередь",
			zap.Int("user_id", user.ID),
			zap.Error(err),
		)
	}

	logger.Log.Info("Письмо со ссылкой на сброс пароля поставлено на отправку",
		zap.Int("user_id", user.ID),
		zap.Time("expires_at", expires),
	)
	return nil
}

// ConsumeReset подтверждает токен и устанавливает новый пароль.
// До MarkUsed состояние не меняется; MarkUsed — граница атомарности:
// из конкурентных погашений одного токена дальше проходит ровно одно.
func (s *PasswordResetService) ConsumeReset(ctx context.Context, rawToken, newPassword string) error {
	log := logger.WithCtx(ctx)
	log.Info("Попытка сброса пароля по токену")

	if len(newPassword) < minPasswordLen {
		log.Warn("Слишком короткий новый пароль")
		return ErrWeakPassword
	}

	if !CheckTokenFormat(rawToken) {
		log.Warn("Отклонён токен сброса", zap.String("reason", string(ReasonMalformed)))
		return ErrResetTokenInvalid
	}

	rec, err := s.tokens.FindByHash(ctx, s.codec.Hash(rawToken))
	if err != nil {
		log.Error("Ошибка поиска токена сброса", zap.Error(err))
		return err
	}

	if ok, reason := ValidateResetToken(rec, time.Now()); !ok {
		log.Warn("Отклонён токен сброса", zap.String("reason", string(reason)))
		return ErrResetTokenInvalid
	}

	won, err := s.tokens.MarkUsed(ctx, rec.ID)
	if err != nil {
		log.Error("Ошибка пометки токена использованным", zap.Error(err), zap.String("token_id", rec.ID.String()))
		return err
	}
	if !won {
		// Параллельное погашение успело раньше. Пароль не трогаем.
		log.Warn("Отклонён токен сброса",
			zap.String("reason", string(ReasonRaceLost)),
			zap.String("token_id", rec.ID.String()),
		)
		return ErrResetTokenInvalid
	}

	pwHash, err := utils.HashPassword(newPassword)
	if err != nil {
		log.Error("Ошибка генерации хеша пароля после погашения токена",
			zap.Error(err),
			zap.Int("user_id", rec.UserID),
			zap.String("token_id", rec.ID.String()),
		)
		return ErrResetIncomplete
	}

	if err := s.users.UpdatePassword(ctx, rec.UserID, pwHash); err != nil {
		// Токен уже потрачен — повторить его нельзя, нужен новый запрос.
		log.Error("Ошибка обновления пароля после погашения токена",
			zap.Error(err),
			zap.Int("user_id", rec.UserID),
			zap.String("token_id", rec.ID.String()),
		)
		return ErrResetIncomplete
	}

	// Остальные живые ссылки из писем этого пользователя гаснут.
	if err := s.tokens.InvalidateAllForUser(ctx, rec.UserID, rec.ID); err != nil {
		log.Warn("Не удалось инвалидировать остальные токены пользователя",
			zap.Error(err),
			zap.Int("user_id", rec.UserID),
		)
	}

	// Старые сессии после смены пароля жить не должны.
	if err := s.users.InvalidateSessions(ctx, rec.UserID); err != nil {
		log.Warn("Не удалось инвалидировать сессии пользователя",
			zap.Error(err),
			zap.Int("user_id", rec.UserID),
		)
	}

	log.Info("Пароль успешно сброшен", zap.Int("user_id", rec.UserID))
	return nil
}

// ChangePassword меняет пароль для авторизованного пользователя по старому паролю.
func (s *PasswordResetService) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword, currentHash string) error {
	logger.Log.Info("Смена пароля (авторизованный пользователь)", zap.Int("user_id", userID))

	if len(newPassword) < minPasswordLen {
		logger.Log.Warn("Слишком короткий новый пароль", zap.Int("user_id", userID))
		return ErrWeakPassword
	}

	if !utils.CheckPasswordHash(oldPassword, currentHash) {
		logger.Log.Warn("Старый пароль не совпадает", zap.Int("user_id", userID))
		return errors.New("old password incorrect")
	}

	newHash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Log.Error("Ошибка генерации нового хеша пароля", zap.Error(err), zap.Int("user_id", userID))
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		logger.Log.Error("Ошибка обновления пароля пользователя",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return err
	}

	if err := s.users.InvalidateSessions(ctx, userID); err != nil {
		logger.Log.Warn("Не удалось инвалидировать сессии пользователя",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
	}

	logger.Log.Info("Пароль успешно изменён", zap.Int("user_id", userID))
	return nil
}

// TokenStats — агрегаты по токенам для админки.
func (s *PasswordResetService) TokenStats(ctx context.Context) (*models.TokenStats, error) {
	return s.tokens.Stats(ctx)
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
