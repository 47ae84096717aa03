package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"promptsculptor/internal/logger"
	"promptsculptor/internal/middleware"
	"promptsculptor/internal/models"
	"promptsculptor/internal/services"
	helpers "promptsculptor/internal/utils/helpers"

	"go.uber.org/zap"
)

// userReader — рядом с PasswordHandler
type userReader interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type PasswordHandler struct {
	svc      *services.PasswordResetService
	userRepo userReader
}

func NewPasswordHandler(svc *services.PasswordResetService, userRepo userReader) *PasswordHandler {
	return &PasswordHandler{svc: svc, userRepo: userRepo}
}

type forgotReq struct {
	Email string `json:"email"`
}

// Forgot godoc
// @Summary Запрос восстановления пароля
// @Description Отправляет письмо со ссылкой для сброса пароля. Ответ всегда одинаковый, даже если e-mail не найден.
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotReq true "Email пользователя"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/password/forgot [post]
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req forgotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		log.Warn("Невалидный payload в Forgot")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Не раскрываем, существует ли email — всегда возвращаем 200
	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		// Ошибку логируем, но клиенту отвечаем одинаково
		log.Error("Сбой при запросе восстановления пароля", zap.String("email_masked", maskEmail(req.Email)), zap.Error(err))
	}

	helpers.JSON(w, http.StatusOK, map[string]any{"message": "If the email exists, a reset link has been sent."})
}

type resetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Reset godoc
// @Summary Сброс пароля по токену
// @Description Устанавливает новый пароль по токену из письма. Причина отказа (не найден/использован/истёк) наружу не различается.
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetReq true "Токен и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/password/reset [post]
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.NewPassword) == "" {
		log.Warn("Невалидный payload в Reset")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	err := h.svc.ConsumeReset(r.Context(), req.Token, req.NewPassword)
	switch {
	case err == nil:
		helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
	case errors.Is(err, services.ErrWeakPassword):
		// Помощь с паролем — не утечка, отвечаем конкретно.
		helpers.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
	case errors.Is(err, services.ErrResetTokenInvalid):
		// not_found / used / expired / malformed / race_lost — один ответ.
		helpers.Error(w, http.StatusBadRequest, "invalid or expired reset link")
	default:
		// Инфраструктура (БД, пост-MarkUsed сбои) — retryable 500.
		log.Error("Сбой при сбросе пароля", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "server error, try again later")
	}
}

type changeReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Change godoc
// @Summary Смена пароля (авторизованный пользователь)
// @Description Смена пароля по старому паролю. Требуется JWT-токен.
// @Tags password
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body changeReq true "Старый и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/password/change [post]
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == 0 {
		log.Warn("Нет доступа для Change: отсутствует user_id")
		helpers.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.OldPassword) == "" || strings.TrimSpace(req.NewPassword) == "" {
		log.Warn("Невалидный payload в Change", zap.Int("user_id", userID))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	u, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Warn("Пользователь не найден при смене пароля", zap.Int("user_id", userID))
		helpers.Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword, u.PasswordHash); err != nil {
		log.Warn("Не удалось сменить пароль", zap.Int("user_id", userID), zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info("Пароль изменён", zap.Int("user_id", userID))
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password changed."})
}

func maskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
