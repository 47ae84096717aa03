package handlers

import (
	"net/http"

	"promptsculptor/internal/logger"
	"promptsculptor/internal/services"
	helpers "promptsculptor/internal/utils/helpers"

	"go.uber.org/zap"
)

// AdminTokensHandler — админские ручки над таблицей токенов сброса:
// статистика для дашборда и чистка по требованию.
type AdminTokensHandler struct {
	resetSvc   *services.PasswordResetService
	cleanupSvc *services.TokenCleanupService
}

func NewAdminTokensHandler(resetSvc *services.PasswordResetService, cleanupSvc *services.TokenCleanupService) *AdminTokensHandler {
	return &AdminTokensHandler{resetSvc: resetSvc, cleanupSvc: cleanupSvc}
}

// Stats godoc
// @Summary Статистика токенов сброса
// @Description Агрегаты по таблице токенов: всего/активные/истёкшие/использованные.
// @Tags admin-tokens
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.TokenStats
// @Failure 403 {string} string "Доступ запрещён"
// @Router /api/admin/tokens/stats [get]
func (h *AdminTokensHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.resetSvc.TokenStats(r.Context())
	if err != nil {
		logger.WithCtx(r.Context()).Error("Ошибка получения статистики токенов", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	helpers.JSON(w, http.StatusOK, stats)
}

// Cleanup godoc
// @Summary Чистка токенов по требованию
// @Description Удаляет истёкшие и давно использованные токены. Безопасно запускать параллельно с фоновой чисткой.
// @Tags admin-tokens
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 403 {string} string "Доступ запрещён"
// @Router /api/admin/tokens/cleanup [post]
func (h *AdminTokensHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cleanupSvc.RunOnce(r.Context())
	if err != nil {
		logger.WithCtx(r.Context()).Error("Ошибка чистки токенов по требованию", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
