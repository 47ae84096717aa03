package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"promptsculptor/internal/logger"
	"promptsculptor/internal/middleware"
	"promptsculptor/internal/models"
	"promptsculptor/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type TemplateHandler struct {
	svc services.TemplateService
}

func NewTemplateHandler(svc services.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// Create
// @Summary      Создать шаблон промпта
// @Description  Создаёт новый шаблон. Поддерживает до 5 тегов.
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        body  body   models.CreateTemplateRequest  true  "Данные шаблона"
// @Success      201   {object}  models.PromptTemplate
// @Failure      400   {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/templates [post]
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Error("ошибка декодирования JSON при создании шаблона", zap.Error(err))
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ownerID := ownerIDFromCtx(r)
	tpl, err := h.svc.Create(r.Context(), ownerID, req)
	if err != nil {
		logger.Log.Error("ошибка создания шаблона", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Log.Info("шаблон успешно создан",
		zap.Int64("id", tpl.ID),
		zap.String("title", tpl.Title),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(tpl)
}

// GetAll
// @Summary      Список шаблонов
// @Tags         templates
// @Produce      json
// @Param        limit   query  int     false "Лимит (по умолч. 20)"
// @Param        offset  query  int     false "Смещение"
// @Param        tag     query  string  false "Фильтр по тегу"
// @Success      200  {array}  models.PromptTemplate
// @Router       /api/templates [get]
func (h *TemplateHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	tag := r.URL.Query().Get("tag")

	// Неавторизованным — только публичные.
	_, authed := middleware.UserIDFromContext(r.Context())

	list, err := h.svc.GetAll(r.Context(), limit, offset, tag, !authed)
	if err != nil {
		logger.Log.Error("ошибка получения списка шаблонов", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.PromptTemplate{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// GetByID
// @Summary      Шаблон по ID
// @Tags         templates
// @Produce      json
// @Param        id  path  int  true  "ID шаблона"
// @Success      200  {object}  models.PromptTemplate
// @Failure      404  {object}  map[string]string
// @Router       /api/templates/{id} [get]
func (h *TemplateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	tpl, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tpl)
}

// Update
// @Summary      Обновить шаблон
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        id    path  int                          true  "ID шаблона"
// @Param        body  body  models.CreateTemplateRequest true  "Данные шаблона"
// @Success      200   {object}  models.PromptTemplate
// @Failure      400   {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/templates/{id} [patch]
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	var req models.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	tpl, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		logger.Log.Error("ошибка обновления шаблона", zap.Error(err), zap.Int64("id", id))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tpl)
}

// Delete
// @Summary      Удалить шаблон
// @Tags         templates
// @Param        id  path  int  true  "ID шаблона"
// @Success      204  "Удалено"
// @Failure      400  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/templates/{id} [delete]
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		logger.Log.Error("ошибка удаления шаблона", zap.Error(err), zap.Int64("id", id))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ownerIDFromCtx(r *http.Request) *int64 {
	if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
		v := int64(uid)
		return &v
	}
	return nil
}
