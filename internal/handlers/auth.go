package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"promptsculptor/internal/config"
	"promptsculptor/internal/logger"
	"promptsculptor/internal/middleware"
	"promptsculptor/internal/models"
	"promptsculptor/internal/services"
	helpers "promptsculptor/internal/utils/helpers"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  *services.AuthService
	emailService *services.EmailService
}

func NewAuthHandler(authService *services.AuthService, emailService *services.EmailService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
}

// Register godoc
// @Summary Регистрация нового пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Данные регистрации"
// @Success 201 {string} string "Пользователь успешно зарегистрирован"
// @Failure 400 {string} string "Ошибка валидации"
// @Router /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("Ошибка декодирования JSON в Register", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	logger.Log.Info("Регистрация пользователя", zap.String("username", req.Username), zap.String("email", req.Email))

	user := &models.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
	}

	err := h.authService.RegisterUser(context.Background(), user, req.Password)
	if err != nil {
		logger.Log.Error("Ошибка регистрации пользователя", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.emailService.SendWelcome(user.Email, user.Username)

	helpers.JSON(w, http.StatusCreated, "Пользователь успешно зарегистрирован")
}

// Login godoc
// @Summary Авторизация пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Данные для входа"
// @Success 200 {object} loginResponse
// @Failure 401 {string} string "Неверный логин или пароль"
// @Router /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("Ошибка декодирования JSON в Login", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	logger.Log.Info("Попытка входа", zap.String("username", req.Username))

	cfg, _ := config.LoadConfig()
	accessTTL, _ := time.ParseDuration(cfg.AccessTokenTTL)
	refreshTTL, _ := time.ParseDuration(cfg.RefreshTokenTTL)

	access, refresh, user, err := h.authService.LoginUser(
		context.Background(),
		req.Username,
		req.Password,
		cfg.JWTSecret,
		accessTTL,
		refreshTTL,
	)
	if err != nil {
		logger.Log.Warn("Ошибка входа пользователя", zap.String("username", req.Username), zap.Error(err))
		helpers.Error(w, http.StatusUnauthorized, err.Error())
		return
	}

	logger.Log.Info("Вход выполнен", zap.String("username", req.Username), zap.String("role", user.Role))
	resp := loginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     user.Username,
		FullName:     user.FullName,
		Role:         user.Role,
	}

	helpers.JSON(w, http.StatusOK, resp)
}

// Protected godoc
// @Summary Получить данные профиля
// @Tags profile
// @Security ApiKeyAuth
// @Success 200 {object} models.UserProfileResponse "Профиль пользователя"
// @Failure 401 {string} string "Нет доступа"
// @Router /api/profile [get]
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Log.Warn("Пользователь не найден для профиля", zap.Int("user_id", userID), zap.Error(err))
		helpers.Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	helpers.JSON(w, http.StatusOK, models.UserProfileResponse{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	})
}

// Refresh godoc
// @Summary Обновление пары токенов по refresh-токену
// @Tags auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]string
// @Failure 401 {string} string "Недействительный refresh токен"
// @Router /api/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		logger.Log.Warn("Отсутствует refresh token в Refresh")
		helpers.Error(w, http.StatusUnauthorized, "Отсутствует refresh token")
		return
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	cfg, _ := config.LoadConfig()
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		logger.Log.Warn("Неверный или просроченный refresh token", zap.Error(err))
		helpers.Error(w, http.StatusUnauthorized, "Неверный или просроченный refresh token")
		return
	}

	userID, ok1 := claims["user_id"].(float64)
	role, ok2 := claims["role"].(string)
	if !ok1 || !ok2 {
		logger.Log.Error("Неверный payload токена", zap.Any("claims", claims))
		helpers.Error(w, http.StatusUnauthorized, "Неверный payload токена")
		return
	}

	accessTTL, _ := time.ParseDuration(cfg.AccessTokenTTL)
	refreshTTL, _ := time.ParseDuration(cfg.RefreshTokenTTL)

	access, refresh, err := h.authService.RotateRefreshToken(
		r.Context(),
		int(userID), role, tokenString,
		cfg.JWTSecret,
		accessTTL, refreshTTL,
	)
	if err != nil {
		logger.Log.Warn("Недействительный refresh token", zap.Error(err))
		helpers.Error(w, http.StatusUnauthorized, "Недействительный refresh token")
		return
	}

	logger.Log.Info("Токены обновлены", zap.Float64("user_id", userID))
	helpers.JSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout godoc
// @Summary Выход (удаление refresh токена, блоклист access токена)
// @Tags auth
// @Security ApiKeyAuth
// @Accept json
// @Success 200 {string} string "Выход выполнен"
// @Failure 401 {string} string "Невалидный токен"
// @Router /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		logger.Log.Warn("Отсутствует access token в Logout")
		helpers.Error(w, http.StatusUnauthorized, "Отсутствует access token")
		return
	}
	accessToken := strings.TrimPrefix(authHeader, "Bearer ")

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		logger.Log.Warn("Невалидный payload в Logout", zap.Int("user_id", userID))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.authService.Logout(r.Context(), userID, req.RefreshToken, accessToken); err != nil {
		logger.Log.Error("Ошибка при удалении токена", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Ошибка при удалении токена")
		return
	}

	logger.Log.Info("Пользователь вышел", zap.Int("user_id", userID))
	helpers.JSON(w, http.StatusOK, "Выход выполнен")
}
