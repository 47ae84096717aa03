package routes

import (
	"net/http"
	"time"

	"promptsculptor/internal/handlers"
	"promptsculptor/internal/middleware"

	"github.com/gorilla/mux"
)

// Deps — всё, что нужно для сборки маршрутов.
type Deps struct {
	Auth       *handlers.AuthHandler
	Password   *handlers.PasswordHandler
	Templates  *handlers.TemplateHandler
	AdminToken *handlers.AdminTokensHandler
	AdminLogs  *handlers.AdminLogsHandler

	Blacklist middleware.TokenBlacklist
	Limiter   middleware.Limiter

	// лимиты для /password/forgot и /password/reset
	ResetRateMax    int
	ResetRateWindow time.Duration
}

func InitRoutes(router *mux.Router, d Deps) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	router.Use(middleware.Recoverer)

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/register", d.Auth.Register).Methods("POST")
	api.HandleFunc("/login", d.Auth.Login).Methods("POST")
	api.HandleFunc("/refresh", d.Auth.Refresh).Methods("POST")

	// Сброс пароля: оба эндпоинта за rate-limiter-ом.
	rl := middleware.RateLimit(d.Limiter, "password_reset", d.ResetRateMax, d.ResetRateWindow)
	api.Handle("/password/forgot", rl(http.HandlerFunc(d.Password.Forgot))).Methods("POST")
	api.Handle("/password/reset", rl(http.HandlerFunc(d.Password.Reset))).Methods("POST")

	api.HandleFunc("/templates", d.Templates.GetAll).Methods("GET")
	api.HandleFunc("/templates/{id:[0-9]+}", d.Templates.GetByID).Methods("GET")

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(func(next http.Handler) http.Handler {
		return middleware.JWTAuth(d.Blacklist, next)
	})

	protected.HandleFunc("/logout", d.Auth.Logout).Methods("POST")
	protected.HandleFunc("/profile", d.Auth.Protected).Methods("GET")
	protected.HandleFunc("/password/change", d.Password.Change).Methods("POST")

	protected.HandleFunc("/templates", d.Templates.Create).Methods("POST")
	protected.HandleFunc("/templates/{id:[0-9]+}", d.Templates.Update).Methods("PATCH")
	protected.Handle("/templates/{id:[0-9]+}",
		middleware.OnlyRole("admin")(http.HandlerFunc(d.Templates.Delete))).Methods("DELETE")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.OnlyRole("admin"))
	admin.HandleFunc("/tokens/stats", d.AdminToken.Stats).Methods("GET")
	admin.HandleFunc("/tokens/cleanup", d.AdminToken.Cleanup).Methods("POST")
	admin.HandleFunc("/logs/days", d.AdminLogs.ListDays).Methods("GET")
	admin.HandleFunc("/logs", d.AdminLogs.GetLogs).Methods("GET")
	admin.HandleFunc("/logs/stats", d.AdminLogs.Stats).Methods("GET")
	admin.HandleFunc("/logs/download", d.AdminLogs.DownloadRaw).Methods("GET")
}
