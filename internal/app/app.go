package app

import (
	"promptsculptor/internal/cache"
	"promptsculptor/internal/config"
	"promptsculptor/internal/db"
	"promptsculptor/internal/handlers"
	"promptsculptor/internal/logger"
	"promptsculptor/internal/middleware"
	"promptsculptor/internal/repository"
	"promptsculptor/internal/routes"
	"promptsculptor/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func InitApp(cfg *config.Config) (*mux.Router, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	// Rate limiter живёт в valkey, чтобы несколько инстансов процесса
	// считали запросы в одном месте. Без VALKEY_ADDR лимитер выключен.
	var limiter middleware.Limiter
	if cfg.ValkeyAddr != "" {
		client, err := cache.NewValkeyClient(cfg.ValkeyAddr)
		if err != nil {
			logger.Log.Warn("Valkey недоступен, rate limiter выключен", zap.Error(err))
		} else {
			limiter = cache.NewRateLimiter(client)
		}
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	tokenRepo := repository.NewResetTokenRepository(conn)
	templateRepo := repository.NewTemplateRepo(conn)

	// Сервисы
	emailService := services.NewEmailService(cfg)
	authService := services.NewAuthService(userRepo)
	resetService := services.NewPasswordResetService(
		tokenRepo,
		userRepo,
		emailService,
		cfg.FrontendURL,
		cfg.PasswordResetTTL(),
	)
	cleanupService := services.NewTokenCleanupService(
		tokenRepo,
		cfg.TokenCleanupInterval(),
		cfg.TokenRetention(),
	)
	templateService := services.NewTemplateService(templateRepo)

	// Фоновая чистка токенов
	cleanupService.Start()

	// Воркеры отправки писем
	for i := 0; i < 3; i++ {
		go services.StartEmailWorker(emailService)
	}

	// Хендлеры
	authHandler := handlers.NewAuthHandler(authService, emailService)
	passwordHandler := handlers.NewPasswordHandler(resetService, userRepo)
	templateHandler := handlers.NewTemplateHandler(templateService)
	adminTokensHandler := handlers.NewAdminTokensHandler(resetService, cleanupService)
	adminLogsHandler := handlers.NewAdminLogsHandler()

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, routes.Deps{
		Auth:            authHandler,
		Password:        passwordHandler,
		Templates:       templateHandler,
		AdminToken:      adminTokensHandler,
		AdminLogs:       adminLogsHandler,
		Blacklist:       userRepo,
		Limiter:         limiter,
		ResetRateMax:    cfg.ResetRateMax(),
		ResetRateWindow: cfg.ResetRateWindow(),
	})

	return router, nil
}
