package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret       string
	AccessTokenTTL  string
	RefreshTokenTTL string

	Log      string
	LogLevel string
	Env      string // dev|prod

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	ValkeyAddr string

	FrontendURL string

	// Политика сброса пароля — конфигурация, не константы кода.
	PasswordResetTTLMin     string
	ResetRateLimit          string
	ResetRateWindowMin      string
	TokenCleanupIntervalMin string
	TokenRetentionHours     string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует — чтобы не создавать зависимость от logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  def(os.Getenv("ACCESS_TOKEN_EXPIRY"), "15m"),
		RefreshTokenTTL: def(os.Getenv("REFRESH_TOKEN_EXPIRY"), "720h"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     def(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		ValkeyAddr: os.Getenv("VALKEY_ADDR"),

		FrontendURL: os.Getenv("FRONTEND_URL"),

		PasswordResetTTLMin:     def(os.Getenv("PASSWORD_RESET_TTL_MIN"), "30"),
		ResetRateLimit:          def(os.Getenv("RESET_RATE_LIMIT"), "3"),
		ResetRateWindowMin:      def(os.Getenv("RESET_RATE_WINDOW_MIN"), "15"),
		TokenCleanupIntervalMin: def(os.Getenv("TOKEN_CLEANUP_INTERVAL_MIN"), "60"),
		TokenRetentionHours:     def(os.Getenv("TOKEN_RETENTION_HOURS"), "24"),
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		warnings = append(warnings, "JWT_SECRET is empty")
	}

	// SMTP — предупреждение: без почты ссылка сброса не доедет до пользователя
	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured")
	}

	// Valkey — предупреждение: без него rate limiter работает в режиме fail-open
	if c.ValkeyAddr == "" {
		warnings = append(warnings, "VALKEY_ADDR is not set, rate limiting is disabled")
	}

	if c.FrontendURL == "" {
		warnings = append(warnings, "FRONTEND_URL is empty, reset links will be relative")
	}

	if c.Port == "" {
		warnings = append(warnings, "PORT is empty, using default 8080")
	}

	return warnings, nil
}

// GetDSN — полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe — DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// PasswordResetTTL — срок жизни токена сброса.
func (c *Config) PasswordResetTTL() time.Duration {
	return minutesOr(c.PasswordResetTTLMin, 30)
}

// ResetRateWindow — окно rate limiter-а для /password/*.
func (c *Config) ResetRateWindow() time.Duration {
	return minutesOr(c.ResetRateWindowMin, 15)
}

// ResetRateMax — максимум запросов в окне.
func (c *Config) ResetRateMax() int {
	n, err := strconv.Atoi(c.ResetRateLimit)
	if err != nil || n <= 0 {
		return 3
	}
	return n
}

// TokenCleanupInterval — период фоновой чистки токенов.
func (c *Config) TokenCleanupInterval() time.Duration {
	return minutesOr(c.TokenCleanupIntervalMin, 60)
}

// TokenRetention — сколько держим истёкшие/использованные токены до удаления.
func (c *Config) TokenRetention() time.Duration {
	n, err := strconv.Atoi(c.TokenRetentionHours)
	if err != nil || n <= 0 {
		n = 24
	}
	return time.Duration(n) * time.Hour
}

func minutesOr(s string, d int) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		n = d
	}
	return time.Duration(n) * time.Minute
}
