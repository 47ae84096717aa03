package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"promptsculptor/internal/logger"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type fakeLimiter struct {
	allowed bool
	err     error
	calls   int
	lastID  string
}

func (f *fakeLimiter) CheckLimit(identifier, endpoint string, maxRequests int, windowDuration time.Duration) (bool, error) {
	f.calls++
	f.lastID = identifier
	return f.allowed, f.err
}

func doRequest(mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/password/forgot", nil)
	req.RemoteAddr = "10.0.0.5:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_Allowed(t *testing.T) {
	lim := &fakeLimiter{allowed: true}
	rr := doRequest(RateLimit(lim, "password_reset", 3, 15*time.Minute))

	if rr.Code != http.StatusOK {
		t.Fatalf("разрешённый запрос должен проходить: %d", rr.Code)
	}
	if lim.calls != 1 {
		t.Fatalf("лимитер должен быть вызван один раз: %d", lim.calls)
	}
	if lim.lastID != "10.0.0.5" {
		t.Fatalf("идентификатор должен быть IP без порта: %q", lim.lastID)
	}
}

func TestRateLimit_Denied(t *testing.T) {
	lim := &fakeLimiter{allowed: false}
	rr := doRequest(RateLimit(lim, "password_reset", 3, 15*time.Minute))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("превышение лимита должно давать 429: %d", rr.Code)
	}
}

func TestRateLimit_FailOpen(t *testing.T) {
	lim := &fakeLimiter{err: errors.New("valkey недоступен")}
	rr := doRequest(RateLimit(lim, "password_reset", 3, 15*time.Minute))

	if rr.Code != http.StatusOK {
		t.Fatalf("при ошибке лимитера запрос должен проходить: %d", rr.Code)
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	rr := doRequest(RateLimit(nil, "password_reset", 3, 15*time.Minute))

	if rr.Code != http.StatusOK {
		t.Fatalf("без лимитера запрос должен проходить: %d", rr.Code)
	}
}
