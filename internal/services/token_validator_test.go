package services

import (
	"strings"
	"testing"
	"time"

	"promptsculptor/internal/models"
)

func TestValidateResetToken(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		token  *models.ResetToken
		ok     bool
		reason RejectReason
	}{
		{
			name:   "нет записи",
			token:  nil,
			ok:     false,
			reason: ReasonNotFound,
		},
		{
			name:   "уже использован",
			token:  &models.ResetToken{Used: true, ExpiresAt: now.Add(time.Hour)},
			ok:     false,
			reason: ReasonUsed,
		},
		{
			name:   "истёк",
			token:  &models.ResetToken{ExpiresAt: now.Add(-time.Second)},
			ok:     false,
			reason: ReasonExpired,
		},
		{
			name:   "истекает ровно сейчас",
			token:  &models.ResetToken{ExpiresAt: now},
			ok:     false,
			reason: ReasonExpired,
		},
		{
			name:  "живой токен",
			token: &models.ResetToken{ExpiresAt: now.Add(time.Second)},
			ok:    true,
		},
		{
			// used проверяется раньше expired
			name:   "использован и истёк",
			token:  &models.ResetToken{Used: true, ExpiresAt: now.Add(-time.Hour)},
			ok:     false,
			reason: ReasonUsed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidateResetToken(tc.token, now)
			if ok != tc.ok {
				t.Fatalf("ожидалось ok=%v, получено %v", tc.ok, ok)
			}
			if reason != tc.reason {
				t.Fatalf("ожидалась причина %q, получена %q", tc.reason, reason)
			}
		})
	}
}

func TestCheckTokenFormat(t *testing.T) {
	valid := strings.Repeat("A", 40) + "1-_"
	if len(valid) != rawTokenLen {
		t.Fatalf("тест собран неверно: длина %d", len(valid))
	}

	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"валидный токен", valid, true},
		{"пустая строка", "", false},
		{"короткий", strings.Repeat("A", rawTokenLen-1), false},
		{"длинный", strings.Repeat("A", rawTokenLen+1), false},
		{"паддинг base64", strings.Repeat("A", rawTokenLen-1) + "=", false},
		{"плюс из обычного base64", strings.Repeat("A", rawTokenLen-1) + "+", false},
		{"пробел", strings.Repeat("A", rawTokenLen-1) + " ", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckTokenFormat(tc.token); got != tc.want {
				t.Fatalf("CheckTokenFormat(%q) = %v, ожидалось %v", tc.token, got, tc.want)
			}
		})
	}
}
