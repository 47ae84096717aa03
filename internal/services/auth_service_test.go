package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"promptsculptor/internal/models"
	"promptsculptor/internal/utils"
)

// Мок-репозиторий (заглушка)
type mockUserRepo struct {
	users       map[string]*models.User
	lastUser    *models.User
	refresh     map[string]bool // userID+token
	blacklisted map[string]bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:       make(map[string]*models.User),
		refresh:     make(map[string]bool),
		blacklisted: make(map[string]bool),
	}
}

func (m *mockUserRepo) IsUsernameTaken(_ context.Context, username string) (bool, error) {
	_, exists := m.users[username]
	return exists, nil
}

func (m *mockUserRepo) IsEmailTaken(_ context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *models.User) error {
	m.users[user.Username] = user
	m.lastUser = user
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockUserRepo) SaveRefreshToken(_ context.Context, userID int, token string) error {
	m.refresh[token] = true
	return nil
}

func (m *mockUserRepo) IsRefreshTokenValid(_ context.Context, userID int, token string) (bool, error) {
	return m.refresh[token], nil
}

func (m *mockUserRepo) DeleteRefreshToken(_ context.Context, userID int, token string) error {
	delete(m.refresh, token)
	return nil
}

func (m *mockUserRepo) BlacklistAccessToken(_ context.Context, token string) error {
	m.blacklisted[token] = true
	return nil
}

func TestRegisterUser(t *testing.T) {
	repo := newMockUserRepo()
	service := NewAuthService(repo)

	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		FullName: "Тестовый Пользователь",
	}

	err := service.RegisterUser(context.Background(), user, "secret")
	if err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	if repo.lastUser == nil || repo.lastUser.PasswordHash == "" {
		t.Fatal("пароль не захеширован или пользователь не сохранён")
	}
	if repo.lastUser.PasswordHash == "secret" {
		t.Fatal("пароль сохранён открытым текстом")
	}
}

func TestRegisterUser_DuplicateUsername(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["taken"] = &models.User{ID: 1, Username: "taken"}
	service := NewAuthService(repo)

	err := service.RegisterUser(context.Background(), &models.User{Username: "taken"}, "secret")
	if err == nil {
		t.Fatal("ожидалась ошибка для занятого username")
	}
}

func TestLoginUser_Success(t *testing.T) {
	repo := newMockUserRepo()
	service := NewAuthService(repo)

	hashed, _ := utils.HashPassword("secret")
	repo.users["testuser"] = &models.User{
		ID:           1,
		Username:     "testuser",
		PasswordHash: hashed,
		Role:         "user",
	}

	access, refresh, user, err := service.LoginUser(context.Background(), "testuser", "secret", "mysecret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("ошибка логина: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("токены не сгенерированы")
	}
	if user == nil || user.ID != 1 {
		t.Fatal("пользователь не вернулся из логина")
	}
	if !repo.refresh[refresh] {
		t.Fatal("refresh токен не сохранён")
	}
}

func TestLoginUser_Fail(t *testing.T) {
	repo := newMockUserRepo()
	service := NewAuthService(repo)

	_, _, _, err := service.LoginUser(context.Background(), "unknown", "pass", "secret", time.Minute, time.Hour)
	if err == nil {
		t.Fatal("ожидалась ошибка при логине несуществующего пользователя")
	}
}

func TestRotateRefreshToken(t *testing.T) {
	repo := newMockUserRepo()
	service := NewAuthService(repo)

	repo.refresh["old-token"] = true

	access, refresh, err := service.RotateRefreshToken(context.Background(), 1, "user", "old-token", "mysecret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("ошибка ротации: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("новая пара токенов не сгенерирована")
	}
	if repo.refresh["old-token"] {
		t.Fatal("старый refresh токен не удалён")
	}
	if !repo.refresh[refresh] {
		t.Fatal("новый refresh токен не сохранён")
	}

	// Повторная ротация по старому токену должна падать
	if _, _, err := service.RotateRefreshToken(context.Background(), 1, "user", "old-token", "mysecret", time.Minute, time.Hour); err == nil {
		t.Fatal("ротация по удалённому токену должна возвращать ошибку")
	}
}

func TestLogout(t *testing.T) {
	repo := newMockUserRepo()
	service := NewAuthService(repo)

	repo.refresh["refresh-token"] = true

	if err := service.Logout(context.Background(), 1, "refresh-token", "access-token"); err != nil {
		t.Fatalf("ошибка выхода: %v", err)
	}
	if repo.refresh["refresh-token"] {
		t.Fatal("refresh токен не удалён при выходе")
	}
	if !repo.blacklisted["access-token"] {
		t.Fatal("access токен не попал в блоклист")
	}
}
