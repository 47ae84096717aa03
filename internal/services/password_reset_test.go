package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"promptsculptor/internal/models"
	"promptsculptor/internal/utils"

	"github.com/google/uuid"
)

// Мок хранилища токенов (заглушка над map, вся синхронизация на мьютексе)
type mockTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]*models.ResetToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{byHash: make(map[string]*models.ResetToken)}
}

func (m *mockTokenRepo) Create(_ context.Context, userID int, tokenHash string, expiresAt time.Time) (*models.ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byHash[tokenHash]; exists {
		return nil, errors.New("duplicate token hash")
	}
	t := &models.ResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	m.byHash[tokenHash] = t
	cp := *t
	return &cp, nil
}

func (m *mockTokenRepo) FindByHash(_ context.Context, tokenHash string) (*models.ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockTokenRepo) MarkUsed(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byHash {
		if t.ID == id {
			if t.Used {
				return false, nil
			}
			t.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTokenRepo) InvalidateAllForUser(_ context.Context, userID int, exceptID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byHash {
		if t.UserID == userID && t.ID != exceptID {
			t.Used = true
		}
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for h, t := range m.byHash {
		if t.ExpiresAt.Before(cutoff) || (t.Used && t.CreatedAt.Before(cutoff)) {
			delete(m.byHash, h)
			removed++
		}
	}
	return removed, nil
}

func (m *mockTokenRepo) Stats(_ context.Context) (*models.TokenStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.TokenStats{}
	now := time.Now()
	for _, t := range m.byHash {
		s.Total++
		switch {
		case t.Used:
			s.Used++
		case t.IsExpired(now):
			s.Expired++
		default:
			s.Active++
		}
	}
	return s, nil
}

func (m *mockTokenRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

// Мок пользователей
type mockResetUserStore struct {
	mu             sync.Mutex
	users          map[string]*models.User // по email
	passwords      map[int]string          // user_id -> hash
	updateErr      error
	killedSessions map[int]int
}

func newMockResetUserStore() *mockResetUserStore {
	return &mockResetUserStore{
		users:          make(map[string]*models.User),
		passwords:      make(map[int]string),
		killedSessions: make(map[int]int),
	}
}

func (m *mockResetUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, errors.New("пользователь не найден")
	}
	return u, nil
}

func (m *mockResetUserStore) UpdatePassword(_ context.Context, userID int, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.passwords[userID] = passwordHash
	return nil
}

func (m *mockResetUserStore) InvalidateSessions(_ context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killedSessions[userID]++
	return nil
}

// Мок отправки писем: запоминает ссылки
type mockEmailSender struct {
	mu    sync.Mutex
	links []string
	to    []string
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, to, resetLink string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.links = append(m.links, resetLink)
	return nil
}

func (m *mockEmailSender) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		t.Fatal("письмо не отправлено")
	}
	link := m.links[len(m.links)-1]
	i := strings.Index(link, "token=")
	if i < 0 {
		t.Fatalf("в ссылке нет токена: %q", link)
	}
	return link[i+len("token="):]
}

func newResetFixture(ttl time.Duration) (*PasswordResetService, *mockTokenRepo, *mockResetUserStore, *mockEmailSender) {
	tokens := newMockTokenRepo()
	users := newMockResetUserStore()
	users.users["user@example.com"] = &models.User{ID: 1, Username: "user", Email: "user@example.com"}
	sender := &mockEmailSender{}
	svc := NewPasswordResetService(tokens, users, sender, "https://app.example.com", ttl)
	return svc, tokens, users, sender
}

func TestRequestReset_StoresOnlyHash(t *testing.T) {
	svc, tokens, _, sender := newResetFixture(30 * time.Minute)

	if err := svc.RequestReset(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}

	raw := sender.lastToken(t)
	if !CheckTokenFormat(raw) {
		t.Fatalf("токен из письма невалидного формата: %q", raw)
	}

	// В хранилище лежит хеш, а не сырой токен
	rec, err := tokens.FindByHash(context.Background(), NewTokenCodec().Hash(raw))
	if err != nil || rec == nil {
		t.Fatalf("запись по хешу не найдена: %v", err)
	}
	if rec.TokenHash == raw {
		t.Fatal("в хранилище сохранён сырой токен вместо хеша")
	}
	if strings.Contains(rec.TokenHash, raw) || strings.Contains(raw, rec.TokenHash) {
		t.Fatal("сырой токен просочился в сохранённую запись")
	}
	if got, _ := tokens.FindByHash(context.Background(), raw); got != nil {
		t.Fatal("сырой токен находится в хранилище по прямому совпадению")
	}
}

func TestRequestReset_UnknownEmail(t *testing.T) {
	svc, tokens, _, sender := newResetFixture(30 * time.Minute)

	if err := svc.RequestReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("для неизвестного email ожидался nil, получено: %v", err)
	}
	if tokens.count() != 0 {
		t.Fatal("для неизвестного email создан токен")
	}
	if len(sender.links) != 0 {
		t.Fatal("для неизвестного email отправлено письмо")
	}
}

func TestConsumeReset_Success(t *testing.T) {
	svc, _, users, sender := newResetFixture(30 * time.Minute)
	ctx := context.Background()

	if err := svc.RequestReset(ctx, "user@example.com"); err != nil {
		t.Fatalf("ошибка запроса сброса: %v", err)
	}
	raw := sender.lastToken(t)

	if err := svc.ConsumeReset(ctx, raw, "new-password-1"); err != nil {
		t.Fatalf("ошибка сброса пароля: %v", err)
	}

	hash := users.passwords[1]
	if hash == "" {
		t.Fatal("пароль не обновлён")
	}
	if !utils.CheckPasswordHash("new-password-1", hash) {
		t.Fatal("сохранён неверный хеш пароля")
	}
	if users.killedSessions[1] != 1 {
		t.Fatalf("сессии не инвалидированы: %d", users.killedSessions[1])
	}

	// Повторное использование того же токена
	if err := svc.ConsumeReset(ctx, raw, "another-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("повторное погашение должно вернуть ErrResetTokenInvalid, получено: %v", err)
	}
	if !utils.CheckPasswordHash("new-password-1", users.passwords[1]) {
		t.Fatal("повторное погашение изменило пароль")
	}
}

func TestConsumeReset_WeakPassword(t *testing.T) {
	svc, _, _, sender := newResetFixture(30 * time.Minute)
	ctx := context.Background()

	_ = svc.RequestReset(ctx, "user@example.com")
	raw := sender.lastToken(t)

	if err := svc.ConsumeReset(ctx, raw, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("ожидался ErrWeakPassword, получено: %v", err)
	}

	// Токен не должен быть потрачен на неудачной валидации пароля
	if err := svc.ConsumeReset(ctx, raw, "long-enough-pass"); err != nil {
		t.Fatalf("токен потрачен на слабом пароле: %v", err)
	}
}

func TestConsumeReset_MalformedToken(t *testing.T) {
	svc, _, _, _ := newResetFixture(30 * time.Minute)

	for _, tok := range []string{"", "abc", strings.Repeat("!", 43), strings.Repeat("A", 44)} {
		if err := svc.ConsumeReset(context.Background(), tok, "long-enough-pass"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("для токена %q ожидался ErrResetTokenInvalid, получено: %v", tok, err)
		}
	}
}

func TestConsumeReset_Expired(t *testing.T) {
	// TTL в прошлом: токен рождается уже истёкшим
	svc, _, _, sender := newResetFixture(-time.Minute)
	ctx := context.Background()

	_ = svc.RequestReset(ctx, "user@example.com")
	raw := sender.lastToken(t)

	if err := svc.ConsumeReset(ctx, raw, "long-enough-pass"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("для истёкшего токена ожидался ErrResetTokenInvalid, получено: %v", err)
	}
}

func TestConsumeReset_ConcurrentSingleUse(t *testing.T) {
	svc, _, users, sender := newResetFixture(30 * time.Minute)
	ctx := context.Background()

	_ = svc.RequestReset(ctx, "user@example.com")
	raw := sender.lastToken(t)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.ConsumeReset(ctx, raw, "long-enough-pass")
		}()
	}
	wg.Wait()
	close(results)

	var wins, invalid int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrResetTokenInvalid):
			invalid++
		default:
			t.Fatalf("неожиданная ошибка при гонке: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("токен должен быть погашен ровно один раз, успехов: %d", wins)
	}
	if invalid != workers-1 {
		t.Fatalf("остальные попытки должны проиграть гонку: %d из %d", invalid, workers-1)
	}
	if users.killedSessions[1] != 1 {
		t.Fatalf("сессии должны быть инвалидированы один раз: %d", users.killedSessions[1])
	}
}

func TestConsumeReset_SupersedesOlderTokens(t *testing.T) {
	svc, _, _, sender := newResetFixture(30 * time.Minute)
	ctx := context.Background()

	_ = svc.RequestReset(ctx, "user@example.com")
	first := sender.lastToken(t)
	_ = svc.RequestReset(ctx, "user@example.com")
	second := sender.lastToken(t)

	if first == second {
		t.Fatal("повторный запрос вернул тот же токен")
	}

	if err := svc.ConsumeReset(ctx, second, "long-enough-pass"); err != nil {
		t.Fatalf("ошибка сброса по свежему токену: %v", err)
	}

	// Старая ссылка из первого письма гаснет
	if err := svc.ConsumeReset(ctx, first, "other-long-pass"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("старый токен должен быть инвалидирован, получено: %v", err)
	}
}

func TestConsumeReset_UpdateFailureSpendsToken(t *testing.T) {
	svc, _, users, sender := newResetFixture(30 * time.Minute)
	ctx := context.Background()

	_ = svc.RequestReset(ctx, "user@example.com")
	raw := sender.lastToken(t)

	users.updateErr = errors.New("база недоступна")
	if err := svc.ConsumeReset(ctx, raw, "long-enough-pass"); !errors.Is(err, ErrResetIncomplete) {
		t.Fatalf("ожидался ErrResetIncomplete, получено: %v", err)
	}

	// Токен уже потрачен: после восстановления базы нужен новый запрос
	users.updateErr = nil
	if err := svc.ConsumeReset(ctx, raw, "long-enough-pass"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("потраченный токен должен быть невалиден, получено: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, users, _ := newResetFixture(30 * time.Minute)
	ctx := context.Background()

	currentHash, _ := utils.HashPassword("old-password")

	if err := svc.ChangePassword(ctx, 1, "old-password", "short", currentHash); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("ожидался ErrWeakPassword, получено: %v", err)
	}

	if err := svc.ChangePassword(ctx, 1, "wrong-old", "new-long-pass", currentHash); err == nil {
		t.Fatal("смена пароля с неверным старым паролем должна падать")
	}

	if err := svc.ChangePassword(ctx, 1, "old-password", "new-long-pass", currentHash); err != nil {
		t.Fatalf("ошибка смены пароля: %v", err)
	}
	if !utils.CheckPasswordHash("new-long-pass", users.passwords[1]) {
		t.Fatal("новый пароль не сохранён")
	}
	if users.killedSessions[1] != 1 {
		t.Fatal("сессии не инвалидированы после смены пароля")
	}
}
