package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockCleanupStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int64
	err     error
}

func (m *mockCleanupStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	if m.err != nil {
		return 0, m.err
	}
	return m.removed, nil
}

func TestTokenCleanup_RunOnce(t *testing.T) {
	store := &mockCleanupStore{removed: 7}
	svc := NewTokenCleanupService(store, time.Hour, 24*time.Hour)

	removed, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("ошибка чистки: %v", err)
	}
	if removed != 7 {
		t.Fatalf("ожидалось 7 удалённых, получено %d", removed)
	}

	// cutoff = now - retention
	want := time.Now().Add(-24 * time.Hour)
	got := store.cutoffs[0]
	if d := got.Sub(want); d < -time.Minute || d > time.Minute {
		t.Fatalf("неверный cutoff: %v, ожидалось около %v", got, want)
	}
}

func TestTokenCleanup_RunOnceError(t *testing.T) {
	store := &mockCleanupStore{err: errors.New("база недоступна")}
	svc := NewTokenCleanupService(store, time.Hour, 24*time.Hour)

	if _, err := svc.RunOnce(context.Background()); err == nil {
		t.Fatal("ошибка хранилища должна пробрасываться наружу")
	}
}

func TestTokenCleanup_NeverDeletesLiveTokens(t *testing.T) {
	tokens := newMockTokenRepo()
	ctx := context.Background()

	// живой, истёкший и давно использованный токены
	live, _ := tokens.Create(ctx, 1, "hash-live", time.Now().Add(time.Hour))
	_, _ = tokens.Create(ctx, 1, "hash-expired", time.Now().Add(-48*time.Hour))
	spent, _ := tokens.Create(ctx, 1, "hash-spent", time.Now().Add(time.Hour))
	if _, err := tokens.MarkUsed(ctx, spent.ID); err != nil {
		t.Fatalf("ошибка пометки токена: %v", err)
	}
	// делаем использованный токен "старым"
	tokens.mu.Lock()
	tokens.byHash["hash-spent"].CreatedAt = time.Now().Add(-48 * time.Hour)
	tokens.mu.Unlock()

	svc := NewTokenCleanupService(tokens, time.Hour, 24*time.Hour)
	removed, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("ошибка чистки: %v", err)
	}
	if removed != 2 {
		t.Fatalf("ожидалось 2 удалённых, получено %d", removed)
	}

	rec, _ := tokens.FindByHash(ctx, "hash-live")
	if rec == nil || rec.ID != live.ID {
		t.Fatal("чистка удалила живой токен")
	}
}

func TestTokenCleanup_ConcurrentRuns(t *testing.T) {
	tokens := newMockTokenRepo()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, _ = tokens.Create(ctx, i, string(rune('a'+i)), time.Now().Add(-48*time.Hour))
	}

	svc := NewTokenCleanupService(tokens, time.Hour, 24*time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var total int64
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.RunOnce(ctx)
			if err != nil {
				t.Errorf("ошибка параллельной чистки: %v", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	// перекрывающиеся прогоны сходятся к одному итогу
	if total != 10 {
		t.Fatalf("суммарно должно быть удалено 10, получено %d", total)
	}
	if tokens.count() != 0 {
		t.Fatalf("после чистки хранилище должно быть пустым: %d", tokens.count())
	}
}
