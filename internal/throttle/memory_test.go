package throttle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Пакет unit-тестов для internal/throttle (memory.go).
//
// Покрытие:
//   - блокировка наступает ровно на пороге и истекает по LockDuration;
//   - протухшее окно сбрасывает счётчик вместо дочитывания;
//   - успех безусловно очищает состояние;
//   - конкурентные неудачи по одному ключу не теряются;
//   - Sweep удаляет только полностью остывшие ключи.

func testThrottleCfg() Config {
	return Config{
		MaxFailures:  5,
		Window:       10 * time.Minute,
		LockDuration: 5 * time.Minute,
	}
}

func TestMemory_LocksAtThreshold(t *testing.T) {
	t.Parallel()

	m := NewMemory(testThrottleCfg())
	ctx := context.Background()
	key := Key("alice", "1.2.3.4")

	for i := 0; i < 4; i++ {
		require.NoError(t, m.RegisterFailure(ctx, key))

		locked, err := m.IsLocked(ctx, key)
		require.NoError(t, err)
		require.False(t, locked, "до порога блокировки быть не должно (попытка %d)", i+1)
	}

	require.NoError(t, m.RegisterFailure(ctx, key))

	locked, err := m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.True(t, locked, "пятая неудача должна включить блокировку")

	// Другой ключ (другой origin) не затронут.
	locked, err = m.IsLocked(ctx, Key("alice", "5.6.7.8"))
	require.NoError(t, err)
	require.False(t, locked)
}

func TestMemory_LockExpires(t *testing.T) {
	t.Parallel()

	cfg := testThrottleCfg()
	cfg.MaxFailures = 2
	cfg.LockDuration = 40 * time.Millisecond

	m := NewMemory(cfg)
	ctx := context.Background()
	key := Key("bob", "10.0.0.1")

	require.NoError(t, m.RegisterFailure(ctx, key))
	require.NoError(t, m.RegisterFailure(ctx, key))

	locked, err := m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.True(t, locked)

	time.Sleep(60 * time.Millisecond)

	locked, err = m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked, "блокировка должна истечь сама")
}

func TestMemory_WindowResetDropsStaleCounter(t *testing.T) {
	t.Parallel()

	cfg := testThrottleCfg()
	cfg.MaxFailures = 3
	cfg.Window = 30 * time.Millisecond

	m := NewMemory(cfg)
	ctx := context.Background()
	key := Key("carol", "10.0.0.2")

	require.NoError(t, m.RegisterFailure(ctx, key))
	require.NoError(t, m.RegisterFailure(ctx, key))

	// Окно истекает — старые неудачи не должны сложиться с новой.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, m.RegisterFailure(ctx, key))

	locked, err := m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked, "после сброса окна счётчик начинается заново")
}

func TestMemory_SuccessClearsState(t *testing.T) {
	t.Parallel()

	cfg := testThrottleCfg()
	cfg.MaxFailures = 2

	m := NewMemory(cfg)
	ctx := context.Background()
	key := Key("dave", "10.0.0.3")

	require.NoError(t, m.RegisterFailure(ctx, key))
	require.NoError(t, m.RegisterFailure(ctx, key))

	locked, err := m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, m.RegisterSuccess(ctx, key))

	locked, err = m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked, "успех очищает состояние, включая активную блокировку")
}

// TestMemory_ConcurrentFailures_NoUndercount — гонка инкрементов по одному
// ключу не должна терять неудачи.
func TestMemory_ConcurrentFailures_NoUndercount(t *testing.T) {
	t.Parallel()

	const goroutines = 50

	cfg := testThrottleCfg()
	cfg.MaxFailures = goroutines

	m := NewMemory(cfg)
	ctx := context.Background()
	key := Key("eve", "10.0.0.4")

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_ = m.RegisterFailure(ctx, key)
		}()
	}
	wg.Wait()

	locked, err := m.IsLocked(ctx, key)
	require.NoError(t, err)
	require.True(t, locked, "все %d неудач должны быть учтены", goroutines)
}

func TestMemory_Sweep(t *testing.T) {
	t.Parallel()

	cfg := testThrottleCfg()
	cfg.MaxFailures = 2
	cfg.Window = 20 * time.Millisecond
	cfg.LockDuration = 20 * time.Millisecond

	m := NewMemory(cfg)
	ctx := context.Background()

	require.NoError(t, m.RegisterFailure(ctx, Key("stale", "1.1.1.1")))
	require.NoError(t, m.RegisterFailure(ctx, Key("fresh", "2.2.2.2")))

	time.Sleep(40 * time.Millisecond)

	// fresh получает новое окно уже после паузы.
	require.NoError(t, m.RegisterFailure(ctx, Key("fresh", "2.2.2.2")))

	removed := m.Sweep(time.Now().UTC())
	require.Equal(t, 1, removed, "удалиться должен только полностью остывший ключ")

	m.mu.Lock()
	_, staleExists := m.data[Key("stale", "1.1.1.1")]
	_, freshExists := m.data[Key("fresh", "2.2.2.2")]
	m.mu.Unlock()

	require.False(t, staleExists)
	require.True(t, freshExists)
}
