package throttle

import (
	"context"
	"sync"
	"time"
)

// state — счётчики по одному ключу.
type state struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time // нулевое время — блокировки нет
}

// Memory — эталонная однопроцессная реализация Throttle.
// Одна мьютекс-защищённая map; секции короткие, никакой работы с хэшами
// паролей или I/O под локом не выполняется.
type Memory struct {
	cfg Config

	mu   sync.Mutex
	data map[string]*state
}

// NewMemory создаёт in-memory троттлер. Конструируется один раз на старте
// сервиса; отдельного teardown не требуется.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:  cfg,
		data: make(map[string]*state),
	}
}

var _ Throttle = (*Memory)(nil)

// IsLocked — true, только если блокировка выставлена и ещё не истекла.
func (m *Memory) IsLocked(_ context.Context, key string) (bool, error) {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.data[key]
	if !ok || st.lockedUntil.IsZero() {
		return false, nil
	}

	return st.lockedUntil.After(now), nil
}

// RegisterFailure учитывает неудачу; просроченное окно сбрасывается,
// а не дочитывается.
func (m *Memory) RegisterFailure(_ context.Context, key string) error {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.data[key]
	if !ok || now.Sub(st.windowStart) > m.cfg.Window {
		st = &state{windowStart: now}
		m.data[key] = st
	}

	st.failures++
	if st.failures >= m.cfg.MaxFailures {
		st.lockedUntil = now.Add(m.cfg.LockDuration)
	}

	return nil
}

// RegisterSuccess даёт чистый лист после легитимного входа.
func (m *Memory) RegisterSuccess(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

// Sweep удаляет ключи, у которых истекли и окно, и блокировка.
// Вызывается фоновым джанитором, чтобы map не росла бесконечно.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, st := range m.data {
		windowGone := now.Sub(st.windowStart) > m.cfg.Window
		lockGone := st.lockedUntil.IsZero() || now.After(st.lockedUntil)
		if windowGone && lockGone {
			delete(m.data, key)
			removed++
		}
	}

	return removed
}
