package throttle

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Файл интеграционных тестов для Redis-реализации троттлера:
// - поднимает реальный Redis через testcontainers-go (образ redis:7-alpine);
// - проверяет тот же контракт, что и у Memory: порог, сброс окна, успех,
//   истечение блокировки.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/throttle -v -race -count=1

// startRedis поднимает временный Redis и возвращает троттлер с заданной
// конфигурацией. Без GO_TEST_INTEGRATION тест пропускается.
func startRedis(t *testing.T, cfg Config) *Redis {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	th, err := NewRedis(ctx, cfg, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "test:lt:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = th.Close() })

	return th
}

func TestRedis_ContractMatchesMemory(t *testing.T) {
	cfg := Config{
		MaxFailures:  3,
		Window:       time.Minute,
		LockDuration: time.Minute,
	}
	th := startRedis(t, cfg)
	ctx := context.Background()
	key := Key("alice", "1.2.3.4")

	locked, err := th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked, "незнакомый ключ не заблокирован")

	require.NoError(t, th.RegisterFailure(ctx, key))
	require.NoError(t, th.RegisterFailure(ctx, key))

	locked, err = th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked)

	require.NoError(t, th.RegisterFailure(ctx, key))

	locked, err = th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.True(t, locked, "третья неудача должна включить блокировку")

	require.NoError(t, th.RegisterSuccess(ctx, key))

	locked, err = th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked, "успех очищает состояние")
}

func TestRedis_LockExpires(t *testing.T) {
	cfg := Config{
		MaxFailures:  1,
		Window:       time.Minute,
		LockDuration: 300 * time.Millisecond,
	}
	th := startRedis(t, cfg)
	ctx := context.Background()
	key := Key("bob", "10.0.0.1")

	require.NoError(t, th.RegisterFailure(ctx, key))

	locked, err := th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.True(t, locked)

	time.Sleep(400 * time.Millisecond)

	locked, err = th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked, "блокировка истекает по LockDuration")
}

func TestRedis_WindowReset(t *testing.T) {
	cfg := Config{
		MaxFailures:  2,
		Window:       200 * time.Millisecond,
		LockDuration: time.Minute,
	}
	th := startRedis(t, cfg)
	ctx := context.Background()
	key := Key("carol", "10.0.0.2")

	require.NoError(t, th.RegisterFailure(ctx, key))

	time.Sleep(300 * time.Millisecond)

	// Окно истекло — старая неудача не складывается с новой.
	require.NoError(t, th.RegisterFailure(ctx, key))

	locked, err := th.IsLocked(ctx, key)
	require.NoError(t, err)
	require.False(t, locked)
}
