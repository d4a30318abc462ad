package throttle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis — реализация Throttle поверх общего Redis для многопроцессных
// развертываний. Контракт тот же, что у Memory; сервис авторизации
// разницы не видит.
//
// Состояние ключа — Redis Hash с полями:
//
//	fails — счётчик неудач в текущем окне;
//	ws    — старт окна (unix ms);
//	lock  — момент окончания блокировки (unix ms), поле может отсутствовать.
//
// Учёт неудачи выполняется Lua-скриптом: сброс окна, инкремент и выставление
// блокировки происходят атомарно, наивный read-then-write между процессами
// исключён.
type Redis struct {
	cfg    Config
	rdb    *redis.Client
	prefix string
}

var failureScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local max_failures = tonumber(ARGV[3])
local lock_ms = tonumber(ARGV[4])

local st = redis.call('HMGET', key, 'fails', 'ws')
local fails = tonumber(st[1])
local ws = tonumber(st[2])

if fails == nil or ws == nil or (now_ms - ws) > window_ms then
    fails = 0
    ws = now_ms
end

fails = fails + 1
redis.call('HSET', key, 'fails', fails, 'ws', ws)

if fails >= max_failures then
    redis.call('HSET', key, 'lock', now_ms + lock_ms)
end

local ttl = window_ms
if lock_ms > ttl then ttl = lock_ms end
redis.call('PEXPIRE', key, ttl + window_ms)

return fails
`)

// NewRedis создаёт троттлер из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:lt:". Ping — fail-fast на старте.
func NewRedis(ctx context.Context, cfg Config, redisURL, prefix string) (*Redis, error) {
	const op = "throttle.NewRedis"

	if prefix == "" {
		prefix = "auth:lt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Redis{cfg: cfg, rdb: rdb, prefix: prefix}, nil
}

var _ Throttle = (*Redis)(nil)

func (r *Redis) key(k string) string { return r.prefix + k }

// IsLocked читает момент окончания блокировки и сравнивает с «сейчас».
func (r *Redis) IsLocked(ctx context.Context, key string) (bool, error) {
	const op = "throttle.redis.IsLocked"

	val, err := r.rdb.HGet(ctx, r.key(key), "lock").Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	lockMs, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return time.Now().UTC().UnixMilli() < lockMs, nil
}

// RegisterFailure атомарно учитывает неудачу Lua-скриптом.
func (r *Redis) RegisterFailure(ctx context.Context, key string) error {
	const op = "throttle.redis.RegisterFailure"

	args := []interface{}{
		time.Now().UTC().UnixMilli(),
		r.cfg.Window.Milliseconds(),
		r.cfg.MaxFailures,
		r.cfg.LockDuration.Milliseconds(),
	}

	if err := failureScript.Run(ctx, r.rdb, []string{r.key(key)}, args...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RegisterSuccess удаляет ключ целиком.
func (r *Redis) RegisterSuccess(ctx context.Context, key string) error {
	const op = "throttle.redis.RegisterSuccess"

	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (r *Redis) Close() error { return r.rdb.Close() }
