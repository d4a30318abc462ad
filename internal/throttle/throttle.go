// throttle реализует защиту логина от перебора: счётчик неудач в скользящем
// окне на составной ключ (рекомендуемый ключ — username + ":" + origin,
// чтобы распределённая атака не блокировала жертву с её собственного адреса,
// а перебор множества имён с одного адреса резался по каждому имени отдельно).
//
// Контракт из трёх операций сознательно узкий: эталонная in-memory реализация
// и внешняя (Redis) взаимозаменяемы, сервис авторизации от выбора не зависит.
// Все три операции по одному ключу линеаризуемы: две одновременные неудачи
// не могут инкрементировать один и тот же устаревший счётчик.
package throttle

import (
	"context"
	"time"
)

// Throttle — контракт учёта неудачных попыток входа.
type Throttle interface {
	// IsLocked сообщает, действует ли сейчас блокировка по ключу.
	// Не имеет побочных эффектов.
	IsLocked(ctx context.Context, key string) (bool, error)
	// RegisterFailure учитывает неудачную попытку: протухшее окно
	// перезапускается от «сейчас», счётчик растёт, по достижении порога
	// ставится блокировка. Повторно доставленная неудача неотличима от
	// новой — обе считаются.
	RegisterFailure(ctx context.Context, key string) error
	// RegisterSuccess безусловно сбрасывает всё состояние по ключу.
	RegisterSuccess(ctx context.Context, key string) error
}

// Config — параметры троттлинга. Значения приходят из конфигурации
// сервиса, в коде ничего не захардкожено.
type Config struct {
	// MaxFailures — порог неудач в окне, после которого ставится блокировка.
	MaxFailures int
	// Window — длительность окна накопления неудач.
	Window time.Duration
	// LockDuration — длительность блокировки после достижения порога.
	LockDuration time.Duration
}

// Key собирает составной ключ троттлинга.
func Key(username, origin string) string {
	return username + ":" + origin
}
