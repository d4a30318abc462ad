// service содержит бизнес-логику сессионной аутентификации:
// проверку учётных данных, выпуск/валидацию/отзыв сессий, троттлинг
// перебора и полный отзыв при смене пароля. Работа с хранилищем — через
// интерфейсы пакета storage, троттлинг — через интерфейс пакета throttle.
//
// Основные аспекты:
//   - Service не хранит состояния запроса; экземпляр безопасен для
//     конкурентного использования из разных горутин при условии, что
//     переданные storage.Storage и throttle.Throttle потокобезопасны;
//   - дорогое хэширование пароля (argon2id) выполняется вне каких-либо
//     локов — сериализуются только короткие операции троттлера;
//   - ошибки возвращаются сентинелами и далее маппятся транспортом на
//     HTTP-статусы (см. комментарии ниже).
package service

import (
	"errors"

	"github.com/veselovams/session-auth/internal/config"
	"github.com/veselovams/session-auth/internal/storage"
	"github.com/veselovams/session-auth/internal/throttle"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна, пользователь не найден
	// или деактивирован. Причины намеренно неразличимы для вызывающего
	// (защита от перечисления имён). Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLockedOut — сработал троттлинг по ключу username+origin; проверка
	// учётных данных при этом не выполняется вовсе. Транспорт: 429.
	ErrLockedOut = errors.New("locked out")

	// ErrUnauthorized — пригодной сессии нет: не найдена, отозвана, просрочена
	// или её снимок эпохи разошёлся с текущей эпохой пользователя. Все четыре
	// причины схлопнуты в одну ошибку. Транспорт: 401.
	ErrUnauthorized = errors.New("unauthorized")
)

// Service описывает бизнес-логику сессионной аутентификации.
type Service struct {
	storage  storage.Storage
	throttle throttle.Throttle
	cfg      config.AuthConfig
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, throttle throttle.Throttle, cfg config.AuthConfig) *Service {
	return &Service{
		storage:  storage,
		throttle: throttle,
		cfg:      cfg,
	}
}
