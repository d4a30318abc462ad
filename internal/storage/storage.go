package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/veselovams/session-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/сессия).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/token_hash).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByUsername находит пользователя по имени.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID (нужен для сверки эпохи при
	// валидации сессии).
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdatePasswordHash заменяет хэш пароля пользователя.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, newHash string) error
	// RotateAuthEpoch выставляет пользователю свежую эпоху авторизации
	// и возвращает её.
	RotateAuthEpoch(ctx context.Context, userID uuid.UUID) (string, error)
}

// SessionStorage выполняет операции над сессиями.
type SessionStorage interface {
	// CreateSession создает сессию для пользователя и возвращает её вместе
	// с сырым bearer-токеном. Сырой токен существует только в возвращаемом
	// значении — в запись попадает лишь его хэш.
	CreateSession(ctx context.Context, user *models.User, ttl time.Duration) (*models.Session, string, error)
	// SessionByToken находит сессию по сырому токену (внутри — хэширование
	// и поиск по хэшу; по сырому токену сервер не ищет никогда).
	SessionByToken(ctx context.Context, rawToken string) (*models.Session, error)
	// RevokeSession пытается отозвать сессию, если она ещё жива.
	// Возвращает:
	//
	//	(true, nil)  — сессия была жива и отозвана сейчас;
	//	(false, nil) — сессия существует, но уже была отозвана;
	//	(false, ErrNotFound) — сессия не найдена.
	RevokeSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
	// RevokeAllUserSessions отзывает все живые сессии пользователя,
	// возвращает число отозванных.
	RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Storage задает контракт работы с хранилищем. Отозванные и просроченные
// сессии физически не удаляются (аудит); чистка — внешняя забота.
type Storage interface {
	UserStorage
	SessionStorage
	Close()
}
