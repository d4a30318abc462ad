package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session — серверная сессия cookie-клиента.
//
// Описание:
//   - TokenHash — sha256-хэш bearer-токена; сырой токен возвращается клиенту
//     ровно один раз (при создании) и в хранилище не попадает: утечка БД
//     не даёт рабочих токенов;
//   - AuthEpochSnapshot — снимок User.AuthEpoch на момент создания сессии;
//     расхождение с текущей эпохой пользователя делает сессию недействительной;
//   - RevokedAt — nil, пока сессия жива; после отзыва сессия мертва навсегда,
//     независимо от ExpiresAt. Записи не удаляются (аудит), чистка — внешняя
//     забота.
type Session struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	TokenHash         string
	AuthEpochSnapshot string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time
}

// Identity — аутентифицированная личность, результат валидации сессии.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// NewSessionToken генерирует сырой bearer-токен сессии
// (32 случайных байта, base64url без паддинга).
func NewSessionToken() (string, error) {
	const op = "models.session.NewSessionToken"

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSessionToken возвращает детерминированный хэш сырого токена —
// единственную форму, в которой токен хранится и ищется на сервере.
func HashSessionToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
