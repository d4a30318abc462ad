package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User — персистентная учётная запись.
//
// Описание:
//   - PasswordHash — результат работы passhash (argon2id); сырой пароль
//     никогда не сохраняется и не логируется;
//   - AuthEpoch — случайное значение «эпохи» авторизации. Ротация эпохи
//     (смена пароля) мгновенно обесценивает все сессии, снимок которых
//     сделан до ротации;
//   - IsActive — неактивный пользователь не может аутентифицироваться.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	AuthEpoch    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAuthEpoch генерирует свежее значение эпохи авторизации
// (16 случайных байт, base64url без паддинга).
func NewAuthEpoch() (string, error) {
	const op = "models.user.NewAuthEpoch"

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
