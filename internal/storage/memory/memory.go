// memory — эталонная in-memory реализация storage.Storage.
// Годится для локального запуска и тестов; durable-реализация (postgres)
// подменяет её за тем же интерфейсом, сервис авторизации не меняется.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veselovams/session-auth/internal/models"
	"github.com/veselovams/session-auth/internal/storage"
)

type Storage struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*models.User
	sessions map[uuid.UUID]*models.Session
	// byHash ускоряет поиск сессии по хэшу токена.
	byHash map[string]uuid.UUID
}

// New создает пустое in-memory хранилище.
func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]*models.User),
		sessions: make(map[uuid.UUID]*models.Session),
		byHash:   make(map[string]uuid.UUID),
	}
}

var _ storage.Storage = (*Storage)(nil)

// SaveUser создает нового пользователя.
func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
	}

	cp := *user
	s.users[user.ID] = &cp

	return nil
}

// UserByUsername находит пользователя по имени (без учёта регистра,
// как CITEXT в postgres-реализации).
func (s *Storage) UserByUsername(_ context.Context, username string) (*models.User, error) {
	const op = "storage.memory.UserByUsername"

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	cp := *u
	return &cp, nil
}

// UpdatePasswordHash заменяет хэш пароля пользователя.
func (s *Storage) UpdatePasswordHash(_ context.Context, userID uuid.UUID, newHash string) error {
	const op = "storage.memory.UpdatePasswordHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u.PasswordHash = newHash
	u.UpdatedAt = time.Now().UTC()

	return nil
}

// RotateAuthEpoch выставляет пользователю свежую эпоху авторизации.
func (s *Storage) RotateAuthEpoch(_ context.Context, userID uuid.UUID) (string, error) {
	const op = "storage.memory.RotateAuthEpoch"

	epoch, err := models.NewAuthEpoch()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u.AuthEpoch = epoch
	u.UpdatedAt = time.Now().UTC()

	return epoch, nil
}

// CreateSession создает сессию и возвращает её вместе с сырым токеном.
func (s *Storage) CreateSession(_ context.Context, user *models.User, ttl time.Duration) (*models.Session, string, error) {
	const op = "storage.memory.CreateSession"

	raw, err := models.NewSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:                uuid.New(),
		UserID:            user.ID,
		TokenHash:         models.HashSessionToken(raw),
		AuthEpochSnapshot: user.AuthEpoch,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHash[session.TokenHash]; ok {
		return nil, "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	cp := *session
	s.sessions[session.ID] = &cp
	s.byHash[session.TokenHash] = session.ID

	return session, raw, nil
}

// SessionByToken находит сессию по сырому токену (поиск — по хэшу).
func (s *Storage) SessionByToken(_ context.Context, rawToken string) (*models.Session, error) {
	const op = "storage.memory.SessionByToken"

	hash := models.HashSessionToken(rawToken)

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	cp := *s.sessions[id]
	return &cp, nil
}

// RevokeSession пытается отозвать сессию, если она ещё жива.
func (s *Storage) RevokeSession(_ context.Context, sessionID uuid.UUID) (bool, error) {
	const op = "storage.memory.RevokeSession"

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if sess.RevokedAt != nil {
		return false, nil
	}

	now := time.Now().UTC()
	sess.RevokedAt = &now

	return true, nil
}

// RevokeAllUserSessions отзывает все живые сессии пользователя.
func (s *Storage) RevokeAllUserSessions(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var revoked int64
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			t := now
			sess.RevokedAt = &t
			revoked++
		}
	}

	return revoked, nil
}

// Close — no-op для in-memory хранилища.
func (s *Storage) Close() {}
