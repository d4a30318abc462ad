package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veselovams/session-auth/internal/models"
	"github.com/veselovams/session-auth/internal/storage"
)

// CreateSession создает сессию и возвращает её вместе с сырым токеном.
// В таблицу попадает только хэш; сырой токен живет лишь в возвращаемом значении.
func (s *Storage) CreateSession(ctx context.Context, user *models.User, ttl time.Duration) (*models.Session, string, error) {
	const op = "storage.postgres.CreateSession"

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

	query := `
		INSERT INTO sessions(id, user_id, token_hash, auth_epoch_snapshot, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
	`

	_, err = s.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.AuthEpochSnapshot,
		session.CreatedAt,
		session.ExpiresAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return session, raw, nil
}

// SessionByToken находит сессию по сырому токену (поиск — по хэшу).
func (s *Storage) SessionByToken(ctx context.Context, rawToken string) (*models.Session, error) {
	const op = "storage.postgres.SessionByToken"

	query := `
		SELECT id, user_id, token_hash, auth_epoch_snapshot, created_at, expires_at, revoked_at
		FROM sessions
		WHERE token_hash = $1
	`

	var session models.Session
	err := s.db.QueryRow(ctx, query, models.HashSessionToken(rawToken)).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.AuthEpochSnapshot,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

// RevokeSession пытается отозвать сессию, если она ещё жива.
// Возвращает:
//
//	(true, nil)  — сессия была жива и отозвана сейчас;
//	(false, nil) — сессия существует, но уже была отозвана;
//	(false, ErrNotFound) — сессия не найдена.
func (s *Storage) RevokeSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	const op = "storage.postgres.RevokeSession"

	const upd = `
		UPDATE sessions
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
		RETURNING user_id
	`

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, upd, sessionID, time.Now().UTC()).Scan(&userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	const sel = `
		SELECT revoked_at
		FROM sessions
		WHERE id = $1
	`

	var revokedAt *time.Time
	err = s.db.QueryRow(ctx, sel, sessionID).Scan(&revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, nil
}

// RevokeAllUserSessions отзывает все живые сессии пользователя.
func (s *Storage) RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.postgres.RevokeAllUserSessions"

	query := `
		UPDATE sessions
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`

	cmdTag, err := s.db.Exec(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}
