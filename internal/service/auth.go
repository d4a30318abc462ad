package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veselovams/session-auth/internal/models"
	"github.com/veselovams/session-auth/internal/pkg/log"
	"github.com/veselovams/session-auth/internal/pkg/passhash"
	"github.com/veselovams/session-auth/internal/pkg/redact"
	"github.com/veselovams/session-auth/internal/storage"
	"github.com/veselovams/session-auth/internal/throttle"
)

// Login аутентифицирует пользователя и выпускает новую сессию.
// Возвращает сырой bearer-токен — единственный раз, когда он существует
// вне клиента; в хранилище и логи попадает только хэш.
//
// Порядок шагов фиксирован:
//  1. троттлер: активная блокировка — отказ ДО проверки учётных данных
//     (не греем argon2id и не даём тайминг-оракула на время блокировки);
//  2. «нет пользователя», «деактивирован» и «неверный пароль» — один и тот же
//     путь: учёт неудачи + ErrInvalidCredentials;
//  3. успех: сброс троттлера, создание сессии со снимком текущей эпохи.
func (s *Service) Login(ctx context.Context, username, password, origin string) (string, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)
	key := throttle.Key(username, origin)

	locked, err := s.throttle.IsLocked(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if locked {
		lg.Warn("login_locked_out",
			slog.String("op", op),
			slog.String("username", redact.Username(username)),
		)
		return "", fmt.Errorf("%s: %w", op, ErrLockedOut)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", s.loginFailure(ctx, op, key, username)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive || !passhash.Verify(password, user.PasswordHash) {
		return "", s.loginFailure(ctx, op, key, username)
	}

	if err := s.throttle.RegisterSuccess(ctx, key); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	session, raw, err := s.storage.CreateSession(ctx, user, s.cfg.SessionTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("session_id", session.ID.String()),
	)

	return raw, nil
}

// loginFailure — общий хвост неудачного входа: учёт в троттлере и
// неразличимая снаружи ErrInvalidCredentials.
func (s *Service) loginFailure(ctx context.Context, op, key, username string) error {
	lg := log.From(ctx)

	if err := s.throttle.RegisterFailure(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Warn("login_failed",
		slog.String("op", op),
		slog.String("username", redact.Username(username)),
	)

	return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
}

// ValidateSession проверяет сырой токен и возвращает аутентифицированную
// личность. Отсутствие сессии, отзыв, просрочка и расхождение эпохи дают
// одинаковую ErrUnauthorized — деталей жизненного цикла наружу не видно.
func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.Identity, error) {
	const op = "service.auth.ValidateSession"

	lg := log.From(ctx)

	session, err := s.storage.SessionByToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if session.RevokedAt != nil {
		lg.Warn("session_revoked",
			slog.String("op", op),
			slog.String("session_id", session.ID.String()),
		)
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if !session.ExpiresAt.After(time.Now().UTC()) {
		lg.Warn("session_expired",
			slog.String("op", op),
			slog.String("session_id", session.ID.String()),
		)
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	user, err := s.storage.UserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	// Сверка снимка эпохи с живой записью пользователя — вторая линия
	// полного отзыва: ловит в том числе сессии, о которых массовый отзыв
	// не знал (например, восстановленные из отставшей реплики).
	if !user.IsActive || session.AuthEpochSnapshot != user.AuthEpoch {
		lg.Warn("session_epoch_mismatch",
			slog.String("op", op),
			slog.String("session_id", session.ID.String()),
		)
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return models.Identity{UserID: user.ID, Username: user.Username}, nil
}

// Logout отзывает сессию по сырому токену. Идемпотентен: повторный выход,
// как и выход по незнакомому токену, — это «уже разлогинен», не ошибка.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	session, err := s.storage.SessionByToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := s.storage.RevokeSession(ctx, session.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if revoked {
		lg.Info("logout_ok",
			slog.String("op", op),
			slog.String("session_id", session.ID.String()),
		)
	}

	return nil
}

// LogoutAll отзывает все живые сессии пользователя («выйти везде»).
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.LogoutAll"

	lg := log.From(ctx)

	revoked, err := s.storage.RevokeAllUserSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("logout_all_ok",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.Int64("revoked", revoked),
	)

	return nil
}

// ChangePassword меняет пароль с полным отзывом сессий.
//
// Действующая сессия не считается достаточным доказательством намерения:
// текущий пароль вводится заново. После записи нового хэша выполняются ОБА
// слоя полного отзыва — ротация эпохи и массовый отзыв. Слои независимы:
// ротация добивает сессии, которые массовый отзыв мог не увидеть, массовый
// отзыв действует мгновенно, не дожидаясь сверки эпохи. Сессия, созданная
// параллельно со сменой, либо попадает под массовый отзыв, либо несёт
// устаревший снимок и отсеивается сверкой эпохи при валидации.
func (s *Service) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	const op = "service.auth.ChangePassword"

	lg := log.From(ctx)

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive || !passhash.Verify(currentPassword, user.PasswordHash) {
		lg.Warn("change_password_reverify_failed",
			slog.String("op", op),
			slog.String("username", redact.Username(username)),
		)
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	newHash, err := passhash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.RotateAuthEpoch(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := s.storage.RevokeAllUserSessions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("change_password_ok",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.Int64("revoked", revoked),
	)

	return nil
}

// Bootstrap создаёт стартового пользователя из конфигурации, если его ещё
// нет. Это не регистрация (регистрационного флоу у сервиса нет) — только
// сид для первого запуска. Пустая пара username/password — no-op.
func (s *Service) Bootstrap(ctx context.Context, username, password string) error {
	const op = "service.auth.Bootstrap"

	lg := log.From(ctx)

	if username == "" && password == "" {
		return nil
	}
	if username == "" || password == "" {
		return fmt.Errorf("%s: bootstrap username and password are required together", op)
	}

	_, err := s.storage.UserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := passhash.Hash(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	epoch, err := models.NewAuthEpoch()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		AuthEpoch:    epoch,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("bootstrap_user_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("username", redact.Username(username)),
	)

	return nil
}
