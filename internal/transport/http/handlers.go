package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/veselovams/session-auth/internal/pkg/csrf"
	"github.com/veselovams/session-auth/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CSRF выдаёт новый CSRF-токен и ставит его в cookie, доступную JS.
// Токен stateless: сервер его не запоминает, проверка — double-submit.
func (s *Server) CSRF(c echo.Context) error {
	token, err := csrf.NewToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	c.SetCookie(s.csrfCookie(token))

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Login аутентифицирует пользователя и ставит session-cookie.
// Тело ответа токен не содержит: единственный носитель — cookie.
func (s *Server) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
	}

	raw, err := s.service.Login(c.Request().Context(), req.Username, req.Password, c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLockedOut):
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many attempts, try again later"})
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
	}

	c.SetCookie(s.sessionCookie(raw, int(s.cfg.SessionTTL.Seconds())))

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me возвращает личность владельца действующей сессии.
func (s *Server) Me(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  identity.UserID.String(),
		"username": identity.Username,
	})
}

// Logout отзывает текущую сессию и снимает cookie. Идемпотентен:
// без cookie или с незнакомым токеном ответ тот же 200.
func (s *Server) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(s.cfg.SessionCookie); err == nil && cookie.Value != "" {
		if err := s.service.Logout(c.Request().Context(), cookie.Value); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
	}

	c.SetCookie(s.sessionCookie("", -1))

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// LogoutAll отзывает все живые сессии владельца текущей сессии.
func (s *Server) LogoutAll(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	if err := s.service.LogoutAll(c.Request().Context(), identity.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	c.SetCookie(s.sessionCookie("", -1))

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ChangePassword меняет пароль с повторной проверкой текущего.
// После успеха все сессии пользователя отозваны, включая текущую,
// поэтому cookie снимается и клиенту нужно залогиниться заново.
func (s *Server) ChangePassword(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password are required"})
	}

	err := s.service.ChangePassword(c.Request().Context(), identity.Username, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}

		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	c.SetCookie(s.sessionCookie("", -1))

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
