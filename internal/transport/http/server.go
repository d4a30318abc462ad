// transport/http содержит HTTP-эндпоинты сессионной аутентификации для
// cookie-клиента. Здесь выполняется только маппинг cookie/JSON и ошибок
// доменного слоя (service) в HTTP. Вся бизнес-логика — в пакете service.
//
// Контракт с браузером:
//   - сессия — HTTP-only cookie с сырым bearer-токеном (SameSite=Lax,
//     Secure по конфигурации);
//   - CSRF — double-submit: cookie, читаемая JS, плюс заголовок с тем же
//     токеном на каждом state-changing запросе.
//
// Маппинг ошибок:
//   - ErrInvalidCredentials -> 401 (без уточнения причины);
//   - ErrLockedOut -> 429;
//   - ErrUnauthorized -> 401 (требование повторной аутентификации);
//   - невалидный CSRF -> 403;
//   - прочее -> 500 c единым безопасным сообщением; детали — только в логи
//     через прослойки сервера.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/veselovams/session-auth/internal/config"
	"github.com/veselovams/session-auth/internal/models"
	"github.com/veselovams/session-auth/internal/pkg/csrf"
	"github.com/veselovams/session-auth/internal/service"
)

// identityKey — ключ echo-контекста, под которым requireSession кладёт
// аутентифицированную личность.
const identityKey = "auth.identity"

type Server struct {
	service *service.Service
	cfg     config.AuthConfig
}

// NewServer создаёт HTTP-сервер авторизации поверх сервисного слоя.
func NewServer(service *service.Service, cfg config.AuthConfig) *Server {
	return &Server{service: service, cfg: cfg}
}

// Register вешает маршруты на echo-инстанс.
func (s *Server) Register(e *echo.Echo) {
	g := e.Group("/auth")

	g.GET("/csrf", s.CSRF)
	g.POST("/login", s.Login)
	g.GET("/me", s.Me, s.requireSession)
	g.POST("/logout", s.Logout, s.requireCSRF)
	g.POST("/logout_all", s.LogoutAll, s.requireSession, s.requireCSRF)
	g.POST("/change-password", s.ChangePassword, s.requireSession, s.requireCSRF)
}

// requireSession — прослойка аутентификации: достаёт сырой токен из
// session-cookie и валидирует его. Любая непригодная сессия — один и тот
// же 401 без деталей.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(s.cfg.SessionCookie)
		if err != nil || cookie.Value == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
		}

		identity, err := s.service.ValidateSession(c.Request().Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}

			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}

		c.Set(identityKey, identity)

		return next(c)
	}
}

// requireCSRF — double-submit проверка для state-changing запросов.
func (s *Server) requireCSRF(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var cookieToken string
		if cookie, err := c.Cookie(s.cfg.CSRFCookie); err == nil {
			cookieToken = cookie.Value
		}

		headerToken := c.Request().Header.Get(s.cfg.CSRFHeader)

		if !csrf.Valid(cookieToken, headerToken) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "csrf invalid"})
		}

		return next(c)
	}
}

// identityFrom достаёт личность, положенную requireSession.
func identityFrom(c echo.Context) (models.Identity, bool) {
	identity, ok := c.Get(identityKey).(models.Identity)
	return identity, ok
}

// sessionCookie собирает cookie с сырым bearer-токеном.
// HttpOnly: токен не должен быть доступен скриптам.
func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.CookieSecure,
		MaxAge:   maxAge,
	}
}

// csrfCookie собирает cookie с CSRF-токеном.
// HttpOnly=false: JS обязан уметь прочитать токен, чтобы отправить его
// в заголовке (в этом и состоит доказательство same-origin).
func (s *Server) csrfCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CSRFCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.CookieSecure,
	}
}
