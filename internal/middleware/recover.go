// recover.go реализует перехват паник в обработчиках.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/veselovams/session-auth/internal/pkg/log"
)

// Recover возвращает прослойку, которая перехватывает паники в обработчиках,
// логирует их и отвечает клиенту нейтральным 500.
//
// Поведение:
//   - Паника в любом месте стека запроса приводит к логзаписи уровня Error
//     с путём и стеком;
//   - В ответ клиенту уходит {"error": "internal server error"} без
//     раскрытия внутренних деталей;
//   - Если в контексте уже есть логгер (см. pkg/log), будет использован он;
//     иначе — переданный base (если не nil), либо slog.Default().
func Recover(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					l := log.From(c.Request().Context())
					if l == slog.Default() && base != nil {
						l = base
					}

					l.Error("panic_recovered",
						slog.String("path", c.Path()),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)

					if !c.Response().Committed {
						err = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
					}
				}
			}()

			return next(c)
		}
	}
}
