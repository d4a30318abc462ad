// middleware содержит HTTP-прослойки сервера: контекстное логирование,
// перехват паник и таймаут запроса. Маппинг доменных ошибок на статусы —
// забота транспортного слоя, здесь только сквозные вещи.
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/veselovams/session-auth/internal/pkg/log"
)

// httpRequests — счётчик обработанных HTTP-запросов.
// В метках путь маршрута (не сырой URL), чтобы не раздувать кардинальность.
var httpRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sessionauth_http_requests_total",
		Help: "Total number of handled HTTP requests.",
	},
	[]string{"method", "path", "code"},
)

// RequestLogger реализует логирование запросов с контекстным логгером.
//
// Поведение и формат логов:
//   - Вытягивает X-Request-Id из запроса, иначе генерирует UUID, и
//     возвращает его в ответном заголовке;
//   - Кладёт обогащённый *slog.Logger в context (pkg/log), чтобы он был
//     доступен глубже по стеку;
//   - После обработчика пишет одну строку уровня Info: msg="http",
//     status=<код>, dur=<время выполнения>.
//
// Безопасность:
//   - Логи не содержат чувствительных данных (только метод/путь/peer/request_id);
//     cookie и тела запросов не логируются;
//   - Если базовый логгер не передан, используется slog.Default().
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	if base == nil {
		base = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("path", c.Path()),
				slog.String("peer", c.RealIP()),
			)
			c.SetRequest(req.WithContext(log.Into(req.Context(), l)))

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}

			httpRequests.WithLabelValues(req.Method, c.Path(), strconv.Itoa(status)).Inc()

			l.Info("http",
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
			)

			return err
		}
	}
}
