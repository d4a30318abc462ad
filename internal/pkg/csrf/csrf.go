// csrf реализует защиту по схеме double-submit: один и тот же случайный
// токен приходит в cookie и в заголовке запроса. Cookie доказывает
// привязку к origin, заголовок — что его выставил same-origin скрипт,
// прочитавший cookie; кросс-сайтовая форма так не умеет.
//
// Пакет полностью stateless: серверной привязки токена к сессии нет,
// защита опирается на недоступность cookie чужому origin (в связке с
// атрибутом SameSite на транспортном уровне).
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// tokenLen — байт энтропии в токене (32 hex-символа на выходе).
const tokenLen = 16

// NewToken возвращает свежий случайный CSRF-токен в hex-кодировке.
// Токен предназначен для cookie, читаемой JS (HttpOnly=false).
func NewToken() (string, error) {
	const op = "csrf.NewToken"

	b := make([]byte, tokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return hex.EncodeToString(b), nil
}

// Valid проверяет пару cookie/заголовок. Отсутствие любого значения —
// автоматический отказ; совпадение сравнивается за константное время.
func Valid(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}

	if len(cookieToken) != len(headerToken) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) == 1
}
