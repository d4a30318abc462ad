// passhash реализует одностороннее хэширование паролей на argon2id.
//
// Формат хэша самоописывающийся (параметры зашиты в строку), поэтому
// параметры по умолчанию можно менять, не ломая проверку старых хэшей:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<base64(salt)>$<base64(key)>
//
// Контракт:
//   - Hash даёт разный результат на одинаковом входе (соль уникальна на вызов);
//   - Verify — константное по времени сравнение; на битую строку отвечает
//     false, а не ошибкой, чтобы вызывающий код не различал причины отказа.
package passhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32

	defaultTime    = 1
	defaultMemory  = 64 * 1024
	defaultThreads = 4
)

// Hash хэширует пароль argon2id со случайной солью.
func Hash(raw string) (string, error) {
	const op = "passhash.Hash"

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := argon2.IDKey([]byte(raw), salt, defaultTime, defaultMemory, defaultThreads, keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		defaultMemory, defaultTime, defaultThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify проверяет пароль против ранее выданного хэша.
// Любая синтаксическая проблема строки — это просто false.
func Verify(raw, encoded string) bool {
	salt, key, time, memory, threads, ok := parse(encoded)
	if !ok {
		return false
	}

	got := argon2.IDKey([]byte(raw), salt, time, memory, threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(got, key) == 1
}

// parse разбирает самоописывающийся формат. Возвращает ok=false на любом
// отклонении от ожидаемой структуры.
func parse(encoded string) (salt, key []byte, time, memory uint32, threads uint8, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return nil, nil, 0, 0, 0, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, key, time, memory, threads, true
}
