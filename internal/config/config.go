// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл .yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Throttle  ThrottleConfig  `yaml:"throttle"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска сессий и cookie-контракт с браузером.
type AuthConfig struct {
	// SessionTTL — срок жизни сессии с момента выпуска.
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"12h"`
	// SessionCookie — имя HTTP-only cookie с сырым bearer-токеном.
	SessionCookie string `yaml:"session_cookie" env:"SESSION_COOKIE" env-default:"session"`
	// CSRFCookie — имя cookie с CSRF-токеном (читается JS).
	CSRFCookie string `yaml:"csrf_cookie" env:"CSRF_COOKIE" env-default:"csrf"`
	// CSRFHeader — имя заголовка со второй копией CSRF-токена.
	CSRFHeader string `yaml:"csrf_header" env:"CSRF_HEADER" env-default:"X-CSRF-Token"`
	// CookieSecure — атрибут Secure у cookie (в проде за HTTPS — true).
	CookieSecure bool `yaml:"cookie_secure" env:"COOKIE_SECURE" env-default:"false"`
}

// ThrottleConfig — параметры защиты логина от перебора.
// Все значения приходят извне, в коде порогов нет.
type ThrottleConfig struct {
	MaxFailures  int           `yaml:"max_failures" env:"THROTTLE_MAX_FAILURES" env-default:"5"`
	Window       time.Duration `yaml:"window" env:"THROTTLE_WINDOW" env-default:"10m"`
	LockDuration time.Duration `yaml:"lock_duration" env:"THROTTLE_LOCK_DURATION" env-default:"5m"`
}

// DBConfig — настройки подключения к базе данных.
// Пустой URL — сервис работает на in-memory хранилище (локальный запуск).
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-default:""`
}

// RedisConfig — настройки Redis для троттлера.
// Пустой URL — используется однопроцессный in-memory троттлер.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:""`
}

// BootstrapConfig — опциональный стартовый пользователь.
type BootstrapConfig struct {
	Username string `yaml:"username" env:"BOOTSTRAP_USERNAME" env-default:""`
	Password string `yaml:"password" env:"BOOTSTRAP_PASSWORD" env-default:""`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}

		return c, nil
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)

		if err != nil {
			return nil, err
		}

		return c, nil
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
