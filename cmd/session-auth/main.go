package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veselovams/session-auth/internal/config"
	"github.com/veselovams/session-auth/internal/middleware"
	"github.com/veselovams/session-auth/internal/service"
	"github.com/veselovams/session-auth/internal/storage"
	"github.com/veselovams/session-auth/internal/storage/memory"
	"github.com/veselovams/session-auth/internal/storage/postgres"
	"github.com/veselovams/session-auth/internal/throttle"
	transport "github.com/veselovams/session-auth/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Хранилище: postgres при заданном DATABASE_URL, иначе in-memory.
	var str storage.Storage
	if cfg.DB.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
		pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
		dbCancel()
		if err != nil {
			log.Error("postgres_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		str = pg
		log.Info("postgres_connected")
	} else {
		str = memory.New()
		log.Warn("using_in_memory_storage")
	}
	defer str.Close()

	// Троттлер: redis при заданном REDIS_URL, иначе однопроцессный in-memory.
	throttleCfg := throttle.Config{
		MaxFailures:  cfg.Throttle.MaxFailures,
		Window:       cfg.Throttle.Window,
		LockDuration: cfg.Throttle.LockDuration,
	}

	var thr throttle.Throttle
	if cfg.Redis.RedisURL != "" {
		rdCtx, rdCancel := context.WithTimeout(rootCtx, 10*time.Second)
		rd, err := throttle.NewRedis(rdCtx, throttleCfg, cfg.Redis.RedisURL, "auth:lt:")
		rdCancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = rd.Close() }()
		thr = rd
		log.Info("redis_connected")
	} else {
		mem := throttle.NewMemory(throttleCfg)
		startThrottleJanitor(rootCtx, mem, log, 10*time.Minute)
		thr = mem
	}

	// Сервис.
	srvc := service.New(str, thr, cfg.Auth)
	log.Info("service_initialized")

	if err := srvc.Bootstrap(rootCtx, cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
		log.Error("bootstrap_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var ready int32 // 0 — not ready; 1 — ready

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		middleware.Recover(log),
		middleware.RequestLogger(log),
		middleware.WithTimeout(cfg.Timeouts.Service),
	)

	transport.NewServer(srvc, cfg.Auth).Register(e)

	e.GET("/livez", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/healthz", func(c echo.Context) error {
		if atomic.LoadInt32(&ready) == 1 {
			return c.String(http.StatusOK, "ok")
		}
		return c.String(http.StatusServiceUnavailable, "not ready")
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startThrottleJanitor запускает фоновую задачу, которая периодически
// выбрасывает из in-memory троттлера остывшие ключи (окно истекло,
// блокировки нет). Сессии при этом не трогаются: их записи не удаляются.
func startThrottleJanitor(ctx context.Context, thr *throttle.Memory, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := thr.Sweep(time.Now()); n > 0 {
					log.Debug("throttle_sweep", slog.Int("removed", n))
				}
			}
		}
	}()
}
