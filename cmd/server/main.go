package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"savdo/backend/internal/config"
	"savdo/backend/internal/httpapi"
	"savdo/backend/internal/service"
	"savdo/backend/internal/session"
	"savdo/backend/internal/store"
	"savdo/backend/internal/store/memory"
	pgstore "savdo/backend/internal/store/postgres"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))
	loc, _ := cfg.Location()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if err := pg.Migrate(ctx, 5); err != nil {
			logger.Fatal().Err(err).Msg("postgres migration failed")
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info().Msg("repository: in-memory")
	}

	var sessions session.Store = session.NewMemoryStore(cfg.CartTTL())
	if cfg.RedisAddr != "" {
		redisStore := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CartTTL())
		if err := redisStore.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, keeping carts in memory")
			_ = redisStore.Close()
		} else {
			sessions = redisStore
			closers = append(closers, redisStore.Close)
			logger.Info().Msg("sessions: redis")
		}
	} else {
		logger.Info().Msg("sessions: memory")
	}

	svc := service.New(repo, sessions, loc)
	if cfg.AdminPassword != "" {
		if _, err := svc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
	} else if cfg.DatabaseURL != "" {
		logger.Warn().Msg("ADMIN_PASSWORD is not set; no admin account will be created on an empty database")
	}
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, httpapi.NewReadyGate(repo), httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Location:       loc,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Str("timezone", loc.String()).Msg("savdo backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("STORE_TIMEZONE %q is not a known timezone: %w", cfg.StoreTimezone, err)
	}
	return nil
}

func parseLogLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(raw)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
