package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront-auth/internal/audit"
	auditrepo "storefront-auth/internal/audit/repository"
	authhandler "storefront-auth/internal/auth/handler"
	authservice "storefront-auth/internal/auth/service"
	"storefront-auth/internal/config"
	"storefront-auth/internal/db"
	"storefront-auth/internal/observability"
	"storefront-auth/internal/ratelimit"
	"storefront-auth/internal/security"
	"storefront-auth/internal/server"
	sessionhandler "storefront-auth/internal/session/handler"
	sessionrepo "storefront-auth/internal/session/repository"
	sessionservice "storefront-auth/internal/session/service"
	userhandler "storefront-auth/internal/user/handler"
	userrepo "storefront-auth/internal/user/repository"
)

func main() {
	bootLog := zerolog.New(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "storefront-auth").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, "storefront-auth", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	defer pool.Close()

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = ratelimit.New(rdb, ratelimit.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Window:      cfg.RateLimitWindow(),
		})
	}

	codec := security.NewTokenCodec(
		[]byte(cfg.JWTAccessSecret),
		[]byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(pool), log)

	authSvc := authservice.NewAuthService(users, sessions, hasher, codec, auditor)
	sessSvc := sessionservice.NewService(sessions, auditor)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := server.NewRouter(server.Deps{
		Auth:         authhandler.NewHandler(authSvc),
		Sessions:     sessionhandler.NewHandler(sessSvc),
		Users:        userhandler.NewHandler(users),
		Codec:        codec,
		UserStore:    users,
		SessionStore: sessions,
		Limiter:      limiter,
		Log:          log,
		Registry:     registry,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("server stopped")
}
