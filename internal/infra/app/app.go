package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/infra/config"
	"github.com/arklim/account-portal/internal/infra/database"
	redisinfra "github.com/arklim/account-portal/internal/infra/redis"
	"github.com/arklim/account-portal/internal/infra/security"
	"github.com/arklim/account-portal/internal/repository/postgres"
	redisrepo "github.com/arklim/account-portal/internal/repository/redis"
	"github.com/arklim/account-portal/internal/transport/http/handlers"
	"github.com/arklim/account-portal/internal/transport/http/routes"
	"github.com/arklim/account-portal/internal/usecase"
)

// App owns the process-level resources and the HTTP server.
type App struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	server *http.Server
}

// New connects to the backing stores, applies migrations, and assembles the
// HTTP server with all routes wired.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	if err := database.RunMigrations(ctx, cfg.Postgres, logger); err != nil {
		return nil, err
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	accounts := postgres.NewAccountRepository(pool)
	rateLimits := redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix)

	policy := security.NewPasswordPolicy()
	hasher := security.NewArgon2Hasher()

	registration := usecase.NewRegistrationService(accounts, policy, hasher, logger)
	auth := usecase.NewAuthService(accounts, policy, hasher, logger)
	profile := usecase.NewProfileService(accounts, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := routes.New(routes.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Accounts:     accounts,
		RateLimits:   rateLimits,
		Registration: registration,
		Auth:         auth,
		Profile:      profile,
		HealthChecks: map[string]handlers.HealthChecker{
			"postgres": pool.Ping,
			"redis":    redisClient.HealthCheck,
		},
		Metrics: registry,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		server: server,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully
// and releases the store connections.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.close()
		return fmt.Errorf("shutdown http server: %w", err)
	}

	a.close()
	return nil
}

func (a *App) close() {
	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis", zap.Error(err))
	}
}
