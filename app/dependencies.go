package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/config"
	"github.com/Blukstak/OxideExpo-sub000/internal/observability"
	"github.com/Blukstak/OxideExpo-sub000/middleware"
	"github.com/Blukstak/OxideExpo-sub000/repositories"
	"github.com/Blukstak/OxideExpo-sub000/repositories/postgres"
	"github.com/Blukstak/OxideExpo-sub000/services"
	"github.com/Blukstak/OxideExpo-sub000/services/audit"
	"github.com/Blukstak/OxideExpo-sub000/services/revocation"
	"github.com/Blukstak/OxideExpo-sub000/services/storage"
	"github.com/Blukstak/OxideExpo-sub000/services/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	auditStopTimeout = 5 * time.Second

	// minAuditDrain is the least time the audit workers get on shutdown,
	// even when the caller's deadline has already passed.
	minAuditDrain = 500 * time.Millisecond
)

// Dependencies is the central wiring point for the API process
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB
	Redis  redis.UniversalClient

	// Repositories
	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Services
	Tokens      *token.Service
	Revocations *revocation.Registry
	Audit       *audit.AuditService
	Auth        *services.AuthService
	Storage     *storage.Service // nil when no bucket is configured
	Metrics     *observability.Metrics

	// Middleware
	AuthMiddleware *middleware.AuthMiddleware
	RoleMiddleware *middleware.RoleMiddleware
	LoginLimiter   *middleware.RateLimiter

	closed bool
}

// NewDependencies connects to PostgreSQL and Redis and wires every component
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client, err := revocation.NewClient(cfg.Redis)
	if err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	deps, err := NewDependenciesWith(ctx, cfg, logger, factory, client)
	if err != nil {
		_ = client.Close()
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWith wires components around already opened connections
func NewDependenciesWith(ctx context.Context, cfg *config.Config, logger *zap.Logger, factory *postgres.RepositoryFactory, client redis.UniversalClient) (*Dependencies, error) {
	d := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
		Redis:       client,
	}

	if cfg.Database.InitSchema {
		if err := d.DB.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	if cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NewMetrics()
	}

	if err := d.initAuth(); err != nil {
		return nil, err
	}

	if cfg.StorageEnabled() {
		svc, err := storage.NewService(ctx, cfg.Storage, logger)
		if err != nil {
			_ = d.Audit.Stop(auditStopTimeout)
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		d.Storage = svc
	} else {
		logger.Warn("S3_BUCKET not set, upload endpoints disabled")
	}

	logger.Info("all dependencies initialized successfully")
	return d, nil
}

func (d *Dependencies) initAuth() error {
	tokens, err := token.NewService(d.Config.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	d.Tokens = tokens
	d.Revocations = revocation.NewRegistry(d.Redis, d.Logger)

	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.DefaultConfig())
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	auth, err := services.NewAuthService(
		d.Repos.Users,
		d.TxManager,
		d.Tokens,
		d.Revocations,
		d.Audit,
		d.Logger,
		d.Config.Auth.BcryptCost,
	)
	if err != nil {
		_ = d.Audit.Stop(auditStopTimeout)
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	d.Auth = auth

	var recorder middleware.RejectionRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, d.Revocations, d.Logger,
		middleware.WithFailClosed(d.Config.Auth.RevocationFailClosed),
		middleware.WithRejectionRecorder(recorder))
	d.RoleMiddleware = middleware.NewRoleMiddleware(d.Repos.Admins, d.Repos.OMILs, d.Repos.Companies, d.Logger, recorder)

	if d.Config.RateLimit.Enabled {
		d.LoginLimiter = middleware.NewRateLimiter(d.Config.RateLimit, d.Logger)
	}

	d.Logger.Info("auth initialized",
		zap.Duration("access_ttl", d.Config.JWT.AccessTTL),
		zap.Bool("revocation_fail_closed", d.Config.Auth.RevocationFailClosed))
	return nil
}

// Close drains the audit queue and closes Redis and the database.
// Calling it twice is a no-op.
func (d *Dependencies) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		if err := d.Audit.Stop(stopTimeout(ctx)); err != nil && !errors.Is(err, audit.ErrNotRunning) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}

// stopTimeout is the audit drain budget for ctx: its remaining time, never
// less than minAuditDrain, or auditStopTimeout without a deadline.
func stopTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return auditStopTimeout
	}
	if remaining := time.Until(deadline); remaining > minAuditDrain {
		return remaining
	}
	return minAuditDrain
}
