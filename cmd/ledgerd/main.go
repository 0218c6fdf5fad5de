package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/finvault/ledgerd/internal/adapters/database/pgsql"
	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/core/services"
	"github.com/finvault/ledgerd/internal/handlers"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/finvault/ledgerd/internal/notifier"
	"github.com/finvault/ledgerd/pkg/config"
	"github.com/finvault/ledgerd/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Repositories.
	ledgerRepo := pgsql.NewLedgerRepository(dbPool)
	idempotencyRepo := pgsql.NewIdempotencyRepository(dbPool)
	apiKeyRepo := pgsql.NewAPIKeyRepository(dbPool)

	// The hub is an explicit instance owned here and handed to everything
	// that needs it.
	hub := notifier.NewHub(logger)
	defer hub.Close()

	svcContainer := &portssvc.ServiceContainer{
		Account:     services.NewAccountService(ledgerRepo),
		Transaction: services.NewTransactionService(ledgerRepo, idempotencyRepo, services.WithNotifier(hub)),
		APIKey:      services.NewAPIKeyService(apiKeyRepo),
	}

	defaultKey, err := svcContainer.APIKey.EnsureDefaultKey(ctx)
	if err != nil {
		logger.Error("Failed to ensure default API key", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !cfg.IsProduction {
		logger.Info("Default API key ready", slog.String("api_key", defaultKey))
	}

	startIdempotencySweeper(ctx, svcContainer.Transaction, cfg.SweepInterval, logger)

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT format", slog.String("error", err.Error()))
		os.Exit(1)
	}
	limiterInstance := limiter.New(memory.NewStore(), rate)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, svcContainer, hub, limiterInstance)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending schema migrations through a temporary
// database/sql connection using the pgx stdlib driver.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// startIdempotencySweeper periodically removes expired idempotency records.
// The sweep shares no locks with the transaction hot path.
func startIdempotencySweeper(ctx context.Context, txnSvc portssvc.TransactionSvc, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := txnSvc.SweepExpiredKeys(ctx)
				if err != nil {
					logger.Error("Idempotency sweep failed", slog.String("error", err.Error()))
					continue
				}
				if removed > 0 {
					logger.Info("Swept expired idempotency keys", slog.Int64("removed", removed))
				}
			}
		}
	}()
}
