package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"balance-ledger/config"
	httpHandler "balance-ledger/internal/adapter/http/handler"
	"balance-ledger/internal/adapter/http/middleware"
	memStorage "balance-ledger/internal/adapter/storage/memory"
	pgStorage "balance-ledger/internal/adapter/storage/postgres"
	redisStorage "balance-ledger/internal/adapter/storage/redis"
	"balance-ledger/internal/core/ports"
	"balance-ledger/internal/service"
	"balance-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, log)
		},
	}
}

// backend bundles the repositories of one storage driver.
type backend struct {
	users      ports.UserRepository
	accounts   ports.AccountRepository
	txns       ports.TransactionRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		store := memStorage.NewStore()
		return &backend{
			users:      memStorage.NewUserRepo(store),
			accounts:   memStorage.NewAccountRepo(store),
			txns:       memStorage.NewTransactionRepo(store),
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database.DSN(), cfg.Database.DBName, pgStorage.Up, log); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &backend{
		users:      pgStorage.NewUserRepo(pool),
		accounts:   pgStorage.NewAccountRepo(pool),
		txns:       pgStorage.NewTransactionRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

func runServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting balance ledger")

	// Redis backs the lock for every driver, so it is always required.
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.close()

	locker := redisStorage.NewLockCoordinator(rdb, cfg.Lock, logger.Component(log, "lock"))
	lockOpts := service.LockOptionsFromConfig(cfg.Lock)

	balanceSvc := service.NewBalanceService(store.users, store.accounts, store.txns, store.transactor, logger.Component(log, "balance"))
	txSvc := service.NewTransactionService(balanceSvc, locker, lockOpts, logger.Component(log, "transaction"))
	accountSvc := service.NewAccountService(store.users, store.accounts, store.transactor, locker, lockOpts, logger.Component(log, "account"))

	var rateLimitStore ports.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransactionSvc: txSvc,
		AccountSvc:     accountSvc,
		RateLimitStore: rateLimitStore,
		RateLimitRules: middleware.RateLimitRulesFromConfig(cfg.RateLimit),
		HealthCheckers: []ports.HealthChecker{store.health, redisStorage.NewHealthCheck(rdb)},
		Mode:           cfg.Server.Mode,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}
