package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"balance-ledger/config"
	"balance-ledger/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	uniqueViolation = "23505"
	applicationName = "balance-ledger"
)

// NewPool opens the pgx pool. Every session gets a lock_timeout so a row lock
// wait fails instead of outliving the account lease.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	for k, v := range runtimeParams(cfg) {
		poolCfg.ConnConfig.RuntimeParams[k] = v
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	plog := logger.Component(log, "postgres")
	plog.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Int32("max_conns", cfg.MaxConns).
		Dur("row_lock_timeout", cfg.RowLockTimeout).
		Msg("connected")

	return pool, nil
}

func runtimeParams(cfg config.DatabaseConfig) map[string]string {
	params := map[string]string{"application_name": applicationName}
	if cfg.RowLockTimeout > 0 {
		params["lock_timeout"] = strconv.FormatInt(cfg.RowLockTimeout.Milliseconds(), 10)
	}
	return params
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
