package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"condorledger/internal/config"
	"condorledger/pkg/retry"
	"condorledger/pkg/utils"

	"github.com/lib/pq"
)

// pingTimeout - предел одной попытки ping
const pingTimeout = 5 * time.Second

// OpenDatabase открывает пул соединений и дожидается доступности БД.
// Ping повторяется с экспоненциальной задержкой ConnectRetries раз.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log := utils.L().WithComponent("database")

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.ConnectRetries
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("database ping failed, retrying",
			utils.Attempt(attempt),
			utils.Duration("delay", delay),
			utils.Err(err),
		)
	}

	err = retry.Do(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			if isFatalConnectError(err) {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	}, retryCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.DSNWithoutPassword(), err)
	}

	log.Info("connected to database", utils.Address(fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name)))
	return db, nil
}

// isFatalConnectError - ошибки, которые не исчезнут при повторе:
// неверные учетные данные (класс 28) и несуществующая база (3D000)
func isFatalConnectError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Class() == "28" || pqErr.Code == "3D000"
}
