package main

import (
	"context"
	"fmt"

	"glucose-bot/internal/adapters/storage/file"
	"glucose-bot/internal/adapters/storage/memory"
	"glucose-bot/internal/adapters/storage/postgres"
	redisledger "glucose-bot/internal/adapters/storage/redis"
	"glucose-bot/internal/adapters/storage/sqlite"
	"glucose-bot/internal/domain/iob"
	"glucose-bot/internal/platform/config"
)

// openLedger arma el backend configurado. La func devuelta libera conexiones.
func openLedger(ctx context.Context, cfg config.Config) (iob.Repository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.LedgerBackend {
	case config.LedgerMemory:
		return memory.NewDoseLedger(), noop, nil

	case config.LedgerFile:
		return file.NewDoseLedger(cfg.LedgerPath), noop, nil

	case config.LedgerSQLite:
		l, err := sqlite.Open(ctx, cfg.LedgerPath)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil

	case config.LedgerPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres ledger: %w", err)
		}
		r := postgres.NewDosesRepo(db)
		if err := r.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres ledger schema: %w", err)
		}
		return r, db.Close, nil

	case config.LedgerRedis:
		l, err := redisledger.Dial(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}
