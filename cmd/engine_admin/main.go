package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/transfer-verification-engine/internal/admin_cli"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/data/postgres"
	"github.com/transfer-verification-engine/internal/logger"
	"github.com/transfer-verification-engine/internal/platform/persistence"
	"github.com/transfer-verification-engine/internal/transfer_engine/components"
)

func main() {
	cfg, err := config.LoadConfig("engine_admin")
	if err != nil {
		// logger is not initialized yet
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	open := func(ctx context.Context) (*admin_cli.Backend, func(), error) {
		postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}

		repos := components.Repositories{
			Accounts:       postgres.NewAccountRepository(log, postgresDB),
			Transfers:      postgres.NewTransferRepository(log, postgresDB),
			Ledger:         postgres.NewLedgerRepository(log, postgresDB),
			Outbox:         postgres.NewOutboxRepository(log, postgresDB),
			PINs:           postgres.NewPINRepository(log, postgresDB),
			KnowledgeCodes: postgres.NewKnowledgeCodeRepository(log, postgresDB),
			OTPs:           postgres.NewOTPRepository(log, postgresDB),
		}

		// Operator actions never touch the attempt counters
		engine := components.CreateEngine(postgresDB, repos, components.NewLimiter(nil, cfg.Redis, log), log, cfg)

		return &admin_cli.Backend{
			Factors:   engine.Factors,
			Transfers: engine.Transfers,
			Accounts:  repos.Accounts,
		}, postgresDB.Close, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := admin_cli.NewRootCommand(cfg, open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
