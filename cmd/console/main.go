package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/console"
	"github.com/comanda-pos/api/internal/logger"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/store"
)

func main() {
	cfg := config.Load()
	// Menu output owns stdout.
	log := logger.NewWithOutput(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := service.DefaultCatalog()
	ledger, err := service.OpenLedger(ctx, catalog,
		service.WithStore(store.NewFileStore(cfg.LedgerFile)),
		service.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("open ledger")
	}

	if err := console.New(os.Stdin, os.Stdout, catalog, ledger).Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("console stopped")
	}
}
