package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/logger"
	"github.com/comanda-pos/api/internal/mq"
	"github.com/comanda-pos/api/internal/redis"
	"github.com/comanda-pos/api/internal/router"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/store"
	"github.com/comanda-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := service.DefaultCatalog()
	billing := service.NewBillingView(catalog)

	hub := ws.NewHub(billing, log)
	go hub.Run(ctx)

	publishers := service.Publishers{hub}
	if cfg.AMQPURL != "" {
		client, err := mq.Dial(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer client.Close()
		if err := client.DeclareAll(); err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		publishers = append(publishers, mq.NewEventPublisher(client, billing))
		log.WithField("exchange", mq.OrdersExchange).Info("publishing order events to AMQP")
	}

	var (
		ledgerStore service.Store
		staff       router.StaffStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := store.ApplySchema(ctx, pool); err != nil {
			return err
		}
		ledgerStore = store.NewPostgresStore(pool)
		staff = store.NewPostgresStaff(pool)
		log.Info("ledger stored in Postgres")
	} else {
		ledgerStore = store.NewFileStore(cfg.LedgerFile)
		dir, err := bootstrapStaff(cfg, log)
		if err != nil {
			return err
		}
		staff = dir
		log.WithField("path", cfg.LedgerFile).Info("ledger stored in file")
	}

	ledger, err := service.OpenLedger(ctx, catalog,
		service.WithStore(ledgerStore),
		service.WithPublisher(publishers),
		service.WithLogger(log),
	)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"orders":  len(ledger.All()),
		"next_id": ledger.NextID(),
	}).Info("ledger loaded")

	var drafts service.DraftStore = service.NewMemoryDraftStore(cfg.DraftTTL)
	if cfg.RedisURL != "" {
		rc, err := redis.Initialize(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		drafts = rc.Drafts(cfg.DraftTTL)
		log.Info("drafts stored in Redis")
	}

	orders := service.NewOrderService(catalog, drafts, ledger, log)

	r := router.New(cfg, router.Deps{
		Catalog: catalog,
		Ledger:  ledger,
		Orders:  orders,
		Billing: billing,
		Staff:   staff,
		Hub:     hub,
		Log:     log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// bootstrapStaff builds the staff directory for file-backed deployments
// from STAFF_USERNAME and STAFF_PASSWORD_HASH.
func bootstrapStaff(cfg *config.Config, log logrus.FieldLogger) (*store.MemoryStaff, error) {
	if cfg.StaffUsername == "" || cfg.StaffPasswordHash == "" {
		log.Warn("STAFF_USERNAME or STAFF_PASSWORD_HASH not set, nobody can sign in")
		return store.NewMemoryStaff()
	}
	return store.NewMemoryStaff(store.Staff{
		Username:       cfg.StaffUsername,
		FullName:       cfg.StaffUsername,
		Role:           enum.RoleManager,
		HashedPassword: cfg.StaffPasswordHash,
	})
}
