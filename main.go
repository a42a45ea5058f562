package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "bidding-ledger/internal/biddingService"
	"bidding-ledger/internal/config"
	model "bidding-ledger/internal/models"
	"bidding-ledger/internal/notifier"
	"bidding-ledger/internal/registry"
	"bidding-ledger/internal/repository"
	"bidding-ledger/internal/server"
	"bidding-ledger/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		utils.Fatal("bidding server stopped", map[string]any{"error": err.Error()})
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	utils.SetLevel(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemoData {
		if err := prepopulate(ctx, store, cfg.StartingBalance); err != nil {
			return err
		}
	}

	reg := registry.New(registry.WithBuffer(cfg.SubscriberBuffer))
	changes := notifier.New(store, reg,
		notifier.WithGapTimeout(cfg.NotifierGapTimeout),
		notifier.WithCatchUpInterval(cfg.NotifierCatchUp),
	)
	defer changes.Close()

	biddingSvc := bidding.NewBiddingService(store,
		bidding.WithBidCost(cfg.BidCost),
		bidding.WithStartingBalance(cfg.StartingBalance),
		bidding.WithPublisher(changes),
	)

	retry := bidding.DefaultRetryPolicy()
	retry.MaxTries = cfg.RetryMaxTries
	retry.InitialInterval = cfg.RetryInitialInterval

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.SetupRouter(biddingSvc, changes, retry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.Info("starting bidding server", map[string]any{
			"addr":     srv.Addr,
			"store":    cfg.StoreDriver,
			"bid_cost": cfg.BidCost,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.Info("shutting down bidding server", nil)
		// streams never finish on their own
		changes.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore builds the configured ledger backend
func openStore(cfg config.Config) (repository.LedgerStore, func(), error) {
	opts := []repository.Option{repository.WithLockTimeout(cfg.LockTimeout)}

	switch cfg.StoreDriver {
	case config.DriverSQLite:
		repo, err := repository.OpenSQLite(cfg.SQLitePath, opts...)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				utils.Warn("failed to close sqlite store", map[string]any{"error": err.Error()})
			}
		}, nil
	default:
		return repository.NewMemoryRepo(opts...), func() {}, nil
	}
}

// prepopulate adds sample accounts and items so the server is usable right away
func prepopulate(ctx context.Context, store repository.LedgerStore, balance int64) error {
	now := time.Now().UTC()
	accounts := []model.Account{
		{AccountID: "alice", CreditBalance: balance, CreatedAt: now},
		{AccountID: "bob", CreditBalance: balance, CreatedAt: now},
		{AccountID: "carol", CreditBalance: balance, CreatedAt: now},
	}
	items := []model.Item{
		{ItemID: "item1", Title: "title1", Threshold: 3, CreatedAt: now},
		{ItemID: "item2", Title: "title2", Threshold: 5, CreatedAt: now},
		{ItemID: "item3", Title: "title3", Threshold: 10, CreatedAt: now},
	}
	return repository.Seed(ctx, store, accounts, items)
}
