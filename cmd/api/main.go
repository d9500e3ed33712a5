package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jdspiral/csr-amp/internal/adapters/httpapi"
	memidempotency "github.com/jdspiral/csr-amp/internal/adapters/memory/idempotency"
	mempurchaserepo "github.com/jdspiral/csr-amp/internal/adapters/memory/purchaserepo"
	memsubscriptionrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/subscriptionrepo"
	memuserrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/userrepo"
	memvehiclerepo "github.com/jdspiral/csr-amp/internal/adapters/memory/vehiclerepo"
	postgres "github.com/jdspiral/csr-amp/internal/adapters/postgres"
	pgidempotency "github.com/jdspiral/csr-amp/internal/adapters/postgres/idempotency"
	pgpurchaserepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/purchaserepo"
	pgsubscriptionrepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/subscriptionrepo"
	pguserrepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/userrepo"
	pgvehiclerepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/vehiclerepo"
	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/app/registry"
	"github.com/jdspiral/csr-amp/internal/app/snapshot"
	"github.com/jdspiral/csr-amp/internal/app/subscriptions"
	platformclock "github.com/jdspiral/csr-amp/internal/platform/clock"
	"github.com/jdspiral/csr-amp/internal/platform/config"
	"github.com/jdspiral/csr-amp/internal/platform/logging"
	idempotencyport "github.com/jdspiral/csr-amp/internal/ports/out/idempotency"
	purchaserepoport "github.com/jdspiral/csr-amp/internal/ports/out/purchaserepo"
	subscriptionrepoport "github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clk := platformclock.NewSystemClock()

	var (
		userRepo     userrepoport.Repository
		vehicleRepo  vehiclerepoport.Repository
		subRepo      subscriptionrepoport.Repository
		purchaseRepo purchaserepoport.Repository
		idemStore    idempotencyport.Store
		cleanup      func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			logger.Fatal("postgres pool", zap.Error(err))
		}
		cleanup = pool.Close
		if err := postgres.Migrate(context.Background(), pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}

		userRepo = pguserrepo.NewRepo(pool)
		vehicleRepo = pgvehiclerepo.NewRepo(pool)
		subRepo = pgsubscriptionrepo.NewRepo(pool)
		purchaseRepo = pgpurchaserepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		userRepo = memuserrepo.NewRepo()
		vehicleRepo = memvehiclerepo.NewRepo()
		subRepo = memsubscriptionrepo.NewRepo()
		purchaseRepo = mempurchaserepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	registrySvc := registry.NewService(userRepo, vehicleRepo, subRepo, clk)
	subSvc := subscriptions.NewService(subRepo, vehicleRepo, clk)
	ledgerSvc := ledger.NewService(purchaseRepo, userRepo, subRepo, vehicleRepo, clk)
	snapshotSvc := snapshot.NewService(registrySvc, subSvc, ledgerSvc)

	api := httpapi.NewServer(registrySvc, subSvc, ledgerSvc, snapshotSvc, idemStore)
	handler := httpapi.NewRouter(api, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
