// Package main runs the lotix API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"lotix/internal/config"
	coretx "lotix/internal/core/tx"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/dispatch"
	"lotix/internal/domain/documents/creditnote"
	"lotix/internal/domain/documents/purchase"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/cost"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/internal/domain/promo"
	"lotix/internal/domain/reports"
	v1 "lotix/internal/infrastructure/http/v1"
	"lotix/internal/infrastructure/http/v1/handlers"
	"lotix/internal/infrastructure/storage/memory"
	"lotix/internal/infrastructure/storage/postgres"
	"lotix/internal/infrastructure/storage/postgres/document_repo"
	"lotix/migrations"
	"lotix/pkg/logger"
	"lotix/pkg/numerator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(ctx, "load config", "error", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		logger.Fatal(ctx, "create logger", "error", err)
	}
	ctx = logger.WithLogger(ctx, log)

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "wire storage", "error", err)
	}
	defer cleanup()

	router := v1.NewRouter(buildRouter(log, deps))

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "server listening", "addr", cfg.HTTP.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "shutdown failed", "error", err)
	}
	logger.Info(ctx, "shutdown complete")
}

// deps is the storage-specific dependency set.
type deps struct {
	products    product.Repository
	purchases   purchase.Repository
	sales       sale.Repository
	creditNotes creditnote.Repository
	promos      promo.Repository

	store  batch.Store
	ledger kardex.Ledger
	seq    numerator.Querier
	txm    coretx.Manager

	pinger handlers.Pinger
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, func(), error) {
	if cfg.Storage == config.StorageMemory {
		txm := coretx.Nop{}
		return &deps{
			products:    memory.NewProductRepo(),
			purchases:   memory.NewPurchaseRepo(),
			sales:       memory.NewSaleRepo(),
			creditNotes: memory.NewCreditNoteRepo(),
			promos:      memory.NewPromoRepo(),
			store:       memory.NewBatchStore(),
			ledger:      memory.NewKardexLedger(),
			seq:         memory.NewSequenceStore(),
			txm:         txm,
		}, func() {}, nil
	}

	if cfg.Database.MigrateOnStart {
		if err := migrate(cfg.Database.DSN); err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, "migrations applied")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		return nil, nil, err
	}

	txm := postgres.NewTxManager(pool)
	return &deps{
		products:    postgres.NewProductRepo(txm),
		purchases:   document_repo.NewPurchaseRepo(txm),
		sales:       document_repo.NewSaleRepo(txm),
		creditNotes: document_repo.NewCreditNoteRepo(txm),
		promos:      postgres.NewPromoRepo(txm),
		store:       postgres.NewBatchStore(txm),
		ledger:      postgres.NewKardexLedger(txm),
		seq:         pool,
		txm:         txm,
		pinger:      pool,
	}, pool.Close, nil
}

func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func buildRouter(log *logger.Logger, d *deps) v1.RouterConfig {
	products := product.NewService(d.products)
	kardexSvc := kardex.NewService(d.ledger)
	allocator := allocation.NewEngine(d.store, batch.OrderByExpirationAsc)
	reverser := reversal.NewEngine(d.store)
	costEngine := cost.NewEngine(d.store, products)
	numbers := numerator.New(d.seq)

	eval, err := promo.NewEvaluator()
	if err != nil {
		logger.Fatal(context.Background(), "create promo evaluator", "error", err)
	}
	promos := promo.NewService(d.promos, eval)

	purchases := purchase.NewService(d.purchases, products, d.store, reverser, kardexSvc, numbers, d.txm)
	sales := sale.NewService(d.sales, products, allocator, reverser, kardexSvc, promos, numbers, d.txm)
	creditNotes := creditnote.NewService(d.creditNotes, sales, kardexSvc, numbers, d.txm)
	reportsSvc := reports.NewService(kardexSvc, costEngine, d.store, products)
	dispatchSvc := dispatch.NewService(d.sales, products)

	return v1.RouterConfig{
		Logger:      log,
		Products:    products,
		Purchases:   purchases,
		Sales:       sales,
		CreditNotes: creditNotes,
		Promos:      promos,
		Reports:     reportsSvc,
		Dispatch:    dispatchSvc,
		BatchStore:  d.store,
		Allocator:   allocator,
		Pinger:      d.pinger,
	}
}
