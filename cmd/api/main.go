package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/authz"
	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/clientorders"
	"github.com/haderMaya1/coquito-amarillo/internal/config"
	"github.com/haderMaya1/coquito-amarillo/internal/directory"
	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/haderMaya1/coquito-amarillo/internal/httpx"
	kafkax "github.com/haderMaya1/coquito-amarillo/internal/kafka"
	"github.com/haderMaya1/coquito-amarillo/internal/logging"
	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/haderMaya1/coquito-amarillo/internal/procurement"
	"github.com/haderMaya1/coquito-amarillo/internal/redisx"
	"github.com/haderMaya1/coquito-amarillo/internal/sales"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	salesEvents := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicSales, 1024, logger)
	salesEvents.Start()
	stockEvents := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicInventory, 1024, logger)
	stockEvents.Start()

	store := &sales.PGStore{DB: db}
	dir := &directory.Service{DB: db, Log: logger.Named("directory")}
	router := httpx.NewRouter(httpx.Deps{
		Verifier: authz.Verifier{Secret: []byte(cfg.JWTSecret)},
		Sales: &sales.Service{
			Store:    store,
			Reader:   store.Reader(),
			Events:   salesEvents,
			Log:      logger.Named("sales"),
			Producer: cfg.ServiceName,
		},
		Catalog:   &catalog.Service{DB: db, Log: logger.Named("catalog")},
		Directory: dir,
		Procurement: &procurement.Service{
			DB:       db,
			Events:   stockEvents,
			Log:      logger.Named("procurement"),
			Producer: cfg.ServiceName,
		},
		ClientOrders: &clientorders.Service{DB: db, Log: logger.Named("clientorders")},
		Suppliers:    dir,
		Cache:        redisx.Store{R: rdb},
		Log:          logger,
		Timeout:      cfg.RequestTimeout,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	// flush queued events before exit
	salesEvents.Close()
	stockEvents.Close()
	salesEvents.WaitClosed()
	stockEvents.WaitClosed()
}
