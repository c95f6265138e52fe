package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/haderMaya1/coquito-amarillo/internal/config"
	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/haderMaya1/coquito-amarillo/internal/inventory"
	kafkax "github.com/haderMaya1/coquito-amarillo/internal/kafka"
	"github.com/haderMaya1/coquito-amarillo/internal/logging"
	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/haderMaya1/coquito-amarillo/internal/procurement"
	"github.com/haderMaya1/coquito-amarillo/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-restock"

	logger, err := logging.New(cfg.LogLevel, name)
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

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// StockReceived goes out on the same topic the API uses
	stockEvents := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicInventory, 1024, logger)
	stockEvents.Start()

	svc := &inventory.Service{
		Orders: &procurement.Service{
			DB:       db,
			Events:   stockEvents,
			Log:      logger.Named("procurement"),
			Producer: name,
		},
		Dedup:       redisx.Store{R: rdb},
		Log:         logger.Named("inventory"),
		ServiceName: name,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RestockGroup, events.TopicOrderReceived, cfg.RestockWorkers, logger)
	logger.Info("restock consumer started",
		zap.String("group", cfg.RestockGroup),
		zap.String("topic", events.TopicOrderReceived),
		zap.Int("workers", cfg.RestockWorkers))
	if err := cons.Start(ctx, svc.HandleOrderReceived); err != nil && ctx.Err() == nil {
		logger.Error("consumer exit", zap.Error(err))
	}

	logger.Info("shutting down consumer")
	stockEvents.Close()
	stockEvents.WaitClosed()
}
