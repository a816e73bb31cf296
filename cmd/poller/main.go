package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richardliu001/pix-settlement/internal/config"
	"github.com/richardliu001/pix-settlement/internal/logger"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// poller publishes notification events (deposit.confirmed, payout.confirmed)
// from the outbox table to Kafka.
func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "internal/config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.NewGormLogger(log, gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}
	defer kw.Close()

	repository := repo.NewRepository(gdb, nil, kw, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	log.Info("outbox poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info("outbox poller stopped")
			return
		case <-ticker.C:
			publishBatch(ctx, repository, log)
		}
	}
}

func publishBatch(ctx context.Context, r repo.RepositoryInterface, log *zap.SugaredLogger) {
	events, err := r.PollOutbox(ctx, 100)
	if err != nil {
		log.Errorw("poll outbox", "error", err)
		return
	}
	for _, evt := range events {
		if err := r.PublishEvent(ctx, evt); err != nil {
			log.Errorw("publish event", "id", evt.ID, "event_type", evt.EventType, "error", err)
			// later events wait for this one
			return
		}
		if err := r.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			log.Errorw("mark processed", "id", evt.ID, "error", err)
			return
		}
		log.Infow("event sent", "id", evt.ID, "event_type", evt.EventType)
	}
}
