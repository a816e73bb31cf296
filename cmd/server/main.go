package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/richardliu001/pix-settlement/internal/config"
	"github.com/richardliu001/pix-settlement/internal/gateway"
	"github.com/richardliu001/pix-settlement/internal/logger"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/richardliu001/pix-settlement/internal/service"
	httptransport "github.com/richardliu001/pix-settlement/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// 1. load config
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "internal/config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.NewGormLogger(log, gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(model.AllModels()...); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kw.Close()

	// 6. payment providers
	client := &http.Client{Timeout: cfg.Gateway.Timeout}
	tokens := gateway.NewRedisTokenCache(rdb)
	gateways := gateway.NewRegistry(cfg.Gateway.Default,
		gateway.NewSuitpay(cfg.Gateway.Suitpay, client, log),
		gateway.NewSqala(cfg.Gateway.Sqala, client, tokens, cfg.Gateway.TokenTTL, log),
	)
	if _, err := gateways.Default(); err != nil {
		log.Fatalf("gateway: %v", err)
	}

	// 7. repo & services
	repository := repo.NewRepository(gdb, rdb, kw, log, repo.WithLockTimeout(cfg.Postgres.LockTimeout))
	settings := service.SettingsFromConfig(cfg.Settings)
	affiliate := service.NewAffiliateSettler(repository, service.AffiliateOptions{
		AccumulateDeposits: cfg.Affiliate.AccumulateDeposits,
		AdminRole:          cfg.Affiliate.AdminRole,
	}, log)
	finalizer := service.NewFinalizer(repository, settings, affiliate, log)
	svc := httptransport.Services{
		Charges: service.NewChargeService(repository, gateways, settings, finalizer, cfg.Gateway.CallbackBaseURL, log),
		Payouts: service.NewPayoutService(repository, gateways, cfg.Gateway.CallbackBaseURL, cfg.Affiliate.AdminRole, log),
		Wallets: service.NewWalletService(repository, log),
	}

	// 8. gin router
	router := httptransport.NewRouter(svc, cfg.RateLimit, log)

	// 9. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infow("pix-settlement listening", "addr", addr, "providers", gateways.Names(), "default", cfg.Gateway.Default)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
