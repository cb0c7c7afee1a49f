package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/90brandingllc/poveda-portal-sub001/internal/api"
	"github.com/90brandingllc/poveda-portal-sub001/internal/config"
	"github.com/90brandingllc/poveda-portal-sub001/internal/events"
	"github.com/90brandingllc/poveda-portal-sub001/internal/hub"
	"github.com/90brandingllc/poveda-portal-sub001/internal/logger"
	"github.com/90brandingllc/poveda-portal-sub001/internal/middleware"
	"github.com/90brandingllc/poveda-portal-sub001/internal/presence"
	"github.com/90brandingllc/poveda-portal-sub001/internal/repository"
	"github.com/90brandingllc/poveda-portal-sub001/internal/service"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	zl, err := logger.New(cfg.Development())
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := zl.Sugar()
	log.Infof("starting poveda-portal (env=%s)", cfg.App.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		log.Fatalf("mongo ping: %v", err)
	}
	db := mc.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	bus := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)

	store := repository.NewStore(db, log)
	svc := service.NewCaseService(store, bus, log)
	sessions := hub.New()
	pres := presence.NewStore(rdb, cfg.Redis.Prefix)
	limiter := middleware.NewRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateLimitWindow)

	server := api.NewServer(cfg, svc, store, sessions, pres, limiter, log)

	go func() {
		if err := server.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down poveda-portal...")

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShut()
	_ = server.Shutdown()
	_ = bus.Close()
	_ = mc.Disconnect(shutCtx)
	_ = rdb.Close()
	log.Info("shutdown complete")
}
