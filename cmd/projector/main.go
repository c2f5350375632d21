package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/assettrack/internal/config"
	kafkax "github.com/ariefcatur/assettrack/internal/kafka"
	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/ariefcatur/assettrack/internal/projector"
	"github.com/ariefcatur/assettrack/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		obs.Logger.Error("config", "error", err)
		os.Exit(1)
	}
	obs.Init(cfg.LogLevel)

	if cfg.RedisAddr == "" || len(cfg.KafkaBrokers) == 0 {
		obs.Logger.Error("projector needs REDIS_ADDR and KAFKA_BROKERS")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Sink:        &redisx.Cache{RDB: rdb, TTL: cfg.ViewCacheTTL},
		ServiceName: cfg.ProjectorGroup,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.AllTopics, cfg.ProjectorWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		obs.Logger.Info("projector started", "group", cfg.ProjectorGroup, "topics", orders.AllTopics, "workers", cfg.ProjectorWorkers)
		if err := cons.Start(ctx, svc.Handle); err != nil {
			obs.Logger.Error("consumer exit", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	obs.Logger.Info("shutting down projector")
	cancel()
	<-done
}
