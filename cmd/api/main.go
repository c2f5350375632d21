package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/assettrack/internal/config"
	"github.com/ariefcatur/assettrack/internal/httpx"
	"github.com/ariefcatur/assettrack/internal/images"
	kafkax "github.com/ariefcatur/assettrack/internal/kafka"
	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/ariefcatur/assettrack/internal/postgres"
	"github.com/ariefcatur/assettrack/internal/redisx"
	"github.com/ariefcatur/assettrack/internal/reports"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store orders.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		obs.Logger.Warn("using in-memory store; data is lost on restart")
		store = orders.NewMemoryStore()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			obs.Logger.Error("db connect", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				obs.Logger.Error("migrate", "error", err)
				os.Exit(1)
			}
		}
		store = &orders.Repo{DB: db}
	}

	svc := &orders.Service{Store: store, ServiceName: cfg.ServiceName}
	views := &reports.Service{Source: store}
	api := &httpx.API{
		Orders:  svc,
		Reports: views,
		Images:  &images.Store{Dir: cfg.ImageDir},
	}

	// Redis: view cache + activity feed
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			obs.Logger.Warn("redis unreachable, continuing", "addr", cfg.RedisAddr, "error", err)
		}
		cache := &redisx.Cache{RDB: rdb, TTL: cfg.ViewCacheTTL}
		svc.Views = cache
		views.Cache = cache
		api.Activity = cache
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024)
		prod.Start(ctx)
		svc.Events = &kafkax.Publisher{P: prod}
	}

	router := httpx.NewRouter(cfg.AllowedOrigins)
	api.Register(router)
	httpx.MountImages(router, cfg.ImageDir)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		obs.Logger.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	obs.Logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close() // flush buffered events
		prod.WaitClosed()
	}
}
