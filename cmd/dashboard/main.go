package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/api"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/dashboard"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/feed"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/hub"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/quotes"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/render"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/repository"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/scheduler"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/tape"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/watchlist"
	"github.com/noemamarkets/pulse/pkg/config"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// 2. Initialize Zap Logger
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Redis: list store + frame fan-out
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The list store falls back to defaults, so keep going.
		logger.Warn("Redis not reachable at start-up", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	frames := repository.NewRedisStore(rdb, render.Sections)
	list := repository.NewRedisListStore(rdb, cfg.Watchlist.StoreKey, cfg.Watchlist.Defaults, logger)

	// 4. Upstream quote API
	client := quotes.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger)

	// 5. Optional quote tape
	var observers []watchlist.QuoteObserver
	var recorder *tape.Recorder
	if cfg.Kafka.Enabled {
		creator := tape.NewTopicCreator(logger, &tape.RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 5 * time.Second}}, tape.RealClock{}, 4)
		if err := creator.Ensure(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Tape topic not confirmed, relying on auto-creation", zap.Error(err))
		}
		recorder = tape.NewRecorder(logger, tape.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), tape.RealClock{})
		observers = append(observers, recorder)
		logger.Info("Quote tape enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 6. Watchlist + loaders
	publisher := dashboard.NewFramePublisher(frames)
	controller := watchlist.NewController(ctx, list, client, publisher, logger, observers...)

	items, err := feed.Load(cfg.Feed.Path, loc)
	if err != nil {
		logger.Fatal("Failed to load feed", zap.String("path", cfg.Feed.Path), zap.Error(err))
	}

	loaders := dashboard.NewLoaders(dashboard.Options{
		Watchlist:  controller,
		Source:     client,
		Publisher:  publisher,
		LastUpdate: client.LastUpdate(),
		Location:   loc,
		Suggested:  cfg.Watchlist.Suggested,
		Feed:       items,
		Logger:     logger,
	})

	sched := scheduler.NewScheduler(logger)
	err = loaders.Schedule(sched, dashboard.Periods{
		Fast: cfg.Refresh.Fast,
		Slow: cfg.Refresh.Slow,
		Age:  cfg.Refresh.Age,
		Feed: cfg.Refresh.Feed,
	})
	if err != nil {
		logger.Fatal("Failed to schedule loaders", zap.Error(err))
	}

	// 7. Viewers
	wsHub := hub.NewHub(frames, controller, render.Sections, logger)

	router := api.NewRouter(api.Config{
		Hub:            wsHub,
		Watchlist:      controller,
		Health:         api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		AllowedOrigins: cfg.App.CORSOrigins,
		Logger:         logger,
	})
	srv := &http.Server{Addr: cfg.App.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	// Start-up loads run before the timers are armed.
	sched.Start(ctx)

	// 8. Wait for Shutdown Signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	cancel() // abort in-flight fetches
	sched.Stop()
	wsHub.Shutdown()

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		}
	}
	if err := frames.Close(); err != nil {
		logger.Error("Error closing pubsub", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		logger.Error("Error closing redis", zap.Error(err))
	}
	logger.Info("Shutdown Complete")
}
