package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/quotesim/internal/generator"
	"github.com/noemamarkets/pulse/pkg/config"
)

const stepInterval = 2 * time.Second

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

	// The upstream API sends plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	gen := generator.NewStockGenerator(logger, cfg.Simulator.Symbols, generator.RealRand{Rand: r}, generator.RealClock{}, stepInterval)

	// 3. Setup Shutdown Hook
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go gen.Run(ctx)

	srv := &http.Server{Addr: cfg.Simulator.Port, Handler: generator.NewRouter(gen), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("Simulator Started", zap.String("port", cfg.Simulator.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	// 4. Wait for Shutdown Signal
	<-sigChan
	logger.Info("Shutdown signal received")
	cancel() // Stop the generation loop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	logger.Info("Shutdown Complete")
}
