// Command engine is the squad engine's process entry point: it loads
// configuration, wires the bus and every collaborator (router, strategy
// storage, market feed, system supervisor), exposes an ambient HTTP/metrics
// surface, and drives the supervisor's FSM until a shutdown signal arrives
// (spec.md §4.8, §6). Grounded on the teacher's cmd/server/main.go flag
// parsing, logger setup, and graceful-shutdown shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/datasource"
	"github.com/atlas-desktop/squad-engine/internal/exchange"
	"github.com/atlas-desktop/squad-engine/internal/marketfeed"
	"github.com/atlas-desktop/squad-engine/internal/router"
	"github.com/atlas-desktop/squad-engine/internal/strategystore"
	"github.com/atlas-desktop/squad-engine/internal/supervisor"
	"github.com/atlas-desktop/squad-engine/internal/workers"
	"github.com/atlas-desktop/squad-engine/pkg/config"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/atlas-desktop/squad-engine/pkg/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	wsURL := flag.String("ws-url", "wss://stream.bybit.com/v5/public/linear", "Market feed websocket URL")
	timeframe := flag.String("timeframe", string(model.Timeframe1m), "Default candidate timeframe")
	live := flag.Bool("live", false, "Trade with a market executor instead of paper")
	leverage := flag.Int("leverage", 5, "Leverage applied via UpdateSettings in TRADING")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	b := bus.New(logger, bus.Config{NumWorkers: cfg.Bus.NumWorkers, Registerer: registry})

	repo := datasource.New()

	workerPool := workers.NewPool(logger, workers.DefaultPoolConfig("strategystore"))
	workerPool.Start()
	defer workerPool.Stop()

	store := strategystore.New(workerPool, 3)
	strategyActor := strategystore.NewActor(store)
	strategyActor.Start(b)
	defer strategyActor.Stop(b)

	adapter := exchange.NewRateLimited(unconfiguredAdapter{}, cfg.Exchange.RateLimitRPS)
	routerActor := router.New(logger, adapter, adapter, router.TWAP{}, router.Config{
		EntryTimeout:         cfg.Position.EntryTimeout,
		StopLossThreshold:    decimal.NewFromFloat(cfg.Position.StopLossThreshold),
		MaxOrderSlice:        cfg.Position.MaxOrderSlice,
		MaxOrderBreach:       cfg.Position.MaxOrderBreach,
		MaxOpenOrderAttempts: cfg.Position.MaxOpenOrderAttempts,
	})
	routerActor.Start(b)
	defer routerActor.Stop(b)

	feed := marketfeed.New(logger, b, *wsURL, nil)
	feed.Start(b)

	squadFactory := supervisor.SquadFactory{
		Logger:      logger,
		Generators:  noOpSignalGeneratorFactory{},
		RNG:         mathRNG{},
		InitialSize: decimal.NewFromInt(100),
		Expiration:  model.DefaultExpirationMs,
		TA:          model.NoOpTechAnalysis{},
	}

	tf := model.Timeframe(*timeframe)
	generator := seedGenerator{timeframe: tf, genome: "default"}
	optimizer := &singlePassOptimizer{}

	sup := supervisor.New(logger, b, repo, store, squadFactory, generator, optimizer, supervisor.Config{
		ParallelNum:       cfg.Bus.NumWorkers,
		ActiveStrategyNum: 5,
		Leverage:          *leverage,
		IsLive:            *live,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := newHTTPServer(cfg.Server.Host, cfg.Server.Port, registry)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("engine: http server error", zap.Error(err))
		}
	}()

	go feed.Run(ctx)

	runErr := make(chan error, 1)
	go func() { runErr <- sup.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("engine: started", zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))

	select {
	case <-sigChan:
		logger.Info("engine: shutdown signal received")
	case err := <-runErr:
		logger.Warn("engine: supervisor stopped", zap.Error(err))
	}

	sup.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("engine: http shutdown error", zap.Error(err))
	}

	if err := b.Wait(shutdownCtx); err != nil {
		logger.Warn("engine: bus drain timed out", zap.Error(err))
	}
	logger.Info("engine: stopped")
}

// newHTTPServer exposes health and /metrics, the ambient surface every
// component of this core runs alongside (spec.md §6's server.* config),
// grounded on the teacher's internal/api.Server mux/cors wiring.
func newHTTPServer(host string, port int, registry *prometheus.Registry) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	handler := cors.Default().Handler(r)
	return &http.Server{
		Addr:         addr(host, port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

func addr(host string, port int) string {
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// mathRNG wraps math/rand's package-level source as a model.RNG, used only
// where no deterministic, test-injected RNG is required.
type mathRNG struct{}

func (mathRNG) Float64() float64 { return rand.Float64() }

