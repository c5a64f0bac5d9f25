package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KodyPay/kp-order-sync/internal/config"
	"github.com/KodyPay/kp-order-sync/internal/helper"
	"github.com/KodyPay/kp-order-sync/internal/kody"
	"github.com/KodyPay/kp-order-sync/internal/metrics"
	"github.com/KodyPay/kp-order-sync/internal/posdb"
	"github.com/KodyPay/kp-order-sync/internal/shutdown"
	"github.com/KodyPay/kp-order-sync/internal/state"
	"github.com/KodyPay/kp-order-sync/internal/worker"
)

func main() {
	helper.InitLogging()
	defer func() {
		_ = zap.S().Sync()
	}()

	initPrometheus()
	health := initHealthCheck()

	cfg, err := config.Load()
	if err != nil {
		zap.S().Fatalf("Invalid configuration: %s", err)
	}

	ctx := shutdown.ContextOnSignal(context.Background())

	stateStore, err := state.Open(cfg.StateDBPath)
	if err != nil {
		zap.S().Fatalf("Failed to open state store: %s", err)
	}
	defer func() {
		if err := stateStore.Close(); err != nil {
			zap.S().Errorf("Failed to close state store: %s", err)
		}
	}()

	pool, err := posdb.Connect(ctx, cfg.Pos, health)
	if err != nil {
		zap.S().Fatalf("Failed to connect to POS database: %s", err)
	}
	defer pool.Close()

	kodyClient, err := kody.NewHTTPClient(cfg.Kody.APIURL, cfg.Kody.APIKey, cfg.Kody.StoreID)
	if err != nil {
		zap.S().Fatalf("Failed to create Kody client: %s", err)
	}

	syncWorker := worker.NewOrderSyncWorker(
		kodyClient, posdb.NewWriter(pool), stateStore, cfg.Workers.OrderPollInterval)
	statusWorker := worker.NewOrderStatusUpdateWorker(
		kodyClient, posdb.NewReader(pool), stateStore,
		cfg.Workers.StatusPollInterval, cfg.Workers.StatusLookback)
	maintenanceWorker := worker.NewStateMaintenanceWorker(
		stateStore, cfg.StateDBPath,
		cfg.Workers.RetentionWindow, cfg.Workers.MaintenanceInterval)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		syncWorker.Run,
		statusWorker.Run,
		maintenanceWorker.Run,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}

	zap.S().Info("kp-order-sync started")
	wg.Wait()
	zap.S().Info("kp-order-sync stopped")
}

func initPrometheus() {
	metricsPath := "/metrics"
	metricsPort := ":2112"
	zap.S().Debugf("Setting up metrics %s %v", metricsPath, metricsPort)

	metrics.Register()
	http.Handle(metricsPath, promhttp.Handler())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(metricsPort, nil)
		if err != nil {
			zap.S().Errorf("Error starting metrics: %s", err)
		}
	}()
}

func initHealthCheck() healthcheck.Handler {
	zap.S().Debug("Starting healthcheck")
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000000))
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
	return health
}
