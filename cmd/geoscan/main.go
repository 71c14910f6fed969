package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geoscan/internal/api"
	"geoscan/pkg/assist"
	"geoscan/pkg/config"
	"geoscan/pkg/core"
	"geoscan/pkg/db"
	"geoscan/pkg/energy"
	"geoscan/pkg/logging"
	"geoscan/pkg/metrics"
	"geoscan/pkg/probe"
	"geoscan/pkg/radio"
	"geoscan/pkg/region"
	"geoscan/pkg/scan"
	"geoscan/pkg/store"
	"geoscan/pkg/tracker"
	"geoscan/pkg/version"
)

const defaultConfigPath = "configs/geoscan.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("GeoScan Started", "version", version.Version, "region", appCfg.LoRaWAN.Region)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if n, err := dbConn.PruneBundles(time.Duration(appCfg.DB.Retention)); err != nil {
		slog.Error("Bundle pruning failed", "error", err)
	} else if n > 0 {
		slog.Info("Pruned old bundles", "count", n)
	}

	prov := config.NewProvider(appCfg, st)
	profile, err := region.Lookup(prov.Region(ctx))
	if err != nil {
		return fmt.Errorf("invalid LoRaWAN region: %w", err)
	}
	logRegionProfile(profile)

	r, recoverRadio, err := initRadio(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize radio: %w", err)
	}

	// Startup Probes
	results := probe.Run(ctx, []probe.Probe{probe.Database(st), probe.Radio(r)})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	assistMgr, err := assist.NewManager(appCfg.Assistance, st, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize assistance position: %w", err)
	}
	if err := assistMgr.Restore(ctx); err != nil {
		slog.Warn("Failed to restore assistance position", "error", err)
	}

	comps, err := setupScheduler(ctx, appCfg, prov, r, recoverRadio, st, assistMgr)
	if err != nil {
		return err
	}
	defer comps.Stream.Close()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- comps.Scheduler.Supervise(ctx)
	}()

	// Server
	return runServer(ctx, appCfg, prov, st, assistMgr, comps, schedErr)
}

// logRegionProfile publishes the retransmission policy the MAC layer applies.
func logRegionProfile(p region.Profile) {
	slog.Info("LoRaWAN regional profile", "region", p.Region, "nb_trans", p.CustomNbTrans, "adr_custom_list", fmt.Sprint(p.ADRCustomList))
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// SchedulerComponents are the scheduler and the collaborators the API reads from.
type SchedulerComponents struct {
	Scheduler *core.Scheduler
	Energy    *energy.Accountant
	Tracker   *tracker.Tracker
	Latest    *core.LatestBundle
	Stream    *api.StreamHandler
	Registry  *prometheus.Registry
}

func setupScheduler(ctx context.Context, cfg *config.Config, prov config.Provider, r radio.Radio, recoverRadio func(context.Context) error, st store.Store, assistMgr *assist.Manager) (*SchedulerComponents, error) {
	gc, err := core.GroupConfigFrom(ctx, prov)
	if err != nil {
		return nil, fmt.Errorf("invalid scan group config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promObs, err := metrics.NewObserver(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	comps := &SchedulerComponents{
		Energy:   energy.NewAccountant(),
		Tracker:  tracker.New(),
		Latest:   &core.LatestBundle{},
		Stream:   api.NewStreamHandler(slog.Default()),
		Registry: reg,
	}

	mobile := cfg.ScanGroup.Mobile
	archive := core.NewArchive(st)
	sched, err := core.NewScheduler(gc, core.Deps{
		Assistance: assistMgr,
		Energy:     comps.Energy,
		Consumer:   core.Consumers{comps.Latest, archive, comps.Stream},
		Observer:   core.Observers{comps.Tracker, promObs, archive},
		Policy:     core.NewDistancePolicy(mobile.Distance.Meters(), time.Duration(mobile.MinPeriod)),
		Clock:      scan.SystemClock{},
		Logger:     slog.Default(),
		Recover:    recoverRadio,
	})
	if err != nil {
		return nil, err
	}

	jobs, err := core.NewScanJobs(cfg, gc.Order, r, scan.SystemClock{}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("invalid scan settings: %w", err)
	}
	for _, j := range jobs {
		sched.AddJob(j)
	}
	comps.Scheduler = sched
	return comps, nil
}

func runServer(ctx context.Context, cfg *config.Config, prov config.Provider, st store.Store, assistMgr *assist.Manager, comps *SchedulerComponents, schedErr <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	var metricsH http.Handler
	if cfg.Metrics.Enabled {
		metricsH = promhttp.HandlerFor(comps.Registry, promhttp.HandlerOpts{})
	}

	srv := api.NewServer(cfg.Server.Address,
		api.NewStatusHandler(comps.Scheduler, prov, comps.Energy, st),
		api.NewConfigHandler(prov, comps.Scheduler),
		api.NewStatsHandler(comps.Tracker),
		api.NewAssistanceHandler(assistMgr),
		api.NewBundleHandler(comps.Latest, st),
		comps.Stream,
		cfg.Metrics.Path,
		metricsH,
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit, schedErr)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal, schedErr <-chan error) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	var runErr error
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	case err := <-schedErr:
		if err != nil {
			runErr = fmt.Errorf("scheduler failed: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Trace(slog.Default(), "Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
