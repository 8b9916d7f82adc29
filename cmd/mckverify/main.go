// Command mckverify is a thin demonstration driver over the built-in
// example machines (the counter and divider scenarios). It loads a
// run manifest, builds the named machine, verifies the configured property
// against it, and reports the verdict and statistics. It is not a BTOR2
// front end and does not attempt to be one.
//
// Startup sequence:
//  1. Load and validate the run manifest from --config.
//  2. Initialise structured logger (zap, console or JSON per manifest).
//  3. Resolve the named machine.
//  4. Open the runcache (bbolt) if enabled.
//  5. Check the runcache for a memoized result; on miss, run Verify.
//  6. Record the result in the runcache and in Prometheus metrics.
//  7. Start the metrics server (if configured) and print the verdict.
//  8. If the metrics server is running, block on SIGINT/SIGTERM so an
//     operator can scrape the run's metrics before the process exits.
//
// On manifest validation failure or an unrecognised machine name: exit 1
// immediately.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/onderjan/machine-check-sub001/internal/config"
	machinepkg "github.com/onderjan/machine-check-sub001/internal/machine"
	"github.com/onderjan/machine-check-sub001/internal/observability"
	"github.com/onderjan/machine-check-sub001/internal/runcache"
	"github.com/onderjan/machine-check-sub001/verify"
)

func main() {
	configPath := flag.String("config", "mckverify.yaml", "path to the run manifest")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("mckverify %s (commit=%s built=%s)\n", config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}

	cfg, err := loadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("mckverify starting",
		zap.String("version", config.Version),
		zap.String("machine", cfg.Machine),
		zap.String("property", cfg.Property),
	)

	m, err := resolveMachine(cfg.Machine)
	if err != nil {
		log.Fatal("unrecognised machine", zap.Error(err))
	}

	var cache *runcache.Cache
	if cfg.Runcache.Enabled {
		cache, err = runcache.Open(cfg.Runcache.DBPath)
		if err != nil {
			log.Warn("runcache open failed — proceeding without it", zap.Error(err))
		} else {
			defer cache.Close() //nolint:errcheck
		}
	}

	metrics := observability.NewMetrics()

	strategy := verify.Strategy{
		NaiveInputs: cfg.Strategy.NaiveInputs,
		UseDecay:    cfg.Strategy.UseDecay,
	}
	key := runcache.Key(cfg.Machine, cfg.Property, strategy)

	var verdict bool
	var stats verify.Stats
	var verifyErr error

	cachedHit := false
	if cache != nil {
		if cached, hit, err := cache.Get(key); err != nil {
			log.Warn("runcache lookup failed", zap.Error(err))
		} else if hit {
			metrics.RuncacheHitsTotal.Inc()
			verdict, stats = cached.Verdict, cached.Stats
			cachedHit = true
			log.Info("runcache hit", zap.Time("cached_at", cached.CachedAt))
		} else {
			metrics.RuncacheMissesTotal.Inc()
		}
	}

	if !cachedHit {
		start := time.Now()
		verdict, stats, verifyErr = verify.Verify(m, cfg.Property, strategy, log)
		duration := time.Since(start)

		verdictLabel := "true"
		if verifyErr != nil {
			verdictLabel = "incomplete"
		} else if !verdict {
			verdictLabel = "false"
		}
		metrics.ObserveRun(verdictLabel, duration, stats)

		if verifyErr == nil && cache != nil {
			if err := cache.Put(key, runcache.Result{Verdict: verdict, Stats: stats}); err != nil {
				log.Warn("runcache write failed", zap.Error(err))
			}
		}
	}

	if verifyErr != nil {
		log.Error("verification did not reach a verdict", zap.Error(verifyErr))
		fmt.Fprintf(os.Stderr, "INCOMPLETE: %v\n", verifyErr)
		reportStats(stats)
		maybeServeMetrics(log, metrics, cfg.Observability.MetricsAddr)
		os.Exit(1)
	}

	fmt.Printf("%s holds: %t\n", cfg.Property, verdict)
	reportStats(stats)
	maybeServeMetrics(log, metrics, cfg.Observability.MetricsAddr)
}

func reportStats(stats verify.Stats) {
	fmt.Printf("refinements=%d generated_states=%d final_states=%d generated_transitions=%d final_transitions=%d fixed_point_iterations=%d\n",
		stats.Refinements, stats.GeneratedStates, stats.FinalStates,
		stats.GeneratedTransitions, stats.FinalTransitions, stats.FixedPointIterations)
}

// maybeServeMetrics starts the metrics server and blocks on SIGINT/SIGTERM
// so an operator can scrape the run's metrics before the process exits. A
// disabled metrics address (empty string) skips serving entirely — the CLI
// is a one-shot driver, not a daemon.
func maybeServeMetrics(log *zap.Logger, metrics *observability.Metrics, addr string) {
	if addr == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := metrics.ServeMetrics(ctx, addr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started — scrape before interrupting", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")
}

// loadOrDefault loads the manifest at path, falling back to Defaults() if
// the file does not exist (so mckverify runs out of the box with no
// manifest present, exercising the counter scenario).
func loadOrDefault(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Defaults()
		return &cfg, nil
	}
	return config.Load(path)
}

func resolveMachine(name string) (machinepkg.Machine, error) {
	switch name {
	case "counter":
		return machinepkg.NewCounter(), nil
	case "divider":
		return machinepkg.NewDivider(), nil
	default:
		return nil, fmt.Errorf("unknown machine %q", name)
	}
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
