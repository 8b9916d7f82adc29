// Package observability — metrics.go
//
// Prometheus metrics for mckverify.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only — no external exposure.
//
// Metric naming convention: mckverify_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onderjan/machine-check-sub001/internal/framework"
)

// Metrics holds all Prometheus metric descriptors for mckverify.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Verification runs ───────────────────────────────────────────────────

	// RunsTotal counts completed Verify calls, by verdict (true, false,
	// incomplete).
	RunsTotal *prometheus.CounterVec

	// RunDuration records wall-clock verification latency.
	RunDuration prometheus.Histogram

	// ─── Refinement (per run, observed after VerifyProperty returns) ────────

	// RefinementsHistogram records how many refinement rounds a run took.
	RefinementsHistogram prometheus.Histogram

	// GeneratedStates/FinalStates record the state-space bookkeeping of
	// framework.Stats across runs.
	GeneratedStates prometheus.Histogram
	FinalStates     prometheus.Histogram

	// GeneratedTransitions/FinalTransitions mirror the above for edges.
	GeneratedTransitions prometheus.Histogram
	FinalTransitions     prometheus.Histogram

	// FixedPointIterations records the outer Kleene iteration count of the
	// final Evaluate call in a run.
	FixedPointIterations prometheus.Histogram

	// ─── Runcache ─────────────────────────────────────────────────────────────

	// RuncacheHitsTotal/RuncacheMissesTotal count runcache lookups.
	RuncacheHitsTotal   prometheus.Counter
	RuncacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers all mckverify Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mckverify",
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total VerifyProperty calls, by verdict (true, false, incomplete).",
		}, []string{"verdict"}),

		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a VerifyProperty call.",
			Buckets:   prometheus.DefBuckets,
		}),

		RefinementsHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "framework",
			Name:      "refinements",
			Help:      "Number of refinement rounds performed by a run.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),

		GeneratedStates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "framework",
			Name:      "generated_states",
			Help:      "Total states generated across every regenerate call in a run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),

		FinalStates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "framework",
			Name:      "final_states",
			Help:      "State count of the final space a run converged on.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),

		GeneratedTransitions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "framework",
			Name:      "generated_transitions",
			Help:      "Total transitions generated across every regenerate call in a run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),

		FinalTransitions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "framework",
			Name:      "final_transitions",
			Help:      "Transition count of the final space a run converged on.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),

		FixedPointIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mckverify",
			Subsystem: "framework",
			Name:      "fixed_point_iterations",
			Help:      "Outer Kleene iteration count of a run's final Evaluate call.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),

		RuncacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mckverify",
			Subsystem: "runcache",
			Name:      "hits_total",
			Help:      "Total runcache lookups that found a memoized result.",
		}),

		RuncacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mckverify",
			Subsystem: "runcache",
			Name:      "misses_total",
			Help:      "Total runcache lookups that found nothing memoized.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RefinementsHistogram,
		m.GeneratedStates,
		m.FinalStates,
		m.GeneratedTransitions,
		m.FinalTransitions,
		m.FixedPointIterations,
		m.RuncacheHitsTotal,
		m.RuncacheMissesTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRun records one completed VerifyProperty call's stats and
// wall-clock duration.
func (m *Metrics) ObserveRun(verdict string, duration time.Duration, stats framework.Stats) {
	m.RunsTotal.WithLabelValues(verdict).Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.RefinementsHistogram.Observe(float64(stats.Refinements))
	m.GeneratedStates.Observe(float64(stats.GeneratedStates))
	m.FinalStates.Observe(float64(stats.FinalStates))
	m.GeneratedTransitions.Observe(float64(stats.GeneratedTransitions))
	m.FinalTransitions.Observe(float64(stats.FinalTransitions))
	m.FixedPointIterations.Observe(float64(stats.FixedPointIterations))
}

// ServeMetrics starts the Prometheus HTTP metrics server on the given
// address. Blocks until ctx is cancelled or the server fails.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}
