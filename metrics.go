package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics counts annotation operations. It satisfies annotate.Recorder.
type metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	pinsLoaded prometheus.Gauge
	pinsDrop   prometheus.Counter
	loadErrors prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinmap_operations_total",
			Help: "Annotation operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		pinsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pinmap_pins_loaded",
			Help: "Pins in the most recent successful load.",
		}),
		pinsDrop: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_pin_rows_dropped_total",
			Help: "Source rows skipped because they could not be mapped to a pin.",
		}),
		loadErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_pin_load_errors_total",
			Help: "Failed pin loads.",
		}),
	}
}

func (m *metrics) Record(op, outcome string) {
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *metrics) pinsLoadedResult(msg pinsLoadedMsg) {
	if msg.err != nil {
		m.loadErrors.Inc()
		return
	}
	m.pinsLoaded.Set(float64(len(msg.pins)))
	m.pinsDrop.Add(float64(msg.dropped))
}

// serve exposes /metrics on addr until ctx ends. An empty addr disables it.
func (m *metrics) serve(ctx context.Context, addr string, log *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "err", err)
		}
	}()
}
