// Package metrics exposes the process's Prometheus instrumentation and
// a small ops HTTP server (/metrics, /healthz).
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts completed polling ticks per PLC engine by status.
	//
	// Labels:
	//   - plc: engine name
	//   - status: ok, db_error
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xelips_poll_ticks_total",
			Help: "Total number of polling ticks completed, by status",
		},
		[]string{"plc", "status"},
	)

	// TickDuration observes wall-clock time spent per tick (reads,
	// grouping, and the batch write), before the pacing sleep.
	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xelips_poll_tick_duration_seconds",
			Help:    "Duration of a polling tick's read+group+write work",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"plc"},
	)

	// BatchRowsTotal counts rows written per table per tick.
	BatchRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xelips_poll_batch_rows_total",
			Help: "Total rows inserted by the polling pipeline, by table",
		},
		[]string{"plc", "table"},
	)

	// AlarmEventsTotal counts alarm lifecycle transitions actually
	// written to the database.
	//
	// Labels:
	//   - transition: raise, ack, clear
	AlarmEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xelips_alarm_events_total",
			Help: "Total alarm lifecycle transitions written, by transition",
		},
		[]string{"plc", "transition"},
	)

	// SessionAlive reports 1 when an engine's OPC UA session is usable.
	SessionAlive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xelips_session_alive",
			Help: "1 if the OPC UA session is currently alive, else 0",
		},
		[]string{"plc"},
	)

	// RegistryReloadsTotal counts node-registry hot-reload outcomes.
	RegistryReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xelips_registry_reloads_total",
			Help: "Total node-registry reload attempts, by status",
		},
		[]string{"plc", "status"},
	)

	// DBErrorsTotal counts DB gateway failures by operation.
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xelips_db_errors_total",
			Help: "Total DB gateway errors, by operation",
		},
		[]string{"plc", "operation"},
	)
)

// NewServer builds the ops HTTP server exposing /metrics and /healthz.
func NewServer(addr string) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Shutdown gracefully stops srv, bounding the wait by ctx.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
