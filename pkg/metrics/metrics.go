package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry agrupa las métricas de ingesta expuestas en /metrics.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal            *prometheus.CounterVec // por estado: ok, empty, failed
	RowsLoadedTotal      prometheus.Counter
	WarehousesEmptyTotal prometheus.Counter
	RunDurationSec       prometheus.Histogram
}

// NewRegistry construye un registro propio (sin colectores globales).
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecount_sync_runs_total",
		Help: "Ejecuciones de ingesta por estado final",
	}, []string{"status"})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecount_sync_rows_loaded_total",
		Help: "Filas cargadas al destino",
	})
	empty := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecount_sync_warehouses_empty_total",
		Help: "Bodegas sin saldos para la fecha consultada",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecount_sync_run_duration_seconds",
		Help:    "Duración de cada ejecución de ingesta",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(runs, rows, empty, duration)
	return &Registry{
		reg:                  r,
		RunsTotal:            runs,
		RowsLoadedTotal:      rows,
		WarehousesEmptyTotal: empty,
		RunDurationSec:       duration,
	}
}

// Handler expone el registro en formato Prometheus.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
