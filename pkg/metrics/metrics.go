package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesTotal      *prometheus.CounterVec
	ProbeDuration    *prometheus.HistogramVec
	UnitsReported    *prometheus.CounterVec
	UrlsRemovedTotal prometheus.Counter
	CycleUnits       *prometheus.GaugeVec

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		ProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probes_total",
				Help: "Total number of URL validation probes.",
			},
			[]string{"outcome"}, // valid, redirected, invalid
		)

		ProbeDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probe_duration_seconds",
				Help:    "Duration of URL validation probes.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"country"},
		)

		UnitsReported = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "country_units_reported_total",
				Help: "Country units reported per terminal status.",
			},
			[]string{"status"}, // completed, failed
		)

		UrlsRemovedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "urls_removed_total",
				Help: "URLs removed after two consecutive failed validations.",
			},
		)

		CycleUnits = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cycle_units",
				Help: "Units of the current cycle by status.",
			},
			[]string{"status"},
		)
	})
}

// SetCycleProgress refreshes the per-status unit gauges from a snapshot.
func SetCycleProgress(completed, processing, pending, failed int) {
	CycleUnits.WithLabelValues("completed").Set(float64(completed))
	CycleUnits.WithLabelValues("processing").Set(float64(processing))
	CycleUnits.WithLabelValues("pending").Set(float64(pending))
	CycleUnits.WithLabelValues("failed").Set(float64(failed))
}
