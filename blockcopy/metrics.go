package blockcopy

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	copyOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "karlbench",
			Subsystem: "blockcopy",
			Name:      "copy_operations_total",
			Help:      "Total number of block copies, by phase and outcome.",
		},
		[]string{"phase", "outcome"})
	copyDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "karlbench",
			Subsystem: "blockcopy",
			Name:      "copy_duration_seconds",
			Help:      "Amount of time spent per block copy, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		},
		[]string{"phase"})
	copyBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "karlbench",
			Subsystem: "blockcopy",
			Name:      "copy_bytes_total",
			Help:      "Total number of bytes moved by successful block copies.",
		},
		[]string{"phase"})
)

func init() {
	prometheus.MustRegister(copyOperationsTotal)
	prometheus.MustRegister(copyDurationSeconds)
	prometheus.MustRegister(copyBytesTotal)
}

type metricsCopier struct {
	base Copier
}

// NewMetricsCopier creates an adapter for Copier that records
// Prometheus metrics per phase label.
func NewMetricsCopier(base Copier) Copier {
	return &metricsCopier{base: base}
}

func (c *metricsCopier) Copy(ctx context.Context, req Request) (Stats, error) {
	timeStart := time.Now()
	stats, err := c.base.Copy(ctx, req)
	copyDurationSeconds.WithLabelValues(req.Label).Observe(time.Since(timeStart).Seconds())

	outcome := "success"
	switch {
	case err == nil:
		copyBytesTotal.WithLabelValues(req.Label).Add(float64(stats.BytesCopied))
	case errors.Is(err, ErrCopyFailed):
		outcome = "copy_failed"
	default:
		outcome = "error"
	}

	copyOperationsTotal.WithLabelValues(req.Label, outcome).Inc()

	return stats, err
}
