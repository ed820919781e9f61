package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the decode metrics of a Store. A nil *Metrics records
// nothing.
type Metrics struct {
	rowsDecoded    *prometheus.CounterVec
	decodeErrors   *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	decodeDuration *prometheus.HistogramVec
}

// NewMetrics creates the storage metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rowsDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablekv_rows_decoded_total",
				Help: "Total number of records decoded",
			},
			[]string{"table", "mode"},
		),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablekv_decode_errors_total",
				Help: "Total number of records that failed to decode",
			},
			[]string{"table", "mode"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablekv_records_rejected_total",
				Help: "Total number of records skipped by the version checks",
			},
			[]string{"table", "reason"},
		),
		decodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tablekv_decode_duration_seconds",
				Help:    "Record decode duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
			},
			[]string{"mode"},
		),
	}
}

func (m *Metrics) observe(table, mode string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.decodeDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		m.decodeErrors.WithLabelValues(table, mode).Inc()
		return
	}
	m.rowsDecoded.WithLabelValues(table, mode).Inc()
}

func (m *Metrics) reject(table, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(table, reason).Inc()
}
