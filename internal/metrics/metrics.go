// Package metrics counts extraction results with Prometheus collectors on a
// private registry and dumps them in the text exposition format.
package metrics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	reg *prometheus.Registry

	Records  *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Skipped  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_records_total",
			Help: "Records written per artifact",
		}, []string{"artifact"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_failures_total",
			Help: "Extractor runs that failed",
		}, []string{"artifact"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evtx_skipped_records_total",
			Help: "Event records that could not be decoded",
		}, []string{"log"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artifact_duration_seconds",
			Help:    "Extractor run time",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"artifact"}),
	}
	m.reg.MustRegister(m.Records, m.Failures, m.Skipped, m.Duration)
	return m
}

// Observe records one extractor run.
func (m *Metrics) Observe(artifact string, records int, took time.Duration, err error) {
	if err != nil {
		m.Failures.WithLabelValues(artifact).Inc()
	}
	m.Records.WithLabelValues(artifact).Add(float64(records))
	m.Duration.WithLabelValues(artifact).Observe(took.Seconds())
}

// SkippedRecord counts an undecodable record of an event log.
func (m *Metrics) SkippedRecord(log string) {
	m.Skipped.WithLabelValues(log).Inc()
}

// Text renders every collector in the text exposition format.
func (m *Metrics) Text() ([]byte, error) {
	families, err := m.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// WriteFile stores the text rendering at path.
func (m *Metrics) WriteFile(fs afero.Fs, path string) error {
	data, err := m.Text()
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
