// Package metrics provides Prometheus metrics for the classification pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a pipeline
type Metrics struct {
	DocumentsIngested *prometheus.CounterVec
	ParseFailures     *prometheus.CounterVec
	Predictions       *prometheus.CounterVec

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	VocabularySize prometheus.Gauge
	DatasetSize    *prometheus.GaugeVec
}

// NewMetrics creates the metrics and registers them on reg. A nil reg
// gets a fresh private registry so several pipelines can coexist.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpclass_documents_ingested_total",
				Help: "Total number of documents added to the dataset",
			},
			[]string{"file_type"},
		),
		ParseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpclass_parse_failures_total",
				Help: "Total number of files that could not be parsed",
			},
			[]string{"file_type"},
		),
		Predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpclass_predictions_total",
				Help: "Total number of file predictions by outcome",
			},
			[]string{"outcome"},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpclass_operations_total",
				Help: "Total number of pipeline operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tpclass_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"operation"},
		),
		VocabularySize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tpclass_vocabulary_terms",
				Help: "Number of terms in the active vocabulary",
			},
		),
		DatasetSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tpclass_dataset_documents",
				Help: "Number of documents held, by partition",
			},
			[]string{"partition"},
		),
	}
}

// RecordOperation counts an operation and observes its duration.
func (m *Metrics) RecordOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordPrediction counts one file prediction.
func (m *Metrics) RecordPrediction(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "parse_failure"
	}
	m.Predictions.WithLabelValues(outcome).Inc()
}

// SetDatasetSizes updates the per-partition document gauges.
func (m *Metrics) SetDatasetSizes(unpartitioned, training, test int) {
	m.DatasetSize.WithLabelValues("none").Set(float64(unpartitioned))
	m.DatasetSize.WithLabelValues("training").Set(float64(training))
	m.DatasetSize.WithLabelValues("test").Set(float64(test))
}
