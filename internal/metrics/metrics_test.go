package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordOperation("train", time.Now(), nil)
	m.RecordOperation("train", time.Now(), errors.New("boom"))
	m.RecordOperation("train", time.Now(), nil)

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("train", "success")); got != 2 {
		t.Errorf("success count = %v", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("train", "error")); got != 1 {
		t.Errorf("error count = %v", got)
	}
}

func TestPredictionsAndSizes(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordPrediction(true)
	m.RecordPrediction(false)
	m.RecordPrediction(false)
	m.SetDatasetSizes(0, 8, 2)

	if got := testutil.ToFloat64(m.Predictions.WithLabelValues("parse_failure")); got != 2 {
		t.Errorf("parse failures = %v", got)
	}
	if got := testutil.ToFloat64(m.DatasetSize.WithLabelValues("training")); got != 8 {
		t.Errorf("training size = %v", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two pipelines in one process must not collide on registration.
	NewMetrics(nil)
	NewMetrics(nil)

	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration on one registry to panic")
		}
	}()
	NewMetrics(reg)
}
