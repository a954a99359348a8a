package prom

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"carveout/internal/core"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func counterValue(f *dto.MetricFamily, labels map[string]string) float64 {
	for _, m := range f.GetMetric() {
		match := true
		for _, lp := range m.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
				match = false
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorderCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.Observe(context.Background(), "run_cmd", true, time.Millisecond)
	r.Observe(context.Background(), "run_cmd", true, time.Millisecond)
	r.Observe(context.Background(), "run_cmd", false, time.Millisecond)

	families := gather(t, reg)
	ops := families["carveout_content_manager_operations_total"]
	if ops == nil {
		t.Fatalf("operations counter not registered")
	}
	if got := counterValue(ops, map[string]string{"operation": "run_cmd", "status": "success"}); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := counterValue(ops, map[string]string{"operation": "run_cmd", "status": "error"}); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	hist := families["carveout_content_manager_operation_duration_seconds"]
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 3 {
		t.Fatalf("expected 3 duration samples, got %+v", hist)
	}
}

func TestRecorderWiredIntoManager(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := core.NewContentManager(core.WithMetricsRecorder(NewRecorder(reg)))
	m.UndoCmd()
	ops := gather(t, reg)["carveout_content_manager_operations_total"]
	if got := counterValue(ops, map[string]string{"operation": "undo_cmd", "status": "success"}); got != 1 {
		t.Fatalf("expected undo to be counted, got %v", got)
	}
}

func TestRecorderDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	NewRecorder(reg)
}
