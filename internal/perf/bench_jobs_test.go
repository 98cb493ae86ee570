package perf

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

type flakyVerifier struct {
	calls    int
	failEach int
	drifts   int
}

func (v *flakyVerifier) Verify(_ context.Context, org, wh int64) (inventory.VerifyReport, error) {
	v.calls++
	if v.failEach > 0 && v.calls%v.failEach == 0 {
		return inventory.VerifyReport{}, errors.New("statement timeout")
	}
	report := inventory.VerifyReport{OrganizationID: org, WarehouseID: wh, Movements: 1000, Entries: 40}
	for i := 0; i < v.drifts; i++ {
		report.Drifts = append(report.Drifts, inventory.Drift{
			Key:          inventory.Key{WarehouseID: wh, LocationID: int64(100 + i), GoodsModelID: 7},
			StoredOnhand: decimal.NewFromInt(1),
		})
	}
	return report, nil
}

func TestInventoryVerifyJobReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	verifier := &flakyVerifier{failEach: 20, drifts: 1}
	job := &jobs.InventoryVerifyJob{Verifier: verifier, Metrics: metrics}

	task, err := jobs.NewInventoryVerifyTask(jobs.InventoryVerifyPayload{OrganizationID: 1, WarehouseID: 10})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	failures := 0
	for i := 0; i < 60; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			failures++
		}
	}
	if failures != 3 {
		t.Fatalf("expected 3 failed runs, got %d", failures)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": jobs.TaskInventoryVerify, "status": "success"})
	failure := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": jobs.TaskInventoryVerify, "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("verify job success ratio too low: %f", ratio)
	}

	drifts := metricValue(t, families, "odyssey_ledger_verify_drifts_total", map[string]string{"organization": "1", "warehouse": "10"})
	if drifts != success {
		t.Fatalf("expected one drift per successful run, got %f over %f runs", drifts, success)
	}

	if mean := histogramMean(t, families, "odyssey_job_duration_seconds", map[string]string{"job": jobs.TaskInventoryVerify}); mean > 0.5 {
		t.Fatalf("verify duration above budget: %f", mean)
	}
}

func BenchmarkInventoryVerifyJob(b *testing.B) {
	job := &jobs.InventoryVerifyJob{Verifier: &flakyVerifier{drifts: 5}, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}
	task, err := jobs.NewInventoryVerifyTask(jobs.InventoryVerifyPayload{OrganizationID: 1})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			b.Fatal(err)
		}
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
