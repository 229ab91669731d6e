package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "retention",
		DurationBuckets: []float64{0.1, 1, 10},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if collector.Registry() == nil {
		t.Fatal("Expected a registry to be created")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace || cfg.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("Expected default namespace and subsystem, got %q/%q", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.DurationBuckets) == 0 {
		t.Error("Expected default duration buckets")
	}
}

func TestCollector_RecordDeletionRun(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordDeletionRun(OutcomeSuccess, 120, 2*time.Second)
	collector.RecordDeletionRun(OutcomePartial, 30, time.Second)
	collector.RecordDeletionBatch(OutcomeSuccess)
	collector.RecordDeletionBatch(OutcomeSuccess)
	collector.RecordDeletionBatch(OutcomeFailure)

	dm := collector.deletionMetrics
	if got := testutil.ToFloat64(dm.eventsDeleted); got != 150 {
		t.Errorf("Expected 150 deleted events, got %v", got)
	}
	if got := testutil.ToFloat64(dm.runsTotal.WithLabelValues(OutcomePartial)); got != 1 {
		t.Errorf("Expected 1 partial run, got %v", got)
	}
	if got := testutil.ToFloat64(dm.batchesTotal.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("Expected 2 successful batches, got %v", got)
	}
	if got := testutil.CollectAndCount(dm.runDuration); got != 1 {
		t.Errorf("Expected 1 duration series, got %d", got)
	}
}

func TestCollector_RecordScanAndPostpone(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordScan(40, 12, 100*time.Millisecond)
	collector.RecordScan(7, 3, 100*time.Millisecond)
	collector.RecordPostponed(5)
	collector.RecordPurge(9)

	dm := collector.deletionMetrics
	if got := testutil.ToFloat64(dm.eligibleEvents); got != 7 {
		t.Errorf("Expected eligible gauge 7, got %v", got)
	}
	if got := testutil.ToFloat64(dm.eventsMarked); got != 15 {
		t.Errorf("Expected 15 marked events, got %v", got)
	}
	if got := testutil.ToFloat64(dm.eventsPostponed); got != 5 {
		t.Errorf("Expected 5 postponed events, got %v", got)
	}
	if got := testutil.ToFloat64(dm.eventsPurged); got != 9 {
		t.Errorf("Expected 9 purged events, got %v", got)
	}
}

func TestCollector_RecordExport(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordExport("csv", OutcomeSuccess, 10, 2048)
	collector.RecordExport("csv", OutcomeFailure, 10, 0)
	collector.RecordExport("xlsx", OutcomeSuccess, 5, 8192)

	em := collector.exportMetrics
	if got := testutil.ToFloat64(em.exportsTotal.WithLabelValues("csv", OutcomeFailure)); got != 1 {
		t.Errorf("Expected 1 failed csv export, got %v", got)
	}
	if got := testutil.ToFloat64(em.eventsExported.WithLabelValues("csv")); got != 10 {
		t.Errorf("Expected failed export not to count events, got %v", got)
	}
	if got := testutil.CollectAndCount(em.exportSize); got != 2 {
		t.Errorf("Expected 2 size series, got %d", got)
	}
}

func TestCollector_AlertsAndRecorder(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordAlertRaised("retention_warning")
	collector.RecordAlertTransition("acknowledged")
	collector.RecordChecksumVerification(true)
	collector.RecordChecksumVerification(false)
	collector.RecordRecorderWrite(OutcomeSuccess)
	collector.RecordRecorderDropped()

	if got := testutil.ToFloat64(collector.alertMetrics.raisedTotal.WithLabelValues("retention_warning")); got != 1 {
		t.Errorf("Expected 1 raised alert, got %v", got)
	}
	if got := testutil.ToFloat64(collector.alertMetrics.verificationsTotal.WithLabelValues("false")); got != 1 {
		t.Errorf("Expected 1 failed verification, got %v", got)
	}
	if got := testutil.ToFloat64(collector.recorderMetrics.droppedTotal); got != 1 {
		t.Errorf("Expected 1 dropped entry, got %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordDeletionRun(OutcomeSuccess, 10, time.Second)
	collector.RecordRecorderDropped()

	if got := testutil.ToFloat64(collector.deletionMetrics.eventsDeleted); got != 0 {
		t.Errorf("Expected no deletions recorded when disabled, got %v", got)
	}
	if got := testutil.ToFloat64(collector.recorderMetrics.droppedTotal); got != 0 {
		t.Errorf("Expected no drops recorded when disabled, got %v", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var collector *Collector
	collector.RecordDeletionRun(OutcomeSuccess, 1, time.Second)
	collector.RecordExport("json", OutcomeSuccess, 1, 1)
	collector.RecordAlertRaised("export_ready")
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordDeletionRun(OutcomeSuccess, 3, time.Second)

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "test_retention_events_deleted_total 3") {
		t.Errorf("Expected deleted counter in scrape output, got:\n%s", body)
	}
}

func TestCollector_NewServer(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	srv := collector.NewServer("127.0.0.1:0", "/metrics")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from metrics path, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 from other path, got %d", rec.Code)
	}
}
