package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg, "elections")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	r.ObserveImport("wabstic_majorz", core.OutcomeCommitted, 200*time.Millisecond)
	r.ObserveImport("wabstic_majorz", core.OutcomeRejected, time.Second)
	r.ObserveImport("sesam_proporz", core.OutcomeCommitted, time.Second)
	r.CountErrors(core.KindLine, 3)
	r.CountErrors(core.KindLine, 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "|" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				got[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				got[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	want := map[string]float64{
		"elections_imports_total|wabstic_majorz|committed": 1,
		"elections_imports_total|wabstic_majorz|rejected":  1,
		"elections_imports_total|sesam_proporz|committed":  1,
		"elections_import_errors_total|line":               5,
		"elections_import_duration_seconds|wabstic_majorz": 2,
		"elections_import_duration_seconds|sesam_proporz":  1,
	}
	for key, v := range want {
		if got[key] != v {
			t.Errorf("%s = %v, want %v", key, got[key], v)
		}
	}
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg, ""); err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	if _, err := NewRecorder(reg, ""); err == nil {
		t.Error("expected an error registering the metrics twice")
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg, "")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	r.ObserveImport("internal_vote", core.OutcomeFailed, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `imports_total{format="internal_vote",outcome="failed"} 1`) {
		t.Errorf("metric missing from output:\n%s", rec.Body.String())
	}
}
