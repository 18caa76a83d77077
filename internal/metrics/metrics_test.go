package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotentAndHelpersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	ObserveRefresh("quickchart", "success", 0.2)
	ObserveRefresh("quickchart", "failed", 1.5)
	IncDropped()
	SetLastSuccess(1700000000)
	SetState("ready")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"datacycle_cycle_refreshes_total":                false,
		"datacycle_cycle_refresh_duration_seconds":       false,
		"datacycle_cycle_dropped_refreshes_total":        false,
		"datacycle_cycle_last_success_timestamp_seconds": false,
		"datacycle_cycle_current_state":                  false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", n)
			}
		}
		if n == "datacycle_cycle_current_state" {
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				want := 0.0
				if label == "ready" {
					want = 1
				}
				if got := m.GetGauge().GetValue(); got != want {
					t.Fatalf("state %s = %v, want %v", label, got, want)
				}
			}
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}

	srv := httptest.NewServer(HandlerFor(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `datacycle_cycle_refreshes_total{outcome="success",source="quickchart"} 1`) {
		t.Fatalf("scrape output missing success counter:\n%s", body)
	}
}
