package prometheus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goShop "github.com/MrEthical07/goShop"
)

type fakeSource struct {
	snapshot goShop.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goShop.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: goShop.MetricsSnapshot{
			Counters:   map[goShop.MetricID]uint64{},
			Histograms: map[goShop.MetricID][]uint64{},
		},
	})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
	if (*Exporter)(nil).Render() != "" {
		t.Fatalf("nil exporter must render nothing")
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: goShop.MetricsSnapshot{
			Counters: map[goShop.MetricID]uint64{
				goShop.MetricRefreshSuccess: 7,
				goShop.MetricRetry:          7,
			},
			Histograms: map[goShop.MetricID][]uint64{
				goShop.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"goshop_refresh_success_total 7",
		"goshop_retry_total 7",
		"goshop_session_expired_total 0",
		`goshop_request_latency_seconds_bucket{le="0.005"} 1`,
		`goshop_request_latency_seconds_bucket{le="+Inf"} 36`,
		"goshop_request_latency_seconds_count 36",
		"goshop_audit_dropped_total 2",
		"# TYPE goshop_request_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerServesClientMetrics(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]goShop.Category{{ID: 1, Name: "Books"}})
	}))
	defer api.Close()

	client, err := goShop.New().WithBaseURL(api.URL).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer client.Close()
	if _, err := client.Categories(context.Background()); err != nil {
		t.Fatalf("categories: %v", err)
	}

	rec := httptest.NewRecorder()
	New(client).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "goshop_request_total 1") {
		t.Fatalf("expected one request in output, got:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "goshop_cache_miss_total 1") {
		t.Fatalf("expected one cache miss in output, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewFromSource(fakeSource{
		snapshot: goShop.MetricsSnapshot{
			Counters: map[goShop.MetricID]uint64{
				goShop.MetricRequest:        1000,
				goShop.MetricUnauthorized:   40,
				goShop.MetricRefreshSuccess: 38,
				goShop.MetricRefreshFailure: 2,
				goShop.MetricCacheHit:       600,
				goShop.MetricCacheMiss:      400,
			},
			Histograms: map[goShop.MetricID][]uint64{
				goShop.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
