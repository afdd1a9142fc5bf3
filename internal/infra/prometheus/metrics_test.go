package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sifan077/ResourceHub/config"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prom.NewRegistry()
	m := NewMetrics(reg)

	m.HTTPRequests.WithLabelValues("GET", "/resources", "200").Inc()
	m.StoreOperations.WithLabelValues("query", "ok").Add(2)

	if got := testutil.ToFloat64(m.StoreOperations.WithLabelValues("query", "ok")); got != 2 {
		t.Fatalf("expected 2 store operations, got %v", got)
	}
	if n := testutil.CollectAndCount(m.HTTPRequests); n != 1 {
		t.Fatalf("expected 1 http series, got %d", n)
	}
}

func TestNewServer_ServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	m := NewMetrics(reg)
	m.EnrichedResources.WithLabelValues("saved").Inc()

	srv := NewServer(config.PrometheusConfig{}, reg)
	if srv.Addr != ":9090" {
		t.Fatalf("expected default port, got %s", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `resourcehub_enriched_resources_total{outcome="saved"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
