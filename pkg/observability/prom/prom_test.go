package prom

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/volvulus/untwist/pkg/observability"
)

func TestCollectorPipeline(t *testing.T) {
	ctx := context.Background()
	c := New("test")

	c.OnDecodeComplete(ctx, 100, 3, time.Millisecond, nil)
	c.OnDecodeComplete(ctx, 5, 0, time.Millisecond, errors.New("bad"))
	c.OnBuildComplete(ctx, 3, 2, 4, time.Millisecond, nil)
	c.OnValidateComplete(ctx, 0, 2, time.Millisecond)
	c.OnProjectComplete(ctx, 3, 2, time.Millisecond)
	c.OnLoadRejected(ctx)
	c.OnLoadComplete(ctx, observability.StatusSuccess, time.Second)
	c.OnLoadComplete(ctx, observability.StatusFailure, time.Second)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"decode errors", testutil.ToFloat64(c.StageErrors.WithLabelValues("decode")), 1},
		{"build errors", testutil.ToFloat64(c.StageErrors.WithLabelValues("build")), 0},
		{"notices", testutil.ToFloat64(c.Notices), 4},
		{"warnings", testutil.ToFloat64(c.Findings.WithLabelValues("warning")), 2},
		{"nodes", testutil.ToFloat64(c.GraphNodes), 3},
		{"edges", testutil.ToFloat64(c.GraphEdges), 2},
		{"rejected", testutil.ToFloat64(c.LoadsRejected), 1},
		{"success", testutil.ToFloat64(c.Loads.WithLabelValues("success")), 1},
		{"failure", testutil.ToFloat64(c.Loads.WithLabelValues("failure")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorCacheAndHTTP(t *testing.T) {
	ctx := context.Background()
	c := New("test")

	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "artifact", 10)
	c.OnResponse(ctx, "POST", "/api/load", 409, time.Millisecond)

	if got := testutil.ToFloat64(c.CacheOps.WithLabelValues("result", "miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/api/load", "409")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestCollectorHandler(t *testing.T) {
	c := New("untwist")
	c.OnLoadRejected(context.Background())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "untwist_loads_rejected_total 1") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	c := New("test")
	c.Register()
	if observability.Pipeline() != c || observability.Cache() != c || observability.HTTP() != c {
		t.Error("Register should install the collector as every hook")
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New("test"), New("test")
	a.OnLoadRejected(context.Background())
	if got := testutil.ToFloat64(b.LoadsRejected); got != 0 {
		t.Errorf("second collector saw %v rejections", got)
	}
}
