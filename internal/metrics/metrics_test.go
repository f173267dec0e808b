package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/internal/domain"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "canceled", Outcome(context.Canceled))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
	assert.Equal(t, "authentication_failed",
		Outcome(domain.Errorf("op", domain.KindAuthenticationFailed, "bad password")))
}

func TestRecorder_ObserveConversion(t *testing.T) {
	r := New()
	r.ObserveConversion("merge", nil, 20*time.Millisecond, 100, 80)
	r.ObserveConversion("merge", domain.Errorf("op", domain.KindInvalidFormat, "x"), time.Millisecond, 10, 0)
	r.ObserveCacheHit("merge")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.conversions.WithLabelValues("merge", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.conversions.WithLabelValues("merge", "invalid_format")))
	assert.Equal(t, 110.0, testutil.ToFloat64(r.bytes.WithLabelValues("merge", "in")))
	assert.Equal(t, 80.0, testutil.ToFloat64(r.bytes.WithLabelValues("merge", "out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheHits.WithLabelValues("merge")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveConversion("split", nil, time.Millisecond, 1, 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `docconv_conversions_total{outcome="ok",tool="split"} 1`)
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.ObserveConversion("merge", nil, 0, 0, 0)
	r.ObserveCacheHit("merge")
}
