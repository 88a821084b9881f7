package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findoc/pkg/models"
)

type fixedSampler struct {
	value float64
	err   error
}

func (f fixedSampler) Sample(context.Context) (float64, error) {
	return f.value, f.err
}

func TestProbeMeasure(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewProbe(fixedSampler{value: 37.26})
	p.now = func() time.Time { return start.Add(1234567 * time.Microsecond) }

	snap := p.Measure(context.Background(), start)

	assert.Equal(t, 1.235, snap.LatencySeconds)
	assert.Equal(t, 37.3, snap.CPUPercent)
}

func TestProbeSamplerFailure(t *testing.T) {
	p := NewProbe(fixedSampler{err: errors.New("no /proc")})

	snap := p.Measure(context.Background(), time.Now())

	assert.Zero(t, snap.CPUPercent)
	assert.GreaterOrEqual(t, snap.LatencySeconds, 0.0)
}

func TestProbeWithoutSampler(t *testing.T) {
	snap := NewProbe(nil).Measure(context.Background(), time.Now())
	assert.Zero(t, snap.CPUPercent)
}

func TestProcSamplerBusyPercent(t *testing.T) {
	samples := []procfs.CPUStat{
		{User: 100, System: 50, Idle: 800, Iowait: 50},
		{User: 130, System: 60, Idle: 850, Iowait: 60},
	}
	calls := 0
	s := &ProcSampler{window: time.Millisecond, read: func() (procfs.CPUStat, error) {
		stat := samples[calls]
		calls++
		return stat, nil
	}}

	got, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	// 100 ticks elapsed, 60 of them idle or waiting.
	assert.InDelta(t, 40.0, got, 1e-9)
}

func TestProcSamplerReadError(t *testing.T) {
	s := &ProcSampler{window: time.Millisecond, read: func() (procfs.CPUStat, error) {
		return procfs.CPUStat{}, errors.New("permission denied")
	}}
	_, err := s.Sample(context.Background())
	assert.Error(t, err)
}

func TestProcSamplerCancelled(t *testing.T) {
	s := &ProcSampler{window: time.Hour, read: func() (procfs.CPUStat, error) {
		return procfs.CPUStat{Idle: 1}, nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBusyPercentNoElapsedTicks(t *testing.T) {
	stat := procfs.CPUStat{User: 10, Idle: 10}
	assert.Zero(t, busyPercent(stat, stat))
}

func TestServiceMetricsMiddleware(t *testing.T) {
	m := NewServiceMetrics("findoc-test")
	handler := m.Middleware(func(*http.Request) string { return "/analyze/" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodPost, "/analyze/", "400")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestInFlight))
}

func TestServiceMetricsHandler(t *testing.T) {
	m := NewServiceMetrics("findoc-test")
	m.ObserveRecord(&models.AnalysisRecord{PredictedLabel: "Invoice", LatencySeconds: 0.4, CPUPercent: 12.5})
	m.ObserveInternalError("/analyze/")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `findoc_pipeline_analyses_total{label="Invoice",service="findoc-test"} 1`), text)
	assert.Contains(t, text, `findoc_pipeline_internal_errors_total{path="/analyze/",service="findoc-test"} 1`)
	assert.Contains(t, text, "findoc_pipeline_cpu_percent_bucket")
}
