package observability

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumaker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func enabledConfig() config.ObservabilityConfig {
	return config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "resumaker-test",
		Metrics:     config.MetricsConfig{Enabled: true},
		CustomMetrics: config.CustomMetricsConfig{
			Generation:     config.GenerationMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
			UI:             config.UIMetricsConfig{Enabled: true, TrackSections: true, TrackExports: true, TrackContentSizes: true},
			Infrastructure: config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true, TrackSessions: true},
		},
	}
}

func collect(t *testing.T, om *Manager) map[string]metricdata.Aggregation {
	t.Helper()
	require.NotNil(t, om.manualReader)

	var rm metricdata.ResourceMetrics
	require.NoError(t, om.manualReader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m.Data
		}
	}
	return found
}

func TestDisabledManagerIsNoop(t *testing.T) {
	om, err := NewManager(config.ObservabilityConfig{}, "test", nil)
	require.NoError(t, err)

	m := om.Metrics()
	m.RecordExport(context.Background(), "txt")
	m.RecordSectionView(context.Background(), "Skills")

	err = m.TrackGeneration(context.Background(), "generate", func(ctx context.Context) *GenerationResult {
		return &GenerationResult{Error: stderrors.New("boom")}
	})
	assert.EqualError(t, err, "boom")

	h := om.HTTPMiddleware("ui")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Nil(t, om.MetricsHandler())
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestMetricsRecorded(t *testing.T) {
	om, err := NewManager(enabledConfig(), "test", nil)
	require.NoError(t, err)
	defer func() { _ = om.Shutdown(context.Background()) }()

	ctx := context.Background()
	m := om.Metrics()
	require.NoError(t, m.TrackGeneration(ctx, "generate", func(ctx context.Context) *GenerationResult {
		return &GenerationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}}
	}))
	m.RecordExport(ctx, "txt")
	m.RecordSectionView(ctx, "Skills")
	m.RecordRateLimitHit(ctx, "/generate")
	m.RecordResumeSize(ctx, 512)
	require.NoError(t, m.ObserveSessions(func() int { return 3 }))

	found := collect(t, om)
	for _, name := range []string{
		"resumaker_generation_requests_total",
		"resumaker_generation_duration_seconds",
		"resumaker_generation_token_usage",
		"resumaker_exports_total",
		"resumaker_section_views_total",
		"resumaker_rate_limit_hits_total",
		"resumaker_resume_size_bytes",
		"resumaker_active_sessions",
	} {
		assert.Contains(t, found, name)
	}
	assert.NotContains(t, found, "resumaker_generation_errors_total")

	gauge, ok := found["resumaker_active_sessions"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}

func TestMetricFlagsRespected(t *testing.T) {
	cfg := enabledConfig()
	cfg.CustomMetrics.UI.TrackExports = false
	om, err := NewManager(cfg, "test", nil)
	require.NoError(t, err)
	defer func() { _ = om.Shutdown(context.Background()) }()

	om.Metrics().RecordExport(context.Background(), "txt")
	assert.NotContains(t, collect(t, om), "resumaker_exports_total")
}

func TestPrometheusHandler(t *testing.T) {
	cfg := enabledConfig()
	cfg.Prometheus = config.PrometheusConfig{Enabled: true, Endpoint: "/metrics"}
	om, err := NewManager(cfg, "test", nil)
	require.NoError(t, err)
	defer func() { _ = om.Shutdown(context.Background()) }()

	om.Metrics().RecordExport(context.Background(), "txt")

	handler := om.MetricsHandler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resumaker_exports_total")
}
