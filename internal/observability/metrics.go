package observability

import (
	"context"
	"fmt"
	"time"

	"resumaker/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application instruments. The zero value records nothing.
type Metrics struct {
	flags config.CustomMetricsConfig

	// generation
	GenerationDuration metric.Float64Histogram
	GenerationRequests metric.Int64Counter
	GenerationErrors   metric.Int64Counter
	TokenUsage         metric.Int64Histogram

	// ui
	SectionViews metric.Int64Counter
	Exports      metric.Int64Counter
	ResumeSize   metric.Int64Histogram

	// infrastructure
	RateLimitHits metric.Int64Counter
	CertReloads   metric.Int64Counter
	sessionGauge  metric.Int64ObservableGauge
	meter         metric.Meter
}

// TokenUsage is the token accounting reported by a model provider.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// GenerationResult is what an instrumented generation call reports back.
type GenerationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

func newMetrics(meter metric.Meter, flags config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{flags: flags, meter: meter}
	var err error

	if m.GenerationDuration, err = meter.Float64Histogram(
		"resumaker_generation_duration_seconds",
		metric.WithDescription("Time spent generating resumes"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation duration metric: %w", err)
	}
	if m.GenerationRequests, err = meter.Int64Counter(
		"resumaker_generation_requests_total",
		metric.WithDescription("Total number of generation requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation request metric: %w", err)
	}
	if m.GenerationErrors, err = meter.Int64Counter(
		"resumaker_generation_errors_total",
		metric.WithDescription("Total number of failed generation requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation error metric: %w", err)
	}
	if m.TokenUsage, err = meter.Int64Histogram(
		"resumaker_generation_token_usage",
		metric.WithDescription("Token usage per generation (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create token usage metric: %w", err)
	}

	if m.SectionViews, err = meter.Int64Counter(
		"resumaker_section_views_total",
		metric.WithDescription("Section filter selections"),
	); err != nil {
		return nil, fmt.Errorf("failed to create section view metric: %w", err)
	}
	if m.Exports, err = meter.Int64Counter(
		"resumaker_exports_total",
		metric.WithDescription("Resume exports by format"),
	); err != nil {
		return nil, fmt.Errorf("failed to create export metric: %w", err)
	}
	if m.ResumeSize, err = meter.Int64Histogram(
		"resumaker_resume_size_bytes",
		metric.WithDescription("Size of generated resume text"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resume size metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumaker_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit metric: %w", err)
	}
	if m.CertReloads, err = meter.Int64Counter(
		"resumaker_cert_reloads_total",
		metric.WithDescription("Total number of TLS certificate reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload metric: %w", err)
	}

	return m, nil
}

// TrackGeneration runs fn inside a span and records duration, outcome and
// token usage.
func (m *Metrics) TrackGeneration(ctx context.Context, operation string, fn func(context.Context) *GenerationResult) error {
	if m.GenerationRequests == nil || !m.flags.Generation.Enabled {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := otel.Tracer("resumaker.generation").Start(ctx, "generation."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	if m.flags.Generation.TrackDuration {
		m.GenerationDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.GenerationRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.GenerationErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	if result != nil && result.TokenUsage != nil {
		usage := result.TokenUsage
		if m.flags.Generation.TrackTokenUsage {
			for _, tt := range []struct {
				tokenType string
				value     int64
			}{
				{"input", usage.InputTokens},
				{"output", usage.OutputTokens},
				{"total", usage.TotalTokens},
			} {
				m.TokenUsage.Record(ctx, tt.value, metric.WithAttributes(
					attribute.String("operation", operation),
					attribute.String("token_type", tt.tokenType)))
			}
		}
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attrs...)

	return err
}

// RecordResumeSize records the size of a generated resume.
func (m *Metrics) RecordResumeSize(ctx context.Context, size int) {
	if m.ResumeSize == nil || !m.flags.UI.Enabled || !m.flags.UI.TrackContentSizes {
		return
	}
	m.ResumeSize.Record(ctx, int64(size))
}

// RecordSectionView counts a section filter selection.
func (m *Metrics) RecordSectionView(ctx context.Context, section string) {
	if m.SectionViews == nil || !m.flags.UI.Enabled || !m.flags.UI.TrackSections {
		return
	}
	m.SectionViews.Add(ctx, 1, metric.WithAttributes(attribute.String("section", section)))
}

// RecordExport counts an export in the given format.
func (m *Metrics) RecordExport(ctx context.Context, format string) {
	if m.Exports == nil || !m.flags.UI.Enabled || !m.flags.UI.TrackExports {
		return
	}
	m.Exports.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

// RecordRateLimitHit counts a rejected request.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, endpoint string) {
	if m.RateLimitHits == nil || !m.flags.Infrastructure.Enabled || !m.flags.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordCertReload counts a TLS certificate reload attempt.
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m.CertReloads == nil || !m.flags.Infrastructure.Enabled {
		return
	}
	m.CertReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// ObserveSessions registers a gauge reporting count() on every collection.
func (m *Metrics) ObserveSessions(count func() int) error {
	if m.meter == nil || !m.flags.Infrastructure.Enabled || !m.flags.Infrastructure.TrackSessions {
		return nil
	}
	gauge, err := m.meter.Int64ObservableGauge(
		"resumaker_active_sessions",
		metric.WithDescription("Number of live UI sessions"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create session gauge: %w", err)
	}
	m.sessionGauge = gauge
	return nil
}
