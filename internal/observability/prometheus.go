package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

type prometheusEndpoint struct {
	reader  metric.Reader
	handler http.Handler
	path    string
	port    string
	server  *http.Server
}

// newPrometheusEndpoint creates an exporter bound to its own registry so
// that several managers can coexist in one process.
func newPrometheusEndpoint(cfg config.PrometheusConfig) (*prometheusEndpoint, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	path := cfg.Endpoint
	if path == "" {
		path = "/metrics"
	}
	return &prometheusEndpoint{
		reader:  exporter,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		path:    path,
		port:    cfg.Port,
	}, nil
}

func (p *prometheusEndpoint) start(logger *errors.Logger) {
	mux := http.NewServeMux()
	mux.Handle(p.path, p.handler)

	p.server = &http.Server{
		Addr:              ":" + p.port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if logger != nil {
		logger.Info("Starting Prometheus metrics server",
			"address", fmt.Sprintf("http://localhost:%s%s", p.port, p.path))
	}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed && logger != nil {
			logger.LogError(err, "Prometheus server error")
		}
	}()
}

func (p *prometheusEndpoint) shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
