package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultExamplePrompts are offered as one-click starting points in the UI.
var DefaultExamplePrompts = []string{
	"Create a resume for a software engineer with 5 years of experience in Python and JavaScript",
	"Generate a resume for a data scientist with expertise in machine learning",
	"Build a resume for a marketing manager with 3 years of experience",
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Generation service client
	v.SetDefault("client.baseURL", "http://localhost:8000")
	v.SetDefault("client.timeout", 120*time.Second)
	v.SetDefault("client.promptField", "prompt")
	v.SetDefault("client.apiKey", "")
	v.SetDefault("client.maxResponseSize", 1024*1024)
	v.SetDefault("client.circuitBreaker.enabled", false)
	v.SetDefault("client.circuitBreaker.maxRequests", 1)
	v.SetDefault("client.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("client.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("client.circuitBreaker.minRequests", 3)
	v.SetDefault("client.circuitBreaker.failureThreshold", 0.6)

	// Bundled generation backend
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", 90*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 2)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxOutputTokens", 2048)
	v.SetDefault("ai.systemPrompt", "")
	v.SetDefault("ai.systemPromptFile", "")
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.backendPort", "8000")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 150*time.Second) // covers a full generation round trip
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 64*1024)
	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.cipherSuites", []string{})
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 30)
	v.SetDefault("server.rateLimit.burstCapacity", 5)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)
	v.SetDefault("server.rateLimit.cleanupInterval", 10*time.Minute)
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})
	v.SetDefault("server.cors.maxAge", 300)

	// Session store
	v.SetDefault("session.cookieName", "resumaker_session")
	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.cleanupInterval", 10*time.Minute)
	v.SetDefault("session.secureCookie", false)

	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"text", "markdown", "json", "html"})
	v.SetDefault("app.maxFileSize", 1024*1024)
	v.SetDefault("app.examplePrompts", DefaultExamplePrompts)

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumaker")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.generation.enabled", true)
	v.SetDefault("observability.customMetrics.generation.trackDuration", true)
	v.SetDefault("observability.customMetrics.generation.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.ui.enabled", true)
	v.SetDefault("observability.customMetrics.ui.trackSections", true)
	v.SetDefault("observability.customMetrics.ui.trackExports", true)
	v.SetDefault("observability.customMetrics.ui.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackSessions", true)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
