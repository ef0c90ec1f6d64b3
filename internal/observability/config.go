package observability

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"resumetailor/internal/config"
)

const defaultServiceName = "resumetailor"

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:     defaultServiceName,
			ServiceVersion:  version,
			ServiceInstance: defaultServiceName + "-1",
			SampleRate:      1.0,
			MetricsInterval: 15 * time.Second,
			Prometheus:      GetPrometheusConfig(nil),
		}
	}

	obsConfig := cfg.Observability

	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	serviceName := obsConfig.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	return ObservabilityConfig{
		ServiceName:     serviceName,
		ServiceVersion:  serviceVersion,
		ServiceInstance: obsConfig.ServiceInstance,
		Enabled:         obsConfig.Enabled,
		ConsoleOutput:   obsConfig.ConsoleOutput,
		PrettyPrint:     obsConfig.PrettyPrint,
		SampleRate:      obsConfig.SampleRate,
		MetricsInterval: obsConfig.MetricsInterval,
		Prometheus:      GetPrometheusConfig(cfg),
		OTLP:            obsConfig.OTLP,
	}
}

// RequestAttributesMiddleware copies request metadata onto the span started
// by the otelhttp handler. idFrom extracts the request ID set by an earlier
// middleware.
func RequestAttributesMiddleware(idFrom func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := oteltrace.SpanFromContext(r.Context())
			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("http.request_id", idFrom(r)),
					attribute.String("http.user_agent", r.UserAgent()),
					attribute.Int64("http.request_content_length", r.ContentLength),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
