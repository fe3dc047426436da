package oteltrace

import (
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
)

// endpointOptions selects the exporter dial options for OTEL_EXPORTER_OTLP_ENDPOINT.
// A value with a scheme goes to WithEndpointURL, which dials https in TLS and
// anything else in plaintext. A bare host:port dials in plaintext.
func endpointOptions(raw string) []otlptracegrpc.Option {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(raw)}
	}
	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(raw),
		otlptracegrpc.WithInsecure(),
	}
}
