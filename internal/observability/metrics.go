package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
	MPaymentDecisions    MetricKey = "payment_decisions_total"
	MSpansExported       MetricKey = "spans_exported_total"
	MSpansDropped        MetricKey = "spans_dropped_total"
	MSpanExportFailures  MetricKey = "span_export_failures_total"
)
