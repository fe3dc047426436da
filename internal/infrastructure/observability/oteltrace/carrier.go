package oteltrace

import (
	"net/http"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// HeaderCarrier adapts http.Header to propagation.TextMapCarrier.
//
// Get is case-insensitive and returns the first value of a repeated header.
// Keys lists every header name lower-cased and sorted, so formats that scan
// for vendor fields see a stable order.
type HeaderCarrier http.Header

var _ propagation.TextMapCarrier = HeaderCarrier(nil)

func (hc HeaderCarrier) Get(key string) string {
	if hc == nil {
		return ""
	}
	return http.Header(hc).Get(key)
}

func (hc HeaderCarrier) Set(key, value string) {
	if hc == nil {
		return
	}
	http.Header(hc).Set(key, value)
}

func (hc HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(hc))
	for k := range hc {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	return keys
}

// extractionCarrier is a read-only view over inbound headers.
type extractionCarrier struct{ h HeaderCarrier }

func (c extractionCarrier) Get(key string) string { return c.h.Get(key) }
func (c extractionCarrier) Set(string, string)    {}
func (c extractionCarrier) Keys() []string        { return c.h.Keys() }

// ExtractionCarrier returns a carrier over h that ignores writes, so extraction
// can never mutate the request it reads from.
func ExtractionCarrier(h http.Header) propagation.TextMapCarrier {
	return extractionCarrier{h: HeaderCarrier(h)}
}
