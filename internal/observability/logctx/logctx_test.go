package logctx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/zaplogger"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability/logctx"
)

func TestFromOr(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zaplogger.New(zap.New(core))

	assert.NotNil(t, logctx.FromOr(context.Background(), nil))

	ctx := logctx.With(context.Background(), base.With(observability.F("request_id", "r-1")))
	logctx.FromOr(ctx, observability.NopLogger()).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "r-1", entries[0].ContextMap()["request_id"])
	}
}

func TestEnrich(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zaplogger.New(zap.New(core))

	ctx := logctx.Enrich(context.Background(), base, observability.F("trace_id", "abc"))
	ctx = logctx.Enrich(ctx, nil, observability.F("span_id", "def"))
	logctx.From(ctx).Info("enriched")

	entries := logs.FilterMessage("enriched").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "abc", fields["trace_id"])
		assert.Equal(t, "def", fields["span_id"])
	}
}
