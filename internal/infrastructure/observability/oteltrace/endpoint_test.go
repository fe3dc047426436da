package oteltrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointOptions(t *testing.T) {
	assert.Len(t, endpointOptions("http://localhost:4317"), 1)
	assert.Len(t, endpointOptions(" https://collector.example.com:4317 "), 1)
	assert.Len(t, endpointOptions("localhost:4317"), 2)
}

func TestSetupAcceptsEveryEndpointForm(t *testing.T) {
	for _, ep := range []string{
		"http://127.0.0.1:4317",
		"https://collector.example.com:4317",
		"127.0.0.1:4317",
	} {
		t.Run(ep, func(t *testing.T) {
			p, err := Setup(context.Background(), Config{Endpoint: ep}, nil, nil)
			require.NoError(t, err)
			assert.True(t, p.Enabled())

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			assert.NoError(t, p.Shutdown(ctx))
		})
	}
}

func TestSetupWithBlankEndpointIsDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Endpoint: "   "}, nil, nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
}
