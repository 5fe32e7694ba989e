package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_RecordingsReachRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	provider, err := Setup(reg, "ragd-test", "0.0.1")
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	meter := otel.Meter("telemetry-test")
	counter, err := meter.Int64Counter("ingest_events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "ingest_events_total")
}

func TestSetup_InstallsGlobalProvider(t *testing.T) {
	provider, err := Setup(prometheus.NewRegistry(), "ragd-test", "0.0.1")
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	assert.Equal(t, provider, otel.GetMeterProvider())
}
