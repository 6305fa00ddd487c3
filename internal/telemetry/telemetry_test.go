package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracerAndMeterAreNonNilAndStable(t *testing.T) {
	require.NotNil(t, Tracer())
	require.NotNil(t, Meter())

	// Same instrumentation name each call, matching otel's registry-by-name
	// semantics rather than minting a fresh handle.
	require.Equal(t, Tracer(), Tracer())
}
