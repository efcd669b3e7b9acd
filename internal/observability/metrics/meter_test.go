package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that a disabled meter still yields usable instruments.
// Scope: Unit Test
// Expected: Instruments are created and recording on them is a no-op.
// Test Case ID: MET-01
func TestMetrics_DisabledMeterInstruments(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false}, "terrier")
	require.NoError(t, err)

	inst, err := m.Instruments()
	require.NoError(t, err)
	assert.NotNil(t, inst.AuthzDecisions)
	assert.NotNil(t, inst.UsersProvisioned)
	assert.NotNil(t, inst.ResolveDuration)

	assert.NotPanics(t, func() {
		inst.AuthzDecisions.Add(context.Background(), 1)
		inst.ResolveDuration.Record(context.Background(), 1.5)
	})
}
