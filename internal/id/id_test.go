package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that generated identifiers are UUIDv7 and unique.
// Scope: Unit Test
// Security: Traceability and unique identification of records
// Expected: Every generated ID parses as a version 7 UUID and no two IDs collide.
// Test Case ID: ID-01
func TestID_NewUUIDv7(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		v := NewUUIDv7()
		u, err := uuid.Parse(v)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), u.Version())

		_, dup := seen[v]
		assert.False(t, dup, "duplicate id %s", v)
		seen[v] = struct{}{}
	}
}
