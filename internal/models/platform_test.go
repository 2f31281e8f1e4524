package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePlatformKey(t *testing.T) {
	tests := []struct {
		raw  string
		want PlatformKey
	}{
		{"compliance", PlatformCompliance},
		{"clinical_ops", PlatformClinicalOps},
		{"clinical-ops", PlatformClinicalOps},
		{"Patient-Experience", PlatformPatientExperience},
		{"  EQUIPMENT ", PlatformEquipment},
	}
	for _, tt := range tests {
		got, err := NormalizePlatformKey(tt.raw)
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}

func TestNormalizePlatformKey_Unknown(t *testing.T) {
	for _, raw := range []string{"", "billing", "clinical ops", "compliance2"} {
		_, err := NormalizePlatformKey(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestAllPlatformKeys_CoversValidSet(t *testing.T) {
	keys := AllPlatformKeys()
	assert.Len(t, keys, len(validPlatformKeys))
	for _, key := range keys {
		assert.True(t, validPlatformKeys[key])
	}
}
