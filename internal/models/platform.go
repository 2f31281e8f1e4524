package models

import (
	"fmt"
	"strings"
)

// PlatformKey identifies one of the product platforms a tenant can be
// entitled to. The set is closed; keys are canonically lower-case with
// underscores.
type PlatformKey string

const (
	PlatformCompliance        PlatformKey = "compliance"
	PlatformClinicalOps       PlatformKey = "clinical_ops"
	PlatformPatientExperience PlatformKey = "patient_experience"
	PlatformEquipment         PlatformKey = "equipment"
)

var validPlatformKeys = map[PlatformKey]bool{
	PlatformCompliance:        true,
	PlatformClinicalOps:       true,
	PlatformPatientExperience: true,
	PlatformEquipment:         true,
}

// NormalizePlatformKey canonicalizes an externally supplied platform key.
// Hyphenated spellings are accepted and mapped to the underscore form. This
// is the single normalization point; everything downstream works with
// canonical keys only.
func NormalizePlatformKey(raw string) (PlatformKey, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	key := PlatformKey(normalized)
	if !validPlatformKeys[key] {
		return "", fmt.Errorf("unknown platform key %q", raw)
	}
	return key, nil
}

// AllPlatformKeys returns the closed platform set in a stable order.
func AllPlatformKeys() []PlatformKey {
	return []PlatformKey{
		PlatformCompliance,
		PlatformClinicalOps,
		PlatformPatientExperience,
		PlatformEquipment,
	}
}
