// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Leads are captured from a mainland-China messaging funnel, so bare
// national numbers parse against CN unless a region override is set.
var defaultRegion = "CN"

// SetDefaultRegion overrides the region used for bare national numbers.
// Intended to be called once at startup from configuration.
func SetDefaultRegion(region string) {
	trimmed := strings.ToUpper(strings.TrimSpace(region))
	if trimmed != "" {
		defaultRegion = trimmed
	}
}

// NormalizeE164 formats a phone number to E.164. If parsing fails or the
// number is invalid, it returns the trimmed input so callers can still use
// it as an opaque matching key.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
