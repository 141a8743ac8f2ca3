package enums

import "fmt"

// SeasonStatus models the season lifecycle: pending seasons wait for their
// window, exactly one season is active at a time, finalized is terminal.
type SeasonStatus string

const (
	SeasonStatusPending   SeasonStatus = "pending"
	SeasonStatusActive    SeasonStatus = "active"
	SeasonStatusFinalized SeasonStatus = "finalized"
)

var validSeasonStatuses = []SeasonStatus{
	SeasonStatusPending,
	SeasonStatusActive,
	SeasonStatusFinalized,
}

// IsValid reports whether the value matches the canonical season status enum.
func (s SeasonStatus) IsValid() bool {
	for _, candidate := range validSeasonStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSeasonStatus converts the raw string to SeasonStatus.
func ParseSeasonStatus(value string) (SeasonStatus, error) {
	for _, candidate := range validSeasonStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid season status %q", value)
}
