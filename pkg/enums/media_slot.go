package enums

import "fmt"

// MediaSlot names the announcement field a media collection belongs to.
type MediaSlot string

const (
	MediaSlotPrimary    MediaSlot = "primary"
	MediaSlotAdditional MediaSlot = "additional"
)

var validMediaSlots = []MediaSlot{
	MediaSlotPrimary,
	MediaSlotAdditional,
}

// String returns the literal string for the slot.
func (m MediaSlot) String() string {
	return string(m)
}

// IsValid reports whether the slot is known.
func (m MediaSlot) IsValid() bool {
	for _, candidate := range validMediaSlots {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaSlot converts raw input into a MediaSlot.
func ParseMediaSlot(value string) (MediaSlot, error) {
	for _, candidate := range validMediaSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media slot %q", value)
}
