package enums

// NetworkTier buckets a client's measured connection quality.
type NetworkTier string

const (
	NetworkTierSlow   NetworkTier = "slow"
	NetworkTierMedium NetworkTier = "medium"
	NetworkTierFast   NetworkTier = "fast"
)

var validNetworkTiers = []NetworkTier{
	NetworkTierSlow,
	NetworkTierMedium,
	NetworkTierFast,
}

// String returns the literal string for the tier.
func (n NetworkTier) String() string {
	return string(n)
}

// IsValid reports whether the tier is known.
func (n NetworkTier) IsValid() bool {
	for _, candidate := range validNetworkTiers {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNetworkTier converts raw input into a NetworkTier, defaulting to fast.
func ParseNetworkTier(value string) NetworkTier {
	for _, candidate := range validNetworkTiers {
		if string(candidate) == value {
			return candidate
		}
	}
	return NetworkTierFast
}
