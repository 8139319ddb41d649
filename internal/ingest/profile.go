package ingest

import (
	"time"

	"github.com/openannounce/announce-backend/pkg/enums"
)

// Profile bundles the tuning knobs the pipeline varies by device class and
// network tier: dimension and quality bounds for re-encoding, the upload
// retry budget, and the per-batch file cap.
type Profile struct {
	Device       enums.DeviceClass
	Network      enums.NetworkTier
	MaxDimension int
	Quality      float64
	HEICQuality  float64
	MaxRetries   int
	RetryDelay   time.Duration
	BatchCap     int
}

// ProfileFor selects the tuning profile for a device class and network tier.
// Slower tiers and mobile devices get smaller dimension bounds, lower encode
// quality and smaller batches to shrink payloads.
func ProfileFor(device enums.DeviceClass, network enums.NetworkTier) Profile {
	p := Profile{
		Device:  device,
		Network: network,
	}

	switch device {
	case enums.DeviceClassMobile:
		p.MaxDimension = 1200
		p.Quality = 0.75
		p.HEICQuality = 0.85
		p.BatchCap = 5
	default:
		p.MaxDimension = 1920
		p.Quality = 0.85
		p.HEICQuality = 0.9
		p.BatchCap = 10
	}

	switch network {
	case enums.NetworkTierSlow:
		if p.MaxDimension > 1200 {
			p.MaxDimension = 1200
		}
		p.Quality = 0.5
		p.MaxRetries = 3
		p.RetryDelay = 2000 * time.Millisecond
		p.BatchCap = 2
	case enums.NetworkTierMedium:
		if p.MaxDimension > 1600 {
			p.MaxDimension = 1600
		}
		if p.Quality > 0.7 {
			p.Quality = 0.7
		}
		p.MaxRetries = 2
		p.RetryDelay = 1000 * time.Millisecond
		if p.BatchCap > 5 {
			p.BatchCap = 5
		}
	default:
		p.MaxRetries = 2
		p.RetryDelay = 500 * time.Millisecond
	}

	return p
}
