package restapi

import "time"

// StaleDetector decides whether a realtime feed has gone quiet for too long.
type StaleDetector struct {
	threshold time.Duration
}

func NewStaleDetector() *StaleDetector {
	return &StaleDetector{
		threshold: 5 * time.Minute,
	}
}

func (d *StaleDetector) WithThreshold(threshold time.Duration) *StaleDetector {
	d.threshold = threshold
	return d
}

// Check reports whether an update made at lastUpdated is stale at
// currentTime. A feed that never updated is stale.
func (d *StaleDetector) Check(lastUpdated, currentTime time.Time) bool {
	if lastUpdated.IsZero() {
		return true
	}
	return d.Age(lastUpdated, currentTime) > d.threshold
}

func (d *StaleDetector) Age(lastUpdated, currentTime time.Time) time.Duration {
	if lastUpdated.IsZero() {
		return d.threshold + 1
	}
	return currentTime.Sub(lastUpdated)
}
