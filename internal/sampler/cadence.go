package sampler

import (
	"sync/atomic"
	"time"
)

// Accepted tick interval bounds, inclusive.
const (
	MinIntervalMs     = 100
	MaxIntervalMs     = 10000
	DefaultIntervalMs = 1000
)

// Cadence is the process-wide tick interval. Any consumer may change it; the
// last write wins. The sampler re-reads it before every suspend.
type Cadence struct {
	ms atomic.Int64
}

// NewCadence starts at ms, or at the default when ms is out of range.
func NewCadence(ms int) *Cadence {
	c := &Cadence{}
	if !ValidInterval(ms) {
		ms = DefaultIntervalMs
	}
	c.ms.Store(int64(ms))
	return c
}

func ValidInterval(ms int) bool { return ms >= MinIntervalMs && ms <= MaxIntervalMs }

// Set applies ms if it is within bounds and reports whether it did.
func (c *Cadence) Set(ms int) bool {
	if !ValidInterval(ms) {
		return false
	}
	c.ms.Store(int64(ms))
	return true
}

func (c *Cadence) Milliseconds() int { return int(c.ms.Load()) }

func (c *Cadence) Interval() time.Duration {
	return time.Duration(c.ms.Load()) * time.Millisecond
}
