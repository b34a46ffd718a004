package sampler

import (
	"math"
	"time"

	"github.com/kazuninishiki/SysMonServer/internal/model"
	"github.com/kazuninishiki/SysMonServer/internal/source"
)

// DefaultReferenceMbps is the link speed that maps to 100% network usage.
const DefaultReferenceMbps = 100

const bitsPerMebibit = 1024 * 1024

// NetworkBaseline holds the previous counter reading. Only the sampler tick
// touches it.
type NetworkBaseline struct {
	BytesSent     uint64
	BytesReceived uint64
	at            time.Time
	set           bool
}

// Reset records c as the baseline taken at now.
func (b *NetworkBaseline) Reset(c source.Counters, now time.Time) {
	b.BytesSent, b.BytesReceived, b.at, b.set = c.BytesSent, c.BytesRecv, now, true
}

// Throughput converts the delta since the baseline into Mbps and moves the
// baseline to cur. Counter resets yield zero rather than negative rates.
func (b *NetworkBaseline) Throughput(cur source.Counters, now time.Time, referenceMbps float64) model.Network {
	out := model.Network{
		TotalSentGB:     model.Round(model.BytesToGB(cur.BytesSent), 2),
		TotalReceivedGB: model.Round(model.BytesToGB(cur.BytesRecv), 2),
	}
	if !b.set {
		b.Reset(cur, now)
		return out
	}

	elapsed := now.Sub(b.at).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	up := rate(cur.BytesSent, b.BytesSent, elapsed)
	down := rate(cur.BytesRecv, b.BytesReceived, elapsed)
	b.Reset(cur, now)

	if referenceMbps <= 0 {
		referenceMbps = DefaultReferenceMbps
	}
	usage := math.Max(up, down) / referenceMbps * 100

	out.UploadMbps = model.Round(up, 1)
	out.DownloadMbps = model.Round(down, 1)
	out.UsagePercent = model.Round(math.Min(math.Max(usage, 0), 100), 1)
	return out
}

func rate(cur, prev uint64, seconds float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) * 8 / bitsPerMebibit / seconds
}

// GPUPeak is the running maximum of observed GPU temperature.
type GPUPeak struct {
	max float64
}

// Observe folds t into the peak and returns the new peak.
func (p *GPUPeak) Observe(t float64) float64 {
	if !math.IsNaN(t) && t > p.max {
		p.max = t
	}
	return p.max
}

// value is the peak so far.
func (p *GPUPeak) value() float64 { return p.max }
