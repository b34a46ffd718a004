package source

import (
	"context"
	"log/slog"
)

// Counters are cumulative byte counters summed over all interfaces.
type Counters struct {
	BytesSent uint64
	BytesRecv uint64
}

type NetworkProvider interface {
	NetCounters(ctx context.Context) (Counters, error)
}

// NetworkSource only reads counters; rate derivation is stateful and lives
// with the sampler.
type NetworkSource struct {
	provider NetworkProvider
	logger   *slog.Logger
}

func NewNetworkSource(p NetworkProvider, logger *slog.Logger) *NetworkSource {
	return &NetworkSource{provider: p, logger: logger}
}

func (s *NetworkSource) Read(ctx context.Context) (Counters, bool) {
	c, err := s.provider.NetCounters(ctx)
	if err != nil {
		s.logger.Error("network stats error", "error", err)
		return Counters{}, false
	}
	return c, true
}
