package source

import (
	"context"
	"log/slog"
	"net/netip"
	"strings"
)

// Identity describes the host. It is read once at startup.
type Identity struct {
	Hostname    string
	IPAddresses []string
	Platform    string
}

type IdentityProvider interface {
	Hostname(ctx context.Context) (string, error)
	// InterfaceAddrs returns every address in CIDR or bare form, in
	// interface enumeration order.
	InterfaceAddrs(ctx context.Context) ([]string, error)
}

type IdentitySource struct {
	provider IdentityProvider
	goos     string
	logger   *slog.Logger
}

func NewIdentitySource(p IdentityProvider, goos string, logger *slog.Logger) *IdentitySource {
	return &IdentitySource{provider: p, goos: goos, logger: logger}
}

func (s *IdentitySource) Sample(ctx context.Context) Identity {
	id := Identity{Hostname: "unknown", IPAddresses: []string{}, Platform: PlatformName(s.goos)}
	if h, err := s.provider.Hostname(ctx); err != nil {
		s.logger.Error("hostname lookup failed", "error", err)
	} else if h != "" {
		id.Hostname = h
	}
	addrs, err := s.provider.InterfaceAddrs(ctx)
	if err != nil {
		s.logger.Error("ip address retrieval error", "error", err)
		return id
	}
	id.IPAddresses = FilterIPv4(addrs)
	return id
}

// FilterIPv4 keeps IPv4 addresses that are neither loopback nor link-local.
func FilterIPv4(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, raw := range addrs {
		ip, ok := parseAddr(raw)
		if !ok || !ip.Is4() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		out = append(out, ip.String())
	}
	return out
}

func parseAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if p, err := netip.ParsePrefix(raw); err == nil {
		return p.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(raw); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

// PlatformName maps GOOS to the conventional OS name.
func PlatformName(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "darwin":
		return "Darwin"
	case "freebsd":
		return "FreeBSD"
	case "":
		return "Unknown"
	default:
		return goos
	}
}
