package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are believed
type IPConfig struct {
	trusted []netip.Prefix
}

// NewIPConfig parses CIDR ranges; invalid entries are skipped
func NewIPConfig(cidrs []string) *IPConfig {
	cfg := &IPConfig{}
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(strings.TrimSpace(c)); err == nil {
			cfg.trusted = append(cfg.trusted, p.Masked())
		}
	}
	return cfg
}

func (c *IPConfig) isTrusted(addr netip.Addr) bool {
	if c == nil {
		return false
	}
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the caller address used for audit records. X-Forwarded-For
// and X-Real-IP are honoured only when the direct peer is a trusted proxy.
func ClientIP(r *http.Request, cfg *IPConfig) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if remote == "" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(remote)
	if err != nil || !cfg.isTrusted(addr.Unmap()) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if _, err := netip.ParseAddr(candidate); err == nil {
				return candidate
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	return remote
}
