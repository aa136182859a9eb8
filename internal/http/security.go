package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// trustedProxies may set X-Forwarded-For: loopback and private ranges.
var trustedProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
}

// extractClientIP keys rate limiting and request logs. It returns the peer
// address, or the first X-Forwarded-For hop when the peer is a trusted
// proxy and that hop parses as an address.
func extractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !trusted(addr.Unmap()) {
		return peer
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if client, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
		return client.String()
	}
	return peer
}

func trusted(addr netip.Addr) bool {
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
