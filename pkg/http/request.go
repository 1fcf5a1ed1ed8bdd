package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// UnknownIP is recorded when no client address can be determined
const UnknownIP = "0.0.0.0"

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// proxyHeaders are consulted in order when the peer is a trusted proxy
var proxyHeaders = []string{
	"Client-IP",
	"X-Forwarded-For",
	"X-Forwarded",
	"X-Cluster-Client-IP",
	"Forwarded-For",
	"Forwarded",
}

// reservedPrefixes are rejected in proxy headers in addition to the
// private/loopback/link-local/multicast classes netip already knows about
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::ffff:0:0/96"),
}

// ExtractClientIP resolves the client address of r.
//
// Proxy headers are only honored when the peer address falls inside one of
// config.TrustedProxies; the first public, non-reserved address found wins.
// Otherwise the peer address is used, or UnknownIP if it cannot be parsed.
// Trusting forwarded headers is only safe behind a reverse proxy that
// overwrites them.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config != nil && isTrustedProxy(remoteIP, config.TrustedProxies) {
		for _, header := range proxyHeaders {
			value := r.Header.Get(header)
			if value == "" {
				continue
			}
			for _, candidate := range headerCandidates(header, value) {
				if IsPublicIP(candidate) {
					return stripZone(candidate)
				}
			}
		}
	}

	if remoteIP == "" {
		return UnknownIP
	}
	return remoteIP
}

// IsSecureRequest reports whether r arrived over HTTPS, either directly or
// through a trusted proxy announcing X-Forwarded-Proto: https
func IsSecureRequest(r *http.Request, config *IPConfig) bool {
	if r.TLS != nil {
		return true
	}
	if config != nil && isTrustedProxy(getRemoteAddr(r), config.TrustedProxies) {
		return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	}
	return false
}

// IsPublicIP reports whether ip parses and is outside private and reserved ranges
func IsPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() || addr.IsMulticast() {
		return false
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return false
		}
	}
	return true
}

// headerCandidates splits a proxy header into address candidates.
// Forwarded (RFC 7239) values carry addresses in for= parameters.
func headerCandidates(header, value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if header == "Forwarded" {
			part = forwardedFor(part)
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func forwardedFor(element string) string {
	for _, pair := range strings.Split(element, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || !strings.EqualFold(key, "for") {
			continue
		}
		value = strings.Trim(value, `"`)
		if host, _, err := net.SplitHostPort(value); err == nil {
			return strings.Trim(host, "[]")
		}
		return strings.Trim(value, "[]")
	}
	return ""
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return stripZone(host)
}

// stripZone drops any IPv6 zone (fe80::1%eth0); stored addresses never carry one.
// Unparsable input yields "".
func stripZone(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	if addr.Zone() == "" {
		return ip
	}
	return addr.WithZone("").String()
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 || ip == "" {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if prefix.Contains(addr.Unmap()) || prefix.Contains(addr) {
			return true
		}
	}

	return false
}
