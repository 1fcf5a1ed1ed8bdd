package http_test

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	"github.com/stretchr/testify/assert"
)

// Forwarded headers are only trusted from configured proxies

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("Client-IP", "8.8.8.8")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "127.0.0.1/32"}}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.10", ip, "Should extract IP from RemoteAddr when not from trusted proxy")
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_TrustedProxy_SkipsPrivateAndReserved(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "192.168.1.20, 127.0.0.1, 0.1.2.3, 198.51.100.7")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "198.51.100.7", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_TrustedProxy_HeaderPriority(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("Client-IP", "198.51.100.1")
	req.Header.Set("X-Forwarded-For", "198.51.100.2")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "198.51.100.1", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_TrustedProxy_ForwardedHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("Forwarded", `for=192.168.0.4;proto=https, for="[2001:db8:cafe::17]:4711"`)

	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "2001:db8:cafe::17", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_TrustedProxy_NoPublicCandidate_FallsBackToPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "10.1.1.1, not-an-ip")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "10.0.0.5", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_IPv6_TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:54321"
	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"::1/128"}}

	assert.Equal(t, "2001:db8::1", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_NoConfig_DefaultsSecurely(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_InvalidCIDR_IgnoresProxyCheck(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	config := &pkghttp.IPConfig{TrustedProxies: []string{"invalid-cidr-range"}}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_UnparsableRemote_ReturnsSentinel(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "pipe"

	assert.Equal(t, pkghttp.UnknownIP, pkghttp.ExtractClientIP(req, nil))

	req.RemoteAddr = ""
	assert.Equal(t, "0.0.0.0", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_ZonedPeer_DropsZone(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "[fe80::1ff:fe23:4567:890a%enp0s31f6-longinterfacename]:54321"

	ip := pkghttp.ExtractClientIP(req, &pkghttp.IPConfig{})
	assert.Equal(t, "fe80::1ff:fe23:4567:890a", ip)
	assert.LessOrEqual(t, len(ip), 45)
}

func TestExtractClientIP_ZonedForwardedCandidate_DropsZone(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "2001:4860:4860::8888%eth0")

	ip := pkghttp.ExtractClientIP(req, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "2001:4860:4860::8888", ip)
}

func TestIsPublicIP(t *testing.T) {
	tests := []struct {
		ip     string
		public bool
	}{
		{"8.8.8.8", true},
		{"203.0.113.42", true},
		{"2001:4860:4860::8888", true},
		{"10.0.0.5", false},
		{"172.16.3.4", false},
		{"192.168.1.1", false},
		{"127.0.0.1", false},
		{"169.254.1.1", false},
		{"0.0.0.0", false},
		{"240.0.0.1", false},
		{"::1", false},
		{"fc00::1", false},
		{"fe80::1", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.public, pkghttp.IsPublicIP(tt.ip))
		})
	}
}

func TestIsSecureRequest(t *testing.T) {
	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	plain := httptest.NewRequest("GET", "/", nil)
	plain.RemoteAddr = "203.0.113.10:1234"
	assert.False(t, pkghttp.IsSecureRequest(plain, config))

	direct := httptest.NewRequest("GET", "/", nil)
	direct.TLS = &tls.ConnectionState{}
	assert.True(t, pkghttp.IsSecureRequest(direct, config))

	proxied := httptest.NewRequest("GET", "/", nil)
	proxied.RemoteAddr = "10.0.0.5:1234"
	proxied.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, pkghttp.IsSecureRequest(proxied, config))

	spoofed := httptest.NewRequest("GET", "/", nil)
	spoofed.RemoteAddr = "203.0.113.10:1234"
	spoofed.Header.Set("X-Forwarded-Proto", "https")
	assert.False(t, pkghttp.IsSecureRequest(spoofed, config))
}
