package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/shiftline/shiftline/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_RemoteAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"

	ip := pkghttp.ExtractClientIP(r, nil)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_UntrustedProxyHeaderIgnored(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	// No trusted proxy config: the header must not be honored
	ip := pkghttp.ExtractClientIP(r, nil)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestExtractClientIP_TrustedProxyHeaderHonored(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:51234"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")

	cfg := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	ip := pkghttp.ExtractClientIP(r, cfg)
	assert.Equal(t, "198.51.100.1", ip)
}

func TestExtractClientIP_UnknownFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = ""

	ip := pkghttp.ExtractClientIP(r, nil)
	assert.Equal(t, pkghttp.UnknownClient, ip)
}
