// Package fingerprint derives pseudonymous visitor identifiers from network
// addresses so raw IPs never reach the store.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"portfolio-be/internal/domain"
)

// LoopbackAddress is used when a request carries no forwarding headers
const LoopbackAddress = "127.0.0.1"

const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
)

// Compute returns the lowercase hex digest of address. With a secret the
// digest is HMAC-SHA-256 keyed by it; without one it is plain SHA-256, which
// anyone can reproduce for a guessed address, so production deployments must
// set a secret.
func Compute(address, secret string) domain.Fingerprint {
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(address))
		return domain.Fingerprint(hex.EncodeToString(mac.Sum(nil)))
	}

	sum := sha256.Sum256([]byte(address))
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}

// ResolveAddress picks the best-available client address from request headers:
// the first X-Forwarded-For entry, then X-Real-IP, then the loopback literal.
// The value is not validated as an IP.
func ResolveAddress(h http.Header) string {
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(h.Get(HeaderRealIP)); realIP != "" {
		return realIP
	}

	return LoopbackAddress
}

// ResolveLastHop returns the address the nearest proxy saw: the last
// X-Forwarded-For entry, which the proxy appends itself, or the host part of
// RemoteAddr when no proxy is in front. Unlike ResolveAddress the result
// cannot be chosen by the client when a proxy is present.
func ResolveLastHop(r *http.Request) string {
	if values := r.Header.Values(HeaderForwardedFor); len(values) > 0 {
		entries := strings.Split(values[len(values)-1], ",")
		if last := strings.TrimSpace(entries[len(entries)-1]); last != "" {
			return last
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
