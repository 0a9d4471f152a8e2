// Package identity resolves the per-caller key used to partition rate limits.
package identity

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is the shared bucket for requests with no usable address.
const Unknown = "unknown"

// Resolve derives the rate-limit key for a request. A single trusted reverse
// proxy is assumed to set X-Forwarded-For; the first entry is the original
// client. The value is not validated, so the header is spoofable when the
// service is reachable without that proxy in front.
func Resolve(header http.Header, remoteAddr string) string {
	if xff := header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	if remoteAddr != "" {
		return remoteAddr
	}
	return Unknown
}

// FromRequest resolves the key from an inbound HTTP request.
func FromRequest(r *http.Request) string {
	return Resolve(r.Header, r.RemoteAddr)
}
