package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownIdentifier is the shared bucket for clients whose address
// cannot be derived from any forwarding header. All such clients share
// one quota, an accepted weakness of header-based identification.
const UnknownIdentifier = "unknown"

// ClientIP derives the rate-limit identifier from forwarding headers,
// in order of preference.
func ClientIP(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		// Can contain multiple addresses, take the first one.
		return strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	if vercelForwardedFor := r.Header.Get("X-Vercel-Forwarded-For"); vercelForwardedFor != "" {
		return strings.TrimSpace(strings.Split(vercelForwardedFor, ",")[0])
	}

	return UnknownIdentifier
}
