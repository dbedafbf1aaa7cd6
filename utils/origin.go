// utils/origin.go
package utils

import (
	"net"
	"strings"
)

// Address prefixes the swap provider must never receive as a caller origin.
var privateOriginPrefixes = []string{"192.168.", "10.", "172.16."}

// FirstOrigin picks the caller address from proxy headers in priority order:
// the first X-Forwarded-For hop, then X-Real-IP, then CF-Connecting-IP.
func FirstOrigin(forwardedFor, realIP, cfConnectingIP string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	if v := strings.TrimSpace(realIP); v != "" {
		return v
	}
	return strings.TrimSpace(cfConnectingIP)
}

// PublicOrigin returns raw when it is a forwardable public address and "" otherwise.
// Empty, unparsable, localhost, loopback and the 192.168./10./172.16. ranges are suppressed.
func PublicOrigin(raw string) string {
	origin := strings.TrimSpace(raw)
	if origin == "" || strings.EqualFold(origin, "localhost") {
		return ""
	}
	ip := net.ParseIP(origin)
	if ip == nil || ip.IsLoopback() {
		return ""
	}
	for _, prefix := range privateOriginPrefixes {
		if strings.HasPrefix(origin, prefix) {
			return ""
		}
	}
	return origin
}
