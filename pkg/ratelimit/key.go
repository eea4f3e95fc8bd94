package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// maxPartLength bounds a single key part taken from a request so that
// attacker-controlled values cannot produce oversized storage keys.
const maxPartLength = 64

// KeyFunc extracts key parts from an HTTP request. Returning no parts skips
// limiting for that request.
type KeyFunc func(*http.Request) []string

// RemoteIP keys requests by client IP, without the port.
func RemoteIP(r *http.Request) []string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return nil
	}
	return []string{host}
}

// Composite concatenates the parts of several key funcs. Parts longer than
// 64 characters are replaced by 32 hex chars of their SHA256.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) []string {
		var parts []string
		for _, fn := range keyFuncs {
			for _, p := range fn(r) {
				if p == "" {
					continue
				}
				parts = append(parts, normalizePart(p))
			}
		}
		return parts
	}
}

func normalizePart(p string) string {
	// ':' separates key parts and must not leak in from request values.
	p = strings.ReplaceAll(p, ":", "_")
	if len(p) <= maxPartLength {
		return p
	}
	hash := sha256.Sum256([]byte(p))
	return hex.EncodeToString(hash[:16])
}
