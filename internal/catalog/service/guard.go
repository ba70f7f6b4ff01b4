package service

import "crypto/subtle"

// AccessGuard checks the shared secret presented to the sync endpoint.
type AccessGuard struct {
	secret []byte
}

// NewAccessGuard creates a guard. An empty secret rejects every token.
func NewAccessGuard(secret string) *AccessGuard {
	return &AccessGuard{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (g *AccessGuard) Enabled() bool {
	return len(g.secret) > 0
}

// Authorize compares token against the secret in constant time.
func (g *AccessGuard) Authorize(token string) bool {
	if len(g.secret) == 0 || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), g.secret) == 1
}
