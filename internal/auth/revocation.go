package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Revocations is the process-local registry of revoked token ids. Entries
// carry the token's remaining lifetime as TTL, so a revoked jti stops being
// reported once the token would have expired anyway. Safe for concurrent use.
//
// A logout seen by this process does not revoke the token on other instances;
// deployments running more than one replica need an externalized registry.
type Revocations struct {
	c *gocache.Cache
}

// NewRevocations constructs an empty registry. Expired entries are purged
// lazily on lookup and by the cache janitor every minute.
func NewRevocations() *Revocations {
	return &Revocations{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

// Revoke records the jti until its original expiry. Idempotent; revoking an
// already-expired token is harmless and stores nothing that will ever match.
func (r *Revocations) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past its natural expiry; verification rejects it regardless.
		return
	}
	r.c.Set(jti, struct{}{}, ttl)
}

// IsRevoked reports whether the jti was revoked and has not yet reached its
// original expiry.
func (r *Revocations) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	_, found := r.c.Get(jti)
	return found
}

// Len returns the number of live entries, counting not-yet-purged expired ones.
func (r *Revocations) Len() int {
	return r.c.ItemCount()
}
