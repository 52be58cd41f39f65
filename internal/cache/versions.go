// Package cache holds the per-tenant version counters and the read-through
// response cache built on them.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// DefaultVersionIdleLifetime is how long an untouched tenant counter
// survives. Expiry resets the counter to 1, which only orphans cached
// entries, it never serves stale data.
const DefaultVersionIdleLifetime = 6 * time.Hour

const versionCacheSize = 4096

// Versions tracks one monotonically increasing counter per tenant, used as
// a cache-key salt. Counters are process-local and reset on restart.
type Versions struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, int64]
	logger  zerolog.Logger
}

func NewVersions(idleLifetime time.Duration, logger zerolog.Logger) *Versions {
	if idleLifetime <= 0 {
		idleLifetime = DefaultVersionIdleLifetime
	}
	return &Versions{
		entries: expirable.NewLRU[string, int64](versionCacheSize, nil, idleLifetime),
		logger:  logger,
	}
}

// Get returns the tenant's current version, initializing to 1 on first
// access or after idle expiry.
func (v *Versions) Get(tenantID string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if version, ok := v.entries.Get(tenantID); ok {
		return version
	}
	v.entries.Add(tenantID, 1)
	return 1
}

// Increment bumps the tenant's version and refreshes its idle lifetime.
// Callers invoke it only after their write has committed.
func (v *Versions) Increment(tenantID string, reason string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	version := int64(1)
	if current, ok := v.entries.Get(tenantID); ok {
		version = current
	}
	v.entries.Add(tenantID, version+1)
	v.logger.Debug().
		Str("tenant", tenantID).
		Str("reason", reason).
		Int64("version", version+1).
		Msg("cache version bumped")
}
