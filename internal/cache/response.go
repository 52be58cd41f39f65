package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultResponseTTL caps how long a computed response may be served after
// the version that produced it is orphaned by restart or counter expiry.
const DefaultResponseTTL = 60 * time.Second

const responseCacheSize = 8192

// ResponseCache memoizes rendered list and summary payloads. Invalidation
// is by versioning: a bump in the tenant counter changes every key, so old
// entries simply age out.
type ResponseCache struct {
	entries  *expirable.LRU[string, []byte]
	versions *Versions
}

func NewResponseCache(ttl time.Duration, versions *Versions) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultResponseTTL
	}
	return &ResponseCache{
		entries:  expirable.NewLRU[string, []byte](responseCacheSize, nil, ttl),
		versions: versions,
	}
}

// Key builds the cache key for an endpoint, tenant and raw query string at
// the tenant's current version.
func (c *ResponseCache) Key(endpoint, tenantID, rawQuery string) string {
	version := c.versions.Get(tenantID)
	return fmt.Sprintf("%s:%s:%d:%s", endpoint, tenantID, version, rawQuery)
}

func (c *ResponseCache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *ResponseCache) Set(key string, payload []byte) {
	c.entries.Add(key, payload)
}
