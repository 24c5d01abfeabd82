package web

import (
	"sync"
	"time"

	"netsonic/internal/isp"
)

// infoCache keeps the last resolved provider answer for ttl
type infoCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	info    isp.Info
	expires time.Time
}

func newInfoCache(ttl time.Duration) *infoCache {
	return &infoCache{ttl: ttl}
}

func (c *infoCache) get() (isp.Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expires.IsZero() || time.Now().After(c.expires) {
		return isp.Info{}, false
	}
	return c.info, true
}

func (c *infoCache) set(info isp.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = info
	c.expires = time.Now().Add(c.ttl)
}
