package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// PageContextCache keeps extracted page text in memory so repeated sends
// against the same page don't re-fetch the host LMS.
type PageContextCache struct {
	cache *cache.Cache
}

func NewPageContextCache() *PageContextCache {
	// 15 minute TTL, purge sweep every 5 minutes. Page content changes rarely
	// during a conversation, and a stale excerpt is harmless context.
	c := cache.New(15*time.Minute, 5*time.Minute)
	return &PageContextCache{
		cache: c,
	}
}

func (r *PageContextCache) Save(pageRef string, text string) {
	r.cache.Set(pageRef, text, cache.DefaultExpiration)
}

func (r *PageContextCache) Get(pageRef string) (string, bool) {
	if x, found := r.cache.Get(pageRef); found {
		return x.(string), true
	}
	return "", false
}

func (r *PageContextCache) Delete(pageRef string) {
	r.cache.Delete(pageRef)
}
