package report

import (
	"fmt"
	"sync"
	"time"
)

const (
	cacheTTL    = 30 * time.Second
	cacheCap    = 20
	cacheBucket = 10 // seconds
)

// previewCache keeps recent previews so repeated renders inside one time
// bucket are byte-identical without recomputation. It is a pure
// optimization and never the system of record.
type previewCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
}

type cacheEntry struct {
	artifact *Artifact
	storedAt time.Time
}

func newPreviewCache() *previewCache {
	return &previewCache{entries: make(map[string]cacheEntry)}
}

func cacheKey(kind Kind, scope Scope, params Params, now time.Time) string {
	bucket := now.Unix() / cacheBucket
	return fmt.Sprintf("%s|%s|%s|%d", kind, scope, params.canonical(), bucket)
}

func (c *previewCache) get(key string, now time.Time) *Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if now.Sub(entry.storedAt) >= cacheTTL {
		c.evict(key)
		return nil
	}
	return cloneArtifact(entry.artifact)
}

func (c *previewCache) put(key string, artifact *Artifact, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		for len(c.order) >= cacheCap {
			c.evict(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{artifact: cloneArtifact(artifact), storedAt: now}
}

// evict requires c.mu held.
func (c *previewCache) evict(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
