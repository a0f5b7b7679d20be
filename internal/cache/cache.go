package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/asset-hub/asset-hub/internal/assets"
)

// Loader resolves a request path into an asset. The assets.Resolver is the
// production implementation; tests inject counters.
type Loader interface {
	Resolve(requestPath string) (assets.Asset, error)
}

// Cache 按请求路径记忆化 Loader 的结果。同一个 key 的并发 miss 只会触发
// 一次 Resolve，所有等待者共享同一个结果或同一个失败。
type Cache struct {
	loader Loader
	spec   Spec
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	weight  int64

	now func() time.Time // replaced in expiry tests
}

type entry struct {
	key        string
	asset      assets.Asset // nil marks a memoized "not found"
	weight     int64
	writtenAt  time.Time
	accessedAt time.Time
}

// New builds a cache over loader with the given eviction spec.
func New(loader Loader, spec Spec) *Cache {
	return &Cache{
		loader:  loader,
		spec:    spec,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the memoized asset for key, loading it on first access.
// A memoized miss returns assets.ErrNotFound without touching the loader.
func (c *Cache) Get(key string) (assets.Asset, error) {
	if asset, hit := c.lookup(key); hit {
		if asset == nil {
			return nil, assets.ErrNotFound
		}
		return asset, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have finished
		// the load between our miss and joining the group.
		if asset, hit := c.lookup(key); hit {
			if asset == nil {
				return nil, assets.ErrNotFound
			}
			return asset, nil
		}

		asset, err := c.loader.Resolve(key)
		if err != nil {
			// Failures are memoized as "not found" so a missing path does
			// not rescan the store on every request.
			c.store(key, nil)
			return nil, assets.ErrNotFound
		}
		c.store(key, asset)
		return asset, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(assets.Asset), nil
}

// Len 返回当前缓存条目数（含负缓存），仅用于观测与测试。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup returns the cached asset and whether the key was present. Expired
// entries are dropped on the way out.
func (c *Cache) lookup(key string) (assets.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)

	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(el)
		return nil, false
	}

	e.accessedAt = now
	c.order.MoveToFront(el)
	return e.asset, true
}

// negativeEntryWeight charges memoized misses against a maximumWeight cap.
// Without it distinct missing paths would accumulate unbounded.
const negativeEntryWeight = 128

func (c *Cache) store(key string, asset assets.Asset) {
	weight := int64(negativeEntryWeight)
	if asset != nil {
		weight = asset.Snapshot().Size()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}

	now := c.now()
	el := c.order.PushFront(&entry{
		key:        key,
		asset:      asset,
		weight:     weight,
		writtenAt:  now,
		accessedAt: now,
	})
	c.entries[key] = el
	c.weight += weight
	c.evictLocked()
}

// evictLocked drops least recently used entries until the active cap is
// satisfied again.
func (c *Cache) evictLocked() {
	for c.overCapLocked() {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.removeLocked(back)
	}
}

func (c *Cache) overCapLocked() bool {
	if c.spec.MaximumSize > 0 && int64(len(c.entries)) > c.spec.MaximumSize {
		return true
	}
	if c.spec.MaximumWeight > 0 && c.weight > c.spec.MaximumWeight {
		return true
	}
	return false
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.entries, e.key)
	c.weight -= e.weight
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	if c.spec.ExpireAfterWrite > 0 && now.Sub(e.writtenAt) >= c.spec.ExpireAfterWrite {
		return true
	}
	if c.spec.ExpireAfterAccess > 0 && now.Sub(e.accessedAt) >= c.spec.ExpireAfterAccess {
		return true
	}
	return false
}
