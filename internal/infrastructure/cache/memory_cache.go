package cache

import (
	"sync"
	"time"

	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

var _ Cache[string] = (*MemoryCache[string])(nil)

type cacheItem[V any] struct {
	value      V
	expiration time.Time
	accessedAt time.Time
}

func (item *cacheItem[V]) isExpired(now time.Time) bool {
	return !item.expiration.IsZero() && now.After(item.expiration)
}

/**
 * MemoryCache 内存缓存实现
 *
 * 特性：
 * - 并发安全
 * - TTL 与默认 TTL
 * - 超出容量时淘汰最久未访问的项
 * - 定期清理过期项
 */
type MemoryCache[V any] struct {
	items map[string]*cacheItem[V]
	mu    sync.Mutex

	// maxSize 最大缓存项数（0 表示无限制）
	maxSize int

	// defaultTTL Set 传入 0 时使用（0 表示永不过期）
	defaultTTL time.Duration

	stats CacheStats
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

/**
 * Options 内存缓存选项
 */
type Options struct {
	MaxSize         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

/**
 * NewMemoryCache 创建内存缓存
 *
 * CleanupInterval 为 0 时不启动后台清理，过期项在访问时删除
 */
func NewMemoryCache[V any](opts Options) *MemoryCache[V] {
	c := &MemoryCache[V]{
		items:      make(map[string]*cacheItem[V]),
		maxSize:    opts.MaxSize,
		defaultTTL: opts.DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop(opts.CleanupInterval)
	}
	return c
}

// Set 设置缓存值
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	item := &cacheItem[V]{value: value, accessedAt: now}
	if ttl > 0 {
		item.expiration = now.Add(ttl)
	}

	if _, exists := c.items[key]; !exists && c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.evictLRU()
	}
	c.items[key] = item
	c.stats.sets.Add(1)
}

// Get 获取缓存值
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, ok := c.items[key]
	if !ok {
		c.stats.misses.Add(1)
		return zero, false
	}

	now := c.now()
	if item.isExpired(now) {
		delete(c.items, key)
		c.stats.misses.Add(1)
		c.stats.evictions.Add(1)
		return zero, false
	}

	item.accessedAt = now
	c.stats.hits.Add(1)
	return item.value, true
}

// Delete 删除缓存
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear 清空所有缓存
func (c *MemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheItem[V])
}

// Count 缓存项数量
func (c *MemoryCache[V]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats 统计信息
func (c *MemoryCache[V]) Stats() *CacheStats {
	return &c.stats
}

// evictLRU 必须持有 mu
func (c *MemoryCache[V]) evictLRU() {
	var oldestKey string
	var oldest time.Time
	found := false

	for key, item := range c.items {
		if !found || item.accessedAt.Before(oldest) {
			oldestKey, oldest, found = key, item.accessedAt, true
		}
	}
	if found {
		delete(c.items, oldestKey)
		c.stats.evictions.Add(1)
	}
}

func (c *MemoryCache[V]) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache[V]) cleanup() {
	c.mu.Lock()
	now := c.now()
	deleted := 0
	for key, item := range c.items {
		if item.isExpired(now) {
			delete(c.items, key)
			deleted++
		}
	}
	remaining := len(c.items)
	c.mu.Unlock()

	if deleted > 0 {
		c.stats.evictions.Add(int64(deleted))
		logger.Debug("清理过期缓存",
			zap.String("component", "cache"),
			zap.Int("count", deleted),
			zap.Int("remaining", remaining))
	}
}

// Stop 停止后台清理并清空缓存，可重复调用
func (c *MemoryCache[V]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		c.Clear()
	})
}
