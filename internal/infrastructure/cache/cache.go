/**
 * Package cache 提供带 TTL 的进程内缓存
 *
 * 用于缓存远程搜索结果与解析出的音频流地址
 */

package cache

import (
	"sync/atomic"
	"time"
)

/**
 * Cache 缓存接口
 */
type Cache[V any] interface {
	// Get 获取缓存值，过期视为未命中
	Get(key string) (V, bool)

	// Set 设置缓存值，ttl 为 0 表示使用默认 TTL
	Set(key string, value V, ttl time.Duration)

	// Delete 删除缓存
	Delete(key string)

	// Clear 清空所有缓存
	Clear()

	// Count 当前缓存项数量（含尚未清理的过期项）
	Count() int

	// Stop 停止后台清理
	Stop()
}

/**
 * CacheStats 缓存统计信息
 */
type CacheStats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// Snapshot 统计快照
type Snapshot struct {
	Hits, Misses, Sets, Evictions int64
}

// Snapshot 读取当前统计
func (s *CacheStats) Snapshot() Snapshot {
	return Snapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Sets:      s.sets.Load(),
		Evictions: s.evictions.Load(),
	}
}

/**
 * HitRate 缓存命中率（0-1）
 */
func (s *CacheStats) HitRate() float64 {
	hits, misses := s.hits.Load(), s.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
