package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache[V any](t *testing.T, opts Options) (*MemoryCache[V], *fakeClock) {
	t.Helper()
	c := NewMemoryCache[V](opts)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	t.Cleanup(c.Stop)
	return c, clock
}

// TestMemoryCache_SetGet 测试基本读写
func TestMemoryCache_SetGet(t *testing.T) {
	c, _ := newTestCache[[]string](t, Options{})

	c.Set("lofi", []string{"a", "b"}, 0)
	v, ok := c.Get("lofi")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

// TestMemoryCache_Expiration 测试显式 TTL 与默认 TTL
func TestMemoryCache_Expiration(t *testing.T) {
	c, clock := newTestCache[string](t, Options{DefaultTTL: time.Minute})

	c.Set("short", "x", time.Second)
	c.Set("default", "y", 0)

	clock.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok, "显式 TTL 已过期")
	_, ok = c.Get("default")
	assert.True(t, ok, "默认 TTL 未过期")

	clock.Advance(time.Minute)
	_, ok = c.Get("default")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Count(), "过期项在访问时删除")
}

// TestMemoryCache_LRUEviction 测试容量淘汰
func TestMemoryCache_LRUEviction(t *testing.T) {
	c, clock := newTestCache[int](t, Options{MaxSize: 2})

	c.Set("a", 1, 0)
	clock.Advance(time.Millisecond)
	c.Set("b", 2, 0)
	clock.Advance(time.Millisecond)

	_, _ = c.Get("a")
	clock.Advance(time.Millisecond)

	c.Set("c", 3, 0)
	assert.Equal(t, 2, c.Count())

	_, ok := c.Get("b")
	assert.False(t, ok, "b 最久未访问，应被淘汰")
	_, ok = c.Get("a")
	assert.True(t, ok)

	c.Set("a", 10, 0)
	assert.Equal(t, 2, c.Count(), "覆盖已有键不触发淘汰")
}

// TestMemoryCache_Cleanup 测试后台清理
func TestMemoryCache_Cleanup(t *testing.T) {
	c := NewMemoryCache[string](Options{CleanupInterval: 10 * time.Millisecond})
	defer c.Stop()

	c.Set("gone", "x", 20*time.Millisecond)
	c.Set("kept", "y", time.Hour)

	require.Eventually(t, func() bool { return c.Count() == 1 }, time.Second, 10*time.Millisecond)
	_, ok := c.Get("kept")
	assert.True(t, ok)
}

// TestMemoryCache_DeleteClear 测试删除与清空
func TestMemoryCache_DeleteClear(t *testing.T) {
	c, _ := newTestCache[int](t, Options{})
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Count())
}

// TestMemoryCache_Stats 测试统计
func TestMemoryCache_Stats(t *testing.T) {
	c, _ := newTestCache[int](t, Options{})
	c.Set("a", 1, 0)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats().Snapshot()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
	assert.InDelta(t, 2.0/3.0, c.Stats().HitRate(), 0.001)
}

// TestMemoryCache_ConcurrentAccess 测试并发访问
func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache[int](Options{MaxSize: 50})
	defer c.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%80)
				c.Set(key, i, 0)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Count(), 50)
}

// TestMemoryCache_Stop 测试停止幂等
func TestMemoryCache_Stop(t *testing.T) {
	c := NewMemoryCache[int](Options{CleanupInterval: time.Millisecond})
	c.Set("a", 1, 0)

	c.Stop()
	c.Stop()
	assert.Equal(t, 0, c.Count())
}
