package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/**
 * TestNewEventBus 测试创建事件总线
 */
func TestNewEventBus(t *testing.T) {
	bus := NewEventBus(WithBufferSize(8))
	defer bus.Stop(time.Second)

	assert.NotNil(t, bus)
	assert.Equal(t, 8, bus.bufferSize)
	assert.False(t, bus.stopped.Load(), "新建总线应处于运行状态")
}

/**
 * TestSubscribe 测试订阅与投递
 */
func TestSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	var got atomic.Value
	id := bus.Subscribe(EventTypePlaybackStarted, func(event Event) error {
		got.Store(event.StringField("display"))
		return nil
	})
	assert.NotEmpty(t, id)

	event := NewEvent(EventTypePlaybackStarted, PlaybackEventData{Display: "Intro", Locator: "/music/Intro.mp3"}.ToMap())
	require.NoError(t, bus.Publish(*event))

	require.Eventually(t, func() bool {
		v, _ := got.Load().(string)
		return v == "Intro"
	}, time.Second, 10*time.Millisecond)
}

/**
 * TestSubscribeWildcard 测试通配符订阅
 */
func TestSubscribeWildcard(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	var count atomic.Int32
	bus.Subscribe("*", func(event Event) error {
		count.Add(1)
		return nil
	})

	for _, typ := range []EventType{EventTypePlaybackStarted, EventTypePlaybackStopped, EventTypeVolumeChanged} {
		require.NoError(t, bus.Publish(*NewEvent(typ, nil)))
	}

	require.Eventually(t, func() bool { return count.Load() == 3 }, time.Second, 10*time.Millisecond)
}

/**
 * TestSubscribeTypeIsolation 测试只收到订阅类型的事件
 */
func TestSubscribeTypeIsolation(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	var mu sync.Mutex
	var types []EventType
	bus.Subscribe(EventTypeVolumeChanged, func(event Event) error {
		mu.Lock()
		types = append(types, event.Type)
		mu.Unlock()
		return nil
	})

	require.NoError(t, bus.Publish(*NewEvent(EventTypePlaybackStarted, nil)))
	require.NoError(t, bus.Publish(*NewEvent(EventTypeVolumeChanged, map[string]interface{}{"volume": 51})))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []EventType{EventTypeVolumeChanged}, types)
	mu.Unlock()
}

/**
 * TestUnsubscribe 测试取消订阅
 */
func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)

	var count atomic.Int32
	id := bus.Subscribe(EventTypePlaybackStopped, func(event Event) error {
		count.Add(1)
		return nil
	})

	require.NoError(t, bus.Publish(*NewEvent(EventTypePlaybackStopped, nil)))
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 10*time.Millisecond)

	bus.Unsubscribe(id)
	bus.Unsubscribe(id)

	require.NoError(t, bus.Publish(*NewEvent(EventTypePlaybackStopped, nil)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load(), "取消订阅后不应再收到事件")
}

/**
 * TestEventAccessors 测试事件数据读取辅助方法
 */
func TestEventAccessors(t *testing.T) {
	event := NewEvent(EventTypeVolumeChanged, map[string]interface{}{
		"volume":  42,
		"display": "Outro",
		"ratio":   float64(3),
	}).WithMetadata("source", "keyboard")

	v, ok := event.IntField("volume")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	r, ok := event.IntField("ratio")
	assert.True(t, ok)
	assert.Equal(t, 3, r)

	_, ok = event.IntField("missing")
	assert.False(t, ok)

	assert.Equal(t, "Outro", event.StringField("display"))
	assert.Equal(t, "", event.StringField("volume"))
	assert.Equal(t, "keyboard", event.Metadata["source"])
	assert.NotEmpty(t, event.ID)
}

/**
 * TestRecoveryMiddleware 测试 panic 恢复
 */
func TestRecoveryMiddleware(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop(time.Second)
	bus.Use(RecoveryMiddleware())
	bus.Use(LoggingMiddleware())

	var after atomic.Bool
	bus.Subscribe(EventTypePlaybackFailed, func(event Event) error {
		if event.StringField("error") == "boom" {
			panic("boom")
		}
		after.Store(true)
		return nil
	})

	require.NoError(t, bus.Publish(*NewEvent(EventTypePlaybackFailed, map[string]interface{}{"error": "boom"})))
	require.NoError(t, bus.Publish(*NewEvent(EventTypePlaybackFailed, map[string]interface{}{"error": "ok"})))

	require.Eventually(t, after.Load, time.Second, 10*time.Millisecond, "panic 之后订阅者应继续工作")
}

/**
 * TestStop 测试停止后发布返回错误
 */
func TestStop(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe(EventTypePlaybackStarted, func(event Event) error { return nil })

	require.NoError(t, bus.Stop(time.Second))
	require.NoError(t, bus.Stop(time.Second), "重复停止应为幂等")

	assert.ErrorIs(t, bus.Publish(*NewEvent(EventTypePlaybackStarted, nil)), ErrBusStopped)
}

/**
 * TestConcurrentPublish 测试并发发布
 */
func TestConcurrentPublish(t *testing.T) {
	bus := NewEventBus(WithBufferSize(1000))
	defer bus.Stop(time.Second)

	var count atomic.Int32
	bus.Subscribe(EventTypeSearchQueried, func(event Event) error {
		count.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = bus.Publish(*NewEvent(EventTypeSearchQueried, nil))
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return count.Load() == 500 }, 2*time.Second, 10*time.Millisecond)
}
