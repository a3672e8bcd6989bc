package keychan

import (
	"sync"
	"testing"
	"time"

	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPushDrain 测试基本入队出队顺序
func TestPushDrain(t *testing.T) {
	c := New()
	assert.False(t, c.Pending())
	assert.Empty(t, c.Drain())

	c.Push(keymap.RawToken(40))
	c.Push(keymap.CharToken(30, 'a'))
	c.Push(keymap.NamedToken(57, keymap.NamedSpace))

	assert.True(t, c.Pending())
	assert.Equal(t, 3, c.Len())

	got := c.Drain()
	assert.Equal(t, []keymap.KeyToken{
		keymap.RawToken(40),
		keymap.CharToken(30, 'a'),
		keymap.NamedToken(57, keymap.NamedSpace),
	}, got)
	assert.False(t, c.Pending())
	assert.Empty(t, c.Drain())
}

// TestWakeCoalesces 测试唤醒脉冲合并：多次入队只需一次唤醒即可取走全部
func TestWakeCoalesces(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.Push(keymap.RawToken(i))
	}

	select {
	case <-c.Wake():
	case <-time.After(time.Second):
		t.Fatal("应收到唤醒信号")
	}

	select {
	case <-c.Wake():
		t.Fatal("连续脉冲应合并为一次")
	default:
	}

	assert.Len(t, c.Drain(), 5)
}

// TestSpuriousWake 测试多余的唤醒不会产生令牌
func TestSpuriousWake(t *testing.T) {
	c := New()
	c.Push(keymap.RawToken(1))
	assert.Len(t, c.Drain(), 1)

	<-c.Wake()
	c.wake <- struct{}{}
	<-c.Wake()
	assert.Empty(t, c.Drain())
}

// TestConcurrentBurstFIFO 测试并发突发输入下不丢失、不重排
//
// 单个生产者的令牌必须严格按顺序到达，多个生产者之间总数守恒。
func TestConcurrentBurstFIFO(t *testing.T) {
	const producers = 4
	const perProducer = 5000

	c := New()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				c.Push(keymap.RawToken(p*perProducer + i))
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var got []keymap.KeyToken
	consume := func() {
		got = append(got, c.Drain()...)
	}
loop:
	for {
		select {
		case <-c.Wake():
			consume()
		case <-done:
			break loop
		}
	}
	require.Eventually(t, func() bool {
		consume()
		return len(got) == producers*perProducer
	}, time.Second, time.Millisecond)

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for _, tok := range got {
		p, seq := tok.Code/perProducer, tok.Code%perProducer
		require.Greater(t, seq, last[p], "生产者 %d 的令牌发生重排", p)
		last[p] = seq
	}
	for p := range last {
		assert.Equal(t, perProducer-1, last[p])
	}
	assert.False(t, c.Pending())
}
