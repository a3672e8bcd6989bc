// Package keychan 把键盘钩子线程产生的按键令牌安全地交给 UI 线程。
//
// 生产者（钩子回调）只做无锁入队和一次非阻塞唤醒，永不阻塞；
// 消费者（UI 线程）每次被唤醒都取走全部待处理令牌。
// 唤醒信号与入队不是原子的，多余或缺失的唤醒都不会丢失或重排令牌。
package keychan

import (
	"sync/atomic"

	"github.com/chenyang-zz/windj/internal/keymap"
)

// node 队列节点
type node struct {
	tok  keymap.KeyToken
	next atomic.Pointer[node]
}

// Channel 无界 FIFO 令牌队列加唤醒脉冲
//
// Push 可被多个生产者并发调用，Drain 只允许单个消费者调用。
type Channel struct {
	// head 消费端哨兵节点，只被消费者访问
	head *node

	// tail 生产端最新节点
	tail atomic.Pointer[node]

	// length 待处理令牌数
	length atomic.Int64

	// wake 容量为 1 的唤醒信号，连续脉冲会合并
	wake chan struct{}
}

// New 创建空通道
func New() *Channel {
	stub := &node{}
	c := &Channel{
		head: stub,
		wake: make(chan struct{}, 1),
	}
	c.tail.Store(stub)
	return c
}

// Push 入队并发出一次唤醒脉冲，永不阻塞
func (c *Channel) Push(tok keymap.KeyToken) {
	n := &node{tok: tok}
	c.length.Add(1)
	prev := c.tail.Swap(n)
	prev.next.Store(n)

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Wake 唤醒信号通道
func (c *Channel) Wake() <-chan struct{} {
	return c.wake
}

// Drain 取走当前所有可见的令牌，按入队顺序返回
//
// 生产者在 Swap 与链接之间被打断时，该节点及其后继留到下一次 Drain。
func (c *Channel) Drain() []keymap.KeyToken {
	var out []keymap.KeyToken
	for {
		next := c.head.next.Load()
		if next == nil {
			break
		}
		out = append(out, next.tok)
		c.head = next
		next.tok = keymap.KeyToken{}
	}
	if len(out) > 0 {
		c.length.Add(-int64(len(out)))
	}
	return out
}

// Pending 是否还有未取走的令牌
func (c *Channel) Pending() bool {
	return c.length.Load() > 0
}

// Len 待处理令牌数，仅用于诊断
func (c *Channel) Len() int {
	return int(c.length.Load())
}
