/**
 * Package events 提供事件总线实现
 *
 * EventBus 是发布-订阅模式的核心实现：
 * - 每个订阅者拥有独立通道与处理 goroutine
 * - 发布永不阻塞，订阅者缓冲区满时丢弃事件
 * - 中间件链包装订阅者处理函数
 */

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chenyang-zz/windj/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusStopped 事件总线已停止
var ErrBusStopped = errors.New("event bus is stopped")

/**
 * EventHandler 事件处理函数类型
 */
type EventHandler func(event Event) error

/**
 * Middleware 中间件类型
 */
type Middleware func(EventHandler) EventHandler

/**
 * subscriber 订阅者信息
 */
type subscriber struct {
	id      string
	handler EventHandler
	ch      chan Event

	// mu 保护 ch 的发送与关闭
	mu     sync.RWMutex
	closed bool
}

/**
 * EventBus 事件总线
 */
type EventBus struct {
	// subscribers 事件类型 -> 订阅者列表，"*" 表示订阅全部
	subscribers map[EventType][]*subscriber

	mutex sync.RWMutex
	wg    sync.WaitGroup

	stopChan chan struct{}
	stopped  atomic.Bool

	middleware []Middleware
	bufferSize int
}

/**
 * Option 配置选项类型
 */
type Option func(*EventBus)

/**
 * WithBufferSize 设置每个订阅者的缓冲区大小
 */
func WithBufferSize(size int) Option {
	return func(bus *EventBus) {
		if size > 0 {
			bus.bufferSize = size
		}
	}
}

/**
 * NewEventBus 创建新的事件总线
 *
 * Parameters:
 *   - opts: 配置选项（可选）
 *
 * Returns:
 *   - *EventBus: 新创建的事件总线
 */
func NewEventBus(opts ...Option) *EventBus {
	bus := &EventBus{
		subscribers: make(map[EventType][]*subscriber),
		stopChan:    make(chan struct{}),
		bufferSize:  256,
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

/**
 * Subscribe 订阅事件
 *
 * Parameters:
 *   - eventType: 事件类型，使用 "*" 订阅所有事件
 *   - handler: 事件处理函数
 *
 * Returns:
 *   - string: 订阅者 ID，用于取消订阅
 */
func (bus *EventBus) Subscribe(eventType EventType, handler EventHandler) string {
	sub := &subscriber{
		id:      uuid.New().String(),
		handler: handler,
		ch:      make(chan Event, bus.bufferSize),
	}

	bus.mutex.Lock()
	bus.subscribers[eventType] = append(bus.subscribers[eventType], sub)
	bus.mutex.Unlock()

	logger.Debug("订阅事件",
		zap.String("event_type", string(eventType)),
		zap.String("subscriber_id", sub.id),
	)

	bus.wg.Add(1)
	go bus.process(sub)

	return sub.id
}

/**
 * Unsubscribe 取消订阅
 */
func (bus *EventBus) Unsubscribe(subscriberID string) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	for eventType, subs := range bus.subscribers {
		for i, sub := range subs {
			if sub.id != subscriberID {
				continue
			}
			bus.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)

			sub.mu.Lock()
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
			sub.mu.Unlock()
			return
		}
	}
}

/**
 * Publish 发布事件
 *
 * 事件被投递到所有匹配订阅者的通道后立即返回，不等待处理。
 *
 * Returns:
 *   - error: 总线已停止时返回 ErrBusStopped
 */
func (bus *EventBus) Publish(event Event) error {
	if bus.stopped.Load() {
		return ErrBusStopped
	}

	bus.mutex.RLock()
	subs := make([]*subscriber, 0, len(bus.subscribers[event.Type])+len(bus.subscribers["*"]))
	subs = append(subs, bus.subscribers[event.Type]...)
	subs = append(subs, bus.subscribers["*"]...)
	bus.mutex.RUnlock()

	for _, sub := range subs {
		sub.mu.RLock()
		if !sub.closed {
			select {
			case sub.ch <- event:
			default:
				logger.Warn("事件缓冲区满，丢弃事件",
					zap.String("subscriber_id", sub.id),
					zap.String("event_type", string(event.Type)),
				)
			}
		}
		sub.mu.RUnlock()
	}

	return nil
}

/**
 * Use 添加中间件，按添加顺序由外向内执行
 */
func (bus *EventBus) Use(middleware Middleware) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.middleware = append(bus.middleware, middleware)
}

/**
 * Stop 优雅停止事件总线
 *
 * Parameters:
 *   - timeout: 等待订阅者退出的超时时间
 *
 * Returns:
 *   - error: 超时返回错误
 */
func (bus *EventBus) Stop(timeout time.Duration) error {
	if !bus.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(bus.stopChan)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		bus.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for event bus to stop")
	}
}

// process 订阅者处理循环
func (bus *EventBus) process(sub *subscriber) {
	defer bus.wg.Done()

	for {
		select {
		case event, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := bus.wrap(sub.handler)(event); err != nil {
				logger.Error("事件处理错误",
					zap.String("subscriber_id", sub.id),
					zap.String("event_type", string(event.Type)),
					zap.Error(err),
				)
			}
		case <-bus.stopChan:
			return
		}
	}
}

// wrap 应用中间件链（洋葱模型）
func (bus *EventBus) wrap(handler EventHandler) EventHandler {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	for i := len(bus.middleware) - 1; i >= 0; i-- {
		handler = bus.middleware[i](handler)
	}
	return handler
}

/**
 * RecoveryMiddleware 恢复中间件
 *
 * 防止事件处理函数中的 panic 导致程序崩溃
 */
func RecoveryMiddleware() Middleware {
	return func(next EventHandler) EventHandler {
		return func(event Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(event)
		}
	}
}

/**
 * LoggingMiddleware 日志中间件，以 Debug 级别记录每个被处理的事件
 */
func LoggingMiddleware() Middleware {
	return func(next EventHandler) EventHandler {
		return func(event Event) error {
			logger.Debug("处理事件",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
			)
			return next(event)
		}
	}
}
