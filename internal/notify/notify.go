// Package notify 在开始播放时发出桌面通知。
package notify

import (
	"sync"

	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// Urgency 通知优先级
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification 一条桌面通知
type Notification struct {
	Title string
	Body  string
	Icon  string

	// Timeout 毫秒，-1 使用服务端默认值
	Timeout int32

	// ReplacesID 非零时替换已有通知
	ReplacesID uint32
	Urgency    Urgency
}

// Notifier 桌面通知后端
type Notifier interface {
	// Notify 发出通知并返回其 ID，通知不可用时返回 0
	Notify(n Notification) (uint32, error)

	// Close 关闭通知
	Close(id uint32) error
}

// Subscriber 事件订阅方
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) string
	Unsubscribe(subscriberID string)
}

// Watcher 把播放事件转成通知，同一时刻只保留一条
type Watcher struct {
	notifier Notifier

	mu     sync.Mutex
	lastID uint32
	bus    Subscriber
	subs   []string
	log    *zap.Logger
}

// NewWatcher 创建通知监听器
func NewWatcher(n Notifier) *Watcher {
	return &Watcher{
		notifier: n,
		log:      logger.With(zap.String("component", "notify")),
	}
}

// Attach 订阅播放事件
func (w *Watcher) Attach(bus Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bus != nil {
		return
	}
	w.bus = bus
	w.subs = []string{
		bus.Subscribe(events.EventTypePlaybackStarted, w.handle),
		bus.Subscribe(events.EventTypePlaybackFailed, w.handle),
	}
}

func (w *Watcher) handle(e events.Event) error {
	n := Notification{
		Body:    e.StringField("display"),
		Timeout: -1,
		Urgency: UrgencyLow,
	}
	switch e.Type {
	case events.EventTypePlaybackStarted:
		n.Title = "Now playing"
	case events.EventTypePlaybackFailed:
		n.Title = "Cannot play"
		n.Urgency = UrgencyNormal
		if msg := e.StringField("error"); msg != "" {
			n.Body += "\n" + msg
		}
	default:
		return nil
	}

	w.mu.Lock()
	n.ReplacesID = w.lastID
	w.mu.Unlock()

	id, err := w.notifier.Notify(n)
	if err != nil {
		w.log.Debug("Notification failed", zap.Error(err))
		return nil
	}

	w.mu.Lock()
	w.lastID = id
	w.mu.Unlock()
	return nil
}

// Stop 取消订阅并关闭最后一条通知
func (w *Watcher) Stop() {
	w.mu.Lock()
	bus, subs, last := w.bus, w.subs, w.lastID
	w.bus, w.subs, w.lastID = nil, nil, 0
	w.mu.Unlock()

	if bus == nil {
		return
	}
	for _, id := range subs {
		bus.Unsubscribe(id)
	}
	if last != 0 {
		_ = w.notifier.Close(last)
	}
}
