// Package ui 运行 bubbletea 程序，它的 Update 循环是唯一修改应用状态的 goroutine。
package ui

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// Sender 向 UI 循环注入消息，*tea.Program 满足该接口
type Sender interface {
	Send(msg tea.Msg)
}

// postMsg 在 UI goroutine 上执行的函数
type postMsg struct {
	fn func()
}

// Loop 其他 goroutine 进入 UI 循环的唯一入口
//
// 同时实现 interpreter.Poster 与 controller.Scheduler。
type Loop struct {
	mu     sync.RWMutex
	sender Sender
}

// NewLoop 创建尚未绑定程序的循环入口
func NewLoop() *Loop {
	return &Loop{}
}

// Attach 绑定程序，之前投递的函数会被丢弃
func (l *Loop) Attach(s Sender) {
	l.mu.Lock()
	l.sender = s
	l.mu.Unlock()
}

// Send 注入任意消息
func (l *Loop) Send(msg tea.Msg) {
	l.mu.RLock()
	s := l.sender
	l.mu.RUnlock()
	if s == nil {
		logger.Warn("UI loop not attached, message dropped", zap.String("component", "ui"))
		return
	}
	s.Send(msg)
}

// Post 把 fn 投递到 UI goroutine，可在任何 goroutine 上调用，不可在 Update 内调用
func (l *Loop) Post(fn func()) {
	l.Send(postMsg{fn: fn})
}

// loopTimer Stop 之后即使回调已经投递也不会执行
type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	lt.stopped.Store(true)
	return lt.t.Stop()
}

// AfterFunc d 之后在 UI goroutine 上执行 fn
func (l *Loop) AfterFunc(d time.Duration, fn func()) controller.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if !lt.stopped.Load() {
				fn()
			}
		})
	})
	return lt
}
