// Package bridge 是键盘钩子进入 UI 线程的唯一入口。
//
// 钩子回调只往 keychan 入队，bridge 在自己的 goroutine 上等待唤醒脉冲，
// 然后向 UI 事件循环注入一条 DrainKeysMsg，由 UI 线程取走全部令牌。
package bridge

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// DefaultPollInterval 有界等待时长
const DefaultPollInterval = 200 * time.Millisecond

// DrainKeysMsg 请求 UI 线程取走并处理所有待处理按键
type DrainKeysMsg struct{}

// Source 令牌来源，由 keychan.Channel 实现
type Source interface {
	Wake() <-chan struct{}
	Pending() bool
}

// Poster 向 UI 事件循环投递消息，由 *tea.Program 实现
type Poster interface {
	Send(msg tea.Msg)
}

// Bridge 唤醒等待循环
type Bridge struct {
	source   Source
	poster   Poster
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New 创建 bridge，interval <= 0 时使用 DefaultPollInterval
func New(source Source, poster Poster, interval time.Duration) *Bridge {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Bridge{
		source:   source,
		poster:   poster,
		interval: interval,
	}
}

// Start 在后台 goroutine 上运行 Run，重复调用无效果
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.running = true

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Run(ctx)
	}()
}

// Stop 取消等待循环并等待其退出
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.running = false
	b.mu.Unlock()

	b.wg.Wait()
}

// Run 阻塞运行直到 ctx 取消
//
// 每次唤醒投递一条消息。超时时若仍有待处理令牌也投递一条，
// 这样即使唤醒脉冲丢失，令牌最多延迟一个等待周期。
func (b *Bridge) Run(ctx context.Context) {
	log := logger.With(zap.String("component", "bridge"))
	log.Debug("Bridge started", zap.Duration("interval", b.interval))
	defer log.Debug("Bridge stopped")

	timer := time.NewTimer(b.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.source.Wake():
			b.poster.Send(DrainKeysMsg{})
		case <-timer.C:
			if b.source.Pending() {
				b.poster.Send(DrainKeysMsg{})
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(b.interval)
	}
}
