//go:build windows || darwin

package platform

import (
	"fmt"
	"sync"

	hk "golang.design/x/hotkey"
)

// GrabKeyboardMonitor 把每个控制键注册为系统热键
//
// 注册过的键被系统直接交给本进程，其他程序收不到，
// 但也只能收到这些键，搜索文本输入不可用。
type GrabKeyboardMonitor struct {
	keys    []int
	hotkeys []*hk.Hotkey

	isRunning bool
	mu        sync.Mutex
	stop      chan struct{}
	wg        sync.WaitGroup
}

func newGrabMonitor(keys []int) (KeyboardMonitor, error) {
	return &GrabKeyboardMonitor{keys: keys}, nil
}

// Start 注册全部热键，任意一个失败则回滚已注册的热键
func (gm *GrabKeyboardMonitor) Start(callback KeyboardCallback) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if gm.isRunning {
		return fmt.Errorf("keyboard monitor already running")
	}

	gm.stop = make(chan struct{})
	gm.hotkeys = gm.hotkeys[:0]
	keydowns := make([]<-chan hk.Event, 0, len(gm.keys))
	for _, code := range gm.keys {
		h := hk.New([]hk.Modifier{}, hk.Key(code))
		if err := h.Register(); err != nil {
			gm.unregisterAll()
			return fmt.Errorf("register hotkey %d: %w", code, err)
		}
		gm.hotkeys = append(gm.hotkeys, h)
		keydowns = append(keydowns, h.Keydown())
	}

	// 单个读取者保证不同热键之间的到达顺序
	gm.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer gm.wg.Done()
		mergeKeydowns(stop, keydowns, gm.keys, callback)
	}(gm.stop)

	gm.isRunning = true
	return nil
}

func (gm *GrabKeyboardMonitor) unregisterAll() {
	if gm.stop != nil {
		close(gm.stop)
		gm.stop = nil
	}
	gm.wg.Wait()
	for _, h := range gm.hotkeys {
		_ = h.Unregister()
	}
	gm.hotkeys = gm.hotkeys[:0]
}

// Stop 注销全部热键
func (gm *GrabKeyboardMonitor) Stop() error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if !gm.isRunning {
		return fmt.Errorf("keyboard monitor not running")
	}
	gm.unregisterAll()
	gm.isRunning = false
	return nil
}

// IsRunning 检查运行状态
func (gm *GrabKeyboardMonitor) IsRunning() bool {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.isRunning
}

// CanSwallow 热键被系统独占
func (gm *GrabKeyboardMonitor) CanSwallow() bool { return true }
