package platform

import (
	"fmt"
	"sync"
	"unicode/utf8"

	hook "github.com/robotn/gohook"
)

// GohookKeyboardMonitor 基于 gohook 的观察模式监控器
//
// 能收到全局按键但不能吞键，CanSwallow 恒为 false。
type GohookKeyboardMonitor struct {
	callback KeyboardCallback

	isRunning bool
	mu        sync.Mutex
	done      chan struct{}
}

func newObserveMonitor() KeyboardMonitor {
	return &GohookKeyboardMonitor{}
}

// Start 启动 gohook 事件循环
func (gm *GohookKeyboardMonitor) Start(callback KeyboardCallback) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if gm.isRunning {
		return fmt.Errorf("keyboard monitor already running")
	}
	gm.callback = callback
	gm.done = make(chan struct{})

	evChan := hook.Start()
	go gm.loop(evChan)

	gm.isRunning = true
	return nil
}

func (gm *GohookKeyboardMonitor) loop(evChan chan hook.Event) {
	defer close(gm.done)
	for ev := range evChan {
		// KeyHold 对应物理按下，KeyDown 是之后的 typed 事件，只取前者避免重复
		if ev.Kind != hook.KeyHold {
			continue
		}
		gm.callback(KeyboardEvent{
			VKCode:   int(ev.Rawcode),
			ScanCode: int(ev.Keycode),
			Char:     rawcodeChar(ev.Rawcode),
		})
	}
}

// rawcodeChar 把原始码翻译为字符，gohook 不提供 Shift 状态，字母统一为小写
func rawcodeChar(raw uint16) rune {
	name := hook.RawcodetoKeychar(raw)
	switch name {
	case "space":
		return ' '
	case "backspace", "delete":
		return '\b'
	}
	if utf8.RuneCountInString(name) != 1 {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r
}

// Stop 结束 gohook 事件循环
func (gm *GohookKeyboardMonitor) Stop() error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if !gm.isRunning {
		return fmt.Errorf("keyboard monitor not running")
	}
	hook.End()
	<-gm.done
	gm.isRunning = false
	return nil
}

// IsRunning 检查运行状态
func (gm *GohookKeyboardMonitor) IsRunning() bool {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.isRunning
}

// CanSwallow 观察模式不能吞键
func (gm *GohookKeyboardMonitor) CanSwallow() bool { return false }
