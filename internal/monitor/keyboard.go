// Package monitor 是键盘钩子的业务层：把平台原始按键规范化为令牌，
// 决定吞键还是放行，然后交给跨线程通道。
package monitor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// KeyID 控制绑定使用的键标识方案
type KeyID string

const (
	// KeyIDScanCode 硬件扫描码，与键盘布局无关
	KeyIDScanCode KeyID = "scancode"
	// KeyIDVKCode 虚拟键码
	KeyIDVKCode KeyID = "vkcode"
)

// ParseKeyID 解析键标识方案，空串视为扫描码
func ParseKeyID(s string) (KeyID, error) {
	switch id := KeyID(strings.ToLower(strings.TrimSpace(s))); id {
	case "":
		return KeyIDScanCode, nil
	case KeyIDScanCode, KeyIDVKCode:
		return id, nil
	default:
		return "", fmt.Errorf("unknown key id scheme %q", s)
	}
}

// Sink 令牌的接收方，Push 不得阻塞
type Sink interface {
	Push(tok keymap.KeyToken)
}

// Options 键盘监控器选项
type Options struct {
	KeyID KeyID

	// ControlsCaptured 绑定了控制动作的键不再传给其他程序
	ControlsCaptured bool
}

// KeyboardMonitor 键盘监控器（业务层）
//
// 平台层在钩子线程上同步调用 handlePlatformEvent，
// 这里只读不可变的绑定表并无阻塞入队，不持有任何 UI 线程会用到的锁。
type KeyboardMonitor struct {
	// platform 平台层键盘监控器
	platform platform.KeyboardMonitor

	// controls 控制绑定表（只读）
	controls *keymap.ControlMap

	// sink 跨线程通道
	sink Sink

	opts Options

	isRunning bool
	mu        sync.RWMutex
}

// NewKeyboardMonitor 创建键盘监控器
func NewKeyboardMonitor(p platform.KeyboardMonitor, controls *keymap.ControlMap, sink Sink, opts Options) *KeyboardMonitor {
	if opts.KeyID == "" {
		opts.KeyID = KeyIDScanCode
	}
	return &KeyboardMonitor{
		platform: p,
		controls: controls,
		sink:     sink,
		opts:     opts,
	}
}

// Start 安装钩子
//
// 安装失败原样返回，由调用方按启动期致命错误处理。
func (km *KeyboardMonitor) Start() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.isRunning {
		logger.Debug("键盘监控器已在运行", zap.String("component", "keyboard"))
		return nil
	}

	logger.Info("启动键盘监控器",
		zap.String("component", "keyboard"),
		zap.String("key_id", string(km.opts.KeyID)),
		zap.Bool("controls_captured", km.opts.ControlsCaptured),
	)

	if km.opts.ControlsCaptured && !km.platform.CanSwallow() {
		logger.Warn("当前键盘后端无法吞键，控制键仍会传给其他程序",
			zap.String("component", "keyboard"),
		)
	}

	if err := km.platform.Start(km.handlePlatformEvent); err != nil {
		logger.Error("安装键盘钩子失败",
			zap.String("component", "keyboard"),
			zap.Error(err),
		)
		return fmt.Errorf("install keyboard hook: %w", err)
	}

	km.isRunning = true
	logger.Info("键盘监控器启动成功", zap.String("component", "keyboard"))
	return nil
}

// Stop 卸载钩子，未运行时幂等返回
func (km *KeyboardMonitor) Stop() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if !km.isRunning {
		return nil
	}

	if err := km.platform.Stop(); err != nil {
		logger.Error("卸载键盘钩子失败",
			zap.String("component", "keyboard"),
			zap.Error(err),
		)
		return err
	}

	km.isRunning = false
	logger.Info("键盘监控器已停止", zap.String("component", "keyboard"))
	return nil
}

// IsRunning 检查运行状态
func (km *KeyboardMonitor) IsRunning() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.isRunning
}

// handlePlatformEvent 平台层回调，返回是否放行
func (km *KeyboardMonitor) handlePlatformEvent(event platform.KeyboardEvent) bool {
	tok := Normalize(event, km.opts.KeyID)
	forward := !(km.opts.ControlsCaptured && km.controls.Contains(tok))
	km.sink.Push(tok)
	return forward
}

// Normalize 把原始按键转换为令牌
//
// 空格与退格成为具名键，可显示字符保留系统给出的大小写，其他键只保留原始标识。
func Normalize(event platform.KeyboardEvent, id KeyID) keymap.KeyToken {
	code := event.ScanCode
	if id == KeyIDVKCode {
		code = event.VKCode
	}

	switch {
	case event.Char == ' ':
		return keymap.NamedToken(code, keymap.NamedSpace)
	case event.Char == '\b':
		return keymap.NamedToken(code, keymap.NamedBackspace)
	case keymap.Printable(event.Char):
		return keymap.CharToken(code, event.Char)
	default:
		return keymap.RawToken(code)
	}
}
