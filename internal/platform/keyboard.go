// Package platform 封装与操作系统相关的能力：全局键盘钩子、窗口控制、
// 致命错误提示与音频输出设备枚举。
package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported 当前平台不支持所请求的能力
var ErrUnsupported = errors.New("not supported on this platform")

// KeyboardEvent 一次按键按下的原始数据
type KeyboardEvent struct {
	// VKCode 虚拟键码（Windows VK_*，其他平台为后端给出的原始码）
	VKCode int
	// ScanCode 硬件扫描码
	ScanCode int
	// Char 按当前键盘布局与 Shift/CapsLock 状态翻译出的字符，无则为 0
	Char rune
	// Injected 是否为软件注入的按键
	Injected bool
}

// KeyboardCallback 键盘事件回调
//
// 在钩子线程上同步调用，返回 true 表示按键继续传递给系统其他部分，
// 返回 false 表示吞掉按键（仅支持拦截的后端生效）。
// 回调必须尽快返回，不得获取 UI 线程可能持有的锁。
type KeyboardCallback func(KeyboardEvent) bool

// KeyboardMonitor 全局键盘监控器
type KeyboardMonitor interface {
	// Start 安装钩子并开始投递按键，安装失败直接返回错误
	Start(callback KeyboardCallback) error

	// Stop 卸载钩子
	Stop() error

	// IsRunning 是否正在运行
	IsRunning() bool

	// CanSwallow 后端能否吞掉按键
	CanSwallow() bool
}

// Backend 键盘钩子后端
type Backend string

const (
	// BackendAuto 优先使用原生拦截钩子，不可用时退回观察模式
	BackendAuto Backend = "auto"
	// BackendLowLevel 原生低级钩子（Windows WH_KEYBOARD_LL / macOS CGEventTap）
	BackendLowLevel Backend = "lowlevel"
	// BackendObserve 只观察不拦截（gohook）
	BackendObserve Backend = "observe"
	// BackendGrab 只注册控制键为系统热键，按下即被吞掉，不支持搜索输入
	BackendGrab Backend = "grab"
)

// ParseBackend 解析后端名称，空串视为 auto
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendLowLevel, BackendObserve, BackendGrab:
		return b, nil
	default:
		return "", fmt.Errorf("unknown hook backend %q", s)
	}
}

// MonitorOptions 创建监控器的选项
type MonitorOptions struct {
	Backend Backend

	// GrabKeys grab 后端需要注册的键（虚拟键码）
	GrabKeys []int
}

// NewKeyboardMonitor 按后端创建键盘监控器
//
// auto 在当前平台没有原生钩子时退回 gohook 观察模式。
func NewKeyboardMonitor(opts MonitorOptions) (KeyboardMonitor, error) {
	switch opts.Backend {
	case BackendAuto, "":
		if m, err := newNativeMonitor(); err == nil {
			return m, nil
		}
		return newObserveMonitor(), nil
	case BackendLowLevel:
		return newNativeMonitor()
	case BackendObserve:
		return newObserveMonitor(), nil
	case BackendGrab:
		if len(opts.GrabKeys) == 0 {
			return nil, fmt.Errorf("grab backend needs at least one key")
		}
		return newGrabMonitor(opts.GrabKeys)
	default:
		return nil, fmt.Errorf("unknown hook backend %q", opts.Backend)
	}
}
