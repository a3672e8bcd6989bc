//go:build windows

package platform

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	hcAction     = 0
	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012

	llkhfInjected = 0x10

	vkShift   = 0x10
	vkCapital = 0x14
	vkBack    = 0x08
	vkSpace   = 0x20
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	procGetKeyState         = user32.NewProc("GetKeyState")
	procGetKeyboardLayout   = user32.NewProc("GetKeyboardLayout")
	procToUnicodeEx         = user32.NewProc("ToUnicodeEx")
	procGetModuleHandleW    = kernel32.NewProc("GetModuleHandleW")
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// activeHook 当前安装的钩子，钩子过程通过它找到回调
//
// 钩子过程由系统在消息循环线程上调用，读取只用原子操作，不加锁。
var activeHook atomic.Pointer[WindowsKeyboardMonitor]

// hookProc 全进程共享的回调蹦床，只创建一次
var hookProc = syscall.NewCallback(lowLevelKeyboardProc)

// WindowsKeyboardMonitor 基于 WH_KEYBOARD_LL 的全局键盘钩子
type WindowsKeyboardMonitor struct {
	callback KeyboardCallback
	hook     uintptr
	threadID uint32

	isRunning bool
	mu        sync.Mutex
	done      chan struct{}
}

func newNativeMonitor() (KeyboardMonitor, error) {
	return &WindowsKeyboardMonitor{}, nil
}

// Start 在专用 OS 线程上安装钩子并运行消息循环
func (wm *WindowsKeyboardMonitor) Start(callback KeyboardCallback) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.isRunning {
		return fmt.Errorf("keyboard monitor already running")
	}
	if !activeHook.CompareAndSwap(nil, wm) {
		return fmt.Errorf("another keyboard hook is already installed")
	}
	wm.callback = callback

	installed := make(chan error, 1)
	wm.done = make(chan struct{})
	go wm.loop(installed)

	if err := <-installed; err != nil {
		activeHook.CompareAndSwap(wm, nil)
		return err
	}
	wm.isRunning = true
	return nil
}

// loop 钩子必须在安装它的线程上泵消息
func (wm *WindowsKeyboardMonitor) loop(installed chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(wm.done)

	hModule, _, _ := procGetModuleHandleW.Call(0)
	hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookProc, hModule, 0)
	if hook == 0 {
		installed <- fmt.Errorf("SetWindowsHookExW failed: %w", err)
		return
	}
	wm.hook = hook
	wm.threadID = windows.GetCurrentThreadId()
	installed <- nil

	var msg winMsg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		// 0 表示 WM_QUIT，-1 表示出错
		if int32(ret) <= 0 {
			break
		}
	}

	procUnhookWindowsHookEx.Call(wm.hook)
	wm.hook = 0
}

// Stop 向钩子线程投递 WM_QUIT 并等待其卸载钩子
func (wm *WindowsKeyboardMonitor) Stop() error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if !wm.isRunning {
		return fmt.Errorf("keyboard monitor not running")
	}

	ret, _, err := procPostThreadMessageW.Call(uintptr(wm.threadID), wmQuit, 0, 0)
	if ret == 0 {
		return fmt.Errorf("PostThreadMessageW failed: %w", err)
	}
	<-wm.done

	activeHook.CompareAndSwap(wm, nil)
	wm.isRunning = false
	return nil
}

// IsRunning 检查运行状态
func (wm *WindowsKeyboardMonitor) IsRunning() bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return wm.isRunning
}

// CanSwallow 低级钩子可以吞键
func (wm *WindowsKeyboardMonitor) CanSwallow() bool { return true }

// lowLevelKeyboardProc 系统对每次按键同步调用，返回非零值表示吞掉按键
func lowLevelKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	wm := activeHook.Load()
	if nCode == hcAction && wm != nil && (wParam == wmKeyDown || wParam == wmSysKeyDown) {
		kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		event := KeyboardEvent{
			VKCode:   int(kb.VkCode),
			ScanCode: int(kb.ScanCode),
			Char:     translateChar(kb.VkCode, kb.ScanCode),
			Injected: kb.Flags&llkhfInjected != 0,
		}
		if !wm.callback(event) {
			return 1
		}
	}
	var hook uintptr
	if wm != nil {
		hook = wm.hook
	}
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

// translateChar 按前台键盘布局把按键翻译成字符
//
// 空格与退格返回控制字符，交给上层映射为具名键。
func translateChar(vk, scan uint32) rune {
	switch vk {
	case vkSpace:
		return ' '
	case vkBack:
		return '\b'
	}

	var state [256]byte
	if s, _, _ := procGetAsyncKeyState.Call(vkShift); s&0x8000 != 0 {
		state[vkShift] = 0x80
	}
	if s, _, _ := procGetKeyState.Call(vkCapital); s&0x1 != 0 {
		state[vkCapital] = 0x01
	}
	layout, _, _ := procGetKeyboardLayout.Call(0)

	var buf [4]uint16
	// flag 0x4：不改变内核键盘状态，避免破坏死键
	n, _, _ := procToUnicodeEx.Call(
		uintptr(vk), uintptr(scan),
		uintptr(unsafe.Pointer(&state[0])),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)),
		0x4, layout,
	)
	if int32(n) != 1 {
		return 0
	}
	return rune(buf[0])
}
