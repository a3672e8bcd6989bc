//go:build windows

package platform

import (
	"fmt"
)

const (
	swHide           = 0
	swShowNoActivate = 4

	swpNoSize       = 0x0001
	swpNoMove       = 0x0002
	swpNoActivate   = 0x0010
	swpFrameChanged = 0x0020

	wsCaption    = 0x00C00000
	wsThickFrame = 0x00040000
)

// hwndTopmost 即 (HWND)-1
var hwndTopmost = ^uintptr(0)

// gwlStyle GWL_STYLE，负索引必须经有符号类型转换成 uintptr
var gwlStyle int32 = -16

var (
	procGetConsoleWindow  = kernel32.NewProc("GetConsoleWindow")
	procShowWindow        = user32.NewProc("ShowWindow")
	procSetWindowPos      = user32.NewProc("SetWindowPos")
	procMoveWindow        = user32.NewProc("MoveWindow")
	procGetWindowLongPtrW = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW = user32.NewProc("SetWindowLongPtrW")
)

// consoleWindow 控制台宿主窗口
type consoleWindow struct {
	hwnd uintptr
}

// NewWindow 返回当前控制台窗口
func NewWindow() (Window, error) {
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		return nil, fmt.Errorf("no console window attached")
	}
	return &consoleWindow{hwnd: hwnd}, nil
}

func (w *consoleWindow) Show() error {
	procShowWindow.Call(w.hwnd, swShowNoActivate)
	return w.EnsureTop()
}

func (w *consoleWindow) Hide() error {
	procShowWindow.Call(w.hwnd, swHide)
	return nil
}

func (w *consoleWindow) EnsureTop() error {
	ret, _, err := procSetWindowPos.Call(w.hwnd, hwndTopmost, 0, 0, 0, 0,
		swpNoMove|swpNoSize|swpNoActivate)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

func (w *consoleWindow) SetGeometry(g Geometry) error {
	if g.Fixed {
		style, _, _ := procGetWindowLongPtrW.Call(w.hwnd, uintptr(gwlStyle))
		style &^= wsCaption | wsThickFrame
		procSetWindowLongPtrW.Call(w.hwnd, uintptr(gwlStyle), style)
	}

	ret, _, err := procMoveWindow.Call(w.hwnd,
		uintptr(g.X), uintptr(g.Y), uintptr(g.Width), uintptr(g.Height), 1)
	if ret == 0 {
		return fmt.Errorf("MoveWindow: %w", err)
	}

	ret, _, err = procSetWindowPos.Call(w.hwnd, hwndTopmost, 0, 0, 0, 0,
		swpNoMove|swpNoSize|swpNoActivate|swpFrameChanged)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}
