//go:build darwin

package platform

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation

#include <CoreFoundation/CoreFoundation.h>
#include <CoreGraphics/CoreGraphics.h>

// goKeyboardCallback 返回非零表示按键继续传递
int goKeyboardCallback(int keyCode, int ch, int injected);

static CFMachPortRef gTap = NULL;

static CGEventRef callback(CGEventTapProxy proxy, CGEventType type,
                           CGEventRef event, void *refcon) {
    // 系统因回调超时禁用 tap 时重新启用
    if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
        if (gTap != NULL) {
            CGEventTapEnable(gTap, true);
        }
        return event;
    }
    if (type != kCGEventKeyDown) {
        return event;
    }

    CGKeyCode keycode = (CGKeyCode)CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);

    UniChar chars[4];
    UniCharCount length = 0;
    CGEventKeyboardGetUnicodeString(event, 4, &length, chars);
    int ch = length == 1 ? (int)chars[0] : 0;

    int injected = CGEventGetIntegerValueField(event, kCGEventSourceStateID) != kCGEventSourceStateHIDSystemState;

    if (!goKeyboardCallback((int)keycode, ch, injected)) {
        return NULL;
    }
    return event;
}

// runEventTap 在当前线程创建 tap 并运行 run loop，直到 stopEventTap
static int runEventTap(CFRunLoopRef *outLoop) {
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown);
    gTap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionDefault,
        mask,
        callback,
        NULL
    );
    if (gTap == NULL) {
        return 0;
    }

    CFRunLoopSourceRef src = CFMachPortCreateRunLoopSource(NULL, gTap, 0);
    *outLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(*outLoop, src, kCFRunLoopCommonModes);
    CFRelease(src);
    CGEventTapEnable(gTap, true);
    return 1;
}

static void loopEventTap(void) {
    CFRunLoopRun();
    if (gTap != NULL) {
        CGEventTapEnable(gTap, false);
        CFRelease(gTap);
        gTap = NULL;
    }
}

static void stopEventTap(CFRunLoopRef loop) {
    CFRunLoopStop(loop);
}
*/
import "C"
import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// DarwinKeyboardMonitor 基于 CGEventTap 的全局键盘钩子
//
// 需要在系统设置中授予辅助功能权限，否则创建 tap 失败。
type DarwinKeyboardMonitor struct {
	callback KeyboardCallback
	loop     C.CFRunLoopRef

	isRunning bool
	mu        sync.Mutex
	done      chan struct{}
}

// activeDarwinMonitor C 回调通过它找到 Go 侧监控器，只做原子读
var activeDarwinMonitor atomic.Pointer[DarwinKeyboardMonitor]

func newNativeMonitor() (KeyboardMonitor, error) {
	return &DarwinKeyboardMonitor{}, nil
}

//export goKeyboardCallback
func goKeyboardCallback(keyCode, ch, injected C.int) C.int {
	km := activeDarwinMonitor.Load()
	if km == nil {
		return 1
	}
	forward := km.callback(KeyboardEvent{
		VKCode:   int(keyCode),
		ScanCode: int(keyCode),
		Char:     rune(ch),
		Injected: injected != 0,
	})
	if forward {
		return 1
	}
	return 0
}

// Start 在专用线程上创建 tap 并运行 run loop
func (km *DarwinKeyboardMonitor) Start(callback KeyboardCallback) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.isRunning {
		return fmt.Errorf("keyboard monitor already running")
	}
	if !activeDarwinMonitor.CompareAndSwap(nil, km) {
		return fmt.Errorf("another keyboard hook is already installed")
	}
	km.callback = callback

	installed := make(chan bool, 1)
	km.done = make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(km.done)

		if C.runEventTap(&km.loop) == 0 {
			installed <- false
			return
		}
		installed <- true
		C.loopEventTap()
	}()

	if !<-installed {
		activeDarwinMonitor.CompareAndSwap(km, nil)
		return fmt.Errorf("failed to create event tap: please grant accessibility permission")
	}
	km.isRunning = true
	return nil
}

// Stop 停止 run loop 并释放 tap
func (km *DarwinKeyboardMonitor) Stop() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if !km.isRunning {
		return fmt.Errorf("keyboard monitor not running")
	}
	C.stopEventTap(km.loop)
	<-km.done

	activeDarwinMonitor.CompareAndSwap(km, nil)
	km.isRunning = false
	return nil
}

// IsRunning 检查运行状态
func (km *DarwinKeyboardMonitor) IsRunning() bool {
	km.mu.Lock()
	defer km.mu.Unlock()
	return km.isRunning
}

// CanSwallow event tap 返回 NULL 即可吞键
func (km *DarwinKeyboardMonitor) CanSwallow() bool { return true }
