//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation

#include <ApplicationServices/ApplicationServices.h>
#import <Foundation/Foundation.h>

static int axTrusted(void) {
    return AXIsProcessTrusted();
}

// axPrompt 弹出系统授权对话框，已授权返回 1
static int axPrompt(void) {
    @autoreleasepool {
        NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
        return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
    }
}
*/
import "C"
import (
	"fmt"
	"os/exec"
)

const accessibilitySettingsURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"

// HookPermission 当前进程是否有辅助功能权限
func HookPermission() PermissionStatus {
	if C.axTrusted() == 1 {
		return PermissionStatusGranted
	}
	return PermissionStatusDenied
}

// RequestHookPermission 弹出授权对话框并打开系统设置的辅助功能页面
func RequestHookPermission() error {
	if C.axPrompt() == 1 {
		return nil
	}
	if err := exec.Command("open", accessibilitySettingsURL).Start(); err != nil {
		return fmt.Errorf("open system settings: %w", err)
	}
	return ErrPermissionDenied
}
