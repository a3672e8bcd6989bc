//go:build windows

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// ShowFatal 以阻塞消息框展示启动期致命错误
func ShowFatal(title, message string) {
	t, err1 := windows.UTF16PtrFromString(title)
	m, err2 := windows.UTF16PtrFromString(message)
	if err1 != nil || err2 != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
		return
	}
	if _, err := windows.MessageBox(0, m, t, windows.MB_OK|windows.MB_ICONERROR); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
	}
}
