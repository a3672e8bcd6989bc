//go:build !windows

package platform

import (
	"fmt"
	"os"
)

// ShowFatal 把启动期致命错误写到 stderr
func ShowFatal(title, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
}
