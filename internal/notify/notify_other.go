//go:build !linux

package notify

// New 非 Linux 平台没有桌面通知
func New() Notifier {
	return nopNotifier{}
}
