//go:build !windows && !darwin

package platform

// newNativeMonitor 此平台没有可拦截的原生钩子
func newNativeMonitor() (KeyboardMonitor, error) {
	return nil, ErrUnsupported
}
