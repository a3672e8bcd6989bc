//go:build !windows && !darwin

package platform

func newGrabMonitor(keys []int) (KeyboardMonitor, error) {
	return nil, ErrUnsupported
}
