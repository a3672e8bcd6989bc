//go:build !windows

package platform

// ListOutputDevices 此平台不支持枚举输出设备
func ListOutputDevices() ([]string, error) {
	return nil, ErrUnsupported
}
