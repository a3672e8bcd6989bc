package platform

import "errors"

// ErrPermissionDenied 系统未授予安装键盘钩子所需的权限
var ErrPermissionDenied = errors.New("keyboard hook permission not granted")

// PermissionStatus 权限状态
type PermissionStatus int

const (
	PermissionStatusGranted PermissionStatus = iota
	PermissionStatusDenied
	// PermissionStatusUnknown 平台没有可查询的权限开关
	PermissionStatusUnknown
)

func (s PermissionStatus) String() string {
	switch s {
	case PermissionStatusGranted:
		return "granted"
	case PermissionStatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}
