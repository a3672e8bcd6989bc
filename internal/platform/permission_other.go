//go:build !darwin

package platform

// HookPermission 其他平台没有可查询的权限
func HookPermission() PermissionStatus {
	return PermissionStatusUnknown
}

// RequestHookPermission 空操作
func RequestHookPermission() error {
	return nil
}
