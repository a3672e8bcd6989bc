package platform

// Geometry 窗口位置与尺寸
type Geometry struct {
	X, Y          int
	Width, Height int

	// Fixed 去掉标题栏，窗口不可拖动
	Fixed bool
}

// Window 承载界面的宿主窗口
//
// 所有方法只在 UI goroutine 上调用。没有可控宿主窗口的平台上为空操作，
// 界面层自行以占位内容表示隐藏。
type Window interface {
	Show() error
	Hide() error

	// EnsureTop 置顶但不抢焦点
	EnsureTop() error

	SetGeometry(g Geometry) error
}
