//go:build !windows

package platform

// terminalWindow 终端宿主窗口无法从进程内控制，全部为空操作
type terminalWindow struct{}

// NewWindow 返回空操作窗口
func NewWindow() (Window, error) {
	return terminalWindow{}, nil
}

func (terminalWindow) Show() error                { return nil }
func (terminalWindow) Hide() error                { return nil }
func (terminalWindow) EnsureTop() error           { return nil }
func (terminalWindow) SetGeometry(Geometry) error { return nil }
