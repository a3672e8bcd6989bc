//go:build !linux

package mpris

// Adapter 非 Linux 平台没有 MPRIS
type Adapter struct{}

// New 返回空适配器
func New(_ Options) (*Adapter, error) {
	return &Adapter{}, nil
}

// Close 空操作
func (a *Adapter) Close() error { return nil }
