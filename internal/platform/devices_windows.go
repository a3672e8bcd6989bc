//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	winmm                  = windows.NewLazySystemDLL("winmm.dll")
	procWaveOutGetNumDevs  = winmm.NewProc("waveOutGetNumDevs")
	procWaveOutGetDevCapsW = winmm.NewProc("waveOutGetDevCapsW")
)

type waveOutCaps struct {
	Mid           uint16
	Pid           uint16
	DriverVersion uint32
	Pname         [32]uint16
	Formats       uint32
	Channels      uint16
	Reserved1     uint16
	Support       uint32
}

// ListOutputDevices 枚举 waveOut 输出设备名称
func ListOutputDevices() ([]string, error) {
	if err := procWaveOutGetNumDevs.Find(); err != nil {
		return nil, fmt.Errorf("winmm unavailable: %w", err)
	}
	n, _, _ := procWaveOutGetNumDevs.Call()

	names := make([]string, 0, n)
	for i := uintptr(0); i < n; i++ {
		var caps waveOutCaps
		ret, _, _ := procWaveOutGetDevCapsW.Call(i, uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if ret != 0 {
			return names, fmt.Errorf("waveOutGetDevCapsW(%d) returned %d", i, ret)
		}
		names = append(names, windows.UTF16ToString(caps.Pname[:]))
	}
	return names, nil
}
