package controller

import (
	"fmt"
	"time"
)

// 时间常量
const (
	// PlayLockDuration 播放/停止之后的冷却时间
	PlayLockDuration = 400 * time.Millisecond

	// DeviceSetDelay 开始播放到应用输出设备的间隔
	DeviceSetDelay = 350 * time.Millisecond

	// DevicePauseGap 两次暂停切换之间的间隔
	DevicePauseGap = 10 * time.Millisecond

	// DefaultResolveTimeout 远程来源解析超时
	DefaultResolveTimeout = 15 * time.Second
)

// MaxUserVolume 用户音量上限，播放能力的原生范围是它的两倍
const MaxUserVolume = 100

// State 模式状态快照
type State struct {
	Playing     bool
	Searching   bool
	YoutubeMode bool

	SearchString string
	Selected     int
	PlayLock     bool

	// SavedVolume 用户音量 0..100
	SavedVolume int

	Visible bool
}

// StatusLine 形如 "Playing | Volume: 50"
func (s State) StatusLine() string {
	playing := "Stopped"
	if s.Playing {
		playing = "Playing"
	}
	return fmt.Sprintf("%s | Volume: %d", playing, s.SavedVolume)
}
