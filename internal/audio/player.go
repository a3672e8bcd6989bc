// Package audio 定义播放能力接口，并提供基于 beep 的实现。
package audio

import (
	"errors"
	"time"
)

var (
	// ErrNoSource 来源为空
	ErrNoSource = errors.New("no audio source")

	// ErrNotLoaded 尚未加载任何来源
	ErrNotLoaded = errors.New("no source loaded")

	// ErrUnsupportedFormat 无法解码的文件格式
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDeviceUnsupported 播放后端不支持选择输出设备
	ErrDeviceUnsupported = errors.New("output device selection not supported")
)

// MaxVolume 播放能力的原生音量上限
const MaxVolume = 200

// Source 可播放的来源，Path 与 URL 二选一
type Source struct {
	// Path 本地文件
	Path string

	// URL 远程音频流
	URL string

	// Duration 远程流的时长提示，解码器无法给出长度时使用
	Duration time.Duration
}

// Empty 是否未指定来源
func (s Source) Empty() bool {
	return s.Path == "" && s.URL == ""
}

// Player 播放能力
//
// 每次停止后由 Factory 重新创建，实例不跨曲目复用。
type Player interface {
	// Load 打开并解码来源，不开始播放
	Load(src Source) error

	// Play 开始播放已加载的来源
	Play() error

	// Stop 停止播放并释放解码器
	Stop() error

	// TogglePause 暂停或恢复
	TogglePause() error

	// Volume 原生音量 0..200
	Volume() int

	// SetVolume 设置原生音量，超出范围会被截断
	SetVolume(v int) error

	// Position 当前播放位置
	Position() time.Duration

	// Duration 总时长，未知为 0
	Duration() time.Duration

	// SetOutputDevice 选择输出设备，空串表示系统默认
	SetOutputDevice(name string) error

	// Close 释放全部资源
	Close() error
}

// Factory 创建新的播放实例
type Factory func() (Player, error)
