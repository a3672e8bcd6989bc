package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chenyang-zz/windj/pkg/logger"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"
)

// speakerRate 扬声器采样率，所有来源都重采样到这里
const speakerRate beep.SampleRate = 44100

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker 全进程只初始化一次扬声器
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// track 解码后的音轨，位置与长度以来源采样率计
type track interface {
	beep.Streamer
	Len() int
	Position() int
	Close() error
}

// Options beep 播放器选项
type Options struct {
	// FFmpeg 解码远程流使用的可执行文件
	FFmpeg string
}

// BeepPlayer 基于 beep 的播放器
type BeepPlayer struct {
	mu   sync.Mutex
	opts Options

	track    track
	file     io.Closer
	format   beep.Format
	duration time.Duration
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	native  int
	playing bool
}

// NewBeepPlayer 创建播放器，初始原生音量为 100
func NewBeepPlayer(opts Options) *BeepPlayer {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	return &BeepPlayer{opts: opts, native: 100}
}

// NewFactory 返回创建 BeepPlayer 的工厂
func NewFactory(opts Options) Factory {
	return func() (Player, error) {
		return NewBeepPlayer(opts), nil
	}
}

// Load 打开来源，本地文件按扩展名选择解码器，远程流交给 ffmpeg
func (p *BeepPlayer) Load(src Source) error {
	if src.Empty() {
		return ErrNoSource
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	var (
		t        track
		file     io.Closer
		format   beep.Format
		duration time.Duration
		err      error
	)
	if src.URL != "" {
		var s *pcmStream
		s, err = openFFmpeg(p.opts.FFmpeg, src.URL, speakerRate)
		if err != nil {
			return err
		}
		t, format, duration = s, pcmFormat(speakerRate), src.Duration
	} else {
		var f *os.File
		t, f, format, err = decodeFile(src.Path)
		if err != nil {
			return err
		}
		file = f
		duration = format.SampleRate.D(t.Len())
	}

	var s beep.Streamer = t
	if format.SampleRate != speakerRate {
		s = beep.Resample(4, format.SampleRate, speakerRate, s)
	}

	p.track = t
	p.file = file
	p.format = format
	p.duration = duration
	p.ctrl = &beep.Ctrl{Streamer: s}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	p.volume.Volume, p.volume.Silent = gain(p.native)
	return nil
}

// decodeFile 按扩展名解码本地文件
func decodeFile(path string) (track, *os.File, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".wav", ".flac", ".ogg":
	default:
		return nil, nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, beep.Format{}, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".flac":
		s, format, err = flac.Decode(f)
	case ".ogg":
		s, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, nil, beep.Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, f, format, nil
}

// Play 开始播放
func (p *BeepPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return ErrNotLoaded
	}
	if p.playing {
		return nil
	}
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("initialize speaker: %w", err)
	}

	speaker.Play(p.volume)
	p.playing = true
	return nil
}

// Stop 停止并释放解码器
func (p *BeepPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return nil
}

func (p *BeepPlayer) stopLocked() {
	if p.playing {
		speaker.Clear()
		p.playing = false
	}
	if p.track != nil {
		if err := p.track.Close(); err != nil {
			logger.Debug("Close track failed", zap.String("component", "audio"), zap.Error(err))
		}
		p.track = nil
	}
	if p.file != nil {
		// 部分解码器关闭时已经关闭了文件
		_ = p.file.Close()
		p.file = nil
	}
	p.ctrl = nil
	p.volume = nil
	p.duration = 0
}

// TogglePause 暂停或恢复
func (p *BeepPlayer) TogglePause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return ErrNotLoaded
	}
	speaker.Lock()
	p.ctrl.Paused = !p.ctrl.Paused
	speaker.Unlock()
	return nil
}

// Paused 是否处于暂停
func (p *BeepPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.ctrl.Paused
}

// Volume 原生音量
func (p *BeepPlayer) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.native
}

// SetVolume 设置原生音量
func (p *BeepPlayer) SetVolume(v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.native = clampVolume(v)
	if p.volume != nil {
		speaker.Lock()
		p.volume.Volume, p.volume.Silent = gain(p.native)
		speaker.Unlock()
	}
	return nil
}

// Position 当前位置
func (p *BeepPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return 0
	}
	speaker.Lock()
	pos := p.track.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

// Duration 总时长
func (p *BeepPlayer) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// SetOutputDevice beep 始终输出到系统默认设备
func (p *BeepPlayer) SetOutputDevice(name string) error {
	if name == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDeviceUnsupported, name)
}

// Close 释放资源
func (p *BeepPlayer) Close() error {
	return p.Stop()
}

var _ Player = (*BeepPlayer)(nil)
