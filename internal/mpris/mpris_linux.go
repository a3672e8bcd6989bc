//go:build linux

package mpris

import (
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// Adapter 把 WinDJ 注册为 MPRIS 播放器
type Adapter struct {
	opts    Options
	tracker *tracker
	server  *server.Server
	subs    []string

	stopOnce sync.Once
}

// New 订阅播放事件并在后台开始监听 D-Bus
func New(opts Options) (*Adapter, error) {
	a := &Adapter{
		opts:    opts,
		tracker: newTracker(opts.InitialVolume),
	}
	if opts.Bus != nil {
		for _, t := range trackedEvents {
			a.subs = append(a.subs, opts.Bus.Subscribe(t, a.tracker.handle))
		}
	}

	a.server = server.NewServer("windj", &rootAdapter{opts: opts}, &playerAdapter{opts: opts, tracker: a.tracker})

	log := logger.With(zap.String("component", "mpris"))
	go func() {
		if err := a.server.Listen(); err != nil {
			log.Warn("MPRIS server stopped", zap.Error(err))
		}
	}()
	return a, nil
}

// Close 停止 D-Bus 服务并取消订阅
func (a *Adapter) Close() error {
	var err error
	a.stopOnce.Do(func() {
		if a.opts.Bus != nil {
			for _, id := range a.subs {
				a.opts.Bus.Unsubscribe(id)
			}
		}
		err = a.server.Stop()
	})
	return err
}

// rootAdapter org.mpris.MediaPlayer2
type rootAdapter struct {
	opts Options
}

func (r *rootAdapter) Raise() error {
	control(r.opts, keymap.ActionToggleShow)
	return nil
}

func (r *rootAdapter) Quit() error {
	control(r.opts, keymap.ActionQuit)
	return nil
}

func (r *rootAdapter) CanQuit() (bool, error)      { return true, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return true, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }
func (r *rootAdapter) Identity() (string, error)   { return "WinDJ", nil }

//nolint:revive // 方法名由接口决定
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/wav", "audio/flac", "audio/ogg"}, nil
}

// playerAdapter org.mpris.MediaPlayer2.Player
//
// 播放器只有播放与停止两种状态，Pause 等同于停止。
type playerAdapter struct {
	opts    Options
	tracker *tracker
}

func (p *playerAdapter) Next() error {
	control(p.opts, keymap.ActionNavDown)
	return nil
}

func (p *playerAdapter) Previous() error {
	control(p.opts, keymap.ActionNavUp)
	return nil
}

func (p *playerAdapter) PlayPause() error {
	control(p.opts, keymap.ActionTogglePlay)
	return nil
}

func (p *playerAdapter) Play() error {
	if !p.tracker.Playing() {
		control(p.opts, keymap.ActionTogglePlay)
	}
	return nil
}

func (p *playerAdapter) Pause() error { return p.Stop() }

func (p *playerAdapter) Stop() error {
	if p.tracker.Playing() {
		control(p.opts, keymap.ActionTogglePlay)
	}
	return nil
}

func (p *playerAdapter) Seek(_ types.Microseconds) error                  { return nil }
func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error { return nil }

//nolint:revive // 方法名由接口决定
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	if p.tracker.Playing() {
		return types.PlaybackStatusPlaying, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error)        { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error       { return nil }
func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track, ok := p.tracker.Track()
	if !ok {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(trackID(track.Locator)),
		Title:   track.Display,
	}
	// 本地文件名约定为 "艺术家 - 标题"
	if artist, title, found := strings.Cut(track.Display, " - "); found {
		meta.Artist = []string{artist}
		meta.Title = title
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.tracker.Volume(), nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	switch steps := p.tracker.volumeSteps(v); {
	case steps > 0:
		control(p.opts, repeat(keymap.ActionVolUp, steps)...)
	case steps < 0:
		control(p.opts, repeat(keymap.ActionVolDown, -steps)...)
	}
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.tracker.Position().Microseconds(), nil
}

func (p *playerAdapter) CanGoNext() (bool, error)     { return true, nil }
func (p *playerAdapter) CanGoPrevious() (bool, error) { return true, nil }
func (p *playerAdapter) CanPlay() (bool, error)       { return true, nil }
func (p *playerAdapter) CanPause() (bool, error)      { return p.tracker.Playing(), nil }
func (p *playerAdapter) CanSeek() (bool, error)       { return false, nil }
func (p *playerAdapter) CanControl() (bool, error)    { return true, nil }
