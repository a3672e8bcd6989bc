// Package mpris 通过 MPRIS D-Bus 接口暴露播放控制，
// 桌面环境的媒体键与播放小部件借此控制 WinDJ。
package mpris

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/pkg/events"
)

// Poster 把函数投递到 UI goroutine 执行
type Poster interface {
	Post(fn func())
}

// Dispatcher 执行控制动作
type Dispatcher interface {
	Dispatch(action keymap.Action)
}

// Subscriber 事件订阅方
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) string
	Unsubscribe(subscriberID string)
}

// Options 适配器选项
type Options struct {
	Poster     Poster
	Dispatcher Dispatcher
	Bus        Subscriber

	// InitialVolume 启动时的用户音量
	InitialVolume int
}

// nowPlaying 当前曲目快照
type nowPlaying struct {
	Display string
	Locator string
	Remote  bool
	Started time.Time
}

// tracker 从事件流维护播放状态
//
// D-Bus 方法在总线 goroutine 上调用，不能读取控制器，只读这里的快照。
type tracker struct {
	mu      sync.RWMutex
	playing bool
	track   nowPlaying
	volume  int
	now     func() time.Time
}

func newTracker(volume int) *tracker {
	return &tracker{volume: volume, now: time.Now}
}

var trackedEvents = []events.EventType{
	events.EventTypePlaybackStarted,
	events.EventTypePlaybackStopped,
	events.EventTypePlaybackFailed,
	events.EventTypeVolumeChanged,
}

func (t *tracker) handle(e events.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case events.EventTypePlaybackStarted:
		t.playing = true
		remote, _ := e.Data["remote"].(bool)
		t.track = nowPlaying{
			Display: e.StringField("display"),
			Locator: e.StringField("locator"),
			Remote:  remote,
			Started: t.now(),
		}
	case events.EventTypePlaybackStopped, events.EventTypePlaybackFailed:
		t.playing = false
		t.track = nowPlaying{}
	case events.EventTypeVolumeChanged:
		if v, ok := e.IntField("volume"); ok {
			t.volume = v
		}
	}
	return nil
}

func (t *tracker) Playing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.playing
}

func (t *tracker) Track() (nowPlaying, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.track, t.playing
}

// Volume 0..1
func (t *tracker) Volume() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return float64(t.volume) / controller.MaxUserVolume
}

// Position 播放开始后的经过时间，没有暂停所以等于播放位置
func (t *tracker) Position() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.playing {
		return 0
	}
	return t.now().Sub(t.track.Started)
}

// volumeSteps 把 0..1 的目标音量换算为相对当前值的步数
func (t *tracker) volumeSteps(target float64) int {
	if target < 0 {
		target = 0
	}
	if target > 1 {
		target = 1
	}
	want := int(target*controller.MaxUserVolume + 0.5)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return want - t.volume
}

// trackID MPRIS 要求的曲目对象路径
func trackID(locator string) string {
	h := fnv.New64a()
	h.Write([]byte(locator))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}

// control 把一组动作投递到 UI goroutine 依次执行
func control(opts Options, actions ...keymap.Action) {
	if opts.Poster == nil || opts.Dispatcher == nil || len(actions) == 0 {
		return
	}
	opts.Poster.Post(func() {
		for _, a := range actions {
			opts.Dispatcher.Dispatch(a)
		}
	})
}

// repeat n 个相同动作
func repeat(a keymap.Action, n int) []keymap.Action {
	out := make([]keymap.Action, n)
	for i := range out {
		out[i] = a
	}
	return out
}
