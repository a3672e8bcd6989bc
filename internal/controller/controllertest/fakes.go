// Package controllertest 提供控制器测试用的替身实现。
package controllertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/internal/library"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/chenyang-zz/windj/pkg/events"
)

// Songs 按显示名构造本地条目
func Songs(displays ...string) []library.SongEntry {
	out := make([]library.SongEntry, len(displays))
	for i, d := range displays {
		out[i] = library.SongEntry{Index: i, Display: d, Source: library.Local{Path: "/music/" + d + ".mp3"}}
	}
	return out
}

// ---- Player ----

// Player 记录调用的播放器
type Player struct {
	LoadErr error

	Loaded  []audio.Source
	Playing bool
	Paused  bool
	Toggles int
	Native  int
	Device  string
	Closed  bool

	Pos, Dur time.Duration
}

func (p *Player) Load(src audio.Source) error {
	if src.Empty() {
		return audio.ErrNoSource
	}
	if p.LoadErr != nil {
		return p.LoadErr
	}
	p.Loaded = append(p.Loaded, src)
	return nil
}

func (p *Player) Play() error {
	if len(p.Loaded) == 0 {
		return audio.ErrNotLoaded
	}
	p.Playing = true
	return nil
}

func (p *Player) Stop() error {
	p.Playing = false
	return nil
}

func (p *Player) TogglePause() error {
	p.Toggles++
	p.Paused = !p.Paused
	return nil
}

func (p *Player) Volume() int { return p.Native }

func (p *Player) SetVolume(v int) error {
	p.Native = v
	return nil
}

func (p *Player) Position() time.Duration { return p.Pos }
func (p *Player) Duration() time.Duration { return p.Dur }

func (p *Player) SetOutputDevice(name string) error {
	p.Device = name
	return nil
}

func (p *Player) Close() error {
	p.Closed = true
	return nil
}

// Players 播放器工厂，保留每个创建出的实例
type Players struct {
	LoadErr error
	Created []*Player
}

// Factory 返回 audio.Factory
func (ps *Players) Factory() audio.Factory {
	return func() (audio.Player, error) {
		p := &Player{LoadErr: ps.LoadErr}
		ps.Created = append(ps.Created, p)
		return p, nil
	}
}

// Last 最近创建的实例
func (ps *Players) Last() *Player {
	if len(ps.Created) == 0 {
		return nil
	}
	return ps.Created[len(ps.Created)-1]
}

// ---- Scheduler ----

type task struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *task) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Scheduler 手动推进的虚拟时钟，任务在 Advance 的调用方 goroutine 上执行
type Scheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*task
}

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) controller.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &task{at: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance 推进时钟并按时间顺序执行到期任务
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*task
		for _, t := range s.tasks {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at != due[j].at {
				return due[i].at < due[j].at
			}
			return due[i].seq < due[j].seq
		})
		next := due[0]
		next.fired = true
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// Pending 未执行且未取消的任务数
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// ---- Window ----

// Window 记录显示状态的窗口
type Window struct {
	Visible bool
	Shows   int
	Hides   int
}

func (w *Window) Show() error {
	w.Visible = true
	w.Shows++
	return nil
}

func (w *Window) Hide() error {
	w.Visible = false
	w.Hides++
	return nil
}

func (w *Window) EnsureTop() error                   { return nil }
func (w *Window) SetGeometry(platform.Geometry) error { return nil }

// ---- Scanner / Resolver / Bus ----

// Scanner 返回预设列表
type Scanner struct {
	Songs []library.SongEntry
	Err   error
	Calls int
}

func (s *Scanner) Scan() ([]library.SongEntry, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Songs, nil
}

// Resolver 把视频 ID 映射为固定 URL
type Resolver struct {
	Err error
}

func (r *Resolver) Resolve(_ context.Context, id string) (audio.Source, error) {
	if r.Err != nil {
		return audio.Source{}, r.Err
	}
	return audio.Source{URL: "https://stream.example/" + id}, nil
}

// Bus 记录发布的事件
type Bus struct {
	mu     sync.Mutex
	Events []events.Event
}

func (b *Bus) Publish(e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, e)
	return nil
}

// Types 已发布事件的类型序列
func (b *Bus) Types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.EventType, len(b.Events))
	for i, e := range b.Events {
		out[i] = e.Type
	}
	return out
}

var (
	_ audio.Player         = (*Player)(nil)
	_ controller.Scheduler = (*Scheduler)(nil)
	_ platform.Window      = (*Window)(nil)
	_ controller.Scanner   = (*Scanner)(nil)
	_ controller.Resolver  = (*Resolver)(nil)
	_ controller.Publisher = (*Bus)(nil)
)
