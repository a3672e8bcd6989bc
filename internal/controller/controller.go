// Package controller 持有歌曲列表、选中项与播放状态。
//
// 所有方法只能在 UI goroutine 上调用；延时任务通过 Scheduler 回到同一个 goroutine。
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/chenyang-zz/windj/internal/library"
	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

/**
 * Controller 播放与列表控制器
 */
type Controller struct {
	deps Deps
	log  *zap.Logger

	// master 本地主列表
	master []library.SongEntry

	// active 当前显示的列表
	active []library.SongEntry

	state State

	player     audio.Player
	nowPlaying *library.SongEntry
	status     string

	// highlight 搜索中最后选中的条目，退出搜索时据此恢复选中项
	highlight    library.SongEntry
	hasHighlight bool

	// searchFrom 进入搜索时的选中项
	searchFrom int

	// localSelected 进入远程模式前的本地选中项
	localSelected int

	// deviceWarned 输出设备不受支持的警告只打一次
	deviceWarned bool
}

/**
 * New 创建控制器并加载主列表
 *
 * Returns:
 *   - *Controller: 控制器
 *   - error: 扫描失败或无法创建播放实例时返回，属于启动期致命错误
 */
func New(deps Deps) (*Controller, error) {
	if deps.Scanner == nil || deps.NewPlayer == nil || deps.Scheduler == nil {
		return nil, errors.New("controller needs a scanner, a player factory and a scheduler")
	}
	if deps.ResolveTimeout <= 0 {
		deps.ResolveTimeout = DefaultResolveTimeout
	}

	songs, err := deps.Scanner.Scan()
	if err != nil {
		return nil, err
	}
	player, err := deps.NewPlayer()
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}

	c := &Controller{
		deps:   deps,
		log:    logger.With(zap.String("component", "controller")),
		master: songs,
		active: library.Filter(songs, ""),
		player: player,
		state: State{
			SavedVolume: clampUser(deps.InitialVolume),
			Visible:     true,
		},
	}
	c.publish(events.EventTypeLibraryLoaded, map[string]interface{}{"count": len(songs)})
	return c, nil
}

// State 当前状态快照
func (c *Controller) State() State {
	return c.state
}

// List 当前显示的列表，调用方不得修改
func (c *Controller) List() []library.SongEntry {
	return c.active
}

// Master 本地主列表，调用方不得修改
func (c *Controller) Master() []library.SongEntry {
	return c.master
}

// Selected 当前选中的条目
func (c *Controller) Selected() (library.SongEntry, bool) {
	if len(c.active) == 0 {
		return library.SongEntry{}, false
	}
	return c.active[c.state.Selected], true
}

// NowPlaying 正在播放的条目
func (c *Controller) NowPlaying() (library.SongEntry, bool) {
	if c.nowPlaying == nil {
		return library.SongEntry{}, false
	}
	return *c.nowPlaying, true
}

// Status 最近一次运行期错误，空表示无
func (c *Controller) Status() string {
	return c.status
}

// SetStatus 设置状态行提示
func (c *Controller) SetStatus(s string) {
	c.status = s
}

// Close 释放播放实例
func (c *Controller) Close() error {
	if c.player == nil {
		return nil
	}
	err := c.player.Close()
	c.player = nil
	return err
}

// ---- 导航 ----

// Navigate 按 delta 移动选中项，截断在列表两端
func (c *Controller) Navigate(delta int) {
	c.setSelected(c.state.Selected + delta)
}

// NavigatePage 按翻页步长移动，dir 为 +1 或 -1
func (c *Controller) NavigatePage(dir int) {
	c.Navigate(dir * c.deps.Settings.ScrollStep)
}

func (c *Controller) setSelected(i int) {
	if len(c.active) == 0 {
		c.state.Selected = 0
		return
	}
	if i < 0 {
		i = 0
	}
	if last := len(c.active) - 1; i > last {
		i = last
	}
	c.state.Selected = i
	if c.state.Searching {
		c.highlight = c.active[i]
		c.hasHighlight = true
	}
}

// ---- 音量 ----

// AdjustVolume 调整用户音量，到达边界后不再变化
func (c *Controller) AdjustVolume(delta int) {
	v := clampUser(c.state.SavedVolume + delta)
	if v == c.state.SavedVolume {
		return
	}
	c.state.SavedVolume = v
	if c.player != nil {
		if err := c.player.SetVolume(v * 2); err != nil {
			c.log.Warn("Set volume failed", zap.Error(err))
		}
	}
	c.publish(events.EventTypeVolumeChanged, map[string]interface{}{"volume": v})
}

func clampUser(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxUserVolume {
		return MaxUserVolume
	}
	return v
}

// ---- 播放 ----

/**
 * TogglePlay 播放或停止，受冷却锁保护
 *
 * Returns:
 *   - bool: 冷却期内返回 false，什么都不做
 */
func (c *Controller) TogglePlay() bool {
	if c.state.PlayLock {
		return false
	}
	c.state.PlayLock = true
	c.deps.Scheduler.AfterFunc(PlayLockDuration, func() {
		c.state.PlayLock = false
	})

	if c.state.Playing {
		c.Stop()
	} else {
		c.Play()
	}
	return true
}

/**
 * Play 播放选中的条目
 *
 * 失败时记录日志、更新状态行并发布 playback.failed，状态保持停止。
 */
func (c *Controller) Play() {
	entry, ok := c.Selected()
	if !ok {
		c.status = "Nothing to play"
		return
	}

	if err := c.start(entry); err != nil {
		c.fail(entry, err)
		return
	}

	c.state.Playing = true
	c.nowPlaying = &entry
	c.status = ""

	player := c.player
	c.deps.Scheduler.AfterFunc(DeviceSetDelay, func() {
		c.applyDevice(player)
	})

	if c.deps.Settings.HideOnPlay {
		c.Hide()
	}

	c.log.Info("Playback started", zap.String("song", entry.Display), zap.String("locator", entry.Source.Locator()))
	c.publish(events.EventTypePlaybackStarted, playbackData(entry, nil))
}

// start 解析来源并开始播放
func (c *Controller) start(entry library.SongEntry) error {
	src, err := c.resolve(entry)
	if err != nil {
		return err
	}
	if c.player == nil {
		if c.player, err = c.deps.NewPlayer(); err != nil {
			return fmt.Errorf("create player: %w", err)
		}
	}
	if err := c.player.Load(src); err != nil {
		return err
	}
	if err := c.player.SetVolume(c.state.SavedVolume * 2); err != nil {
		return err
	}
	return c.player.Play()
}

func (c *Controller) resolve(entry library.SongEntry) (audio.Source, error) {
	switch src := entry.Source.(type) {
	case library.Local:
		return audio.Source{Path: src.Path}, nil
	case library.Remote:
		if c.deps.Resolver == nil {
			return audio.Source{}, errors.New("remote playback is disabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.deps.ResolveTimeout)
		defer cancel()
		return c.deps.Resolver.Resolve(ctx, src.VideoID)
	default:
		return audio.Source{}, audio.ErrNoSource
	}
}

// applyDevice 播放开始后才能选择输出设备，随后暂停再恢复一次
func (c *Controller) applyDevice(player audio.Player) {
	if player != c.player || !c.state.Playing {
		return
	}

	if err := player.SetOutputDevice(c.deps.Settings.OutputDevice); err != nil {
		if !errors.Is(err, audio.ErrDeviceUnsupported) {
			c.log.Warn("Set output device failed", zap.Error(err))
		} else if !c.deviceWarned {
			c.deviceWarned = true
			c.log.Warn("Output device selection ignored", zap.String("device", c.deps.Settings.OutputDevice))
		}
	}

	if err := player.TogglePause(); err != nil {
		c.log.Debug("Pause failed", zap.Error(err))
		return
	}
	c.deps.Scheduler.AfterFunc(DevicePauseGap, func() {
		if player != c.player {
			return
		}
		if err := player.TogglePause(); err != nil {
			c.log.Debug("Resume failed", zap.Error(err))
		}
	})
}

func (c *Controller) fail(entry library.SongEntry, err error) {
	c.log.Error("Playback failed", zap.String("song", entry.Display), zap.Error(err))
	c.status = fmt.Sprintf("Cannot play %s: %v", entry.Display, err)
	c.recreatePlayer()
	c.publish(events.EventTypePlaybackFailed, playbackData(entry, err))
}

/**
 * Stop 停止播放并重建播放实例
 */
func (c *Controller) Stop() {
	c.recreatePlayer()

	wasPlaying := c.state.Playing
	var entry library.SongEntry
	if c.nowPlaying != nil {
		entry = *c.nowPlaying
	}
	c.state.Playing = false
	c.nowPlaying = nil

	if c.deps.Settings.ShowOnStop {
		c.Show()
	}
	if wasPlaying {
		c.log.Info("Playback stopped", zap.String("song", entry.Display))
		c.publish(events.EventTypePlaybackStopped, playbackData(entry, nil))
	}
}

// recreatePlayer 关闭当前实例并换一个新的
func (c *Controller) recreatePlayer() {
	if c.player != nil {
		if err := c.player.Stop(); err != nil {
			c.log.Debug("Stop player failed", zap.Error(err))
		}
		if err := c.player.Close(); err != nil {
			c.log.Debug("Close player failed", zap.Error(err))
		}
	}
	player, err := c.deps.NewPlayer()
	if err != nil {
		c.log.Error("Create player failed", zap.Error(err))
		c.status = fmt.Sprintf("Audio unavailable: %v", err)
		c.player = nil
		return
	}
	c.player = player
}

// TimerText 播放时为 "当前秒/总秒"，否则为 "-"
func (c *Controller) TimerText() string {
	if !c.state.Playing || c.player == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", int(c.player.Position().Seconds()), int(c.player.Duration().Seconds()))
}

// ---- 搜索 ----

// EnterSearch 打开搜索，选中项保持不变
func (c *Controller) EnterSearch() {
	if c.state.Searching {
		return
	}
	c.state.Searching = true
	c.state.SearchString = ""
	c.searchFrom = c.state.Selected
	c.hasHighlight = false
	c.Show()
}

/**
 * ExitSearch 关闭搜索
 *
 * 本地模式恢复主列表，并把选中项移到最后选中的搜索结果上；
 * 没有选中过结果或该条目不在主列表时恢复进入搜索前的选中项。
 * 远程模式保留当前结果。
 */
func (c *Controller) ExitSearch() {
	if !c.state.Searching {
		return
	}
	c.state.Searching = false
	c.state.SearchString = ""

	if !c.state.YoutubeMode {
		c.active = library.Filter(c.master, "")
		selected := c.searchFrom
		if c.hasHighlight {
			if i := library.IndexOf(c.active, c.highlight); i >= 0 {
				selected = i
			}
		}
		c.setSelected(selected)
	}
	c.hasHighlight = false
}

// SetSearchString 更新搜索串，本地模式立即过滤
func (c *Controller) SetSearchString(s string) {
	c.state.SearchString = s
	if !c.state.YoutubeMode {
		c.FilterLocal(s)
	}
}

// FilterLocal 按搜索串过滤主列表并选中第一项
func (c *Controller) FilterLocal(query string) {
	c.active = library.Filter(c.master, query)
	c.hasHighlight = false
	c.setSelected(0)
}

// ---- 远程模式 ----

// EnterRemote 切到远程模式：清空列表并打开搜索
func (c *Controller) EnterRemote() {
	if c.state.YoutubeMode {
		return
	}
	if c.state.Searching {
		c.ExitSearch()
	}
	c.localSelected = c.state.Selected
	c.state.YoutubeMode = true
	c.active = nil
	c.state.Selected = 0
	c.EnterSearch()
	c.publish(events.EventTypeModeChanged, map[string]interface{}{"remote": true})
}

// ExitRemote 回到本地列表
func (c *Controller) ExitRemote() {
	if !c.state.YoutubeMode {
		return
	}
	c.state.YoutubeMode = false
	c.state.Searching = false
	c.state.SearchString = ""
	c.hasHighlight = false
	c.active = library.Filter(c.master, "")
	c.setSelected(c.localSelected)
	c.publish(events.EventTypeModeChanged, map[string]interface{}{"remote": false})
}

/**
 * ApplyRemoteResults 用远程搜索结果替换当前列表
 *
 * Returns:
 *   - bool: 已离开远程搜索时丢弃结果并返回 false
 */
func (c *Controller) ApplyRemoteResults(query string, results []library.SongEntry) bool {
	if !c.state.Searching || !c.state.YoutubeMode {
		return false
	}
	c.active = results
	c.setSelected(0)
	c.publish(events.EventTypeSearchQueried, map[string]interface{}{
		"query":   query,
		"results": len(results),
	})
	return true
}

// ---- 其他 ----

/**
 * Reset 停止播放、重新扫描目录、清除搜索与远程状态并显示窗口
 *
 * 扫描失败时保留旧列表，错误显示在状态行。
 */
func (c *Controller) Reset() {
	c.Stop()

	songs, err := c.deps.Scanner.Scan()
	if err != nil {
		c.log.Error("Rescan failed", zap.Error(err))
		c.status = err.Error()
	} else {
		c.master = songs
		c.status = ""
		c.publish(events.EventTypeLibraryLoaded, map[string]interface{}{"count": len(songs)})
	}

	wasRemote := c.state.YoutubeMode
	c.state.Searching = false
	c.state.YoutubeMode = false
	c.state.SearchString = ""
	c.hasHighlight = false
	c.active = library.Filter(c.master, "")
	c.state.Selected = 0
	if wasRemote {
		c.publish(events.EventTypeModeChanged, map[string]interface{}{"remote": false})
	}
	c.Show()
}

// ToggleShow 切换窗口可见性
func (c *Controller) ToggleShow() {
	if c.state.Visible {
		c.Hide()
	} else {
		c.Show()
	}
}

// Show 显示窗口
func (c *Controller) Show() {
	if c.deps.Window != nil {
		if err := c.deps.Window.Show(); err != nil {
			c.log.Warn("Show window failed", zap.Error(err))
		}
	}
	c.state.Visible = true
}

// Hide 隐藏窗口
func (c *Controller) Hide() {
	if c.deps.Window != nil {
		if err := c.deps.Window.Hide(); err != nil {
			c.log.Warn("Hide window failed", zap.Error(err))
		}
	}
	c.state.Visible = false
}

func (c *Controller) publish(t events.EventType, data map[string]interface{}) {
	if c.deps.Bus == nil {
		return
	}
	if err := c.deps.Bus.Publish(*events.NewEvent(t, data)); err != nil {
		c.log.Debug("Publish event failed", zap.String("type", string(t)), zap.Error(err))
	}
}

func playbackData(entry library.SongEntry, err error) map[string]interface{} {
	d := events.PlaybackEventData{Display: entry.Display}
	if entry.Source != nil {
		d.Locator = entry.Source.Locator()
		d.Remote = entry.IsRemote()
	}
	if err != nil {
		d.Error = err.Error()
	}
	return d.ToMap()
}
