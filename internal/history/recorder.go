/**
 * Package history 播放历史
 *
 * Recorder 订阅事件总线，把播放事件交给批量写入器落盘，
 * 并把最近一次音量记为用户偏好，下次启动时恢复。
 */

package history

import (
	"errors"
	"sync"
	"time"

	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/internal/infrastructure/storage"
	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// DefaultVolume 没有保存过音量时使用的初始音量
const DefaultVolume = 50

// ErrRecorderStopped 记录器已停止，不再重试写入
var ErrRecorderStopped = errors.New("history recorder stopped")

/**
 * Subscriber 事件订阅方
 */
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) string
	Unsubscribe(subscriberID string)
}

/**
 * Preferences 整数偏好存储
 */
type Preferences interface {
	GetInt(key string) (int, error)
	SetInt(key string, v int) error
}

/**
 * Options 记录器选项
 */
type Options struct {
	// Types 需要落盘的事件类型
	Types map[events.EventType]bool

	// RetentionDays 历史保留天数，0 表示永久保留
	RetentionDays int

	// MaxRetries 写入失败后的重试次数
	MaxRetries int

	// RetryBackoff 首次重试前的等待，之后每次翻倍
	RetryBackoff time.Duration
}

/**
 * DefaultOptions 默认选项
 */
func DefaultOptions() Options {
	return Options{
		Types: map[events.EventType]bool{
			events.EventTypePlaybackStarted: true,
			events.EventTypePlaybackStopped: true,
			events.EventTypePlaybackFailed:  true,
			events.EventTypeSearchQueried:   true,
			events.EventTypeLibraryLoaded:   true,
		},
		RetentionDays: 90,
		MaxRetries:    3,
		RetryBackoff:  time.Second,
	}
}

/**
 * Recorder 播放历史记录器
 */
type Recorder struct {
	writer *storage.BatchWriter
	repo   storage.EventRepository
	prefs  Preferences
	opts   Options

	mu      sync.Mutex
	bus     Subscriber
	subs    []string
	stopped bool

	stop chan struct{}
	wg   sync.WaitGroup
	log  *zap.Logger
}

/**
 * NewRecorder 创建记录器
 *
 * Parameters:
 *   - writer: 批量写入器，由记录器负责启动与停止
 *   - repo: 事件仓储，用于清理与查询
 *   - prefs: 偏好存储，可为 nil
 *   - opts: 记录器选项
 *
 * Returns: *Recorder - 记录器
 */
func NewRecorder(writer *storage.BatchWriter, repo storage.EventRepository, prefs Preferences, opts Options) *Recorder {
	def := DefaultOptions()
	if opts.Types == nil {
		opts.Types = def.Types
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = def.RetryBackoff
	}
	return &Recorder{
		writer: writer,
		repo:   repo,
		prefs:  prefs,
		opts:   opts,
		stop:   make(chan struct{}),
		log:    logger.With(zap.String("component", "history")),
	}
}

/**
 * Attach 启动写入器并订阅事件
 *
 * Parameters:
 *   - bus: 事件总线
 */
func (r *Recorder) Attach(bus Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus != nil {
		return
	}

	r.writer.Start()
	r.bus = bus
	for t := range r.opts.Types {
		r.subs = append(r.subs, bus.Subscribe(t, r.persist))
	}
	if r.prefs != nil {
		r.subs = append(r.subs, bus.Subscribe(events.EventTypeVolumeChanged, r.rememberVolume))
	}

	r.log.Info("History recorder attached", zap.Int("event_types", len(r.opts.Types)))
}

func (r *Recorder) persist(event events.Event) error {
	if r.writer.Write(event) {
		return nil
	}
	if r.opts.MaxRetries == 0 {
		return errors.New("event dropped")
	}


	// Add 与 Stop 中的 Wait 由 mu 串行化
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRecorderStopped
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Warn("Event write failed, will retry",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
	)
	go r.retry(event)
	return nil
}

// retry 指数退避重写，Stop 时放弃
func (r *Recorder) retry(event events.Event) {
	defer r.wg.Done()

	backoff := r.opts.RetryBackoff
	for i := 0; i < r.opts.MaxRetries; i++ {
		select {
		case <-time.After(backoff):
		case <-r.stop:
			return
		}
		if r.writer.Write(event) {
			r.log.Debug("Event retry succeeded",
				zap.String("event_id", event.ID),
				zap.Int("attempt", i+1),
			)
			return
		}
		backoff *= 2
	}

	r.log.Error("Event dropped after retries",
		zap.String("event_id", event.ID),
		zap.Int("max_retries", r.opts.MaxRetries),
	)
}

func (r *Recorder) rememberVolume(event events.Event) error {
	v, ok := event.IntField("volume")
	if !ok {
		return nil
	}
	if err := r.prefs.SetInt(storage.PreferenceKeyVolume, v); err != nil {
		r.log.Warn("Failed to save volume", zap.Int("volume", v), zap.Error(err))
		return err
	}
	return nil
}

/**
 * InitialVolume 上次保存的音量
 *
 * 没有保存过或读取失败时返回 DefaultVolume，结果限制在 0..100
 */
func (r *Recorder) InitialVolume() int {
	if r.prefs == nil {
		return DefaultVolume
	}
	v, err := r.prefs.GetInt(storage.PreferenceKeyVolume)
	if err != nil {
		if !errors.Is(err, storage.ErrPreferenceNotFound) {
			r.log.Warn("Failed to load volume", zap.Error(err))
		}
		return DefaultVolume
	}
	switch {
	case v < 0:
		return 0
	case v > controller.MaxUserVolume:
		return controller.MaxUserVolume
	}
	return v
}

/**
 * Prune 删除超出保留期的历史
 *
 * Parameters:
 *   - now: 当前时间
 *
 * Returns: int64 - 删除的行数, error - 错误信息
 */
func (r *Recorder) Prune(now time.Time) (int64, error) {
	if r.opts.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -r.opts.RetentionDays)
	return r.repo.DeleteOlderThan(cutoff)
}

// MostPlayed 播放次数最多的曲目
func (r *Recorder) MostPlayed(limit int) ([]storage.PlayCount, error) {
	return r.repo.MostPlayed(limit)
}

// Stats 写入统计
func (r *Recorder) Stats() storage.BatchWriterStats {
	return r.writer.GetStats()
}

/**
 * Stop 取消订阅并写完缓冲区
 */
func (r *Recorder) Stop() {
	r.mu.Lock()
	bus, subs := r.bus, r.subs
	r.bus, r.subs = nil, nil
	r.stopped = true
	r.mu.Unlock()

	if bus == nil {
		return
	}
	for _, id := range subs {
		bus.Unsubscribe(id)
	}
	close(r.stop)
	r.wg.Wait()
	r.writer.Stop()

	stats := r.writer.GetStats()
	r.log.Info("History recorder stopped",
		zap.Int64("persisted", stats.PersistedEvents),
		zap.Int64("failed", stats.FailedEvents),
		zap.Int64("dropped", stats.DroppedEvents),
	)
}
