/**
 * Package storage 提供数据持久化功能
 *
 * BatchWriter 缓冲事件并批量写入数据库，
 * 事件总线的订阅者因此不会被磁盘 IO 拖慢。
 */

package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

/**
 * BatchWriterConfig 批量写入器配置
 */
type BatchWriterConfig struct {
	// BatchSize 达到此数量时立即刷新
	BatchSize int

	// FlushInterval 定时刷新间隔
	FlushInterval time.Duration

	// EventBuffer 通道容量
	EventBuffer int
}

/**
 * DefaultBatchWriterConfig 默认配置
 *
 * 播放事件频率很低，批量小、间隔短，退出前也会强制刷新
 */
func DefaultBatchWriterConfig() BatchWriterConfig {
	return BatchWriterConfig{
		BatchSize:     20,
		FlushInterval: 2 * time.Second,
		EventBuffer:   256,
	}
}

/**
 * BatchWriterStats 批量写入器统计信息
 */
type BatchWriterStats struct {
	TotalEvents     int64
	PersistedEvents int64
	FailedEvents    int64
	DroppedEvents   int64
}

/**
 * BatchWriter 批量写入器
 */
type BatchWriter struct {
	repo   EventRepository
	config BatchWriterConfig

	eventChan chan events.Event
	buffer    []events.Event

	total     atomic.Int64
	persisted atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

/**
 * NewBatchWriter 创建批量写入器
 */
func NewBatchWriter(repo EventRepository, config BatchWriterConfig) *BatchWriter {
	def := DefaultBatchWriterConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = def.EventBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BatchWriter{
		repo:      repo,
		config:    config,
		eventChan: make(chan events.Event, config.EventBuffer),
		buffer:    make([]events.Event, 0, config.BatchSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

/**
 * Start 启动事件处理循环
 */
func (bw *BatchWriter) Start() {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.started {
		return
	}
	bw.started = true

	bw.wg.Add(1)
	go bw.run()

	logger.Info("批量写入器已启动",
		zap.String("component", "storage"),
		zap.Int("batch_size", bw.config.BatchSize),
		zap.Duration("flush_interval", bw.config.FlushInterval),
	)
}

/**
 * Stop 停止接收新事件，写完剩余事件后返回
 */
func (bw *BatchWriter) Stop() {
	bw.mu.Lock()
	if !bw.started {
		bw.mu.Unlock()
		return
	}
	bw.started = false
	bw.mu.Unlock()

	bw.cancel()
	bw.wg.Wait()

	logger.Info("批量写入器已停止",
		zap.String("component", "storage"),
		zap.Int64("persisted", bw.persisted.Load()),
		zap.Int64("failed", bw.failed.Load()),
	)
}

/**
 * Write 非阻塞写入，通道满或已停止时返回 false
 */
func (bw *BatchWriter) Write(event events.Event) bool {
	bw.total.Add(1)
	if bw.ctx.Err() != nil {
		bw.dropped.Add(1)
		return false
	}
	select {
	case bw.eventChan <- event:
		return true
	default:
		bw.dropped.Add(1)
		logger.Warn("批量写入器通道已满，事件丢弃",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		return false
	}
}

/**
 * ForceFlush 立即写出缓冲区
 */
func (bw *BatchWriter) ForceFlush() {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.flush()
}

// run 单个循环同时处理入队与定时刷新，退出前排空通道
func (bw *BatchWriter) run() {
	defer bw.wg.Done()

	ticker := time.NewTicker(bw.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-bw.eventChan:
			bw.mu.Lock()
			bw.buffer = append(bw.buffer, event)
			if len(bw.buffer) >= bw.config.BatchSize {
				bw.flush()
			}
			bw.mu.Unlock()

		case <-ticker.C:
			bw.ForceFlush()

		case <-bw.ctx.Done():
			bw.mu.Lock()
		drain:
			for {
				select {
				case event := <-bw.eventChan:
					bw.buffer = append(bw.buffer, event)
				default:
					break drain
				}
			}
			bw.flush()
			bw.mu.Unlock()
			return
		}
	}
}

// flush 必须持有 mu
func (bw *BatchWriter) flush() {
	if len(bw.buffer) == 0 {
		return
	}

	count := int64(len(bw.buffer))
	start := time.Now()
	if err := bw.repo.SaveBatch(bw.buffer); err != nil {
		bw.failed.Add(count)
		logger.Error("批量写入失败",
			zap.Int64("count", count),
			zap.Error(err),
		)
	} else {
		bw.persisted.Add(count)
		logger.Debug("批量刷新完成",
			zap.Int64("count", count),
			zap.Duration("duration", time.Since(start)),
		)
	}
	bw.buffer = bw.buffer[:0]
}

/**
 * GetBufferSize 当前缓冲区中的事件数
 */
func (bw *BatchWriter) GetBufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

/**
 * IsStarted 是否已启动
 */
func (bw *BatchWriter) IsStarted() bool {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.started
}

/**
 * GetStats 统计快照
 */
func (bw *BatchWriter) GetStats() BatchWriterStats {
	return BatchWriterStats{
		TotalEvents:     bw.total.Load(),
		PersistedEvents: bw.persisted.Load(),
		FailedEvents:    bw.failed.Load(),
		DroppedEvents:   bw.dropped.Load(),
	}
}
