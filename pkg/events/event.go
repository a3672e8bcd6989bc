/**
 * Package events 提供事件系统的核心类型定义
 *
 * 播放控制器发布播放、音量、搜索等领域事件，
 * 历史记录、MPRIS 等旁路组件订阅处理，互不阻塞 UI 线程。
 */

package events

import (
	"time"

	"github.com/google/uuid"
)

/**
 * EventType 事件类型
 */
type EventType string

const (
	// 播放事件
	EventTypePlaybackStarted EventType = "playback.started" // 开始播放
	EventTypePlaybackStopped EventType = "playback.stopped" // 停止播放
	EventTypePlaybackFailed  EventType = "playback.failed"  // 播放失败

	// 状态事件
	EventTypeVolumeChanged EventType = "volume.changed" // 音量变化
	EventTypeSearchQueried EventType = "search.queried" // 远程搜索完成
	EventTypeLibraryLoaded EventType = "library.loaded" // 曲库加载完成
	EventTypeModeChanged   EventType = "mode.changed"   // 本地/远程模式切换
)

/**
 * Event 统一事件结构
 */
type Event struct {
	// ID 事件唯一标识符
	ID string `json:"id"`

	// Type 事件类型
	Type EventType `json:"type"`

	// Timestamp 事件发生时间
	Timestamp time.Time `json:"timestamp"`

	// Data 事件数据（类型特定）
	Data map[string]interface{} `json:"data"`

	// Metadata 事件元数据（可选）
	Metadata map[string]string `json:"metadata,omitempty"`
}

/**
 * NewEvent 创建新事件
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - data: 事件数据
 *
 * Returns:
 *   - *Event: 新创建的事件
 */
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Metadata:  make(map[string]string),
	}
}

/**
 * WithMetadata 添加元数据，支持链式调用
 */
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// StringField 读取字符串类型的数据字段，不存在或类型不符时返回空串
func (e Event) StringField(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// IntField 读取整数类型的数据字段
func (e Event) IntField(key string) (int, bool) {
	switch v := e.Data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

/**
 * PlaybackEventData 播放事件数据
 */
type PlaybackEventData struct {
	Display string `json:"display"` // 显示名称
	Locator string `json:"locator"` // 文件路径或远程 ID
	Remote  bool   `json:"remote"`  // 是否远程来源
	Error   string `json:"error"`   // 失败原因（仅 playback.failed）
}

// ToMap 转换为事件数据
func (d PlaybackEventData) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"display": d.Display,
		"locator": d.Locator,
		"remote":  d.Remote,
	}
	if d.Error != "" {
		m["error"] = d.Error
	}
	return m
}
