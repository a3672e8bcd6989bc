package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

/**
 * EventRepository 播放事件存储接口
 */
type EventRepository interface {
	// Save 保存单个事件
	Save(event events.Event) error

	// SaveBatch 在一个事务中批量保存
	SaveBatch(eventList []events.Event) error

	// FindRecent 最近的事件，按时间从旧到新
	FindRecent(limit int) ([]events.Event, error)

	// FindByType 按类型查询，按时间从新到旧
	FindByType(eventType events.EventType, limit int) ([]events.Event, error)

	// MostPlayed 播放次数最多的曲目
	MostPlayed(limit int) ([]PlayCount, error)

	// DeleteOlderThan 删除旧数据
	DeleteOlderThan(cutoff time.Time) (int64, error)

	// GetStats 获取统计信息
	GetStats() (*EventStats, error)
}

/**
 * PlayCount 曲目播放次数
 */
type PlayCount struct {
	Display  string
	Locator  string
	Remote   bool
	Count    int64
	LastPlay time.Time
}

/**
 * EventStats 事件统计信息
 */
type EventStats struct {
	// TotalCount 总事件数
	TotalCount int64

	// CountByType 按类型统计
	CountByType map[string]int64
}

/**
 * SQLiteEventRepository SQLite 事件仓储实现
 */
type SQLiteEventRepository struct {
	db *sql.DB
}

/**
 * NewSQLiteEventRepository 创建 SQLite 事件仓储
 */
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

const insertEventSQL = `
	INSERT INTO playback_events (uuid, type, timestamp, display, locator, remote, data)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

const selectEventColumns = `SELECT uuid, type, timestamp, data FROM playback_events`

// eventArgs 提取插入参数，display/locator/remote 单独成列便于统计
func eventArgs(event events.Event) ([]interface{}, error) {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("序列化事件数据失败: %w", err)
	}
	remote, _ := event.Data["remote"].(bool)
	return []interface{}{
		event.ID,
		string(event.Type),
		event.Timestamp,
		event.StringField("display"),
		event.StringField("locator"),
		remote,
		string(dataJSON),
	}, nil
}

/**
 * Save 保存单个事件
 */
func (r *SQLiteEventRepository) Save(event events.Event) error {
	args, err := eventArgs(event)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(insertEventSQL, args...); err != nil {
		logger.Error("保存事件失败",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return fmt.Errorf("保存事件失败: %w", err)
	}
	return nil
}

/**
 * SaveBatch 批量保存事件
 *
 * 使用事务和预处理语句，序列化失败的事件被跳过
 */
func (r *SQLiteEventRepository) SaveBatch(eventList []events.Event) error {
	if len(eventList) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, event := range eventList {
		args, err := eventArgs(event)
		if err != nil {
			logger.Error("跳过无法序列化的事件",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("插入事件 %s 失败: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	logger.Debug("批量保存事件成功", zap.Int("count", len(eventList)))
	return nil
}

/**
 * FindRecent 查询最近的事件
 *
 * Returns: []events.Event - 按时间从旧到新
 */
func (r *SQLiteEventRepository) FindRecent(limit int) ([]events.Event, error) {
	rows, err := r.db.Query(selectEventColumns+` ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询最近事件失败: %w", err)
	}
	defer rows.Close()

	eventList, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(eventList)-1; i < j; i, j = i+1, j-1 {
		eventList[i], eventList[j] = eventList[j], eventList[i]
	}
	return eventList, nil
}

/**
 * FindByType 按类型查询事件
 */
func (r *SQLiteEventRepository) FindByType(eventType events.EventType, limit int) ([]events.Event, error) {
	rows, err := r.db.Query(selectEventColumns+` WHERE type = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		string(eventType), limit)
	if err != nil {
		return nil, fmt.Errorf("按类型查询事件失败: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

/**
 * MostPlayed 统计播放次数最多的曲目
 */
func (r *SQLiteEventRepository) MostPlayed(limit int) ([]PlayCount, error) {
	rows, err := r.db.Query(`
		SELECT display, locator, remote, COUNT(*) AS plays, MAX(timestamp)
		FROM playback_events
		WHERE type = ?
		GROUP BY locator
		ORDER BY plays DESC, MAX(timestamp) DESC
		LIMIT ?
	`, string(events.EventTypePlaybackStarted), limit)
	if err != nil {
		return nil, fmt.Errorf("统计播放次数失败: %w", err)
	}
	defer rows.Close()

	var out []PlayCount
	for rows.Next() {
		var pc PlayCount
		var last string
		if err := rows.Scan(&pc.Display, &pc.Locator, &pc.Remote, &pc.Count, &last); err != nil {
			return nil, fmt.Errorf("扫描播放次数失败: %w", err)
		}
		pc.LastPlay = parseSQLiteTime(last)
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历播放次数失败: %w", err)
	}
	return out, nil
}

/**
 * DeleteOlderThan 删除旧于指定时间的事件
 *
 * Returns: int64 - 删除的记录数, error - 错误信息
 */
func (r *SQLiteEventRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM playback_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("删除旧事件失败: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("获取删除行数失败: %w", err)
	}
	if count > 0 {
		logger.Info("删除旧事件",
			zap.Int64("count", count),
			zap.Time("cutoff", cutoff),
		)
	}
	return count, nil
}

/**
 * GetStats 获取事件统计信息
 */
func (r *SQLiteEventRepository) GetStats() (*EventStats, error) {
	stats := &EventStats{CountByType: make(map[string]int64)}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM playback_events").Scan(&stats.TotalCount); err != nil {
		return nil, fmt.Errorf("查询总数失败: %w", err)
	}

	rows, err := r.db.Query("SELECT type, COUNT(*) FROM playback_events GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("按类型统计失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("扫描类型统计失败: %w", err)
		}
		stats.CountByType[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历类型统计失败: %w", err)
	}
	return stats, nil
}

// scanEvents 扫描事件行
func scanEvents(rows *sql.Rows) ([]events.Event, error) {
	var eventList []events.Event

	for rows.Next() {
		var event events.Event
		var eventType, dataJSON string

		if err := rows.Scan(&event.ID, &eventType, &event.Timestamp, &dataJSON); err != nil {
			return nil, fmt.Errorf("扫描事件行失败: %w", err)
		}
		event.Type = events.EventType(eventType)

		if err := json.Unmarshal([]byte(dataJSON), &event.Data); err != nil {
			logger.Error("反序列化事件数据失败",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			event.Data = make(map[string]interface{})
		}
		eventList = append(eventList, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历事件行失败: %w", err)
	}
	return eventList, nil
}

// parseSQLiteTime 解析聚合函数返回的时间文本，聚合结果丢失了列类型
func parseSQLiteTime(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
