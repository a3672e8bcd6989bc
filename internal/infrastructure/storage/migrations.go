package storage

import (
	"database/sql"
	"fmt"

	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

/**
 * Migration 数据库迁移
 */
type Migration struct {
	// Version 迁移版本号
	Version int

	// Name 迁移名称
	Name string

	// SQL 迁移 SQL 语句
	SQL string
}

// 所有迁移脚本（按版本号排序）
var migrations = []Migration{
	{
		Version: 1,
		Name:    "init_schema_migrations",
		SQL: `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`,
	},
	{
		Version: 2,
		Name:    "init_playback_events_table",
		SQL: `
CREATE TABLE IF NOT EXISTS playback_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT UNIQUE NOT NULL,
    type TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    display TEXT,
    locator TEXT,
    remote BOOLEAN DEFAULT FALSE,
    data JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_playback_events_timestamp ON playback_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_playback_events_type ON playback_events(type);
CREATE INDEX IF NOT EXISTS idx_playback_events_locator ON playback_events(locator);
`,
	},
	{
		Version: 3,
		Name:    "init_preferences_table",
		SQL: `
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`,
	},
}

/**
 * RunMigrations 执行数据库迁移
 *
 * 所有未应用的迁移在同一个事务中执行，任一失败整体回滚
 *
 * Parameters:
 *   - db: 数据库连接
 *
 * Returns: error - 错误信息
 */
func RunMigrations(db *sql.DB) error {
	logger.Info("开始执行数据库迁移", zap.String("component", "storage"))

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	applied, err := appliedVersions(tx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		logger.Info("应用迁移",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name),
		)

		if _, err := tx.Exec(migration.SQL); err != nil {
			return fmt.Errorf("执行迁移 %s 失败: %w", migration.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("记录迁移版本失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交迁移事务失败: %w", err)
	}

	logger.Info("数据库迁移完成", zap.Int("latest_version", LatestVersion()))
	return nil
}

// LatestVersion 最新迁移版本号
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// appliedVersions 读取已应用的迁移版本，首次运行时表还不存在
func appliedVersions(tx *sql.Tx) (map[int]bool, error) {
	applied := make(map[int]bool)

	var exists int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'",
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("检查迁移表失败: %w", err)
	}
	if exists == 0 {
		return applied, nil
	}

	rows, err := tx.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("查询迁移版本失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("扫描迁移版本失败: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历迁移版本失败: %w", err)
	}
	return applied, nil
}
