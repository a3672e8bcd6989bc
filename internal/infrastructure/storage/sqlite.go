/**
 * Package storage 提供数据持久化功能
 *
 * 负责把播放事件与用户偏好持久化到本地 SQLite 数据库
 */

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chenyang-zz/windj/pkg/logger"
	_ "github.com/mattn/go-sqlite3" // SQLite 驱动
	"go.uber.org/zap"
)

/**
 * SQLiteConfig SQLite 配置
 */
type SQLiteConfig struct {
	// Path 数据库文件路径，":memory:" 表示内存数据库
	Path string

	// MaxOpenConns 最大打开连接数
	MaxOpenConns int

	// MaxIdleConns 最大空闲连接数
	MaxIdleConns int

	// ConnMaxLifetime 连接最大生命周期
	ConnMaxLifetime time.Duration
}

/**
 * NewSQLiteDB 创建 SQLite 数据库连接
 *
 * 文件数据库启用 WAL 模式并自动创建父目录
 *
 * Parameters:
 *   - config: SQLite 配置
 *
 * Returns: *sql.DB - 数据库连接实例, error - 错误信息
 */
func NewSQLiteDB(config SQLiteConfig) (*sql.DB, error) {
	logger.Info("创建 SQLite 数据库连接",
		zap.String("component", "storage"),
		zap.String("path", config.Path),
	)

	memory := config.Path == ":memory:"
	dataSourceName := config.Path
	if memory {
		dataSourceName = "file::memory:?mode=memory&cache=shared"
	} else if dir := filepath.Dir(config.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		logger.Error("打开数据库失败", zap.Error(err))
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// SQLite 单写者，默认只开一个连接
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 1
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if !memory {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		}
		for _, p := range pragmas {
			if _, err := db.Exec(p); err != nil {
				db.Close()
				logger.Error("配置数据库失败", zap.String("pragma", p), zap.Error(err))
				return nil, fmt.Errorf("执行 %s 失败: %w", p, err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		logger.Error("数据库连接验证失败", zap.Error(err))
		return nil, fmt.Errorf("数据库连接验证失败: %w", err)
	}

	logger.Info("SQLite 数据库连接成功", zap.String("component", "storage"))
	return db, nil
}
