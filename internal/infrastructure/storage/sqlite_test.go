package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB 创建已迁移的临时数据库
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewSQLiteDB(SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNewSQLiteDB 测试创建数据库连接
func TestNewSQLiteDB(t *testing.T) {
	config := SQLiteConfig{
		Path:            filepath.Join(t.TempDir(), "nested", "dir", "windj.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
	}

	db, err := NewSQLiteDB(config)
	require.NoError(t, err, "父目录应被自动创建")
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

// TestNewSQLiteDB_Memory 测试内存数据库
func TestNewSQLiteDB_Memory(t *testing.T) {
	db, err := NewSQLiteDB(SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping())
}

// TestRunMigrations 测试迁移建表与幂等
func TestRunMigrations(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"schema_migrations", "playback_events", "preferences"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "表 %s 应该存在", table)
	}

	var version int
	require.NoError(t, db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, LatestVersion(), version)

	require.NoError(t, RunMigrations(db), "重复执行应跳过已应用的迁移")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

// TestRunMigrations_ConnectionClosed 测试连接关闭时报错
func TestRunMigrations_ConnectionClosed(t *testing.T) {
	db, err := NewSQLiteDB(SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	db.Close()

	assert.Error(t, RunMigrations(db))
}
