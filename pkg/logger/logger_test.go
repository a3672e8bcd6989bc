/**
 * Package logger 日志系统测试
 */
package logger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// reset 重置全局 logger 状态（仅用于测试）
func reset() {
	once = sync.Once{} //nolint:all
	logger = nil
	sugar = nil
}

// TestInitLogger 测试日志系统初始化
func TestInitLogger(t *testing.T) {
	t.Run("开发环境初始化", func(t *testing.T) {
		reset()
		t.Setenv("ENV", "development")

		require.NoError(t, InitLogger())
		assert.NotNil(t, logger, "logger 不应为 nil")
		assert.NotNil(t, sugar, "sugar logger 不应为 nil")
	})

	t.Run("生产环境初始化", func(t *testing.T) {
		reset()
		t.Setenv("ENV", "production")

		require.NoError(t, InitLogger())
		assert.NotNil(t, logger)
	})

	t.Run("重复初始化（幂等性）", func(t *testing.T) {
		reset()
		t.Setenv("ENV", "development")

		require.NoError(t, InitLogger())
		first := logger

		require.NoError(t, Init(Options{Level: "error"}))
		assert.Same(t, first, logger, "重复初始化应该返回同一个实例")
	})
}

// TestInitWithRotatingFile 测试文件输出（lumberjack 滚动）
func TestInitWithRotatingFile(t *testing.T) {
	reset()
	t.Setenv("ENV", "production")

	path := filepath.Join(t.TempDir(), "windj.log")
	require.NoError(t, Init(Options{
		Level:          "info",
		File:           path,
		MaxSizeMB:      1,
		MaxBackups:     2,
		DisableConsole: true,
	}))

	Info("写入文件的日志", zap.String("component", "test"))
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入文件的日志")
	assert.Contains(t, string(data), `"component":"test"`)
}

// TestInitWithoutOutputs 测试关闭所有输出时返回 Nop logger
func TestInitWithoutOutputs(t *testing.T) {
	reset()
	t.Setenv("LOG_FILE", "")

	require.NoError(t, Init(Options{DisableConsole: true}))
	assert.NotPanics(t, func() {
		Info("不会输出到任何地方")
	})
}

// TestGetLogger 测试未初始化时自动初始化
func TestGetLogger(t *testing.T) {
	reset()
	t.Setenv("ENV", "development")

	assert.NotNil(t, GetLogger())
	assert.NotNil(t, GetSugaredLogger())
}

// TestConvenienceFunctions 测试便利函数不会 panic
func TestConvenienceFunctions(t *testing.T) {
	reset()
	t.Setenv("ENV", "development")
	require.NoError(t, InitLogger())

	assert.NotPanics(t, func() {
		Debug("debug", zap.String("key", "value"))
		Info("info", zap.String("key", "value"))
		Warn("warn", zap.String("key", "value"))
		Error("error", zap.String("key", "value"))
		With(zap.String("component", "test")).Info("with fields")
	})
}

// TestGetEnv 测试环境变量读取
func TestGetEnv(t *testing.T) {
	t.Setenv("WINDJ_TEST_ENV", "value")

	assert.Equal(t, "value", getEnv("WINDJ_TEST_ENV", "default"))
	assert.Equal(t, "default", getEnv("WINDJ_TEST_ENV_MISSING", "default"))
}
