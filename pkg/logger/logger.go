/**
 * Package logger 提供结构化日志功能
 *
 * 基于 uber-go/zap 实现，文件输出通过 lumberjack 滚动切割。
 * 终端界面独占标准输出，因此运行时日志默认只写入文件。
 */
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// logger 全局日志实例
	logger *zap.Logger

	// once 确保日志只初始化一次
	once sync.Once

	// sugar 全局 sugared logger 实例
	sugar *zap.SugaredLogger
)

// Options 日志初始化选项
//
// 零值表示：Debug/Info 级别由环境决定、输出到控制台、不写文件。
type Options struct {
	// Level 日志级别（debug/info/warn/error），为空时读取 LOG_LEVEL
	Level string

	// File 日志文件路径，为空时读取 LOG_FILE，仍为空则不写文件
	File string

	// MaxSizeMB 单个日志文件最大体积（MB）
	MaxSizeMB int

	// MaxBackups 保留的旧日志文件数量
	MaxBackups int

	// MaxAgeDays 旧日志保留天数
	MaxAgeDays int

	// DisableConsole 关闭控制台输出（TUI 运行时必须关闭）
	DisableConsole bool
}

// InitLogger 使用环境变量初始化日志系统
//
// 环境变量：
//   - ENV: development/production，默认 development
//   - LOG_LEVEL: 日志级别，默认根据环境自动设置
//   - LOG_FILE: 日志文件路径（可选）
//
// Returns: error - 初始化失败时返回错误
func InitLogger() error {
	return Init(Options{})
}

// Init 按选项初始化日志系统
//
// 只有第一次调用生效，之后的调用直接返回第一次的结果。
//
// Parameters:
//   - opts: 日志选项
//
// Returns: error - 初始化失败时返回错误
func Init(opts Options) error {
	var initErr error
	once.Do(func() {
		logger, initErr = build(opts)
		if initErr != nil {
			return
		}
		sugar = logger.Sugar()
	})
	return initErr
}

// build 根据环境与选项构造 zap.Logger
func build(opts Options) (*zap.Logger, error) {
	production := getEnv("ENV", "development") == "production"

	defaultLevel := "debug"
	if production {
		defaultLevel = "info"
	}
	levelName := opts.Level
	if levelName == "" {
		levelName = getEnv("LOG_LEVEL", defaultLevel)
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core

	if !opts.DisableConsole {
		var encoder zapcore.Encoder
		if production {
			encoder = zapcore.NewJSONEncoder(productionEncoderConfig())
		} else {
			encoder = zapcore.NewConsoleEncoder(developmentEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), atomicLevel))
	}

	file := opts.File
	if file == "" {
		file = getEnv("LOG_FILE", "")
	}
	if file != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(productionEncoderConfig()),
			zapcore.AddSync(newRotatingWriter(file, opts)),
			atomicLevel,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// newRotatingWriter 创建按体积切割的日志文件写入器
func newRotatingWriter(path string, opts Options) *lumberjack.Logger {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   false,
	}
}

// developmentEncoderConfig 开发环境编码配置（彩色级别、友好时间格式）
func developmentEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.999"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// productionEncoderConfig 生产环境/文件编码配置
func productionEncoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()
	config.TimeKey = "timestamp"
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeCaller = zapcore.ShortCallerEncoder
	return config
}

// GetLogger 获取全局 logger 实例
//
// 如果日志系统未初始化，会按环境变量自动初始化。
//
// Returns: *zap.Logger - 全局 logger 实例
func GetLogger() *zap.Logger {
	if logger == nil {
		if err := InitLogger(); err != nil || logger == nil {
			return zap.NewNop()
		}
	}
	return logger
}

// GetSugaredLogger 获取全局 sugared logger 实例
//
// Returns: *zap.SugaredLogger - 全局 sugared logger 实例
func GetSugaredLogger() *zap.SugaredLogger {
	if sugar == nil {
		return GetLogger().Sugar()
	}
	return sugar
}

// Sync 刷新日志缓冲区，应用退出前调用
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Debug 记录 Debug 级别日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 记录 Info 级别日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 记录 Warn 级别日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 记录 Error 级别日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal 记录 Fatal 级别日志后调用 os.Exit(1)
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// With 创建带有预设字段的 logger
//
// Parameters:
//   - fields: 预设的日志字段
//
// Returns: *zap.Logger - 带有预设字段的 logger
func With(fields ...zap.Field) *zap.Logger {
	return GetLogger().With(fields...)
}

// getEnv 获取环境变量，不存在时返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
