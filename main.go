/**
 * WinDJ 主入口文件
 *
 * 负责：
 * 1. 加载并校验配置
 * 2. 初始化日志
 * 3. 构造 App 并运行到退出
 *
 * 任何启动期错误都会以对话框（Windows）或标准错误输出提示后退出。
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chenyang-zz/windj/internal/app"
	"github.com/chenyang-zz/windj/internal/infrastructure/config"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			fatal(fmt.Sprintf("%v\nCreate %s or set %s.", err, "config.yaml", config.EnvConfigPath))
		}
		fatal(err.Error())
	}

	if err := logger.Init(logger.Options{
		Level:          cfg.Logging.Level,
		File:           cfg.Logging.File,
		MaxSizeMB:      cfg.Logging.MaxSizeMB,
		MaxBackups:     cfg.Logging.MaxBackups,
		MaxAgeDays:     cfg.Logging.MaxAgeDays,
		DisableConsole: true,
	}); err != nil {
		fatal(fmt.Sprintf("init logger: %v", err))
	}
	defer logger.Sync()

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		fatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := a.Run(ctx)
	a.Shutdown()
	if runErr != nil {
		logger.Error("WinDJ stopped with error", zap.Error(runErr))
		logger.Sync()
		fatal(runErr.Error())
	}
	logger.Info("WinDJ stopped")
}

// fatal 提示致命错误并退出
func fatal(msg string) {
	platform.ShowFatal("WinDJ", msg)
	os.Exit(1)
}
