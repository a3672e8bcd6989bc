package controller

import (
	"context"
	"time"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/chenyang-zz/windj/internal/infrastructure/config"
	"github.com/chenyang-zz/windj/internal/library"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/chenyang-zz/windj/pkg/events"
)

// Timer 可取消的延时任务，*time.Timer 满足该接口
type Timer interface {
	Stop() bool
}

// Scheduler 延时任务调度
//
// fn 必须在 UI goroutine 上执行。
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Scanner 重新生成本地主列表
type Scanner interface {
	Scan() ([]library.SongEntry, error)
}

// Resolver 把远程条目解析成可播放来源
type Resolver interface {
	Resolve(ctx context.Context, videoID string) (audio.Source, error)
}

// Publisher 发布播放事件
type Publisher interface {
	Publish(event events.Event) error
}

// Deps 控制器依赖
type Deps struct {
	Settings config.Settings

	Scanner   Scanner
	NewPlayer audio.Factory
	Resolver  Resolver
	Window    platform.Window
	Scheduler Scheduler
	Bus       Publisher

	// InitialVolume 用户音量 0..100
	InitialVolume int

	// ResolveTimeout 远程解析超时，默认 15 秒
	ResolveTimeout time.Duration
}
