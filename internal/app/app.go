/**
 * Package app 进程级上下文
 *
 * App 持有所有组件，按依赖顺序构造，按相反顺序释放：
 * 键盘钩子 → 通道 → 桥 → UI 循环 → 解释器 → 控制器。
 */

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/chenyang-zz/windj/internal/bridge"
	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/internal/history"
	"github.com/chenyang-zz/windj/internal/infrastructure/config"
	"github.com/chenyang-zz/windj/internal/infrastructure/storage"
	"github.com/chenyang-zz/windj/internal/interpreter"
	"github.com/chenyang-zz/windj/internal/keychan"
	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/internal/library"
	"github.com/chenyang-zz/windj/internal/monitor"
	"github.com/chenyang-zz/windj/internal/mpris"
	"github.com/chenyang-zz/windj/internal/notify"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/chenyang-zz/windj/internal/ui"
	"github.com/chenyang-zz/windj/internal/youtube"
	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

// busStopTimeout 等待事件订阅者退出的时间
const busStopTimeout = 2 * time.Second

/**
 * App 应用
 */
type App struct {
	cfg *config.Config
	log *zap.Logger

	bus      *events.EventBus
	db       *sql.DB
	recorder *history.Recorder
	notifier *notify.Watcher

	keys   *keychan.Channel
	hook   *monitor.KeyboardMonitor
	bridge *bridge.Bridge
	loop   *ui.Loop

	searcher *youtube.Searcher
	resolver *youtube.Resolver
	ctrl     *controller.Controller
	interp   *interpreter.Interpreter
	model    *ui.Model
	program  *tea.Program
	mpris    *mpris.Adapter
}

/**
 * New 构造全部组件
 *
 * 返回的错误都是启动期致命错误，此时已构造的组件会被释放。
 *
 * Parameters:
 *   - cfg: 已通过校验的配置
 *
 * Returns: *App - 应用, error - 错误信息
 */
func New(cfg *config.Config) (a *App, err error) {
	a = &App{
		cfg:  cfg,
		log:  logger.With(zap.String("component", "app")),
		bus:  events.NewEventBus(),
		keys: keychan.New(),
		loop: ui.NewLoop(),
	}
	a.bus.Use(events.RecoveryMiddleware())
	a.bus.Use(events.LoggingMiddleware())

	defer func() {
		if err != nil {
			a.Shutdown()
			a = nil
		}
	}()

	controls, err := cfg.ControlMap()
	if err != nil {
		return a, err
	}

	if err := a.openHistory(); err != nil {
		return a, err
	}

	window, err := platform.NewWindow()
	if err != nil {
		return a, fmt.Errorf("attach window: %w", err)
	}
	if err := window.SetGeometry(geometry(cfg.Settings)); err != nil {
		a.log.Warn("Failed to place window", zap.Error(err))
	}

	deps := controller.Deps{
		Settings: cfg.Settings,
		Scanner: &library.Scanner{
			Folders: cfg.Folders,
			Options: library.ScanOptions{ReadTags: cfg.Settings.ReadTags},
		},
		NewPlayer:     audio.NewFactory(audio.Options{FFmpeg: cfg.YouTube.FFmpeg}),
		Window:        window,
		Scheduler:     a.loop,
		Bus:           a.bus,
		InitialVolume: a.recorder.InitialVolume(),
	}

	var searcher interpreter.Searcher
	if cfg.YouTube.Enabled {
		a.searcher = youtube.NewSearcher(youtube.SearcherOptions{
			MaxResults: cfg.YouTube.MaxResults,
			TTL:        cfg.YouTube.SearchTTL,
		})
		searcher = a.searcher
		a.resolver = youtube.NewResolver(cfg.YouTube.StreamTTL)
		deps.Resolver = a.resolver
	}

	a.ctrl, err = controller.New(deps)
	if err != nil {
		return a, err
	}
	if err := checkOutputDevice(cfg.Settings.OutputDevice, deps.NewPlayer); err != nil {
		a.log.Warn("Configured audio_device will be ignored",
			zap.String("device", cfg.Settings.OutputDevice), zap.Error(err))
		a.ctrl.SetStatus("audio_device ignored, using default output")
	}

	a.interp = interpreter.New(a.ctrl, interpreter.Options{
		Controls:           controls,
		ControlsOverSearch: cfg.Settings.ControlsOverSearch,
		Searcher:           searcher,
		Poster:             a.loop,
		OnQuit:             func() { a.model.RequestQuit() },
	})

	a.model = ui.NewModel(ui.Options{
		Controller: a.ctrl,
		Keys:       a.keys,
		Handler:    a.interp,
		Window:     window,
		Rows:       ui.RowsFor(cfg.Settings.VerSize),
	})
	a.program = tea.NewProgram(a.model, tea.WithAltScreen())
	a.loop.Attach(a.program)
	a.bridge = bridge.New(a.keys, a.loop, bridge.DefaultPollInterval)

	if a.hook, err = a.newHook(controls); err != nil {
		return a, err
	}

	if cfg.MPRIS.Enabled {
		a.mpris, err = mpris.New(mpris.Options{
			Poster:        a.loop,
			Dispatcher:    a.interp,
			Bus:           a.bus,
			InitialVolume: deps.InitialVolume,
		})
		if err != nil {
			a.log.Warn("MPRIS unavailable", zap.Error(err))
		}
	}

	a.notifier = notify.NewWatcher(notify.New())
	a.notifier.Attach(a.bus)
	return a, nil
}

// openHistory 打开数据库并挂上历史记录器
func (a *App) openHistory() error {
	db, err := storage.NewSQLiteDB(storage.SQLiteConfig{Path: a.cfg.Storage.Path})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if err := storage.RunMigrations(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	repo := storage.NewSQLiteEventRepository(db)
	opts := history.DefaultOptions()
	opts.RetentionDays = a.cfg.Storage.RetentionDays
	a.recorder = history.NewRecorder(
		storage.NewBatchWriter(repo, storage.DefaultBatchWriterConfig()),
		repo,
		storage.NewPreferenceRepository(db),
		opts,
	)
	if _, err := a.recorder.Prune(time.Now()); err != nil {
		a.log.Warn("Failed to prune history", zap.Error(err))
	}
	a.recorder.Attach(a.bus)
	return nil
}

// newHook 按配置创建键盘监控
func (a *App) newHook(controls *keymap.ControlMap) (*monitor.KeyboardMonitor, error) {
	platformOpts, monitorOpts, err := hookOptions(a.cfg, controls)
	if err != nil {
		return nil, err
	}
	if platformOpts.Backend == platform.BackendGrab && monitorOpts.KeyID != monitor.KeyIDVKCode {
		a.log.Warn("Grab backend registers virtual key codes, set hook.key_id to vkcode")
	}

	if platform.HookPermission() == platform.PermissionStatusDenied {
		if err := platform.RequestHookPermission(); err != nil {
			return nil, fmt.Errorf("grant Accessibility access to this program in System Settings and restart: %w", err)
		}
	}

	p, err := platform.NewKeyboardMonitor(platformOpts)
	if err != nil {
		return nil, fmt.Errorf("create keyboard hook: %w", err)
	}
	return monitor.NewKeyboardMonitor(p, controls, a.keys, monitorOpts), nil
}

/**
 * Run 安装钩子并运行 UI 循环，直到 quit、Ctrl+C 或 ctx 取消
 *
 * Returns: error - 钩子安装失败等致命错误
 */
func (a *App) Run(ctx context.Context) error {
	if err := a.hook.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.bridge.Start(ctx)
	go func() {
		<-ctx.Done()
		a.program.Quit()
	}()

	a.log.Info("WinDJ started",
		zap.Int("songs", len(a.ctrl.Master())),
		zap.String("config", a.cfg.Path()),
	)

	if _, err := a.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui loop: %w", err)
	}
	return nil
}

/**
 * Shutdown 按构造的相反顺序释放资源，可重复调用
 */
func (a *App) Shutdown() {
	if a.hook != nil {
		if err := a.hook.Stop(); err != nil {
			a.log.Warn("Failed to remove keyboard hook", zap.Error(err))
		}
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}
	if a.interp != nil {
		a.interp.Close()
	}
	if a.mpris != nil {
		_ = a.mpris.Close()
	}
	if a.notifier != nil {
		a.notifier.Stop()
	}
	if a.ctrl != nil {
		_ = a.ctrl.Close()
	}
	if a.searcher != nil {
		a.searcher.Close()
	}
	if a.resolver != nil {
		a.resolver.Close()
	}
	if a.recorder != nil {
		a.recorder.Stop()
	}
	if a.bus != nil {
		if err := a.bus.Stop(busStopTimeout); err != nil {
			a.log.Warn("Event bus stop timed out", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

// hookOptions 由配置得到平台层与业务层的钩子选项
func hookOptions(cfg *config.Config, controls *keymap.ControlMap) (platform.MonitorOptions, monitor.Options, error) {
	backend, err := platform.ParseBackend(cfg.Hook.Backend)
	if err != nil {
		return platform.MonitorOptions{}, monitor.Options{}, err
	}
	keyID, err := monitor.ParseKeyID(cfg.Hook.KeyID)
	if err != nil {
		return platform.MonitorOptions{}, monitor.Options{}, err
	}
	return platform.MonitorOptions{Backend: backend, GrabKeys: controls.Codes()},
		monitor.Options{KeyID: keyID, ControlsCaptured: cfg.Settings.ControlsCaptured},
		nil
}

// checkOutputDevice 用一个空闲播放器试探能否选择配置的输出设备
func checkOutputDevice(name string, factory audio.Factory) error {
	if name == "" {
		return nil
	}
	player, err := factory()
	if err != nil {
		return err
	}
	defer player.Close()
	return player.SetOutputDevice(name)
}

// geometry 窗口位置与尺寸
func geometry(s config.Settings) platform.Geometry {
	return platform.Geometry{
		X:      s.HorOffset,
		Y:      s.VerOffset,
		Width:  s.HorSize,
		Height: s.VerSize,
		Fixed:  s.FixedPosition,
	}
}
