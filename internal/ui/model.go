package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chenyang-zz/windj/internal/bridge"
	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

const (
	// DefaultTickInterval 计时标签刷新间隔
	DefaultTickInterval = time.Second

	// DefaultTopInterval 窗口置顶检查间隔
	DefaultTopInterval = 5 * time.Second

	// rowHeight 每行的像素高度，用于把窗口高度换算为行数
	rowHeight = 20
)

// KeySource 令牌来源
type KeySource interface {
	Drain() []keymap.KeyToken
}

// Handler 令牌处理方
type Handler interface {
	HandleAll(tokens []keymap.KeyToken)
}

// Topper 窗口置顶
type Topper interface {
	EnsureTop() error
}

// Options 模型选项
type Options struct {
	Controller *controller.Controller
	Keys       KeySource
	Handler    Handler
	Window     Topper

	// Rows 列表可见行数，0 表示按窗口高度计算
	Rows int

	TickInterval time.Duration
	TopInterval  time.Duration
}

type tickMsg time.Time

type topMsg time.Time

// keyMap 终端内的按键，全局热键不经过这里
type keyMap struct {
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Model bubbletea 模型
type Model struct {
	ctrl    *controller.Controller
	keys    KeySource
	handler Handler
	window  Topper
	keymap  keyMap

	rows          int
	width, height int
	tick, top     time.Duration

	quitting bool
	log      *zap.Logger
}

// NewModel 创建模型
func NewModel(opts Options) *Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.TopInterval <= 0 {
		opts.TopInterval = DefaultTopInterval
	}
	return &Model{
		ctrl:    opts.Controller,
		keys:    opts.Keys,
		handler: opts.Handler,
		window:  opts.Window,
		keymap:  defaultKeyMap(),
		rows:    opts.Rows,
		tick:    opts.TickInterval,
		top:     opts.TopInterval,
		log:     logger.With(zap.String("component", "ui")),
	}
}

// RequestQuit 处理完当前消息后退出，只能在 UI goroutine 上调用
func (m *Model) RequestQuit() {
	m.quitting = true
}

// Quitting 是否已请求退出
func (m *Model) Quitting() bool {
	return m.quitting
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.topCmd())
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) topCmd() tea.Cmd {
	return tea.Tick(m.top, func(t time.Time) tea.Msg { return topMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case bridge.DrainKeysMsg:
		if tokens := m.keys.Drain(); len(tokens) > 0 {
			m.handler.HandleAll(tokens)
		}
	case postMsg:
		m.run(msg.fn)
	case tickMsg:
		cmd = m.tickCmd()
	case topMsg:
		if m.window != nil {
			if err := m.window.EnsureTop(); err != nil {
				m.log.Debug("EnsureTop failed", zap.Error(err))
			}
		}
		cmd = m.topCmd()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.Quit) {
			m.quitting = true
		}
	}

	if m.quitting {
		return m, tea.Quit
	}
	return m, cmd
}

// run 执行投递的函数，panic 只记录日志
func (m *Model) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Recovered from panic in posted function",
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stack"),
			)
		}
	}()
	fn()
}
