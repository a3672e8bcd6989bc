// Package interpreter 把按键令牌解释为搜索编辑与控制动作。
//
// Normal 与 Searching（本地/远程）两种状态都保存在控制器中，
// 解释器只在 UI goroutine 上运行。
package interpreter

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chenyang-zz/windj/internal/controller"
	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/internal/library"
	"github.com/chenyang-zz/windj/pkg/logger"
	"go.uber.org/zap"
)

const (
	// DefaultDebounce 远程搜索的静默期
	DefaultDebounce = 500 * time.Millisecond

	// DefaultSearchTimeout 单次远程搜索超时
	DefaultSearchTimeout = 15 * time.Second
)

// Poster 把函数投递到 UI goroutine 执行
type Poster interface {
	Post(fn func())
}

// Searcher 远程搜索
type Searcher interface {
	Search(ctx context.Context, query string) ([]library.SongEntry, error)
}

// Options 解释器选项
type Options struct {
	Controls *keymap.ControlMap

	// ControlsOverSearch 搜索时绑定了动作的键不再输入文字
	ControlsOverSearch bool

	// Searcher 为 nil 时 youtubeMode 无效
	Searcher Searcher
	Poster   Poster

	Debounce      time.Duration
	SearchTimeout time.Duration

	// OnQuit quit 动作触发时调用
	OnQuit func()
}

// Interpreter 按键解释器
type Interpreter struct {
	ctrl     *controller.Controller
	opts     Options
	debounce *debouncer
	log      *zap.Logger
}

// New 创建解释器
func New(ctrl *controller.Controller, opts Options) *Interpreter {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	return &Interpreter{
		ctrl:     ctrl,
		opts:     opts,
		debounce: newDebouncer(opts.Debounce),
		log:      logger.With(zap.String("component", "interpreter")),
	}
}

// HandleAll 按顺序处理一批令牌
func (in *Interpreter) HandleAll(tokens []keymap.KeyToken) {
	for _, tok := range tokens {
		in.Handle(tok)
	}
}

/**
 * Handle 处理一个令牌
 *
 * 搜索状态下先编辑搜索串，随后无论状态如何都按绑定表分发动作。
 * 内部错误和 panic 只记录日志，不会传出。
 */
func (in *Interpreter) Handle(tok keymap.KeyToken) {
	defer in.recoverPanic("handle " + tok.String())

	action, bound := in.opts.Controls.Resolve(tok)
	st := in.ctrl.State()

	if st.Searching && !(bound && in.opts.ControlsOverSearch) {
		if text, changed := editSearch(st.SearchString, tok); changed {
			in.setSearch(text)
		}
	}

	if bound {
		in.dispatch(action)
	}
}

// editSearch 按令牌修改搜索串
func editSearch(s string, tok keymap.KeyToken) (string, bool) {
	switch tok.Named {
	case keymap.NamedSpace:
		return s + " ", true
	case keymap.NamedBackspace:
		if s == "" {
			return s, false
		}
		_, size := utf8.DecodeLastRuneInString(s)
		return s[:len(s)-size], true
	}
	if tok.IsChar() {
		return s + strings.ToLower(string(tok.Char)), true
	}
	return s, false
}

func (in *Interpreter) setSearch(text string) {
	in.ctrl.SetSearchString(text)
	if in.ctrl.State().YoutubeMode {
		in.scheduleRemote(text)
	}
}

// Dispatch 执行一个控制动作，供非键盘控制面复用
func (in *Interpreter) Dispatch(action keymap.Action) {
	defer in.recoverPanic("dispatch " + string(action))
	in.dispatch(action)
}

func (in *Interpreter) dispatch(action keymap.Action) {
	in.log.Debug("Dispatch", zap.String("action", string(action)))

	switch action {
	case keymap.ActionTogglePlay:
		if in.ctrl.TogglePlay() {
			if st := in.ctrl.State(); st.Playing && st.Searching {
				in.exitSearch()
			}
		}
	case keymap.ActionNavUp:
		in.ctrl.Navigate(-1)
	case keymap.ActionNavDown:
		in.ctrl.Navigate(1)
	case keymap.ActionNavMultUp:
		in.ctrl.NavigatePage(-1)
	case keymap.ActionNavMultDown:
		in.ctrl.NavigatePage(1)
	case keymap.ActionVolUp:
		in.ctrl.AdjustVolume(1)
	case keymap.ActionVolDown:
		in.ctrl.AdjustVolume(-1)
	case keymap.ActionSearch:
		if in.ctrl.State().Searching {
			in.exitSearch()
		} else {
			in.ctrl.EnterSearch()
		}
	case keymap.ActionYoutubeMode:
		if in.opts.Searcher == nil {
			return
		}
		in.debounce.Cancel()
		if in.ctrl.State().YoutubeMode {
			in.ctrl.ExitRemote()
		} else {
			in.ctrl.EnterRemote()
		}
	case keymap.ActionToggleShow:
		in.ctrl.ToggleShow()
	case keymap.ActionReset:
		in.debounce.Cancel()
		in.ctrl.Reset()
	case keymap.ActionQuit:
		in.log.Info("Quit requested")
		if in.opts.OnQuit != nil {
			in.opts.OnQuit()
		}
	default:
		in.log.Warn("Unknown action", zap.String("action", string(action)))
	}
}

func (in *Interpreter) exitSearch() {
	in.debounce.Cancel()
	in.ctrl.ExitSearch()
}

// scheduleRemote 重新计时，静默期结束后在临时 goroutine 上查询
func (in *Interpreter) scheduleRemote(query string) {
	if in.opts.Searcher == nil || in.opts.Poster == nil {
		return
	}
	if strings.TrimSpace(query) == "" {
		in.debounce.Cancel()
		return
	}
	in.debounce.Trigger(func(gen uint64) {
		in.runRemote(gen, query)
	})
}

// runRemote 在计时器 goroutine 上执行，只通过 Poster 接触控制器
func (in *Interpreter) runRemote(gen uint64, query string) {
	if !in.debounce.Current(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.opts.SearchTimeout)
	defer cancel()
	results, err := in.opts.Searcher.Search(ctx, query)

	in.opts.Poster.Post(func() {
		if !in.debounce.Current(gen) {
			in.log.Debug("Discard stale search results", zap.String("query", query))
			return
		}
		if err != nil {
			in.log.Warn("Remote search failed", zap.String("query", query), zap.Error(err))
			in.ctrl.SetStatus("Search failed")
			return
		}
		in.ctrl.ApplyRemoteResults(query, results)
	})
}

// Close 取消待执行的远程搜索
func (in *Interpreter) Close() {
	in.debounce.Cancel()
}

func (in *Interpreter) recoverPanic(where string) {
	if r := recover(); r != nil {
		in.log.Error("Recovered from panic",
			zap.String("where", where),
			zap.String("panic", fmt.Sprint(r)),
			zap.Stack("stack"),
		)
	}
}
