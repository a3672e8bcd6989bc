package interpreter

import (
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
)

// debouncer 最后一次写入生效的延时触发器
//
// 每次 Trigger 都重新计时并替换待执行函数；Cancel 之后已排队或正在执行的
// 任务通过代数检查得知自己已过期。
type debouncer struct {
	call func(func())
	gen  atomic.Uint64
}

func newDebouncer(after time.Duration) *debouncer {
	return &debouncer{call: debounce.New(after)}
}

// Trigger 安排 fn 在静默期结束后执行，fn 收到本次触发的代数
func (d *debouncer) Trigger(fn func(gen uint64)) {
	gen := d.gen.Add(1)
	d.call(func() { fn(gen) })
}

// Cancel 使所有已安排的任务过期
func (d *debouncer) Cancel() {
	d.gen.Add(1)
}

// Current gen 是否仍是最新一次触发
func (d *debouncer) Current(gen uint64) bool {
	return d.gen.Load() == gen
}
