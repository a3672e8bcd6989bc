package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []Notification
	closed []uint32
	nextID uint32
	err    error
}

func (r *recordingNotifier) Notify(n Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.sent = append(r.sent, n)
	r.nextID++
	return r.nextID, nil
}

func (r *recordingNotifier) Close(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, id)
	return nil
}

func (r *recordingNotifier) snapshot() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

func started(display string) events.Event {
	return *events.NewEvent(events.EventTypePlaybackStarted,
		events.PlaybackEventData{Display: display, Locator: "/m/" + display}.ToMap())
}

// TestWatcher_ReplacesPrevious 测试新通知替换上一条
func TestWatcher_ReplacesPrevious(t *testing.T) {
	rec := &recordingNotifier{}
	w := NewWatcher(rec)

	require.NoError(t, w.handle(started("first")))
	require.NoError(t, w.handle(started("second")))

	sent := rec.snapshot()
	require.Len(t, sent, 2)
	assert.Equal(t, "Now playing", sent[0].Title)
	assert.Equal(t, "first", sent[0].Body)
	assert.Zero(t, sent[0].ReplacesID)
	assert.Equal(t, uint32(1), sent[1].ReplacesID)
}

// TestWatcher_Failure 测试播放失败通知带上原因
func TestWatcher_Failure(t *testing.T) {
	rec := &recordingNotifier{}
	w := NewWatcher(rec)

	data := events.PlaybackEventData{Display: "song", Error: "file not found"}
	require.NoError(t, w.handle(*events.NewEvent(events.EventTypePlaybackFailed, data.ToMap())))

	sent := rec.snapshot()
	require.Len(t, sent, 1)
	assert.Equal(t, "Cannot play", sent[0].Title)
	assert.Equal(t, "song\nfile not found", sent[0].Body)
	assert.Equal(t, UrgencyNormal, sent[0].Urgency)
}

// TestWatcher_NotifierError 测试通知失败不影响事件处理
func TestWatcher_NotifierError(t *testing.T) {
	w := NewWatcher(&recordingNotifier{err: errors.New("no server")})
	assert.NoError(t, w.handle(started("x")))
}

// TestWatcher_Bus 测试通过事件总线触发，停止时关闭通知
func TestWatcher_Bus(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Stop(time.Second)

	rec := &recordingNotifier{}
	w := NewWatcher(rec)
	w.Attach(bus)

	require.NoError(t, bus.Publish(*events.NewEvent(events.EventTypeVolumeChanged, map[string]interface{}{"volume": 3})))
	require.NoError(t, bus.Publish(started("song")))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
	assert.Equal(t, []uint32{1}, rec.closed)
}

// TestNew 测试任何环境下都能得到可用的通知后端
func TestNew(t *testing.T) {
	n := New()
	require.NotNil(t, n)
}
