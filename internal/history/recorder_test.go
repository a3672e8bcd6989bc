package history

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chenyang-zz/windj/internal/infrastructure/storage"
	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.NewSQLiteDB(storage.SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	require.NoError(t, storage.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	rec   *Recorder
	repo  *storage.SQLiteEventRepository
	prefs *storage.PreferenceRepository
	bus   *events.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupDB(t)
	repo := storage.NewSQLiteEventRepository(db)
	prefs := storage.NewPreferenceRepository(db)
	writer := storage.NewBatchWriter(repo, storage.BatchWriterConfig{BatchSize: 1, FlushInterval: 10 * time.Millisecond})

	bus := events.NewEventBus()
	t.Cleanup(func() { bus.Stop(time.Second) })

	rec := NewRecorder(writer, repo, prefs, DefaultOptions())
	rec.Attach(bus)
	t.Cleanup(rec.Stop)
	return &fixture{rec: rec, repo: repo, prefs: prefs, bus: bus}
}

func played(display string) events.Event {
	data := events.PlaybackEventData{Display: display, Locator: "/music/" + display + ".mp3"}
	return *events.NewEvent(events.EventTypePlaybackStarted, data.ToMap())
}

// TestRecorder_PersistsPlayback 测试播放事件落盘并参与统计
func TestRecorder_PersistsPlayback(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bus.Publish(played("a")))
	require.NoError(t, f.bus.Publish(played("b")))
	require.NoError(t, f.bus.Publish(played("b")))

	require.Eventually(t, func() bool {
		stats, err := f.repo.GetStats()
		return err == nil && stats.TotalCount == 3
	}, 2*time.Second, 10*time.Millisecond)

	top, err := f.rec.MostPlayed(10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Display)
	assert.Equal(t, int64(2), top[0].Count)
}

// TestRecorder_SkipsUnlistedTypes 测试只落盘选定的事件类型
func TestRecorder_SkipsUnlistedTypes(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bus.Publish(*events.NewEvent(events.EventTypeModeChanged, map[string]interface{}{"remote": true})))
	require.NoError(t, f.bus.Publish(played("a")))

	require.Eventually(t, func() bool {
		stats, err := f.repo.GetStats()
		return err == nil && stats.TotalCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	stats, err := f.repo.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.CountByType[string(events.EventTypeModeChanged)])
}

// TestRecorder_RemembersVolume 测试音量偏好的保存与恢复
func TestRecorder_RemembersVolume(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, DefaultVolume, f.rec.InitialVolume())

	require.NoError(t, f.bus.Publish(*events.NewEvent(events.EventTypeVolumeChanged, map[string]interface{}{"volume": 73})))

	require.Eventually(t, func() bool {
		return f.rec.InitialVolume() == 73
	}, 2*time.Second, 10*time.Millisecond)
}

// TestRecorder_InitialVolumeClamped 测试越界的偏好值被限制
func TestRecorder_InitialVolumeClamped(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.prefs.SetInt(storage.PreferenceKeyVolume, 250))
	assert.Equal(t, 100, f.rec.InitialVolume())

	require.NoError(t, f.prefs.SetInt(storage.PreferenceKeyVolume, -4))
	assert.Equal(t, 0, f.rec.InitialVolume())

	require.NoError(t, f.prefs.Set(storage.PreferenceKeyVolume, "loud"))
	assert.Equal(t, DefaultVolume, f.rec.InitialVolume())
}

// TestRecorder_Prune 测试按保留期清理
func TestRecorder_Prune(t *testing.T) {
	f := newFixture(t)

	old := played("old")
	old.Timestamp = time.Now().AddDate(0, 0, -120)
	require.NoError(t, f.repo.Save(old))
	require.NoError(t, f.repo.Save(played("new")))

	n, err := f.rec.Prune(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := f.repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalCount)
}

// TestRecorder_PruneDisabled 测试保留期为 0 时不清理
func TestRecorder_PruneDisabled(t *testing.T) {
	db := setupDB(t)
	repo := storage.NewSQLiteEventRepository(db)
	opts := DefaultOptions()
	opts.RetentionDays = 0
	rec := NewRecorder(storage.NewBatchWriter(repo, storage.BatchWriterConfig{}), repo, nil, opts)

	old := played("old")
	old.Timestamp = time.Now().AddDate(-5, 0, 0)
	require.NoError(t, repo.Save(old))

	n, err := rec.Prune(time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, DefaultVolume, rec.InitialVolume())
}

// TestRecorder_StopFlushes 测试停止时写完缓冲并取消订阅
func TestRecorder_StopFlushes(t *testing.T) {
	db := setupDB(t)
	repo := storage.NewSQLiteEventRepository(db)
	writer := storage.NewBatchWriter(repo, storage.BatchWriterConfig{BatchSize: 100, FlushInterval: time.Hour})
	bus := events.NewEventBus()
	defer bus.Stop(time.Second)

	rec := NewRecorder(writer, repo, nil, DefaultOptions())
	rec.Attach(bus)
	require.NoError(t, bus.Publish(played("a")))
	require.Eventually(t, func() bool {
		return rec.Stats().TotalEvents == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec.Stop()
	rec.Stop()

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalCount)
	assert.False(t, writer.IsStarted())
}

// TestRecorder_PersistDuringStop 测试停止过程中到达的事件不会再启动重试
func TestRecorder_PersistDuringStop(t *testing.T) {
	db := setupDB(t)
	repo := storage.NewSQLiteEventRepository(db)
	writer := storage.NewBatchWriter(repo, storage.BatchWriterConfig{})
	bus := events.NewEventBus()
	defer bus.Stop(time.Second)

	opts := DefaultOptions()
	opts.RetryBackoff = time.Hour
	rec := NewRecorder(writer, repo, nil, opts)
	rec.Attach(bus)

	// 写入器停止后每次写入都失败，persist 走重试分支
	writer.Stop()
	assert.NoError(t, rec.persist(played("before")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				err := rec.persist(played("racing"))
				if err != nil && !errors.Is(err, ErrRecorderStopped) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	rec.Stop()
	wg.Wait()

	assert.ErrorIs(t, rec.persist(played("after")), ErrRecorderStopped)

	waited := make(chan struct{})
	go func() {
		rec.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("停止后不应残留重试 goroutine")
	}
}

type failingPrefs struct{}

func (failingPrefs) GetInt(string) (int, error) { return 0, errors.New("disk on fire") }
func (failingPrefs) SetInt(string, int) error   { return errors.New("disk on fire") }

// TestRecorder_PreferenceErrors 测试偏好读写失败时退回默认值
func TestRecorder_PreferenceErrors(t *testing.T) {
	db := setupDB(t)
	repo := storage.NewSQLiteEventRepository(db)
	rec := NewRecorder(storage.NewBatchWriter(repo, storage.BatchWriterConfig{}), repo, failingPrefs{}, DefaultOptions())

	assert.Equal(t, DefaultVolume, rec.InitialVolume())
	assert.Error(t, rec.rememberVolume(*events.NewEvent(events.EventTypeVolumeChanged, map[string]interface{}{"volume": 10})))
	assert.NoError(t, rec.rememberVolume(*events.NewEvent(events.EventTypeVolumeChanged, nil)))
}
