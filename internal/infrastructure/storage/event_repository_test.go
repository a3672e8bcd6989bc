package storage

import (
	"testing"
	"time"

	"github.com/chenyang-zz/windj/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playEvent(typ events.EventType, display, locator string, remote bool, at time.Time) events.Event {
	e := events.NewEvent(typ, events.PlaybackEventData{
		Display: display,
		Locator: locator,
		Remote:  remote,
	}.ToMap())
	e.Timestamp = at
	return *e
}

// TestSQLiteEventRepository_SaveAndFind 测试保存与查询
func TestSQLiteEventRepository_SaveAndFind(t *testing.T) {
	repo := NewSQLiteEventRepository(setupTestDB(t))
	base := time.Now().Add(-time.Hour)

	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStarted, "Intro", "/m/Intro.mp3", false, base)))
	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStopped, "Intro", "/m/Intro.mp3", false, base.Add(time.Minute))))
	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStarted, "Song", "dQw4w9WgXcQ", true, base.Add(2*time.Minute))))

	recent, err := repo.FindRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "Intro", recent[0].StringField("display"), "FindRecent 从旧到新")
	assert.Equal(t, "Song", recent[2].StringField("display"))
	assert.Equal(t, true, recent[2].Data["remote"])

	started, err := repo.FindByType(events.EventTypePlaybackStarted, 10)
	require.NoError(t, err)
	require.Len(t, started, 2)
	assert.Equal(t, "Song", started[0].StringField("display"), "FindByType 从新到旧")
	assert.Equal(t, events.EventTypePlaybackStarted, started[1].Type)
}

// TestSQLiteEventRepository_SaveBatch 测试批量保存
func TestSQLiteEventRepository_SaveBatch(t *testing.T) {
	repo := NewSQLiteEventRepository(setupTestDB(t))
	now := time.Now()

	batch := []events.Event{
		playEvent(events.EventTypePlaybackStarted, "A", "/a.mp3", false, now),
		playEvent(events.EventTypePlaybackStarted, "B", "/b.mp3", false, now.Add(time.Second)),
	}
	require.NoError(t, repo.SaveBatch(batch))
	require.NoError(t, repo.SaveBatch(nil))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCount)
	assert.Equal(t, int64(2), stats.CountByType[string(events.EventTypePlaybackStarted)])

	assert.Error(t, repo.SaveBatch(batch[:1]), "重复 uuid 违反唯一约束")
}

// TestSQLiteEventRepository_MostPlayed 测试播放排行
func TestSQLiteEventRepository_MostPlayed(t *testing.T) {
	repo := NewSQLiteEventRepository(setupTestDB(t))
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStarted, "Outro", "/m/Outro.mp3", false, now.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStarted, "Intro", "/m/Intro.mp3", false, now)))
	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStopped, "Intro", "/m/Intro.mp3", false, now)))

	top, err := repo.MostPlayed(5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Outro", top[0].Display)
	assert.Equal(t, int64(3), top[0].Count)
	assert.False(t, top[0].LastPlay.IsZero())
	assert.Equal(t, int64(1), top[1].Count, "停止事件不计入播放次数")
}

// TestSQLiteEventRepository_DeleteOlderThan 测试清理旧数据
func TestSQLiteEventRepository_DeleteOlderThan(t *testing.T) {
	repo := NewSQLiteEventRepository(setupTestDB(t))
	now := time.Now()

	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStarted, "Old", "/old.mp3", false, now.Add(-48*time.Hour))))
	require.NoError(t, repo.Save(playEvent(events.EventTypePlaybackStarted, "New", "/new.mp3", false, now)))

	deleted, err := repo.DeleteOlderThan(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	recent, err := repo.FindRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "New", recent[0].StringField("display"))
}
