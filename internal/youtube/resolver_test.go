package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	video    *youtube.Video
	err      error
	getCalls int
}

func (c *fakeClient) GetVideoContext(_ context.Context, id string) (*youtube.Video, error) {
	c.getCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.video, nil
}

func (c *fakeClient) GetStreamURLContext(_ context.Context, _ *youtube.Video, f *youtube.Format) (string, error) {
	return "https://stream.example/" + f.MimeType, nil
}

// TestBestAudioFormat 测试格式打分
func TestBestAudioFormat(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: "video/mp4", AudioChannels: 2, Bitrate: 500},
		{ItagNo: 140, MimeType: "audio/mp4", AudioChannels: 2, Bitrate: 128, AudioSampleRate: "44100"},
		{ItagNo: 251, MimeType: "audio/webm", AudioChannels: 2, Bitrate: 160, AudioSampleRate: "48000"},
		{ItagNo: 137, MimeType: "video/mp4"},
	}

	best, err := bestAudioFormat(formats)
	require.NoError(t, err)
	assert.Equal(t, 251, best.ItagNo)

	best, err = bestAudioFormat(formats[:1])
	require.NoError(t, err)
	assert.Equal(t, 18, best.ItagNo, "没有纯音频时退回带音频的视频格式")

	_, err = bestAudioFormat(formats[3:])
	assert.ErrorIs(t, err, ErrNoAudioFormat)
}

// TestResolverResolve 测试解析与缓存
func TestResolverResolve(t *testing.T) {
	client := &fakeClient{video: &youtube.Video{
		ID:       "abc",
		Duration: 3 * time.Minute,
		Formats: youtube.FormatList{
			{ItagNo: 140, MimeType: "audio/mp4", AudioChannels: 2, Bitrate: 128},
		},
	}}
	r := newResolver(client, time.Hour)
	defer r.Close()

	src, err := r.Resolve(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, audio.Source{URL: "https://stream.example/audio/mp4", Duration: 3 * time.Minute}, src)

	_, err = r.Resolve(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, client.getCalls)
}

// TestResolverErrors 测试解析失败
func TestResolverErrors(t *testing.T) {
	boom := errors.New("boom")
	r := newResolver(&fakeClient{err: boom}, time.Hour)
	defer r.Close()

	_, err := r.Resolve(context.Background(), "abc")
	assert.ErrorIs(t, err, boom)

	r2 := newResolver(&fakeClient{video: &youtube.Video{ID: "x"}}, time.Hour)
	defer r2.Close()
	_, err = r2.Resolve(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoAudioFormat)
}
