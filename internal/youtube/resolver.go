package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/chenyang-zz/windj/internal/infrastructure/cache"
	"github.com/chenyang-zz/windj/pkg/logger"
	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
)

// ErrNoAudioFormat 视频没有可用的音频格式
var ErrNoAudioFormat = errors.New("no audio formats available")

// videoClient kkdai 客户端中用到的部分
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// Resolver 播放前把视频 ID 解析成音频流地址
type Resolver struct {
	client videoClient
	ttl    time.Duration
	cache  *cache.MemoryCache[audio.Source]
	log    *zap.Logger
}

// NewResolver 创建解析器，ttl 为流地址缓存时间
func NewResolver(ttl time.Duration) *Resolver {
	return newResolver(&youtube.Client{HTTPClient: newHTTPClient(60 * time.Second)}, ttl)
}

func newResolver(client videoClient, ttl time.Duration) *Resolver {
	return &Resolver{
		client: client,
		ttl:    ttl,
		cache: cache.NewMemoryCache[audio.Source](cache.Options{
			MaxSize:         128,
			DefaultTTL:      ttl,
			CleanupInterval: 5 * time.Minute,
		}),
		log: logger.With(zap.String("component", "youtube")),
	}
}

// Resolve 返回可直接交给播放器的来源
func (r *Resolver) Resolve(ctx context.Context, videoID string) (audio.Source, error) {
	if src, ok := r.cache.Get(videoID); ok {
		return src, nil
	}

	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return audio.Source{}, fmt.Errorf("get video %s: %w", videoID, err)
	}

	format, err := bestAudioFormat(video.Formats)
	if err != nil {
		return audio.Source{}, fmt.Errorf("video %s: %w", videoID, err)
	}

	streamURL, err := r.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return audio.Source{}, fmt.Errorf("stream url %s: %w", videoID, err)
	}

	src := audio.Source{URL: streamURL, Duration: video.Duration}
	r.cache.Set(videoID, src, r.ttl)
	r.log.Debug("Stream resolved",
		zap.String("video_id", videoID),
		zap.String("mime", format.MimeType),
		zap.Int("bitrate", format.Bitrate),
	)
	return src, nil
}

// Close 停止缓存清理
func (r *Resolver) Close() {
	r.cache.Stop()
}

// bestAudioFormat 按码率、纯音频、采样率和声道数打分选出最佳格式
func bestAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	candidates := formats.WithAudioChannels().Type("audio")
	if len(candidates) == 0 {
		candidates = formats.WithAudioChannels()
	}
	if len(candidates) == 0 {
		return nil, ErrNoAudioFormat
	}

	var (
		best      *youtube.Format
		bestScore int
	)
	for i := range candidates {
		f := &candidates[i]
		if f.AudioChannels == 0 {
			continue
		}
		if score := formatScore(f); best == nil || score > bestScore {
			best, bestScore = f, score
		}
	}
	if best == nil {
		best = &candidates[0]
	}
	return best, nil
}

func formatScore(f *youtube.Format) int {
	bitrate := f.Bitrate
	if bitrate <= 0 {
		switch f.AudioSampleRate {
		case "48000":
			bitrate = 160
		case "44100":
			bitrate = 128
		default:
			bitrate = 96
		}
	}

	score := bitrate * 100
	if strings.HasPrefix(f.MimeType, "audio/") {
		score += 50
	}
	switch f.AudioSampleRate {
	case "48000":
		score += 20
	case "44100":
		score += 10
	}
	if f.AudioChannels >= 2 {
		score += 5
	}
	return score
}
