package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chenyang-zz/windj/internal/infrastructure/cache"
	"github.com/chenyang-zz/windj/internal/library"
	"github.com/chenyang-zz/windj/pkg/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrNoInitialData 搜索页面中找不到结果数据
var ErrNoInitialData = errors.New("search page has no result data")

// DefaultBaseURL 搜索站点
const DefaultBaseURL = "https://www.youtube.com"

// 结果数据在页面脚本中的起止标记
var (
	initialDataStart = []byte("ytInitialData = ")
	initialDataEnd   = []byte(";</script>")
)

// SearcherOptions 搜索选项
type SearcherOptions struct {
	BaseURL    string
	MaxResults int
	TTL        time.Duration
	HTTPClient *http.Client
}

/**
 * Searcher 远程搜索
 *
 * 按查询串缓存结果，可被多个 goroutine 并发调用
 */
type Searcher struct {
	baseURL    string
	maxResults int
	ttl        time.Duration
	client     *http.Client
	cache      *cache.MemoryCache[[]library.SongEntry]
	log        *zap.Logger
}

// NewSearcher 创建搜索器
func NewSearcher(opts SearcherOptions) *Searcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = newHTTPClient(15 * time.Second)
	}
	return &Searcher{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxResults: opts.MaxResults,
		ttl:        opts.TTL,
		client:     opts.HTTPClient,
		cache: cache.NewMemoryCache[[]library.SongEntry](cache.Options{
			MaxSize:         256,
			DefaultTTL:      opts.TTL,
			CleanupInterval: time.Minute,
		}),
		log: logger.With(zap.String("component", "youtube")),
	}
}

/**
 * Search 搜索视频
 *
 * Parameters:
 *   - ctx: 取消与超时
 *   - query: 查询串，空串直接返回空列表
 *
 * Returns:
 *   - []library.SongEntry: 按站点排序的结果，来源为 library.Remote
 *   - error: 网络或解析失败
 */
func (s *Searcher) Search(ctx context.Context, query string) ([]library.SongEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := strings.ToLower(query)
	if cached, ok := s.cache.Get(key); ok {
		return append([]library.SongEntry(nil), cached...), nil
	}

	endpoint := s.baseURL + "/results?" + url.Values{
		"search_query": {query},
		// 只要视频
		"sp": {"EgIQAQ=="},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: unexpected status %s", query, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read search page: %w", err)
	}

	results, err := parseResults(body, s.maxResults)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Search completed", zap.String("query", query), zap.Int("results", len(results)))
	s.cache.Set(key, results, s.ttl)
	return append([]library.SongEntry(nil), results...), nil
}

// Close 停止缓存清理
func (s *Searcher) Close() {
	s.cache.Stop()
}

// parseResults 从搜索页面中提取视频条目
func parseResults(page []byte, limit int) ([]library.SongEntry, error) {
	start := bytes.Index(page, initialDataStart)
	if start < 0 {
		return nil, ErrNoInitialData
	}
	data := page[start+len(initialDataStart):]
	if end := bytes.Index(data, initialDataEnd); end >= 0 {
		data = data[:end]
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrNoInitialData)
	}

	sections := gjson.GetBytes(data, "contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.contents")
	var results []library.SongEntry
	sections.ForEach(func(_, section gjson.Result) bool {
		section.Get("itemSectionRenderer.contents").ForEach(func(_, item gjson.Result) bool {
			video := item.Get("videoRenderer")
			id := video.Get("videoId").String()
			if id == "" {
				return true
			}
			title := video.Get("title.runs.0.text").String()
			if title == "" {
				title = video.Get("title.simpleText").String()
			}
			display := title
			if length := video.Get("lengthText.simpleText").String(); length != "" {
				display = fmt.Sprintf("%s (%s)", title, length)
			}
			results = append(results, library.SongEntry{
				Index:   len(results),
				Display: display,
				Source:  library.Remote{VideoID: id},
			})
			return len(results) < limit
		})
		return len(results) < limit
	})
	return results, nil
}
