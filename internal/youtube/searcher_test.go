package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chenyang-zz/windj/internal/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initialData = `{"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":{"sectionListRenderer":{"contents":[
{"itemSectionRenderer":{"contents":[
  {"videoRenderer":{"videoId":"aaa","title":{"runs":[{"text":"First Song"}]},"lengthText":{"simpleText":"3:45"}}},
  {"adSlotRenderer":{}},
  {"videoRenderer":{"videoId":"bbb","title":{"runs":[{"text":"Second Song"}]}}}
]}},
{"itemSectionRenderer":{"contents":[
  {"videoRenderer":{"videoId":"ccc","title":{"simpleText":"Third Song"},"lengthText":{"simpleText":"1:02:03"}}}
]}}
]}}}}}`

func searchPage(data string) string {
	return fmt.Sprintf(`<html><script>var ytInitialData = %s;</script><script>other()</script></html>`, data)
}

// TestParseResults 测试解析搜索页面
func TestParseResults(t *testing.T) {
	results, err := parseResults([]byte(searchPage(initialData)), 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, library.SongEntry{Index: 0, Display: "First Song (3:45)", Source: library.Remote{VideoID: "aaa"}}, results[0])
	assert.Equal(t, "Second Song", results[1].Display)
	assert.Equal(t, "Third Song (1:02:03)", results[2].Display)
	assert.Equal(t, 2, results[2].Index)
}

// TestParseResultsLimit 测试结果数量上限
func TestParseResultsLimit(t *testing.T) {
	results, err := parseResults([]byte(searchPage(initialData)), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// TestParseResultsErrors 测试页面缺少数据
func TestParseResultsErrors(t *testing.T) {
	_, err := parseResults([]byte("<html></html>"), 10)
	assert.ErrorIs(t, err, ErrNoInitialData)

	_, err = parseResults([]byte(searchPage(`{"contents": [`)), 10)
	assert.ErrorIs(t, err, ErrNoInitialData)

	results, err := parseResults([]byte(searchPage(`{}`)), 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestSearcherSearch 测试搜索请求与缓存
func TestSearcherSearch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/results", r.URL.Path)
		assert.Equal(t, "daft punk", r.URL.Query().Get("search_query"))
		fmt.Fprint(w, searchPage(initialData))
	}))
	defer srv.Close()

	s := NewSearcher(SearcherOptions{BaseURL: srv.URL, MaxResults: 5, TTL: time.Minute, HTTPClient: srv.Client()})
	defer s.Close()

	results, err := s.Search(context.Background(), "daft punk")
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results[0].Display = "changed"
	again, err := s.Search(context.Background(), "Daft Punk ")
	require.NoError(t, err)
	assert.Equal(t, "First Song (3:45)", again[0].Display)
	assert.Equal(t, int32(1), hits.Load(), "第二次应命中缓存")

	empty, err := s.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestSearcherFailure 测试服务端错误
func TestSearcherFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSearcher(SearcherOptions{BaseURL: srv.URL, HTTPClient: srv.Client()})
	defer s.Close()

	_, err := s.Search(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

// TestSearcherContextCancel 测试取消
func TestSearcherContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	s := NewSearcher(SearcherOptions{BaseURL: srv.URL, HTTPClient: srv.Client()})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Search(ctx, "query")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestHeaderTransport 测试请求头注入
func TestHeaderTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &headerTransport{Headers: map[string]string{"User-Agent": "test-agent"}}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
