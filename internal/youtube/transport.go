// Package youtube 提供远程搜索与播放前的音频流解析。
package youtube

import (
	"net/http"
	"strings"
	"time"
)

// browserHeaders 模拟桌面浏览器的请求头
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "no-cache",
}

// headerTransport 为每个请求补上固定请求头
type headerTransport struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, value := range t.Headers {
		req.Header.Set(key, value)
	}
	if strings.Contains(req.URL.Host, "youtube.com") || strings.Contains(req.URL.Host, "googlevideo.com") {
		req.Header.Set("Referer", "https://www.youtube.com/")
	}

	rt := t.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

// newHTTPClient 搜索与解析共用的 HTTP 客户端
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			Transport: &http.Transport{
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
			},
			Headers: browserHeaders,
		},
	}
}
