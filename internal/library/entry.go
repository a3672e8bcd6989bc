// Package library 管理曲库：扫描本地目录、歌曲条目与搜索过滤。
package library

import "fmt"

// Source 歌曲来源，只有 Local 与 Remote 两种
type Source interface {
	// Locator 用于日志与持久化的定位字符串
	Locator() string
	isSource()
}

// Local 本地文件
type Local struct {
	Path string
}

func (l Local) Locator() string { return l.Path }
func (Local) isSource()         {}

// Remote 远程搜索结果，播放时才解析成流地址
type Remote struct {
	VideoID string
}

func (r Remote) Locator() string { return "youtube:" + r.VideoID }
func (Remote) isSource()         {}

// SongEntry 列表中的一首歌
type SongEntry struct {
	// Index 在所属列表中的序号
	Index int

	// Display 显示名
	Display string

	Source Source
}

// IsRemote 是否为远程条目
func (e SongEntry) IsRemote() bool {
	_, ok := e.Source.(Remote)
	return ok
}

func (e SongEntry) String() string {
	return fmt.Sprintf("#%d %s", e.Index, e.Display)
}
