package library

import "strings"

// Filter 返回显示名包含 query（不区分大小写）的条目
//
// 保持主列表中的相对顺序，Index 重新编号。query 为空时返回完整副本。
func Filter(master []SongEntry, query string) []SongEntry {
	out := make([]SongEntry, 0, len(master))
	needle := strings.ToLower(query)
	for _, song := range master {
		if needle != "" && !strings.Contains(strings.ToLower(song.Display), needle) {
			continue
		}
		song.Index = len(out)
		out = append(out, song)
	}
	return out
}

// IndexOf 按显示名与来源查找条目，找不到返回 -1
func IndexOf(list []SongEntry, target SongEntry) int {
	for i, song := range list {
		if song.Display == target.Display && sameSource(song.Source, target.Source) {
			return i
		}
	}
	return -1
}

func sameSource(a, b Source) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Locator() == b.Locator()
}
