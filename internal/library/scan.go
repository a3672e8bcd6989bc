package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chenyang-zz/windj/pkg/logger"
	"github.com/dhowden/tag"
	"go.uber.org/zap"
)

var (
	// ErrNoSongs 所有目录都没有文件
	ErrNoSongs = errors.New("there are no files in the folders selected")

	// ErrInvalidFolder 目录不存在或不可读
	ErrInvalidFolder = errors.New("invalid folder")
)

// audioExtensions 播放后端能解码的本地文件
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// IsAudioFile 按扩展名判断是否可播放，不区分大小写
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// ScanOptions 扫描选项
type ScanOptions struct {
	// ReadTags 用音频标签生成 "Artist - Title" 显示名
	ReadTags bool
}

// Scanner 按固定配置重复扫描，Reset 时使用
type Scanner struct {
	Folders []string
	Options ScanOptions
}

// Scan 扫描 Scanner 配置的目录
func (s Scanner) Scan() ([]SongEntry, error) {
	return Scan(s.Folders, s.Options)
}

/**
 * Scan 按顺序扫描目录，生成主列表
 *
 * 每个目录内按文件名排序，子目录与非音频文件跳过，显示名为去掉扩展名的文件名。
 * 序号跨目录连续。
 *
 * Returns:
 *   - []SongEntry: 主列表
 *   - error: 目录无效返回 ErrInvalidFolder，列表为空返回 ErrNoSongs
 */
func Scan(folders []string, opts ScanOptions) ([]SongEntry, error) {
	var songs []SongEntry
	for _, folder := range folders {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidFolder, folder, err)
		}
		// ReadDir 按文件名排序
		for _, entry := range entries {
			if entry.IsDir() || !IsAudioFile(entry.Name()) {
				continue
			}
			path := filepath.Join(folder, entry.Name())
			songs = append(songs, SongEntry{
				Index:   len(songs),
				Display: displayName(path, opts),
				Source:  Local{Path: path},
			})
		}
	}

	if len(songs) == 0 {
		return nil, ErrNoSongs
	}
	logger.Debug("Library scanned",
		zap.String("component", "library"),
		zap.Int("folders", len(folders)),
		zap.Int("songs", len(songs)),
	)
	return songs, nil
}

func displayName(path string, opts ScanOptions) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if !opts.ReadTags {
		return name
	}
	if tagged, ok := tagName(path); ok {
		return tagged
	}
	return name
}

// tagName 读取标签，缺少标题时放弃
func tagName(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", false
	}
	title := strings.TrimSpace(m.Title())
	if title == "" {
		return "", false
	}
	if artist := strings.TrimSpace(m.Artist()); artist != "" {
		return artist + " - " + title, true
	}
	return title, true
}
