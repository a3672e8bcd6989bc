/**
 * Package config 提供配置管理功能
 *
 * 负责查找、解析与校验 WinDJ 的 YAML 配置文件
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chenyang-zz/windj/internal/keymap"
	"github.com/chenyang-zz/windj/internal/monitor"
	"github.com/chenyang-zz/windj/internal/platform"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound 所有候选位置都没有配置文件
var ErrConfigNotFound = errors.New("configuration file not found")

// EnvConfigPath 指定配置文件路径的环境变量
const EnvConfigPath = "WINDJ_CONFIG"

/**
 * Config 应用配置结构体
 */
type Config struct {
	// Folders 曲库目录，按顺序扫描
	Folders []string `yaml:"folders"`

	// Settings 界面与行为选项
	Settings Settings `yaml:"settings"`

	// Controls 控制键绑定
	Controls ControlsConfig `yaml:"controls"`

	// Hook 键盘钩子配置
	Hook HookConfig `yaml:"hook"`

	// YouTube 远程搜索配置
	YouTube YouTubeConfig `yaml:"youtube"`

	// Storage 存储配置
	Storage StorageConfig `yaml:"storage"`

	// Logging 日志配置
	Logging LoggingConfig `yaml:"logging"`

	// MPRIS 桌面媒体控制接口（仅 Linux）
	MPRIS MPRISConfig `yaml:"mpris"`

	// path 实际加载的文件
	path string
}

/**
 * Settings 界面与行为选项，加载后只读
 */
type Settings struct {
	/** 播放时隐藏窗口 */
	HideOnPlay bool `yaml:"hide_on_play"`

	/** 停止时显示窗口 */
	ShowOnStop bool `yaml:"show_on_stop"`

	/** 去掉标题栏固定在屏幕上 */
	FixedPosition bool `yaml:"fixed_on_screen"`

	/** 窗口尺寸与位置 */
	HorSize   int `yaml:"hor_size"`
	VerSize   int `yaml:"ver_size"`
	HorOffset int `yaml:"hor_offset"`
	VerOffset int `yaml:"ver_offset"`

	/** 翻页步长 */
	ScrollStep int `yaml:"scroll_jump"`

	/** 搜索时控制键优先于文本输入 */
	ControlsOverSearch bool `yaml:"controls_over_search"`

	/** 控制键不再传给其他程序 */
	ControlsCaptured bool `yaml:"controls_captured"`

	/** 输出设备名，空表示系统默认 */
	OutputDevice string `yaml:"audio_device"`

	/** 用音频标签生成显示名 */
	ReadTags bool `yaml:"read_tags"`
}

/**
 * ControlsConfig 控制键绑定，值可以是整数或 "0x.." 字符串
 */
type ControlsConfig struct {
	Reset    *KeyCode `yaml:"reset"`
	ShowHide *KeyCode `yaml:"showhide"`
	Quit     *KeyCode `yaml:"quit"`
	PlayStop *KeyCode `yaml:"playstop"`
	VolUp    *KeyCode `yaml:"volup"`
	VolDown  *KeyCode `yaml:"voldown"`
	NavUp    *KeyCode `yaml:"navup"`
	NavDown  *KeyCode `yaml:"navdown"`
	MultUp   *KeyCode `yaml:"multup"`
	MultDown *KeyCode `yaml:"multdown"`
	Search   *KeyCode `yaml:"search"`
	YouTube  *KeyCode `yaml:"youtube"`
}

// KeyCode 配置中的键标识
type KeyCode int

// UnmarshalYAML 同时接受整数与十六进制字符串
func (k *KeyCode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: key code must be a scalar", node.Line)
	}
	code, err := keymap.ParseKeyCode(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = KeyCode(code)
	return nil
}

/**
 * HookConfig 键盘钩子配置
 */
type HookConfig struct {
	/** auto | lowlevel | observe | grab */
	Backend string `yaml:"backend"`

	/** scancode | vkcode */
	KeyID string `yaml:"key_id"`
}

/**
 * YouTubeConfig 远程搜索配置
 */
type YouTubeConfig struct {
	/** 是否启用 youtubeMode */
	Enabled bool `yaml:"enabled"`

	/** 每次搜索最多返回的条目数 */
	MaxResults int `yaml:"max_results"`

	/** 搜索结果缓存时间 */
	SearchTTL time.Duration `yaml:"search_ttl"`

	/** 音频流地址缓存时间 */
	StreamTTL time.Duration `yaml:"stream_ttl"`

	/** ffmpeg 可执行文件 */
	FFmpeg string `yaml:"ffmpeg"`
}

/**
 * StorageConfig 存储配置
 */
type StorageConfig struct {
	/** 数据库路径 */
	Path string `yaml:"path"`

	/** 播放历史保留天数，0 表示永久 */
	RetentionDays int `yaml:"retention_days"`
}

/**
 * LoggingConfig 日志配置
 */
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

/**
 * MPRISConfig MPRIS 配置
 */
type MPRISConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DataDir 应用数据目录 ~/.windj
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".windj"
	}
	return filepath.Join(home, ".windj")
}

/**
 * DefaultConfig 默认配置
 *
 * 文件中未出现的字段保留这里的值
 */
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Settings: Settings{
			HideOnPlay:         true,
			ShowOnStop:         true,
			FixedPosition:      false,
			HorSize:            200,
			VerSize:            550,
			HorOffset:          1300,
			VerOffset:          100,
			ScrollStep:         5,
			ControlsOverSearch: true,
		},
		Hook: HookConfig{
			Backend: string(platform.BackendAuto),
			KeyID:   string(monitor.KeyIDScanCode),
		},
		YouTube: YouTubeConfig{
			MaxResults: 20,
			SearchTTL:  10 * time.Minute,
			StreamTTL:  time.Hour,
			FFmpeg:     "ffmpeg",
		},
		Storage: StorageConfig{
			Path:          filepath.Join(dataDir, "windj.db"),
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       filepath.Join(dataDir, "logs", "windj.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

/**
 * Load 查找并加载配置文件
 *
 * 查找顺序：$WINDJ_CONFIG、./config.yaml、~/.windj/config.yaml
 *
 * Returns:
 *   - *Config: 已校验的配置
 *   - error: 找不到时返回 ErrConfigNotFound，解析或校验失败时返回描述性错误
 */
func Load() (*Config, error) {
	path, err := locate()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// locate 返回第一个存在的候选路径
func locate() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, p)
		}
		return p, nil
	}

	candidates := []string{"config.yaml", filepath.Join(DataDir(), "config.yaml")}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: looked in %v", ErrConfigNotFound, candidates)
}

/**
 * LoadFile 从指定路径加载配置
 */
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

/**
 * Parse 在默认配置之上解析 YAML 并校验
 */
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("malformed configuration: %w", err)
	}

	expandEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path 实际加载的配置文件
func (c *Config) Path() string {
	return c.path
}

/**
 * Validate 校验配置
 *
 * 任何一项不满足都返回描述性错误，调用方按启动期致命错误处理
 */
func (c *Config) Validate() error {
	if len(c.Folders) == 0 {
		return errors.New("you must specify at least one folder")
	}
	for _, folder := range c.Folders {
		info, err := os.Stat(folder)
		if err != nil {
			return fmt.Errorf("invalid folder %q: %w", folder, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid folder %q: not a directory", folder)
		}
	}

	s := c.Settings
	positive := map[string]int{
		"hor_size":    s.HorSize,
		"ver_size":    s.VerSize,
		"scroll_jump": s.ScrollStep,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("invalid number for %s: %d", name, v)
		}
	}

	if _, err := platform.ParseBackend(c.Hook.Backend); err != nil {
		return err
	}
	if _, err := monitor.ParseKeyID(c.Hook.KeyID); err != nil {
		return err
	}
	if c.YouTube.Enabled && c.YouTube.MaxResults <= 0 {
		return fmt.Errorf("invalid number for youtube.max_results: %d", c.YouTube.MaxResults)
	}

	if _, err := c.ControlMap(); err != nil {
		return err
	}
	return nil
}

/**
 * ControlMap 由 controls 段构建绑定表
 *
 * youtube 绑定只在 youtube.enabled 时生效
 */
func (c *Config) ControlMap() (*keymap.ControlMap, error) {
	ctl := c.Controls
	fields := []struct {
		action keymap.Action
		code   *KeyCode
	}{
		{keymap.ActionReset, ctl.Reset},
		{keymap.ActionToggleShow, ctl.ShowHide},
		{keymap.ActionQuit, ctl.Quit},
		{keymap.ActionTogglePlay, ctl.PlayStop},
		{keymap.ActionVolUp, ctl.VolUp},
		{keymap.ActionVolDown, ctl.VolDown},
		{keymap.ActionNavUp, ctl.NavUp},
		{keymap.ActionNavDown, ctl.NavDown},
		{keymap.ActionNavMultUp, ctl.MultUp},
		{keymap.ActionNavMultDown, ctl.MultDown},
		{keymap.ActionSearch, ctl.Search},
	}
	if c.YouTube.Enabled {
		fields = append(fields, struct {
			action keymap.Action
			code   *KeyCode
		}{keymap.ActionYoutubeMode, ctl.YouTube})
	}

	bindings := make(map[keymap.Action]int, len(fields))
	for _, f := range fields {
		if f.code != nil {
			bindings[f.action] = int(*f.code)
		}
	}
	return keymap.NewControlMap(bindings)
}

/**
 * expandEnvVars 展开路径中的环境变量与 ~
 */
func expandEnvVars(c *Config) {
	for i, folder := range c.Folders {
		c.Folders[i] = expandPath(folder)
	}
	c.Storage.Path = expandPath(c.Storage.Path)
	c.Logging.File = expandPath(c.Logging.File)
	c.YouTube.FFmpeg = expandPath(c.YouTube.FFmpeg)
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if p == "~" || len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == '\\') {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
