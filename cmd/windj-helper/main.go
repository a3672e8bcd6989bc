/**
 * windj-helper 配置辅助工具
 *
 * 列出音频输出设备，并打印每次按键的扫描码与虚拟键码，
 * 用来填写配置文件的 audio_device 与 controls。
 * 加 -top N 时改为打印播放次数最多的曲目。
 */

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/chenyang-zz/windj/internal/infrastructure/config"
	"github.com/chenyang-zz/windj/internal/infrastructure/storage"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/chenyang-zz/windj/pkg/logger"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
)

func main() {
	top := flag.Int("top", 0, "print the N most played songs and exit")
	backend := flag.String("backend", "auto", "keyboard hook backend: auto, lowlevel or observe")
	flag.Parse()
	_ = logger.Init(logger.Options{Level: "warn"})

	if *top > 0 {
		if err := printMostPlayed(*top); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	printDevices()
	if err := watchKeys(*backend); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printDevices() {
	fmt.Println(titleStyle.Render("Audio output devices"))
	devices, err := platform.ListOutputDevices()
	switch {
	case errors.Is(err, platform.ErrUnsupported):
		fmt.Println(hintStyle.Render("  (device listing is not supported on this platform)"))
	case err != nil:
		fmt.Println(hintStyle.Render("  error: " + err.Error()))
	case len(devices) == 0:
		fmt.Println(hintStyle.Render("  (none)"))
	}
	for _, d := range devices {
		fmt.Printf("  %q\n", d)
	}
	fmt.Println()
}

// watchKeys 打印按键直到收到中断信号
func watchKeys(name string) error {
	backend, err := platform.ParseBackend(name)
	if err != nil {
		return err
	}
	if backend == platform.BackendGrab {
		return fmt.Errorf("grab backend cannot report arbitrary keys")
	}
	hook, err := platform.NewKeyboardMonitor(platform.MonitorOptions{Backend: backend})
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Key codes"))
	fmt.Println(hintStyle.Render("  Press keys to see their codes, Ctrl+C to exit."))
	fmt.Println(hintStyle.Render("  Use scancode or vkcode in controls to match hook.key_id."))

	err = hook.Start(func(e platform.KeyboardEvent) bool {
		char := ""
		if e.Char > ' ' {
			char = fmt.Sprintf("  char %q", e.Char)
		}
		fmt.Printf("  %s  %s%s\n",
			keyStyle.Render(fmt.Sprintf("scancode %-4d (0x%02x)", e.ScanCode, e.ScanCode)),
			keyStyle.Render(fmt.Sprintf("vkcode %-4d (0x%02x)", e.VKCode, e.VKCode)),
			char,
		)
		return true
	})
	if err != nil {
		return fmt.Errorf("install keyboard hook: %w", err)
	}
	defer hook.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func printMostPlayed(n int) error {
	path := config.DefaultConfig().Storage.Path
	if cfg, err := config.Load(); err == nil {
		path = cfg.Storage.Path
	}

	db, err := storage.NewSQLiteDB(storage.SQLiteConfig{Path: path})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.RunMigrations(db); err != nil {
		return err
	}

	top, err := storage.NewSQLiteEventRepository(db).MostPlayed(n)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Most played"))
	if len(top) == 0 {
		fmt.Println(hintStyle.Render("  (no history yet)"))
	}
	for i, pc := range top {
		fmt.Printf("  %2d. %s %s\n", i+1, pc.Display,
			hintStyle.Render(fmt.Sprintf("×%d, last %s", pc.Count, pc.LastPlay.Format("2006-01-02"))))
	}
	return nil
}
