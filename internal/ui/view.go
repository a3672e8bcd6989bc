package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chenyang-zz/windj/internal/controller"
)

var (
	statusStyle   = lipgloss.NewStyle().Bold(true)
	messageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	timerStyle    = lipgloss.NewStyle().Faint(true)
	searchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	emptyStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
	hiddenStyle   = lipgloss.NewStyle().Faint(true)
)

// headerLines 列表上方固定占用的行数
const headerLines = 3

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.ctrl.State()
	if !st.Visible {
		return m.clip(m.hiddenView(st))
	}
	var b strings.Builder

	b.WriteString(statusStyle.Render(st.StatusLine()))
	if msg := m.ctrl.Status(); msg != "" {
		b.WriteString("  " + messageStyle.Render(msg))
	}
	b.WriteString("\n")

	if now, ok := m.ctrl.NowPlaying(); ok {
		b.WriteString(playingStyle.Render("♪ "+now.Display) + "  ")
	}
	b.WriteString(timerStyle.Render(m.ctrl.TimerText()))
	b.WriteString("\n")

	if st.Searching {
		prompt := "Search: "
		if st.YoutubeMode {
			prompt = "YouTube: "
		}
		b.WriteString(searchStyle.Render(prompt + st.SearchString + "_"))
	}
	b.WriteString("\n")

	list := m.ctrl.List()
	if len(list) == 0 {
		empty := "No songs"
		if st.YoutubeMode {
			empty = "Type to search YouTube"
		}
		b.WriteString(emptyStyle.Render(empty))
		return m.clip(b.String())
	}

	start, end := window(len(list), st.Selected, m.visibleRows())
	for i := start; i < end; i++ {
		line := list[i].Display
		if i == st.Selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return m.clip(b.String())
}

// hiddenView 隐藏时只保留一行状态
func (m *Model) hiddenView(st controller.State) string {
	line := hiddenStyle.Render(st.StatusLine())
	if now, ok := m.ctrl.NowPlaying(); ok {
		line += "  " + playingStyle.Render("♪ "+now.Display)
	}
	return line
}

// visibleRows 列表可见行数
func (m *Model) visibleRows() int {
	if m.rows > 0 {
		return m.rows
	}
	if m.height > headerLines {
		return m.height - headerLines
	}
	return 10
}

// clip 按终端宽度截断每行
func (m *Model) clip(s string) string {
	if m.width <= 0 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(s)
}

// window 让选中行尽量居中的可见区间 [start, end)
func window(total, selected, rows int) (int, int) {
	if rows <= 0 || total <= rows {
		return 0, total
	}
	start := selected - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > total {
		start = total - rows
	}
	return start, start + rows
}

// RowsFor 按窗口像素高度估算列表行数
func RowsFor(verSize int) int {
	rows := verSize/rowHeight - headerLines
	if rows < 1 {
		return 1
	}
	return rows
}
