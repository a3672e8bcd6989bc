package keymap

// Action 控制动作
type Action string

const (
	ActionReset       Action = "reset"
	ActionToggleShow  Action = "toggleShow"
	ActionQuit        Action = "quit"
	ActionTogglePlay  Action = "togglePlay"
	ActionVolUp       Action = "volUp"
	ActionVolDown     Action = "volDown"
	ActionNavUp       Action = "navUp"
	ActionNavDown     Action = "navDown"
	ActionNavMultUp   Action = "navMultUp"
	ActionNavMultDown Action = "navMultDown"
	ActionSearch      Action = "search"
	ActionYoutubeMode Action = "youtubeMode"
)

// priority 同一个键绑定多个动作时的解析顺序
var priority = []Action{
	ActionTogglePlay,
	ActionNavUp,
	ActionNavDown,
	ActionNavMultUp,
	ActionNavMultDown,
	ActionVolUp,
	ActionVolDown,
	ActionSearch,
	ActionYoutubeMode,
	ActionToggleShow,
	ActionReset,
	ActionQuit,
}

// RequiredActions 启动时必须绑定的动作
func RequiredActions() []Action {
	return []Action{
		ActionReset,
		ActionToggleShow,
		ActionQuit,
		ActionTogglePlay,
		ActionVolUp,
		ActionVolDown,
		ActionNavUp,
		ActionNavDown,
		ActionNavMultUp,
		ActionNavMultDown,
		ActionSearch,
	}
}

// Required 是否为必需动作
func (a Action) Required() bool {
	return a != ActionYoutubeMode
}

// Valid 是否为已知动作
func (a Action) Valid() bool {
	for _, p := range priority {
		if p == a {
			return true
		}
	}
	return false
}
