package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingBinding 必需动作没有绑定按键
var ErrMissingBinding = errors.New("missing control binding")

// ControlMap 动作与按键之间的绑定表
//
// 启动时构建一次，之后只读，可在任意 goroutine 并发读取。
type ControlMap struct {
	// keys 动作 -> 原始键标识
	keys map[Action]int

	// byCode 原始键标识 -> 按优先级排列的动作
	byCode map[int][]Action
}

// NewControlMap 根据配置构建绑定表
//
// Parameters:
//   - bindings: 动作到原始键标识的映射
//
// Returns:
//   - *ControlMap: 绑定表
//   - error: 缺少必需动作时返回包装了 ErrMissingBinding 的错误，未知动作同样报错
func NewControlMap(bindings map[Action]int) (*ControlMap, error) {
	for action := range bindings {
		if !action.Valid() {
			return nil, fmt.Errorf("unknown control action %q", action)
		}
	}

	var missing []string
	for _, action := range RequiredActions() {
		if _, ok := bindings[action]; !ok {
			missing = append(missing, string(action))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingBinding, strings.Join(missing, ", "))
	}

	cm := &ControlMap{
		keys:   make(map[Action]int, len(bindings)),
		byCode: make(map[int][]Action),
	}
	for _, action := range priority {
		code, ok := bindings[action]
		if !ok {
			continue
		}
		cm.keys[action] = code
		cm.byCode[code] = append(cm.byCode[code], action)
	}
	return cm, nil
}

// Resolve 查找令牌对应的动作
//
// 一个键绑定了多个动作时按固定优先级返回第一个。
func (cm *ControlMap) Resolve(tok KeyToken) (Action, bool) {
	actions := cm.byCode[tok.Code]
	if len(actions) == 0 {
		return "", false
	}
	return actions[0], true
}

// Contains 令牌是否绑定了任意动作
func (cm *ControlMap) Contains(tok KeyToken) bool {
	return len(cm.byCode[tok.Code]) > 0
}

// KeyFor 返回动作绑定的键
func (cm *ControlMap) KeyFor(action Action) (int, bool) {
	code, ok := cm.keys[action]
	return code, ok
}

// Codes 所有被绑定的键，升序
func (cm *ControlMap) Codes() []int {
	codes := make([]int, 0, len(cm.byCode))
	for code := range cm.byCode {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Actions 已绑定的动作，按解析优先级排列
func (cm *ControlMap) Actions() []Action {
	out := make([]Action, 0, len(cm.keys))
	for _, action := range priority {
		if _, ok := cm.keys[action]; ok {
			out = append(out, action)
		}
	}
	return out
}

// ParseKeyCode 解析配置中的键标识
//
// 支持十进制整数（"40"）与十六进制（"0x28"）。
func ParseKeyCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty key code")
	}
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseInt(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key code %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative key code %d", v)
	}
	return int(v), nil
}
