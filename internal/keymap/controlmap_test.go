package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullBindings() map[Action]int {
	return map[Action]int{
		ActionReset:       19,
		ActionToggleShow:  35,
		ActionQuit:        81,
		ActionTogglePlay:  57,
		ActionVolUp:       78,
		ActionVolDown:     74,
		ActionNavUp:       72,
		ActionNavDown:     40,
		ActionNavMultUp:   73,
		ActionNavMultDown: 81 + 100,
		ActionSearch:      28,
	}
}

// TestNewControlMap 测试绑定表构建与校验
func TestNewControlMap(t *testing.T) {
	t.Run("完整绑定", func(t *testing.T) {
		cm, err := NewControlMap(fullBindings())
		require.NoError(t, err)

		code, ok := cm.KeyFor(ActionNavDown)
		assert.True(t, ok)
		assert.Equal(t, 40, code)

		_, ok = cm.KeyFor(ActionYoutubeMode)
		assert.False(t, ok, "youtubeMode 为可选绑定")
	})

	t.Run("缺少必需动作", func(t *testing.T) {
		b := fullBindings()
		delete(b, ActionQuit)
		delete(b, ActionSearch)

		_, err := NewControlMap(b)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingBinding)
		assert.Contains(t, err.Error(), "quit")
		assert.Contains(t, err.Error(), "search")
	})

	t.Run("未知动作", func(t *testing.T) {
		b := fullBindings()
		b[Action("dance")] = 1

		_, err := NewControlMap(b)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingBinding)
	})
}

// TestResolve 测试按键解析与优先级
func TestResolve(t *testing.T) {
	b := fullBindings()
	// 同一个键同时绑定 quit 与 togglePlay，togglePlay 优先
	b[ActionTogglePlay] = 81
	cm, err := NewControlMap(b)
	require.NoError(t, err)

	tests := []struct {
		name   string
		tok    KeyToken
		action Action
		found  bool
	}{
		{"原始键", RawToken(40), ActionNavDown, true},
		{"字符令牌按 Code 匹配", CharToken(72, 'h'), ActionNavUp, true},
		{"具名令牌按 Code 匹配", NamedToken(28, NamedSpace), ActionSearch, true},
		{"多重绑定取优先级最高者", RawToken(81), ActionTogglePlay, true},
		{"未绑定", CharToken(30, 'a'), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, ok := cm.Resolve(tt.tok)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.found, cm.Contains(tt.tok))
		})
	}
}

// TestActionsAndCodes 测试枚举顺序
func TestActionsAndCodes(t *testing.T) {
	b := fullBindings()
	b[ActionYoutubeMode] = 21
	cm, err := NewControlMap(b)
	require.NoError(t, err)

	actions := cm.Actions()
	require.Len(t, actions, 12)
	assert.Equal(t, ActionTogglePlay, actions[0])
	assert.Equal(t, ActionQuit, actions[len(actions)-1])

	codes := cm.Codes()
	assert.IsIncreasing(t, codes)
	assert.Contains(t, codes, 21)
}

// TestParseKeyCode 测试键标识解析
func TestParseKeyCode(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"40", 40, false},
		{" 81 ", 81, false},
		{"0x28", 0x28, false},
		{"0XA0", 0xA0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeyCode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestKeyToken 测试令牌辅助方法
func TestKeyToken(t *testing.T) {
	assert.True(t, CharToken(30, 'a').IsChar())
	assert.False(t, NamedToken(57, NamedSpace).IsChar())
	assert.False(t, RawToken(40).IsChar())

	assert.Equal(t, "Space(57)", NamedToken(57, NamedSpace).String())
	assert.Equal(t, "'a'(30)", CharToken(30, 'a').String())
	assert.Equal(t, "key(40)", RawToken(40).String())

	assert.True(t, Printable('Z'))
	assert.True(t, Printable('é'))
	assert.False(t, Printable(' '))
	assert.False(t, Printable('\b'))
	assert.False(t, Printable(0))
}
