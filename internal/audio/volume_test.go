package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGain 测试原生音量到 beep 音量的换算
func TestGain(t *testing.T) {
	tests := []struct {
		name   string
		native int
		volume float64
		silent bool
	}{
		{"静音", 0, 0, true},
		{"负数截断为静音", -5, 0, true},
		{"原始响度", 100, 0, false},
		{"半幅", 50, -1, false},
		{"两倍", 200, 1, false},
		{"超限截断", 400, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, silent := gain(tt.native)
			assert.Equal(t, tt.silent, silent)
			assert.InDelta(t, tt.volume, v, 1e-9)
		})
	}
}

// TestSourceEmpty 测试来源判空
func TestSourceEmpty(t *testing.T) {
	assert.True(t, Source{}.Empty())
	assert.False(t, Source{Path: "a.mp3"}.Empty())
	assert.False(t, Source{URL: "https://example.com/a"}.Empty())
}
