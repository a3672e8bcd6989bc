package app

import (
	"sort"
	"testing"

	"github.com/chenyang-zz/windj/internal/audio"
	"github.com/chenyang-zz/windj/internal/controller/controllertest"
	"github.com/chenyang-zz/windj/internal/infrastructure/config"
	"github.com/chenyang-zz/windj/internal/monitor"
	"github.com/chenyang-zz/windj/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const controlsYAML = `
controls:
  reset: 19
  showhide: 35
  quit: 16
  playstop: 57
  volup: 13
  voldown: 12
  navup: 72
  navdown: 80
  multup: 73
  multdown: 81
  search: 31
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("folders:\n  - " + t.TempDir() + "\n" + controlsYAML))
	require.NoError(t, err)
	return cfg
}

// TestHookOptions 测试由配置得到钩子选项
func TestHookOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Hook.Backend = "grab"
	cfg.Hook.KeyID = "vkcode"
	cfg.Settings.ControlsCaptured = true

	controls, err := cfg.ControlMap()
	require.NoError(t, err)

	p, m, err := hookOptions(cfg, controls)
	require.NoError(t, err)
	assert.Equal(t, platform.BackendGrab, p.Backend)
	assert.Equal(t, monitor.KeyIDVKCode, m.KeyID)
	assert.True(t, m.ControlsCaptured)

	want := controls.Codes()
	sort.Ints(want)
	got := append([]int(nil), p.GrabKeys...)
	sort.Ints(got)
	assert.Equal(t, want, got)
}

// TestHookOptions_Invalid 测试非法的钩子配置
func TestHookOptions_Invalid(t *testing.T) {
	cfg := testConfig(t)
	controls, err := cfg.ControlMap()
	require.NoError(t, err)

	cfg.Hook.Backend = "telepathy"
	_, _, err = hookOptions(cfg, controls)
	assert.Error(t, err)

	cfg.Hook.Backend = "auto"
	cfg.Hook.KeyID = "morse"
	_, _, err = hookOptions(cfg, controls)
	assert.Error(t, err)
}

// TestGeometry 测试窗口几何参数
func TestGeometry(t *testing.T) {
	s := config.DefaultConfig().Settings
	s.FixedPosition = true

	g := geometry(s)
	assert.Equal(t, platform.Geometry{X: 1300, Y: 100, Width: 200, Height: 550, Fixed: true}, g)
}

// TestCheckOutputDevice 测试输出设备配置的启动检查
func TestCheckOutputDevice(t *testing.T) {
	factory := audio.NewFactory(audio.Options{})

	assert.NoError(t, checkOutputDevice("", factory))

	err := checkOutputDevice("Speakers (USB)", factory)
	assert.ErrorIs(t, err, audio.ErrDeviceUnsupported)

	players := &controllertest.Players{}
	require.NoError(t, checkOutputDevice("Speakers (USB)", players.Factory()))
	assert.Equal(t, "Speakers (USB)", players.Last().Device)
	assert.True(t, players.Last().Closed)
}
