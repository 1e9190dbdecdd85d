package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1600, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height)

	bt, err := cfg.BackendType()
	require.NoError(t, err)
	assert.Equal(t, backend.BackendTypeOpenGL, bt)

	topo, err := cfg.Topology()
	require.NoError(t, err)
	assert.Equal(t, pipeline.TopologyTwoPass, topo)

	assert.Equal(t, common.DefaultClearColor, cfg.ClearColor())
	assert.Equal(t, backend.PresentModeVSync, cfg.PresentMode())
	assert.Zero(t, cfg.FrameInterval())
	assert.Zero(t, cfg.Renderer.WorkGroupSize)
}

func TestSamplerData(t *testing.T) {
	cfg := Default()
	sd, err := cfg.SamplerData()
	require.NoError(t, err)
	assert.Equal(t, wgpu.FilterModeLinear, sd.MagFilter)
	assert.Equal(t, wgpu.FilterModeLinear, sd.MinFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, sd.AddressModeU)
	assert.Equal(t, wgpu.AddressModeClampToEdge, sd.AddressModeV)

	cfg, err = Parse([]byte("[renderer]\nimage_filter = \"nearest\"\nwork_group_size = 16"))
	require.NoError(t, err)
	sd, err = cfg.SamplerData()
	require.NoError(t, err)
	assert.Equal(t, wgpu.FilterModeNearest, sd.MagFilter)
	assert.Equal(t, wgpu.FilterModeNearest, sd.MinFilter)
	assert.Equal(t, uint32(16), cfg.Renderer.WorkGroupSize)
}

func TestParseOverridesOnlyGivenKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 1280
vsync = false

[renderer]
backend = "webgpu"
topology = "single-pass"
frame_limit = 50

[camera]
position = [0.0, 1.0, 5.0]

[shaders]
watch = true

[profiler]
interval = "500ms"
`))
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height)
	assert.Equal(t, "oxy-march", cfg.Window.Title)
	assert.Equal(t, backend.PresentModeUncapped, cfg.PresentMode())
	assert.Equal(t, [3]float32{0, 1, 5}, cfg.Camera.Position)
	assert.Equal(t, float32(4.0), cfg.Camera.Speed)
	assert.True(t, cfg.Shaders.Watch)
	assert.Equal(t, "shaders", cfg.Shaders.Dir)
	assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval())

	bt, _ := cfg.BackendType()
	assert.Equal(t, backend.BackendTypeWebGPU, bt)
	topo, _ := cfg.Topology()
	assert.Equal(t, pipeline.TopologySinglePass, topo)
	d, err := cfg.ProfilerInterval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"syntax", "[window\nwidth = 1", "parse error at line"},
		{"unknown key", "[window]\ncolour = 1", "parse"},
		{"bad backend", "[renderer]\nbackend = \"vulkan\"", "renderer.backend"},
		{"bad topology", "[renderer]\ntopology = \"three-pass\"", "renderer.topology"},
		{"zero width", "[window]\nwidth = 0", "window size"},
		{"negative frame limit", "[renderer]\nframe_limit = -1", "renderer.frame_limit"},
		{"clear color range", "[renderer]\nclear_color = [0.0, 0.0, 2.0, 1.0]", "renderer.clear_color[2]"},
		{"image filter", "[renderer]\nimage_filter = \"cubic\"", "renderer.image_filter"},
		{"pitch limit", "[camera]\npitch_limit = 1.6", "camera.pitch_limit"},
		{"speed", "[camera]\nspeed = 0.0", "camera.speed"},
		{"empty dir", "[shaders]\ndir = \"\"", "shaders.dir"},
		{"interval", "[profiler]\ninterval = \"soon\"", "profiler.interval"},
		{"zero interval", "[profiler]\ninterval = \"0s\"", "profiler.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("[window]\ntitle = \"march\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "march", cfg.Window.Title)

	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nbackend = \"dx12\"\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}
