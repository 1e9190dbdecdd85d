// Package config loads the demo's settings from an optional TOML file.
//
// Every field has a default, so an absent file or an absent key keeps the built-in behavior.
// Example oxy-march.toml:
//
//	[window]
//	width = 1280
//	height = 720
//
//	[renderer]
//	backend = "webgpu"
//	topology = "single-pass"
//
//	[shaders]
//	watch = true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/camera"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the file name cmd/raymarch looks for in the working directory.
const DefaultPath = "oxy-march.toml"

// Config is the full set of runtime settings.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Camera   CameraConfig   `toml:"camera"`
	Shaders  ShadersConfig  `toml:"shaders"`
	Profiler ProfilerConfig `toml:"profiler"`
}

// WindowConfig controls the platform window.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	// VSync waits for vertical blank when presenting (GL swap interval 1, WebGPU FIFO).
	VSync bool `toml:"vsync"`
}

// RendererConfig selects the GPU backend and frame topology.
type RendererConfig struct {
	// Backend is "opengl" or "webgpu".
	Backend string `toml:"backend"`
	// Topology is "two-pass" or "single-pass".
	Topology string `toml:"topology"`
	// FrameLimit caps frames per second. Zero means uncapped.
	FrameLimit int `toml:"frame_limit"`
	// ClearColor is the RGBA color cleared to before the display pass.
	ClearColor [4]float32 `toml:"clear_color"`
	// WorkGroupSize pins the compute local size. Zero follows whatever the compute shader declares;
	// a non-zero value that disagrees with the shader fails start-up and reloads.
	WorkGroupSize uint32 `toml:"work_group_size"`
	// ImageFilter is "linear" or "nearest", the filter the display pass samples the image with.
	ImageFilter string `toml:"image_filter"`
}

// CameraConfig sets the camera's starting pose and tunables.
type CameraConfig struct {
	Position    [3]float32 `toml:"position"`
	Yaw         float32    `toml:"yaw"`
	Pitch       float32    `toml:"pitch"`
	Speed       float32    `toml:"speed"`
	Sensitivity float32    `toml:"sensitivity"`
	PitchLimit  float32    `toml:"pitch_limit"`
}

// ShadersConfig locates the shader sources.
type ShadersConfig struct {
	// Dir is the shader root; backend subdirectories live beneath it.
	Dir string `toml:"dir"`
	// Watch reloads the shaders whenever a file under Dir changes.
	Watch bool `toml:"watch"`
}

// ProfilerConfig controls the periodic performance report.
type ProfilerConfig struct {
	Enabled bool `toml:"enabled"`
	// Interval is a time.ParseDuration string such as "1s".
	Interval string `toml:"interval"`
	// Heap adds memory statistics to each report.
	Heap bool `toml:"heap"`
}

// Default returns the built-in settings.
func Default() Config {
	c := common.DefaultClearColor
	return Config{
		Window: WindowConfig{
			Title:  "oxy-march",
			Width:  1600,
			Height: 900,
			VSync:  true,
		},
		Renderer: RendererConfig{
			Backend:     backend.BackendTypeOpenGL.String(),
			Topology:    pipeline.TopologyTwoPass.String(),
			ClearColor:  [4]float32{c.R, c.G, c.B, c.A},
			ImageFilter: "linear",
		},
		Camera: CameraConfig{
			Speed:       camera.DefaultSpeed,
			Sensitivity: camera.DefaultSensitivity,
			PitchLimit:  camera.DefaultPitchLimit,
		},
		Shaders: ShadersConfig{
			Dir: "shaders",
		},
		Profiler: ProfilerConfig{
			Enabled:  true,
			Interval: "1s",
			Heap:     true,
		},
	}
}

// Load reads and validates the TOML file at path. A missing file yields Default().
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged settings
//   - error: if the file exists but cannot be read, parsed or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over Default() and validates the result. Keys absent from data keep their defaults.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the merged settings
//   - error: if data is not valid TOML, has unknown keys, or fails Validate
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("parse error at line %d, column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that is out of range or unrecognised.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := c.BackendType(); err != nil {
		return fmt.Errorf("renderer.backend: %w", err)
	}
	if _, err := c.Topology(); err != nil {
		return fmt.Errorf("renderer.topology: %w", err)
	}
	if c.Renderer.FrameLimit < 0 {
		return fmt.Errorf("renderer.frame_limit must not be negative, got %d", c.Renderer.FrameLimit)
	}
	if _, err := c.SamplerData(); err != nil {
		return fmt.Errorf("renderer.image_filter: %w", err)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("renderer.clear_color[%d] must be within [0, 1], got %g", i, v)
		}
	}
	if c.Camera.Speed <= 0 {
		return fmt.Errorf("camera.speed must be positive, got %g", c.Camera.Speed)
	}
	if c.Camera.Sensitivity <= 0 {
		return fmt.Errorf("camera.sensitivity must be positive, got %g", c.Camera.Sensitivity)
	}
	// The basis degenerates at +-pi/2.
	if c.Camera.PitchLimit <= 0 || c.Camera.PitchLimit >= 1.5707963 {
		return fmt.Errorf("camera.pitch_limit must be within (0, pi/2), got %g", c.Camera.PitchLimit)
	}
	if c.Shaders.Dir == "" {
		return fmt.Errorf("shaders.dir must not be empty")
	}
	if _, err := c.ProfilerInterval(); err != nil {
		return fmt.Errorf("profiler.interval: %w", err)
	}
	return nil
}

// BackendType returns the parsed renderer.backend.
func (c Config) BackendType() (backend.BackendType, error) {
	return backend.ParseBackendType(c.Renderer.Backend)
}

// Topology returns the parsed renderer.topology.
func (c Config) Topology() (pipeline.Topology, error) {
	return pipeline.ParseTopology(c.Renderer.Topology)
}

// ClearColor returns renderer.clear_color as a common.Color.
func (c Config) ClearColor() common.Color {
	cc := c.Renderer.ClearColor
	return common.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

// SamplerData returns the clamped-edge sampler settings for renderer.image_filter.
func (c Config) SamplerData() (common.SamplerStagingData, error) {
	var filter wgpu.FilterMode
	switch c.Renderer.ImageFilter {
	case "linear":
		filter = wgpu.FilterModeLinear
	case "nearest":
		filter = wgpu.FilterModeNearest
	default:
		return common.SamplerStagingData{}, fmt.Errorf("unknown filter %q, want linear or nearest", c.Renderer.ImageFilter)
	}
	return common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
	}, nil
}

// ProfilerInterval returns the parsed profiler.interval.
func (c Config) ProfilerInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Profiler.Interval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// PresentMode maps window.vsync onto a backend present mode.
func (c Config) PresentMode() backend.PresentMode {
	if c.Window.VSync {
		return backend.PresentModeVSync
	}
	return backend.PresentModeUncapped
}

// FrameInterval returns the minimum time between frames for renderer.frame_limit, zero when uncapped.
func (c Config) FrameInterval() time.Duration {
	if c.Renderer.FrameLimit <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Renderer.FrameLimit)
}
