// Command raymarch opens a window and flies a free camera through a raymarched scene.
//
// Settings are read from oxy-march.toml in the working directory when present. Shaders are read
// from the shaders directory and can be rebuilt at runtime with R, or automatically when
// shaders.watch is enabled. W/A/S/D/Space/Left-Shift move, the mouse looks, Escape releases the cursor.
//
// The process exits with status 1 if any part of start-up fails and 0 when the window is closed.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine"
	"github.com/Carmen-Shannon/oxy-march/engine/camera"
	"github.com/Carmen-Shannon/oxy-march/engine/config"
	"github.com/Carmen-Shannon/oxy-march/engine/profiler"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend/opengl"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend/webgpu"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-march/engine/watcher"
	"github.com/Carmen-Shannon/oxy-march/engine/window"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	common.SetLogger(logger)

	if err := run(); err != nil {
		var initErr *engine.InitError
		if errors.As(err, &initErr) {
			logger.Error("start-up failed", "stage", initErr.Stage, "err", initErr.Err)
		} else {
			logger.Error("fatal", "err", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		return &engine.InitError{Stage: engine.StageConfig, Err: err}
	}
	// Validated by config.Load.
	backendType, _ := cfg.BackendType()
	topology, _ := cfg.Topology()
	profileInterval, _ := cfg.ProfilerInterval()
	samplerData, _ := cfg.SamplerData()

	clientAPI := window.ClientAPIOpenGL
	if backendType == backend.BackendTypeWebGPU {
		clientAPI = window.ClientAPINone
	}
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
		window.WithClientAPI(clientAPI),
		window.WithVSync(cfg.Window.VSync),
	)
	if err != nil {
		return &engine.InitError{Stage: engine.StageWindow, Err: err}
	}
	defer win.Close()

	b, err := newBackend(backendType, win, cfg.PresentMode(), samplerData)
	if err != nil {
		return err
	}
	defer b.Release()

	r, err := renderer.NewRenderer(b, shader.OSFileProvider{}, win.Width(), win.Height(),
		renderer.WithTopology(topology),
		renderer.WithShaderDir(cfg.Shaders.Dir),
		renderer.WithClearColor(cfg.ClearColor()),
		renderer.WithWorkGroupSize(cfg.Renderer.WorkGroupSize),
	)
	if err != nil {
		return &engine.InitError{Stage: engine.StageRenderer, Err: err}
	}
	defer r.Destroy()

	pos := cfg.Camera.Position
	options := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithCamera(camera.New(
			camera.WithPosition(pos[0], pos[1], pos[2]),
			camera.WithYawPitch(cfg.Camera.Yaw, cfg.Camera.Pitch),
			camera.WithSpeed(cfg.Camera.Speed),
			camera.WithSensitivity(cfg.Camera.Sensitivity),
			camera.WithPitchLimit(cfg.Camera.PitchLimit),
		)),
		engine.WithProfiling(cfg.Profiler.Enabled),
		engine.WithProfiler(profiler.NewProfiler(
			profiler.WithInterval(profileInterval),
			profiler.WithHeapStats(cfg.Profiler.Heap),
		)),
		engine.WithRenderFrameLimit(float64(cfg.Renderer.FrameLimit)),
	}

	if cfg.Shaders.Watch {
		w, err := watcher.New(cfg.Shaders.Dir)
		if err != nil {
			return &engine.InitError{Stage: engine.StageWatcher, Err: err}
		}
		defer w.Close()
		options = append(options, engine.WithWatcher(w))
	}

	return engine.NewEngine(options...).Run(ctx)
}

// newBackend creates the GPU backend for the window's surface or context.
func newBackend(backendType backend.BackendType, win window.Window, presentMode backend.PresentMode, samplerData common.SamplerStagingData) (backend.Backend, error) {
	switch backendType {
	case backend.BackendTypeWebGPU:
		b, err := webgpu.New(win.SurfaceDescriptor(), presentMode, win.Width(), win.Height(), webgpu.WithSampler(samplerData))
		if err != nil {
			return nil, &engine.InitError{Stage: engine.StageBackend, Err: err}
		}
		return b, nil
	default:
		b, err := opengl.New(opengl.WithSampler(samplerData))
		if err != nil {
			return nil, &engine.InitError{Stage: engine.StageContext, Err: err}
		}
		return b, nil
	}
}
