package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/camera"
	"github.com/Carmen-Shannon/oxy-march/engine/profiler"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer"
	"github.com/Carmen-Shannon/oxy-march/engine/watcher"
)

// MaxDeltaTime caps the frame delta in seconds so a stall (window drag, breakpoint, slow reload)
// does not teleport the camera.
const MaxDeltaTime float32 = 0.1

// Init stages reported by InitError.
const (
	StageConfig   = "config"
	StageWindow   = "window"
	StageContext  = "context"
	StageBackend  = "backend"
	StageRenderer = "renderer"
	StageWatcher  = "watcher"
)

// InitError reports a fatal failure while bringing the demo up.
type InitError struct {
	// Stage names the step that failed, one of the Stage* constants.
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Window is the part of window.Window the frame loop drives.
type Window interface {
	SetResizeCallback(callback func(width, height int))
	SetKeyDownCallback(callback func(keyCode uint32))
	SetKeyUpCallback(callback func(keyCode uint32))
	SetMouseMoveCallback(callback func(dx, dy float32))
	SetMouseCaptured(captured bool)
	MouseCaptured() bool
	IsRunning() bool
	PollEvents()
	SwapBuffers()
	Time() float64
	Width() int
	Height() int
}

// engine implements the Engine interface.
type engine struct {
	window     Window
	renderer   renderer.Renderer
	camera     camera.Camera
	controller camera.CameraController
	watcher    watcher.Watcher

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCallback    func(deltaTime float32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	reloadRequested bool
	reloadTrigger   string
	resizePending   bool
	resizeW         int
	resizeH         int
	frames          uint64

	quitChannel chan struct{}
	quitOnce    sync.Once
}

// Engine is the input and frame driver. It owns the camera, turns window input into camera
// movement and reload requests, and asks the renderer for one frame per iteration.
// All of its work happens on the goroutine that calls Run, which must be the thread that owns the window.
type Engine interface {
	// Run drives frames until the window closes, ctx is cancelled or Quit is called.
	// The mouse is captured when Run starts.
	//
	// Parameters:
	//   - ctx: cancels the loop between frames
	//
	// Returns:
	//   - error: if the engine was built without a window or renderer
	Run(ctx context.Context) error

	// Quit stops Run after the current frame. Safe to call multiple times and from any goroutine.
	Quit()

	// Camera returns a copy of the current camera.
	Camera() camera.Camera

	// Renderer returns the renderer the engine drives.
	Renderer() renderer.Renderer

	// Frames returns how many frames Run has completed.
	Frames() uint64

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options.
// The camera defaults to camera.New() and the controller to the W/A/S/D/Space/Left-Shift bindings.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		camera:      camera.New(),
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.controller == nil {
		e.controller = camera.NewCameraController()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}
	return e
}

func (e *engine) Run(ctx context.Context) error {
	if e.window == nil {
		return errors.New("engine has no window")
	}
	if e.renderer == nil {
		return errors.New("engine has no renderer")
	}

	e.bindInput()
	e.setCaptured(true)

	var changes <-chan string
	if e.watcher != nil {
		changes = e.watcher.Changes()
	}

	start := e.window.Time()
	last := start
	logger := common.Logger()
	logger.Info("frame loop started", "width", e.window.Width(), "height", e.window.Height())

	for e.window.IsRunning() {
		select {
		case <-ctx.Done():
			logger.Info("frame loop cancelled", "frames", e.frames)
			return nil
		case <-e.quitChannel:
			logger.Info("frame loop quit", "frames", e.frames)
			return nil
		default:
		}

		frameStart := time.Now()
		e.window.PollEvents()

		now := e.window.Time()
		dt := common.Clamp(float32(now-last), 0, MaxDeltaTime)
		last = now

		e.drainChanges(changes)
		if e.resizePending {
			e.resizePending = false
			if err := e.renderer.Resize(e.resizeW, e.resizeH); err != nil {
				logger.Warn("resize failed", "width", e.resizeW, "height", e.resizeH, "err", err)
			}
		}
		if e.reloadRequested {
			e.reloadRequested = false
			e.reload(e.reloadTrigger)
		}

		e.controller.Apply(&e.camera, dt)
		if e.frameCallback != nil {
			e.frameCallback(dt)
		}

		e.renderer.Draw(float32(now-start), &e.camera)
		e.window.SwapBuffers()
		e.frames++

		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}

	logger.Info("window closed", "frames", e.frames)
	return nil
}

// bindInput routes window events to the controller and the reload/capture toggles.
func (e *engine) bindInput() {
	e.window.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyR:
			e.requestReload("key")
		case common.KeyEsc:
			e.setCaptured(!e.window.MouseCaptured())
		}
		e.controller.KeyDown(key)
	})
	e.window.SetKeyUpCallback(func(key uint32) {
		e.controller.KeyUp(key)
	})
	e.window.SetMouseMoveCallback(func(dx, dy float32) {
		e.controller.MouseMove(dx, dy)
	})
	e.window.SetResizeCallback(func(width, height int) {
		e.resizePending = true
		e.resizeW, e.resizeH = width, height
	})
}

func (e *engine) setCaptured(captured bool) {
	e.window.SetMouseCaptured(captured)
	e.controller.SetMouseLook(captured)
}

// drainChanges turns any pending watcher notification into a reload request without blocking.
func (e *engine) drainChanges(changes <-chan string) {
	if changes == nil {
		return
	}
	for {
		select {
		case path, ok := <-changes:
			if !ok {
				return
			}
			e.requestReload(path)
		default:
			return
		}
	}
}

func (e *engine) requestReload(trigger string) {
	e.reloadRequested = true
	e.reloadTrigger = trigger
}

// reload rebuilds the programs synchronously. The renderer reports failures itself and keeps drawing
// with the previous programs.
func (e *engine) reload(trigger string) {
	start := time.Now()
	err := e.renderer.ReloadShaders()
	common.Logger().Debug("reload finished", "trigger", trigger, "ok", err == nil, "took", time.Since(start))
}

// Quit signals Run to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Frames() uint64 {
	return e.frames
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
