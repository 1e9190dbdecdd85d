package engine

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/camera"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow closes itself after maxFrames polls and runs script[n] during the n-th poll.
type fakeWindow struct {
	maxFrames int
	polls     int
	now       float64
	step      float64
	script    map[int]func(w *fakeWindow)

	captured     bool
	captureCalls []bool
	swaps        int
	width        int
	height       int

	onResize    func(width, height int)
	onKeyDown   func(keyCode uint32)
	onKeyUp     func(keyCode uint32)
	onMouseMove func(dx, dy float32)
}

func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetKeyDownCallback(cb func(keyCode uint32))   { w.onKeyDown = cb }
func (w *fakeWindow) SetKeyUpCallback(cb func(keyCode uint32))     { w.onKeyUp = cb }
func (w *fakeWindow) SetMouseMoveCallback(cb func(dx, dy float32)) { w.onMouseMove = cb }
func (w *fakeWindow) MouseCaptured() bool                          { return w.captured }
func (w *fakeWindow) IsRunning() bool                              { return w.polls < w.maxFrames }
func (w *fakeWindow) SwapBuffers()                                 { w.swaps++ }
func (w *fakeWindow) Time() float64                                { return w.now }
func (w *fakeWindow) Width() int                                   { return w.width }
func (w *fakeWindow) Height() int                                  { return w.height }

func (w *fakeWindow) SetMouseCaptured(captured bool) {
	w.captured = captured
	w.captureCalls = append(w.captureCalls, captured)
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	w.now += w.step
	if f := w.script[w.polls]; f != nil {
		f(w)
	}
}

func (w *fakeWindow) press(key uint32) {
	w.onKeyDown(key)
	w.onKeyUp(key)
}

type fakeWatcher struct {
	changes chan string
}

func (f *fakeWatcher) Changes() <-chan string { return f.changes }
func (f *fakeWatcher) Close() error           { return nil }

func shaderFiles() fstest.MapFS {
	return fstest.MapFS{
		"shaders/opengl/raymarch.comp": {Data: []byte("#version 430\nlayout(local_size_x = 8, local_size_y = 8) in;\n")},
		"shaders/opengl/display.vert":  {Data: []byte("#version 430\n// vertex")},
		"shaders/opengl/display.frag":  {Data: []byte("#version 430\n// display")},
	}
}

func newTestSetup(t *testing.T, frames int, step float64) (*fakeWindow, *backendtest.Backend, renderer.Renderer) {
	t.Helper()
	b := backendtest.New()
	r, err := renderer.NewRenderer(b, shader.FSFileProvider{FS: shaderFiles()}, 1600, 900)
	require.NoError(t, err)
	t.Cleanup(r.Destroy)
	b.ResetCommands()
	w := &fakeWindow{maxFrames: frames, step: step, width: 1600, height: 900, script: map[int]func(*fakeWindow){}}
	return w, b, r
}

func TestRunDrawsUntilWindowCloses(t *testing.T) {
	w, b, r := newTestSetup(t, 3, 0.016)
	e := NewEngine(WithWindow(w), WithRenderer(r))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.Frames())
	assert.Equal(t, 3, w.swaps)
	assert.Len(t, b.Find(backendtest.OpDrawQuad), 3)

	var times []float32
	for _, c := range b.Find(backendtest.OpSetFloat) {
		if c.Param == shader.ParamTime.Name() {
			times = append(times, c.Float)
		}
	}
	require.Len(t, times, 3)
	for i, want := range []float32{0.016, 0.032, 0.048} {
		assert.InDelta(t, want, times[i], 1e-6)
	}
}

func TestRunCapturesMouseAtStart(t *testing.T) {
	w, _, r := newTestSetup(t, 1, 0.016)
	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []bool{true}, w.captureCalls)
}

func TestRunClampsDeltaTime(t *testing.T) {
	w, _, r := newTestSetup(t, 2, 0.5)
	w.script[1] = func(w *fakeWindow) { w.onKeyDown(common.KeyW) }

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))

	// Two frames at the clamped 0.1 s, facing -Z at the default speed.
	want := -2 * camera.DefaultSpeed * MaxDeltaTime
	assert.InDelta(t, want, e.Camera().Position.Z(), 1e-5)
	assert.InDelta(t, 0, e.Camera().Position.X(), 1e-5)
}

func TestFrameCallbackReceivesClampedDelta(t *testing.T) {
	w, _, r := newTestSetup(t, 2, 1.0)
	var deltas []float32
	e := NewEngine(WithWindow(w), WithRenderer(r), WithFrameCallback(func(dt float32) {
		deltas = append(deltas, dt)
	}))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []float32{MaxDeltaTime, MaxDeltaTime}, deltas)
}

func TestReloadKeyRebuildsPrograms(t *testing.T) {
	w, _, r := newTestSetup(t, 2, 0.016)
	before := r.Program(pipeline.KeyRaymarch).Handle()
	w.script[1] = func(w *fakeWindow) { w.press(common.KeyR) }

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))

	assert.NotEqual(t, before, r.Program(pipeline.KeyRaymarch).Handle())
}

func TestFailedReloadKeepsDrawing(t *testing.T) {
	w, b, r := newTestSetup(t, 3, 0.016)
	before := r.Program(pipeline.KeyRaymarch).Handle()
	b.CompileFailure = func(label, source string) string { return "0:1: syntax error" }
	w.script[1] = func(w *fakeWindow) { w.press(common.KeyR) }

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, before, r.Program(pipeline.KeyRaymarch).Handle())
	assert.Equal(t, renderer.StateReady, r.State())
	assert.Len(t, b.Find(backendtest.OpDrawQuad), 3)
}

func TestWatcherChangeTriggersReload(t *testing.T) {
	w, _, r := newTestSetup(t, 2, 0.016)
	before := r.Program(pipeline.KeyDisplay).Handle()
	fw := &fakeWatcher{changes: make(chan string, 1)}
	fw.changes <- "shaders/opengl/display.frag"

	e := NewEngine(WithWindow(w), WithRenderer(r), WithWatcher(fw))
	require.NoError(t, e.Run(context.Background()))

	assert.NotEqual(t, before, r.Program(pipeline.KeyDisplay).Handle())
}

func TestEscapeTogglesCaptureAndMouseLook(t *testing.T) {
	w, _, r := newTestSetup(t, 2, 0.016)
	w.script[1] = func(w *fakeWindow) {
		w.press(common.KeyEsc)
		w.onMouseMove(100, 0)
	}
	w.script[2] = func(w *fakeWindow) {
		w.press(common.KeyEsc)
	}

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, []bool{true, false, true}, w.captureCalls)
	assert.Zero(t, e.Camera().Yaw, "mouse travel is ignored while released")
}

func TestMouseLookRotatesCamera(t *testing.T) {
	w, _, r := newTestSetup(t, 1, 0.016)
	w.script[1] = func(w *fakeWindow) { w.onMouseMove(100, 0) }

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))

	assert.InDelta(t, 100*camera.DefaultSensitivity, e.Camera().Yaw, 1e-6)
}

func TestResizeIsForwardedOncePerFrame(t *testing.T) {
	w, b, r := newTestSetup(t, 1, 0.016)
	w.script[1] = func(w *fakeWindow) {
		w.onResize(800, 600)
		w.onResize(1024, 768)
	}

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(context.Background()))

	width, height := r.Size()
	assert.Equal(t, [2]int{1024, 768}, [2]int{width, height})
	iw, ih, ok := r.ImageSize()
	require.True(t, ok)
	assert.Equal(t, [2]int{1024, 768}, [2]int{iw, ih})
	sw, sh := b.SurfaceSize()
	assert.Equal(t, [2]int{1024, 768}, [2]int{sw, sh})
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	w, _, r := newTestSetup(t, 100, 0.016)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(WithWindow(w), WithRenderer(r))
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.Frames())
}

func TestQuitStopsAfterCurrentFrame(t *testing.T) {
	w, _, r := newTestSetup(t, 100, 0.016)
	var e Engine
	e = NewEngine(WithWindow(w), WithRenderer(r), WithFrameCallback(func(float32) {
		e.Quit()
		e.Quit()
	}))
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(1), e.Frames())
}

func TestRunRequiresWindowAndRenderer(t *testing.T) {
	assert.ErrorContains(t, NewEngine().Run(context.Background()), "no window")

	w := &fakeWindow{}
	assert.ErrorContains(t, NewEngine(WithWindow(w)).Run(context.Background()), "no renderer")
}

func TestRenderFrameLimit(t *testing.T) {
	e := NewEngine(WithRenderFrameLimit(50)).(*engine)
	assert.Equal(t, int64(20_000_000), e.renderFrameLimit.Nanoseconds())
	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit)
}

func TestInitError(t *testing.T) {
	cause := errors.New("no GL 4.3 context")
	var err error = &InitError{Stage: StageContext, Err: cause}

	var ie *InitError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, StageContext, ie.Stage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "init context: no GL 4.3 context", err.Error())
}
