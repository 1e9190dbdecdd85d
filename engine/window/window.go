package window

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ClientAPI selects which graphics API the window prepares its surface for.
type ClientAPI int

const (
	// ClientAPINone creates no GPU context; the surface is handed to WebGPU.
	ClientAPINone ClientAPI = iota

	// ClientAPIOpenGL creates an OpenGL 4.3 core forward-compatible context and makes it current.
	ClientAPIOpenGL
)

// Window provides platform windowing, the GPU surface and input event handling.
// Wraps platform-specific window implementations with a common interface.
// Every method must be called from the thread that created the window.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events. Key repeats are not reported.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseMoveCallback sets the callback for mouse travel while the cursor is captured.
	//
	// Parameters:
	//   - callback: function receiving the x and y travel in pixels since the previous event
	SetMouseMoveCallback(callback func(dx, dy float32))

	// SetMouseCaptured hides and locks the cursor to the window when captured is true, releasing it otherwise.
	SetMouseCaptured(captured bool)

	// MouseCaptured reports whether the cursor is currently captured.
	MouseCaptured() bool

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// ClientAPI returns the graphics API the window was created for.
	ClientAPI() ClientAPI

	// IsRunning returns true until the user asks the window to close or Close is called.
	IsRunning() bool

	// PollEvents processes pending window events without blocking, firing the registered callbacks.
	PollEvents()

	// SwapBuffers presents the back buffer of an OpenGL context. It does nothing for ClientAPINone.
	SwapBuffers()

	// Time returns monotonic seconds since the window system was initialised.
	Time() float64

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never initialised
	Close() error

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// minWidth, minHeight, maxWidth and maxHeight bound interactive resizing. Zero leaves a bound unset.
	minWidth, minHeight, maxWidth, maxHeight int

	// width and height are the current framebuffer size in pixels.
	width, height int

	clientAPI ClientAPI
	vsync     bool

	// captured is true while the cursor is hidden and locked for mouse look.
	captured bool
	// hasCursor is false until the first cursor event after a capture, which only sets the reference point.
	hasCursor        bool
	cursorX, cursorY float64

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onResize    func(width, height int)
	onKeyDown   func(keyCode uint32)
	onKeyUp     func(keyCode uint32)
	onMouseMove func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: if the window system or window could not be initialised
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

// newEngineWindow applies defaults and options without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-march",
		minWidth:  320,
		minHeight: 180,
		width:     1600,
		height:    900,
		clientAPI: ClientAPIOpenGL,
		vsync:     true,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(dx, dy float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SetMouseCaptured(captured bool) {
	w.captured = captured
	w.hasCursor = false
	platformSetCursorCaptured(w, captured)
}

func (w *engineWindow) MouseCaptured() bool {
	return w.captured
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) ClientAPI() ClientAPI {
	return w.clientAPI
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) PollEvents() {
	platformProcessMessages(w)
}

func (w *engineWindow) SwapBuffers() {
	if w.clientAPI != ClientAPIOpenGL {
		return
	}
	platformSwapBuffers(w)
}

func (w *engineWindow) Time() float64 {
	return platformTime()
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// cursorMoved turns absolute cursor positions into travel deltas. Nothing is reported while
// the cursor is free, and the first position after a capture only sets the reference point.
func (w *engineWindow) cursorMoved(x, y float64) {
	if !w.captured {
		return
	}
	if !w.hasCursor {
		w.cursorX, w.cursorY = x, y
		w.hasCursor = true
		return
	}
	dx, dy := x-w.cursorX, y-w.cursorY
	w.cursorX, w.cursorY = x, y
	if w.onMouseMove != nil && (dx != 0 || dy != 0) {
		w.onMouseMove(float32(dx), float32(dy))
	}
}

// framebufferResized records the new framebuffer size and forwards it.
func (w *engineWindow) framebufferResized(width, height int) {
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
