package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEngineWindowDefaults(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, "oxy-march", w.title)
	assert.Equal(t, 1600, w.Width())
	assert.Equal(t, 900, w.Height())
	assert.Equal(t, ClientAPIOpenGL, w.ClientAPI())
	assert.True(t, w.vsync)
	assert.False(t, w.MouseCaptured())
}

func TestWindowOptions(t *testing.T) {
	w := newEngineWindow(
		WithTitle("demo"),
		WithWidth(800),
		WithHeight(600),
		WithClientAPI(ClientAPINone),
		WithVSync(false),
		WithSizeLimits(100, 50, 1920, 1080),
	)
	assert.Equal(t, "demo", w.title)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.Equal(t, ClientAPINone, w.ClientAPI())
	assert.False(t, w.vsync)
	assert.Equal(t, [4]int{100, 50, 1920, 1080}, [4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
}

func TestCursorMovedReportsDeltasOnlyWhileCaptured(t *testing.T) {
	w := newEngineWindow()
	var got [][2]float32
	w.SetMouseMoveCallback(func(dx, dy float32) {
		got = append(got, [2]float32{dx, dy})
	})

	w.cursorMoved(10, 10)
	assert.Empty(t, got, "free cursor reports nothing")

	w.SetMouseCaptured(true)
	w.cursorMoved(100, 100)
	assert.Empty(t, got, "first captured event sets the reference point")

	w.cursorMoved(103, 98)
	w.cursorMoved(103, 98)
	w.cursorMoved(101, 99)
	assert.Equal(t, [][2]float32{{3, -2}, {-2, 1}}, got)

	w.SetMouseCaptured(false)
	w.cursorMoved(0, 0)
	assert.Len(t, got, 2)
}

func TestFramebufferResized(t *testing.T) {
	w := newEngineWindow()
	var gotW, gotH int
	w.SetResizeCallback(func(width, height int) { gotW, gotH = width, height })

	w.framebufferResized(1024, 0)
	assert.Equal(t, 1024, gotW)
	assert.Equal(t, 0, gotH)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 0, w.Height())
}

func TestUninitialisedWindow(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.PollEvents()
	w.SwapBuffers()
}
