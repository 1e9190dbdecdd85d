package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-march/common"
)

// DefaultKeyMap is the classic free-fly layout.
var DefaultKeyMap = KeyMap{
	Forward: common.KeyW,
	Back:    common.KeyS,
	Left:    common.KeyA,
	Right:   common.KeyD,
	Up:      common.KeySpace,
	Down:    common.KeyLeftShift,
}

// cameraControllerImpl is the free-fly implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	keys KeyMap
	held map[uint32]bool

	mouseLook bool
	mouseDX   float32
	mouseDY   float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a free-fly controller using DefaultKeyMap with mouse look enabled.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:        &sync.Mutex{},
		keys:      DefaultKeyMap,
		held:      make(map[uint32]bool),
		mouseLook: true,
	}

	for _, option := range options {
		option(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) KeyDown(key uint32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.held[key] = true
}

func (cc *cameraControllerImpl) KeyUp(key uint32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.held, key)
}

func (cc *cameraControllerImpl) MouseMove(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.mouseLook {
		return
	}
	cc.mouseDX += dx
	cc.mouseDY += dy
}

func (cc *cameraControllerImpl) SetMouseLook(enabled bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.mouseLook = enabled
	cc.mouseDX, cc.mouseDY = 0, 0
}

func (cc *cameraControllerImpl) MouseLook() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseLook
}

func (cc *cameraControllerImpl) Movement() MovementInput {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.movement()
}

func (cc *cameraControllerImpl) Apply(cam *Camera, deltaTime float32) {
	if cam == nil {
		return
	}

	cc.mu.Lock()
	in := cc.movement()
	dx, dy := cc.mouseDX, cc.mouseDY
	cc.mouseDX, cc.mouseDY = 0, 0
	cc.mu.Unlock()

	cam.Update(deltaTime, in, dx, dy)
}

func (cc *cameraControllerImpl) Reset() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	clear(cc.held)
	cc.mouseDX, cc.mouseDY = 0, 0
}

// movement maps held keys to directions. Caller must hold the mutex.
func (cc *cameraControllerImpl) movement() MovementInput {
	return MovementInput{
		Forward: cc.held[cc.keys.Forward],
		Back:    cc.held[cc.keys.Back],
		Left:    cc.held[cc.keys.Left],
		Right:   cc.held[cc.keys.Right],
		Up:      cc.held[cc.keys.Up],
		Down:    cc.held[cc.keys.Down],
	}
}
