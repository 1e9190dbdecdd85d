package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// KeyMap assigns a virtual key code to each movement direction.
type KeyMap struct {
	Forward, Back, Left, Right, Up, Down uint32
}

// WithKeyMap replaces the default W/S/A/D/Space/Left-Shift bindings.
//
// Parameters:
//   - keys: the key assignment for every direction
//
// Returns:
//   - CameraControllerOption: functional option to set the key map
func WithKeyMap(keys KeyMap) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.keys = keys
	}
}

// WithMouseLook sets whether mouse look starts enabled.
//
// Parameters:
//   - enabled: initial mouse look state
//
// Returns:
//   - CameraControllerOption: functional option to set mouse look
func WithMouseLook(enabled bool) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseLook = enabled
	}
}
