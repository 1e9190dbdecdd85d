package camera

// CameraController turns raw window input into per-frame camera updates.
// Key and mouse events are recorded as they arrive; Apply consumes them once per frame.
type CameraController interface {
	// KeyDown records that a key has been pressed.
	//
	// Parameters:
	//   - key: the virtual key code (see common.Key*)
	KeyDown(key uint32)

	// KeyUp records that a key has been released.
	//
	// Parameters:
	//   - key: the virtual key code (see common.Key*)
	KeyUp(key uint32)

	// MouseMove accumulates relative mouse travel in pixels. Ignored while mouse look is disabled.
	//
	// Parameters:
	//   - dx, dy: pixel deltas since the previous event
	MouseMove(dx, dy float32)

	// SetMouseLook enables or disables mouse look. Disabling it drops any accumulated travel.
	//
	// Parameters:
	//   - enabled: whether mouse deltas rotate the camera
	SetMouseLook(enabled bool)

	// MouseLook reports whether mouse deltas currently rotate the camera.
	MouseLook() bool

	// Movement returns the movement directions derived from the currently held keys.
	//
	// Returns:
	//   - MovementInput: the held directions
	Movement() MovementInput

	// Apply feeds this frame's held keys and accumulated mouse travel into cam.Update and resets the travel.
	//
	// Parameters:
	//   - cam: the camera to update
	//   - deltaTime: elapsed time for this frame in seconds
	Apply(cam *Camera, deltaTime float32)

	// Reset releases every held key and discards accumulated mouse travel.
	Reset()
}
