package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*Camera)

// WithPosition sets the camera's starting world-space position.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera position
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Position = mgl32.Vec3{x, y, z}
	}
}

// WithYawPitch sets the starting orientation. Pitch is clamped to the pitch limit once all options are applied.
//
// Parameters:
//   - yaw: rotation about world up in radians
//   - pitch: elevation in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the orientation
func WithYawPitch(yaw, pitch float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Yaw = yaw
		c.Pitch = pitch
	}
}

// WithSpeed sets the movement speed in world units per second.
func WithSpeed(speed float32) CameraBuilderOption {
	return func(c *Camera) {
		if speed > 0 {
			c.Speed = speed
		}
	}
}

// WithSensitivity sets the mouse look sensitivity in radians per pixel.
func WithSensitivity(sensitivity float32) CameraBuilderOption {
	return func(c *Camera) {
		if sensitivity > 0 {
			c.Sensitivity = sensitivity
		}
	}
}

// WithPitchLimit sets the symmetric pitch bound in radians. Values outside (0, 1.5708) are ignored.
func WithPitchLimit(limit float32) CameraBuilderOption {
	return func(c *Camera) {
		if limit > 0 && limit < 1.5708 {
			c.PitchLimit = limit
		}
	}
}
