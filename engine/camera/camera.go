package camera

import (
	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultSpeed is the fly speed in world units per second.
	DefaultSpeed float32 = 4.0
	// DefaultSensitivity is the look rotation in radians per pixel of mouse travel.
	DefaultSensitivity float32 = 0.002
	// DefaultPitchLimit keeps pitch just short of straight up/down so the basis never degenerates.
	DefaultPitchLimit float32 = 1.57

	// moveEpsilon is the minimum movement-vector length that still produces motion.
	moveEpsilon float32 = 1e-4
)

// WorldUp is the fixed world-space up axis.
var WorldUp = mgl32.Vec3{0, 1, 0}

// MovementInput is the set of movement directions held down during a frame.
type MovementInput struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Up      bool
	Down    bool
}

// Camera is a free-fly camera described by a position and two Euler angles.
// It is a plain value: the orthonormal basis is derived on demand from Yaw and Pitch and never cached.
// Yaw = Pitch = 0 looks down -Z.
type Camera struct {
	// Position is the camera origin in world units.
	Position mgl32.Vec3
	// Yaw is the rotation about the world up axis in radians. It is unbounded.
	Yaw float32
	// Pitch is the elevation in radians, always within [-PitchLimit, PitchLimit].
	Pitch float32

	// Speed is the translation speed in world units per second.
	Speed float32
	// Sensitivity converts mouse pixels to radians.
	Sensitivity float32
	// PitchLimit bounds Pitch symmetrically. Must stay below pi/2.
	PitchLimit float32
}

// New creates a Camera at the origin facing -Z with the default tunables, then applies the options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera value
func New(options ...CameraBuilderOption) Camera {
	c := Camera{
		Speed:       DefaultSpeed,
		Sensitivity: DefaultSensitivity,
		PitchLimit:  DefaultPitchLimit,
	}
	for _, option := range options {
		option(&c)
	}
	c.Pitch = common.Clamp(c.Pitch, -c.PitchLimit, c.PitchLimit)
	return c
}

// Basis returns the camera's orthonormal viewing basis for the current yaw and pitch.
//
// Returns:
//   - forward: (cos p * sin y, sin p, -cos p * cos y)
//   - right: normalize(forward x world up)
//   - up: right x forward
func (c Camera) Basis() (forward, right, up mgl32.Vec3) {
	sy, cy := math32.Sincos(c.Yaw)
	sp, cp := math32.Sincos(c.Pitch)

	forward = mgl32.Vec3{cp * sy, sp, -cp * cy}
	right = forward.Cross(WorldUp).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

// Update applies one frame of mouse look and keyboard movement.
// Pitch is clamped after the mouse delta is applied. Movement directions are summed, normalized
// and scaled by Speed * deltaTime; Up and Down move along the world axis regardless of pitch.
//
// Parameters:
//   - deltaTime: elapsed time for this frame in seconds
//   - in: the movement keys held this frame
//   - mouseDX, mouseDY: mouse travel in pixels since the previous frame
func (c *Camera) Update(deltaTime float32, in MovementInput, mouseDX, mouseDY float32) {
	c.Yaw += mouseDX * c.Sensitivity
	c.Pitch = common.Clamp(c.Pitch-mouseDY*c.Sensitivity, -c.PitchLimit, c.PitchLimit)

	forward, right, _ := c.Basis()

	var move mgl32.Vec3
	if in.Forward {
		move = move.Add(forward)
	}
	if in.Back {
		move = move.Sub(forward)
	}
	if in.Right {
		move = move.Add(right)
	}
	if in.Left {
		move = move.Sub(right)
	}
	if in.Up {
		move = move.Add(WorldUp)
	}
	if in.Down {
		move = move.Sub(WorldUp)
	}

	if move.Len() > moveEpsilon {
		c.Position = c.Position.Add(move.Normalize().Mul(c.Speed * deltaTime))
	}
}
