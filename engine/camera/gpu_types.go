package camera

import "github.com/go-gl/mathgl/mgl32"

// GPUCameraParams is the per-frame camera state uploaded to the raymarching shaders.
// Each field maps one-to-one onto a shader parameter of the same name.
type GPUCameraParams struct {
	Position mgl32.Vec3 // cameraPos
	Forward  mgl32.Vec3 // cameraForward
	Right    mgl32.Vec3 // cameraRight
	Up       mgl32.Vec3 // cameraUp
}

// GPUParams derives the shader camera parameters from the camera's current state.
//
// Returns:
//   - GPUCameraParams: the position and unit basis vectors
func (c Camera) GPUParams() GPUCameraParams {
	forward, right, up := c.Basis()
	return GPUCameraParams{
		Position: c.Position,
		Forward:  forward,
		Right:    right,
		Up:       up,
	}
}
