// Package backend defines the GPU resource provider the renderer drives.
//
// Every operation names the objects it acts on explicitly. Implementations must not rely on
// a "currently bound" program between calls: parameter uploads, dispatches and draws all carry
// the program handle they apply to.
package backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/go-gl/mathgl/mgl32"
)

// BackendType identifies a GPU API implementation.
type BackendType int

const (
	// BackendTypeOpenGL selects the OpenGL 4.3 core profile backend.
	BackendTypeOpenGL BackendType = iota
	// BackendTypeWebGPU selects the WebGPU backend.
	BackendTypeWebGPU
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeOpenGL:
		return "opengl"
	case BackendTypeWebGPU:
		return "webgpu"
	}
	return fmt.Sprintf("BackendType(%d)", int(t))
}

// ParseBackendType maps a configuration name onto a BackendType.
//
// Parameters:
//   - name: "opengl" or "webgpu"
//
// Returns:
//   - BackendType: the matching backend
//   - error: if the name is not recognised
func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "opengl", "gl":
		return BackendTypeOpenGL, nil
	case "webgpu", "wgpu":
		return BackendTypeWebGPU, nil
	}
	return 0, fmt.Errorf("unknown backend %q", name)
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ShaderType identifies a programmable pipeline stage.
type ShaderType int

const (
	ShaderTypeVertex ShaderType = iota
	ShaderTypeFragment
	ShaderTypeCompute
)

func (s ShaderType) String() string {
	switch s {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	case ShaderTypeCompute:
		return "compute"
	}
	return fmt.Sprintf("ShaderType(%d)", int(s))
}

// Handle is an opaque reference to a backend object. The zero Handle never refers to a live object.
type Handle uint32

// Valid reports whether h may refer to a live object.
func (h Handle) Valid() bool { return h != 0 }

// Location is a resolved program parameter slot. Its meaning is backend specific
// (a uniform location, a byte offset, a binding index).
type Location int32

// NoLocation marks a parameter that the program does not expose.
const NoLocation Location = -1

// Barrier selects which prior shader writes must be visible to later commands.
type Barrier int

const (
	// BarrierImageAccess makes image stores from a dispatch visible to later image reads and samples.
	BarrierImageAccess Barrier = iota
)

// QuadVertices is the full-screen quad in normalized device coordinates, ordered for a triangle strip.
var QuadVertices = []float32{
	-1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

// Backend creates and destroys GPU objects and records the commands of one frame.
// All calls must come from the goroutine that owns the GPU context.
type Backend interface {
	// Type returns the GPU API this backend implements.
	Type() BackendType

	// CreateShader creates a shader object for one stage from source text and attempts to compile it.
	// A compile failure is not reported here: the handle is still returned and ShaderStatus reports the outcome.
	//
	// Parameters:
	//   - shaderType: the pipeline stage
	//   - label: a human-readable name used in diagnostics
	//   - source: the shader source text
	//
	// Returns:
	//   - Handle: the shader object
	//   - error: if the object itself could not be created
	CreateShader(shaderType ShaderType, label, source string) (Handle, error)

	// ShaderStatus reports whether a shader compiled and returns the compiler's log verbatim.
	ShaderStatus(shader Handle) (compiled bool, log string)

	// DeleteShader releases a shader object. Unknown handles are ignored.
	DeleteShader(shader Handle)

	// CreateProgram links compiled shaders into a program. Like CreateShader, a link failure is reported
	// through ProgramStatus rather than the returned error.
	//
	// Parameters:
	//   - label: a human-readable name used in diagnostics
	//   - shaders: the stage shaders to link
	//
	// Returns:
	//   - Handle: the program object
	//   - error: if the object itself could not be created
	CreateProgram(label string, shaders ...Handle) (Handle, error)

	// ProgramStatus reports whether a program linked and returns the linker's log verbatim.
	ProgramStatus(program Handle) (linked bool, log string)

	// DeleteProgram releases a program object. Unknown handles are ignored.
	DeleteProgram(program Handle)

	// ParamLocation resolves a named program parameter.
	//
	// Returns:
	//   - Location: the resolved slot, or NoLocation
	//   - bool: whether the program exposes the parameter
	ParamLocation(program Handle, name string) (Location, bool)

	// WorkGroupSize reports the local work group size a linked compute program declares.
	//
	// Returns:
	//   - [3]uint32: the x, y and z invocation counts
	//   - bool: false for render programs and unknown or unlinked handles
	WorkGroupSize(program Handle) ([3]uint32, bool)

	// CreateImage creates a width x height RGBA8 image that compute programs can store to and
	// display programs can sample through the backend's configured sampler.
	CreateImage(width, height int) (Handle, error)

	// DeleteImage releases an image. Unknown handles are ignored.
	DeleteImage(image Handle)

	// CreateQuad uploads 2D vertex positions drawn later as a triangle strip.
	CreateQuad(vertices []float32) (Handle, error)

	// DeleteQuad releases a quad. Unknown handles are ignored.
	DeleteQuad(quad Handle)

	// ResizeSurface informs the backend that the presentation surface changed size.
	ResizeSurface(width, height int) error

	// BeginFrame starts recording a frame.
	BeginFrame() error

	// SetFloat, SetVec2 and SetVec3 set a parameter value on the given program.
	// Values persist on the program until overwritten. A NoLocation is ignored.
	SetFloat(program Handle, loc Location, v float32)
	SetVec2(program Handle, loc Location, v mgl32.Vec2)
	SetVec3(program Handle, loc Location, v mgl32.Vec3)

	// DispatchCompute runs a compute program over a grid of work groups with image bound as its storage image.
	DispatchCompute(program, image Handle, groups [3]uint32)

	// MemoryBarrier orders the preceding writes before subsequent reads of the given kind.
	MemoryBarrier(barrier Barrier)

	// Clear clears the presentation target to a color.
	Clear(color common.Color)

	// Viewport sets the rectangle later draws render into, in pixels.
	Viewport(x, y, width, height int)

	// BindSampledImage binds image to the sampler parameter at loc of program.
	BindSampledImage(program Handle, loc Location, image Handle)

	// DrawQuad draws quad as a triangle strip with program.
	DrawQuad(program, quad Handle)

	// EndFrame submits the recorded frame.
	EndFrame() error

	// Release destroys every object the backend still owns.
	Release()
}
