package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
)

// Param is a parameter the raymarching shaders may declare.
type Param int

const (
	ParamResolution Param = iota
	ParamTime
	ParamCameraPos
	ParamCameraForward
	ParamCameraRight
	ParamCameraUp
	ParamImage

	paramCount
)

var paramNames = [paramCount]string{
	ParamResolution:    "resolution",
	ParamTime:          "time",
	ParamCameraPos:     "cameraPos",
	ParamCameraForward: "cameraForward",
	ParamCameraRight:   "cameraRight",
	ParamCameraUp:      "cameraUp",
	ParamImage:         "image",
}

// Name returns the identifier the shader source uses for the parameter.
func (p Param) Name() string {
	if p < 0 || p >= paramCount {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return paramNames[p]
}

// Params lists every known parameter.
func Params() []Param {
	out := make([]Param, paramCount)
	for i := range out {
		out[i] = Param(i)
	}
	return out
}

// Program is a linked backend program plus its parameter table.
// Locations are resolved once when the program is built and never re-queried.
// A Program is replaced rather than mutated, and released exactly once through the Manager.
type Program struct {
	key          string
	pipelineType pipeline.PipelineType
	handle       backend.Handle
	locations    [paramCount]backend.Location
	valid        bool
}

// Key returns the pipeline key the program was built from.
func (p *Program) Key() string { return p.key }

// Type returns whether the program is a compute or render program.
func (p *Program) Type() pipeline.PipelineType { return p.pipelineType }

// Handle returns the backend program handle, or the zero Handle after release.
func (p *Program) Handle() backend.Handle { return p.handle }

// Valid reports whether the program is linked and not yet released.
func (p *Program) Valid() bool { return p != nil && p.valid }

// Location returns the resolved slot of a parameter.
//
// Parameters:
//   - param: the parameter to look up
//
// Returns:
//   - backend.Location: the resolved slot, or backend.NoLocation
//   - bool: whether the program exposes the parameter
func (p *Program) Location(param Param) (backend.Location, bool) {
	if p == nil || param < 0 || param >= paramCount {
		return backend.NoLocation, false
	}
	loc := p.locations[param]
	return loc, loc != backend.NoLocation
}
