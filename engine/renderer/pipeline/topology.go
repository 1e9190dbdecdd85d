package pipeline

import (
	"fmt"
	"path"

	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
)

// Topology selects how a frame is produced.
type Topology int

const (
	// TopologyTwoPass raymarches in a compute program into an image, then samples that image in a display program.
	TopologyTwoPass Topology = iota
	// TopologySinglePass raymarches directly in the fragment stage of one program.
	TopologySinglePass
)

// Pipeline keys used by the default topologies.
const (
	KeyRaymarch = "raymarch"
	KeyDisplay  = "display"
)

func (t Topology) String() string {
	switch t {
	case TopologyTwoPass:
		return "two-pass"
	case TopologySinglePass:
		return "single-pass"
	}
	return fmt.Sprintf("Topology(%d)", int(t))
}

// ParseTopology maps a configuration name onto a Topology.
//
// Parameters:
//   - name: "two-pass" or "single-pass"
//
// Returns:
//   - Topology: the matching topology
//   - error: if the name is not recognised
func ParseTopology(name string) (Topology, error) {
	switch name {
	case "two-pass", "twopass", "compute":
		return TopologyTwoPass, nil
	case "single-pass", "singlepass", "fragment":
		return TopologySinglePass, nil
	}
	return 0, fmt.Errorf("unknown topology %q", name)
}

// DefaultPipelines returns the pipelines for a topology using the shader files shipped for a backend.
// Paths are joined onto dir with forward slashes so they work with both disk and fs.FS providers.
//
// Two-pass yields a compute pipeline keyed KeyRaymarch followed by a render pipeline keyed KeyDisplay.
// Single-pass yields one render pipeline keyed KeyRaymarch.
//
// Parameters:
//   - topology: the frame topology
//   - dir: the shader root directory
//   - backendType: which backend's shader dialect to load
//
// Returns:
//   - []Pipeline: the pipelines in build order
func DefaultPipelines(topology Topology, dir string, backendType backend.BackendType) []Pipeline {
	var (
		flavor  string
		ext     string
		compExt string
	)
	switch backendType {
	case backend.BackendTypeWebGPU:
		flavor, ext, compExt = "webgpu", ".wgsl", ".comp.wgsl"
	default:
		flavor, ext, compExt = "opengl", "", ".comp"
	}
	at := func(name string) string {
		return path.Join(dir, flavor, name)
	}

	vert := at("display.vert" + ext)
	if topology == TopologySinglePass {
		return []Pipeline{
			NewPipeline(KeyRaymarch, PipelineTypeRender,
				WithVertexShader(vert),
				WithFragmentShader(at("raymarch.frag"+ext)),
			),
		}
	}
	return []Pipeline{
		NewPipeline(KeyRaymarch, PipelineTypeCompute,
			WithComputeShader(at("raymarch"+compExt)),
		),
		NewPipeline(KeyDisplay, PipelineTypeRender,
			WithVertexShader(vert),
			WithFragmentShader(at("display.frag"+ext)),
		),
	}
}
