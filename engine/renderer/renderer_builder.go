package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithTopology selects single-pass or two-pass rendering. Defaults to two-pass.
//
// Parameters:
//   - topology: the frame topology
//
// Returns:
//   - RendererBuilderOption: a function that applies the topology option to a renderer
func WithTopology(topology pipeline.Topology) RendererBuilderOption {
	return func(r *renderer) {
		r.topology = topology
	}
}

// WithPipelines replaces the default pipeline set. Two-pass needs exactly one compute and one render
// pipeline; single-pass needs exactly one render pipeline.
//
// Parameters:
//   - pipelines: the pipeline descriptions to build, in build order
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipelines option to a renderer
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelines = pipelines
	}
}

// WithShaderDir sets the directory the default pipelines load from. Defaults to "shaders".
//
// Parameters:
//   - dir: slash-separated directory relative to the file provider root
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader directory option to a renderer
func WithShaderDir(dir string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderDir = dir
	}
}

// WithClearColor sets the color cleared to before the display pass.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithWorkGroupSize pins the compute local size. The dispatch grid always follows the size the
// compute program declares; a pinned size that disagrees with it fails construction and reloads
// with ErrWorkGroupSize. It is used as-is when the backend cannot report the declared size. Zero is ignored.
//
// Parameters:
//   - size: the work group edge length in invocations along x and y
//
// Returns:
//   - RendererBuilderOption: a function that applies the work group size option to a renderer
func WithWorkGroupSize(size uint32) RendererBuilderOption {
	return func(r *renderer) {
		if size > 0 {
			r.workGroupSize = size
		}
	}
}

// WithShaderManager replaces the shader manager built from the backend and file provider.
func WithShaderManager(m shader.Manager) RendererBuilderOption {
	return func(r *renderer) {
		r.shaders = m
	}
}

// WithLogger sets the logger used for lifecycle and reload messages. Defaults to common.Logger().
func WithLogger(l *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = l
	}
}
