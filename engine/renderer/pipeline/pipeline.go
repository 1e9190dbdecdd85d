package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader stage.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader stages.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeCompute:
		return "compute"
	case PipelineTypeRender:
		return "render"
	}
	return fmt.Sprintf("PipelineType(%d)", int(t))
}

// Stage pairs a shader stage with the path its source is read from.
type Stage struct {
	Type backend.ShaderType
	Path string
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for lookups and diagnostics
	pipelineKey string

	// source paths per stage, relative to the shader file provider root
	vertexShader, fragmentShader, computeShader string
}

// Pipeline describes one GPU program: which stages it has and where their sources live.
// It is a pure description; building it into a program is the shader manager's job, so the
// same description can be rebuilt on every shader reload.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// ShaderPath returns the source path configured for a stage, or "" if the stage is not set.
	//
	// Parameters:
	//   - shaderType: the stage to look up
	//
	// Returns:
	//   - string: the source path
	ShaderPath(shaderType backend.ShaderType) string

	// Stages returns the configured stages in compile order: compute for compute pipelines,
	// vertex then fragment for render pipelines.
	//
	// Returns:
	//   - []Stage: the stages
	Stages() []Stage

	// Validate checks that the stages required by the pipeline type are present and no others.
	Validate() error
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) ShaderPath(shaderType backend.ShaderType) string {
	switch shaderType {
	case backend.ShaderTypeVertex:
		return p.vertexShader
	case backend.ShaderTypeFragment:
		return p.fragmentShader
	case backend.ShaderTypeCompute:
		return p.computeShader
	default:
		return ""
	}
}

func (p *pipeline) Stages() []Stage {
	switch p.pipelineType {
	case PipelineTypeCompute:
		return []Stage{{Type: backend.ShaderTypeCompute, Path: p.computeShader}}
	case PipelineTypeRender:
		return []Stage{
			{Type: backend.ShaderTypeVertex, Path: p.vertexShader},
			{Type: backend.ShaderTypeFragment, Path: p.fragmentShader},
		}
	default:
		return nil
	}
}

func (p *pipeline) Validate() error {
	switch p.pipelineType {
	case PipelineTypeCompute:
		if p.computeShader == "" {
			return fmt.Errorf("pipeline %q: compute pipeline requires a compute shader", p.pipelineKey)
		}
		if p.vertexShader != "" || p.fragmentShader != "" {
			return fmt.Errorf("pipeline %q: compute pipeline cannot have vertex or fragment shaders", p.pipelineKey)
		}
	case PipelineTypeRender:
		if p.vertexShader == "" || p.fragmentShader == "" {
			return fmt.Errorf("pipeline %q: render pipeline requires vertex and fragment shaders", p.pipelineKey)
		}
		if p.computeShader != "" {
			return fmt.Errorf("pipeline %q: render pipeline cannot have a compute shader", p.pipelineKey)
		}
	default:
		return fmt.Errorf("pipeline %q: unknown pipeline type %v", p.pipelineKey, p.pipelineType)
	}
	return nil
}
