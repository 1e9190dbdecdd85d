package pipeline

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader source path for this pipeline.
//
// Parameters:
//   - path: the vertex shader source path
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(path string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = path
	}
}

// WithFragmentShader sets the fragment shader source path for this pipeline.
//
// Parameters:
//   - path: the fragment shader source path
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(path string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = path
	}
}

// WithComputeShader sets the compute shader source path for this pipeline.
//
// Parameters:
//   - path: the compute shader source path
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute shader for this pipeline
func WithComputeShader(path string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = path
	}
}
