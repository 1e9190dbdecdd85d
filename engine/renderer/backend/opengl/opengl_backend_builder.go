package opengl

import (
	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// BackendOption is a functional option for configuring the OpenGL backend.
type BackendOption func(b *openGLBackend)

// WithSampler sets the filtering and wrapping of every image the backend creates.
// Only the address and filter modes apply; GL images carry a single mip level.
//
// Parameters:
//   - data: the sampler configuration
//
// Returns:
//   - BackendOption: option function to apply
func WithSampler(data common.SamplerStagingData) BackendOption {
	return func(b *openGLBackend) {
		b.sampler = textureParams(data)
	}
}

// texParams are the GL texture parameters derived from staged sampler settings.
type texParams struct {
	minFilter, magFilter int32
	wrapS, wrapT         int32
}

var defaultTexParams = texParams{
	minFilter: gl.LINEAR,
	magFilter: gl.LINEAR,
	wrapS:     gl.CLAMP_TO_EDGE,
	wrapT:     gl.CLAMP_TO_EDGE,
}

func textureParams(data common.SamplerStagingData) texParams {
	return texParams{
		minFilter: glFilter(data.MinFilter),
		magFilter: glFilter(data.MagFilter),
		wrapS:     glWrap(data.AddressModeU),
		wrapT:     glWrap(data.AddressModeV),
	}
}

func glFilter(mode wgpu.FilterMode) int32 {
	if mode == wgpu.FilterModeNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glWrap(mode wgpu.AddressMode) int32 {
	switch mode {
	case wgpu.AddressModeMirrorRepeat:
		return gl.MIRRORED_REPEAT
	case wgpu.AddressModeClampToEdge:
		return gl.CLAMP_TO_EDGE
	default:
		return gl.REPEAT
	}
}
