package webgpu

import (
	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultSamplerData samples the intermediate image with linear filtering and clamped edges.
var DefaultSamplerData = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
}

// BackendOption is a functional option for configuring the WebGPU backend.
type BackendOption func(b *webGPUBackend)

// WithSampler sets the sampler the display program reads the intermediate image through.
//
// Parameters:
//   - data: the sampler configuration; zero LodMaxClamp and MaxAnisotropy fall back to 32 and 1
//
// Returns:
//   - BackendOption: option function to apply
func WithSampler(data common.SamplerStagingData) BackendOption {
	return func(b *webGPUBackend) {
		b.samplerData = data
	}
}

// samplerDescriptor converts staged sampler settings into a wgpu descriptor.
func samplerDescriptor(label string, data common.SamplerStagingData) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  data.AddressModeU,
		AddressModeV:  data.AddressModeV,
		AddressModeW:  data.AddressModeW,
		MagFilter:     data.MagFilter,
		MinFilter:     data.MinFilter,
		MipmapFilter:  data.MipmapFilter,
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	}
}
