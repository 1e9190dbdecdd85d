// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "github.com/cogentcore/webgpu/wgpu"

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// DefaultClearColor is the dark blue-grey the display pass clears to before presenting the raymarched image.
var DefaultClearColor = Color{R: 0.1, G: 0.1, B: 0.15, A: 1.0}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero-valued fields are replaced with linear filtering and clamp-to-edge addressing when the sampler is created.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}
