package opengl

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/stretchr/testify/assert"
)

func TestTextureParams(t *testing.T) {
	tests := []struct {
		name string
		data common.SamplerStagingData
		want texParams
	}{
		{
			name: "linear clamped",
			data: common.SamplerStagingData{
				AddressModeU: wgpu.AddressModeClampToEdge,
				AddressModeV: wgpu.AddressModeClampToEdge,
				MagFilter:    wgpu.FilterModeLinear,
				MinFilter:    wgpu.FilterModeLinear,
			},
			want: defaultTexParams,
		},
		{
			name: "nearest mirrored",
			data: common.SamplerStagingData{
				AddressModeU: wgpu.AddressModeMirrorRepeat,
				AddressModeV: wgpu.AddressModeRepeat,
				MagFilter:    wgpu.FilterModeNearest,
				MinFilter:    wgpu.FilterModeNearest,
			},
			want: texParams{
				minFilter: gl.NEAREST,
				magFilter: gl.NEAREST,
				wrapS:     gl.MIRRORED_REPEAT,
				wrapT:     gl.REPEAT,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textureParams(tt.data))
		})
	}
}

func TestWithSampler(t *testing.T) {
	b := &openGLBackend{sampler: defaultTexParams}
	WithSampler(common.SamplerStagingData{MagFilter: wgpu.FilterModeNearest, MinFilter: wgpu.FilterModeNearest})(b)
	assert.Equal(t, int32(gl.NEAREST), b.sampler.magFilter)
	assert.Equal(t, int32(gl.REPEAT), b.sampler.wrapS)
}
