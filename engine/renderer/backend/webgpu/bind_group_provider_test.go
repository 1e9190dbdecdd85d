package webgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
		}},
	}
}

func TestNewBindGroupProviderFindsUniform(t *testing.T) {
	p, err := newBindGroupProvider("display", uniformDescriptors())
	require.NoError(t, err)
	assert.True(t, p.hasUniform)
	assert.Equal(t, uint32(0), p.uniformGroup)
	assert.Equal(t, uint32(0), p.uniformBinding)
	assert.Equal(t, []int{0}, p.groupIndices())
}

func TestNewBindGroupProviderRejectsSecondBuffer(t *testing.T) {
	desc := uniformDescriptors()
	desc[1] = wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
	}}
	_, err := newBindGroupProvider("display", desc)
	assert.ErrorContains(t, err, "only one uniform block")
}

func TestNewBindGroupProviderRejectsStorageBuffer(t *testing.T) {
	desc := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
		}},
	}
	_, err := newBindGroupProvider("raymarch", desc)
	assert.ErrorContains(t, err, "only uniform buffers")
}

func TestWriteFloats(t *testing.T) {
	p, err := newBindGroupProvider("raymarch", uniformDescriptors())
	require.NoError(t, err)
	p.staging = make([]byte, 80)

	p.writeFloats(16, 1, 2, 3)
	assert.True(t, p.dirty)
	for i, want := range []float32{1, 2, 3} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p.staging[16+i*4:]))
		assert.Equal(t, want, got)
	}

	p.dirty = false
	p.writeFloats(76, 1, 2)
	assert.False(t, p.dirty, "writes past the block are dropped")
	assert.Equal(t, make([]byte, 8), p.staging[72:80])
}

func TestForgetImage(t *testing.T) {
	p, err := newBindGroupProvider("display", uniformDescriptors())
	require.NoError(t, err)
	p.bindGroups[bindGroupKey{sampled: 3}] = []*wgpu.BindGroup{nil}
	p.bindGroups[bindGroupKey{sampled: 4}] = []*wgpu.BindGroup{nil}

	p.forgetImage(3)
	assert.NotContains(t, p.bindGroups, bindGroupKey{sampled: 3})
	assert.Contains(t, p.bindGroups, bindGroupKey{sampled: 4})
}
