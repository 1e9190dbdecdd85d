package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupKey identifies one combination of images bound to a program.
type bindGroupKey struct {
	storage, sampled uint32
}

// bindGroupProvider owns the GPU resources a single program binds: its bind group layouts,
// the uniform buffer backing its parameter block and the bind groups built for each image
// combination it has been used with.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// layouts holds one bind group layout per group index; gaps are nil.
	layouts []*wgpu.BindGroupLayout
	// descriptors are the merged layout descriptors the layouts were created from.
	descriptors map[int]wgpu.BindGroupLayoutDescriptor

	// uniformBinding locates the parameter block, if the program declares one.
	uniformGroup, uniformBinding uint32
	hasUniform                   bool
	// buffer is the GPU uniform buffer and staging its CPU-side copy.
	buffer  *wgpu.Buffer
	staging []byte
	dirty   bool

	// bindGroups caches one bind group set per image combination.
	bindGroups map[bindGroupKey][]*wgpu.BindGroup
}

// newBindGroupProvider creates a provider for the given merged layout descriptors.
//
// Parameters:
//   - label: a debug label
//   - descriptors: the merged bind group layout descriptors keyed by group index
//
// Returns:
//   - *bindGroupProvider: the provider
//   - error: if the program declares more than one buffer binding
func newBindGroupProvider(label string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*bindGroupProvider, error) {
	p := &bindGroupProvider{
		label:       label,
		descriptors: descriptors,
		bindGroups:  make(map[bindGroupKey][]*wgpu.BindGroup),
	}
	for g, desc := range descriptors {
		for _, e := range desc.Entries {
			if e.Buffer.Type == wgpu.BufferBindingTypeUndefined {
				continue
			}
			if e.Buffer.Type != wgpu.BufferBindingTypeUniform {
				return nil, fmt.Errorf("binding (%d, %d): only uniform buffers are supported", g, e.Binding)
			}
			if p.hasUniform {
				return nil, fmt.Errorf("binding (%d, %d): only one uniform block is supported", g, e.Binding)
			}
			p.uniformGroup, p.uniformBinding, p.hasUniform = uint32(g), e.Binding, true
		}
	}
	return p, nil
}

// groupIndices returns the declared group indices in ascending order.
func (p *bindGroupProvider) groupIndices() []int {
	groups := make([]int, 0, len(p.descriptors))
	for g := range p.descriptors {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	return groups
}

// initLayouts creates the bind group layouts on the device.
func (p *bindGroupProvider) initLayouts(device *wgpu.Device) error {
	maxGroup := -1
	for g := range p.descriptors {
		maxGroup = max(maxGroup, g)
	}
	p.layouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for _, g := range p.groupIndices() {
		desc := p.descriptors[g]
		desc.Label = fmt.Sprintf("%s Group %d", p.label, g)
		layout, err := device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		p.layouts[g] = layout
	}
	// WebGPU requires a layout for every index below the highest one in use.
	for g, layout := range p.layouts {
		if layout != nil {
			continue
		}
		empty, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s Group %d", p.label, g)})
		if err != nil {
			return fmt.Errorf("failed to create empty bind group layout for group %d: %w", g, err)
		}
		p.layouts[g] = empty
	}
	return nil
}

// initUniform creates the uniform buffer and its zeroed staging copy.
func (p *bindGroupProvider) initUniform(device *wgpu.Device, size uint64) error {
	if !p.hasUniform || size == 0 {
		return nil
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.label + " Uniform Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	p.buffer = buf
	p.staging = make([]byte, size)
	p.dirty = true
	return nil
}

// writeFloats stores values little-endian into the staging block at offset.
// Writes that would run past the end of the block are dropped.
func (p *bindGroupProvider) writeFloats(offset uint64, values ...float32) {
	end := offset + uint64(len(values))*4
	if p.staging == nil || end > uint64(len(p.staging)) {
		return
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(p.staging[offset+uint64(i)*4:], math.Float32bits(v))
	}
	p.dirty = true
}

// flush uploads the staging block if it changed since the last upload.
func (p *bindGroupProvider) flush(queue *wgpu.Queue) {
	if !p.dirty || p.buffer == nil {
		return
	}
	queue.WriteBuffer(p.buffer, 0, p.staging)
	p.dirty = false
}

// bindGroupsFor returns the bind groups binding storage as the storage image and sampled as
// the sampled image, creating and caching them on first use.
//
// Parameters:
//   - device: the device to create bind groups on
//   - key: the image handles used as the cache key
//   - storage, sampled: the image views, nil when not bound
//   - sampler: the sampler bound to every sampler slot
//
// Returns:
//   - []*wgpu.BindGroup: one bind group per group index
//   - error: if a declared resource has nothing bound to it
func (p *bindGroupProvider) bindGroupsFor(device *wgpu.Device, key bindGroupKey, storage, sampled *wgpu.TextureView, sampler *wgpu.Sampler) ([]*wgpu.BindGroup, error) {
	if cached, ok := p.bindGroups[key]; ok {
		return cached, nil
	}

	groups := make([]*wgpu.BindGroup, len(p.layouts))
	for g, layout := range p.layouts {
		desc := p.descriptors[g]
		entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
		for _, entry := range desc.Entries {
			switch {
			case entry.Buffer.Type != wgpu.BufferBindingTypeUndefined:
				entries = append(entries, wgpu.BindGroupEntry{
					Binding: entry.Binding,
					Buffer:  p.buffer,
					Offset:  0,
					Size:    wgpu.WholeSize,
				})
			case entry.StorageTexture.Format != wgpu.TextureFormatUndefined:
				if storage == nil {
					releaseBindGroups(groups)
					return nil, fmt.Errorf("storage image binding (%d, %d) has no image bound", g, entry.Binding)
				}
				entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: storage})
			case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
				if sampled == nil {
					releaseBindGroups(groups)
					return nil, fmt.Errorf("sampled image binding (%d, %d) has no image bound", g, entry.Binding)
				}
				entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: sampled})
			case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
				entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: sampler})
			}
		}

		bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s Bind Group %d", p.label, g),
			Layout:  layout,
			Entries: entries,
		})
		if err != nil {
			releaseBindGroups(groups)
			return nil, err
		}
		groups[g] = bg
	}

	p.bindGroups[key] = groups
	return groups, nil
}

// forgetImage drops every cached bind group that references image.
func (p *bindGroupProvider) forgetImage(image uint32) {
	for key, groups := range p.bindGroups {
		if key.storage == image || key.sampled == image {
			releaseBindGroups(groups)
			delete(p.bindGroups, key)
		}
	}
}

// Release releases every GPU resource held by this provider.
func (p *bindGroupProvider) Release() {
	for key, groups := range p.bindGroups {
		releaseBindGroups(groups)
		delete(p.bindGroups, key)
	}
	if p.buffer != nil {
		p.buffer.Release()
		p.buffer = nil
	}
	for _, layout := range p.layouts {
		if layout != nil {
			layout.Release()
		}
	}
	p.layouts = nil
}

func releaseBindGroups(groups []*wgpu.BindGroup) {
	for _, bg := range groups {
		if bg != nil {
			bg.Release()
		}
	}
}
