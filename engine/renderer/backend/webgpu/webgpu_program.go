package webgpu

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// quadVertexLayout describes the 2D position stream CreateQuad uploads.
var quadVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: 8,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
	},
}

// programInterface is what a linked program exposes to the host, derived from its stage sources.
type programInterface struct {
	// params maps uniform struct members to their placement in the uniform block.
	params map[string]fieldSlot
	// uniformSize is the size of the uniform block, 0 if there is none.
	uniformSize uint64
	// images maps handle-typed variables to their binding index.
	images map[string]uint32
	// descriptors are the bind group layouts merged across stages.
	descriptors map[int]wgpu.BindGroupLayoutDescriptor
}

// validateWGSL runs the source through the naga front end and returns its diagnostics.
// Sources that use features naga does not implement yet are accepted and left to the driver.
//
// Parameters:
//   - source: pre-processed WGSL
//
// Returns:
//   - bool: false if naga rejected the source
//   - string: the diagnostics, empty on success
func validateWGSL(source string) (bool, string) {
	if _, err := naga.Compile(source); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			common.Logger().Debug("WGSL validation skipped", "reason", msg)
			return true, ""
		}
		return false, msg
	}
	return true, ""
}

// stageVisibility maps a shader stage onto its bind group visibility flag.
func stageVisibility(stage backend.ShaderType) wgpu.ShaderStage {
	switch stage {
	case backend.ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case backend.ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageCompute
	}
}

// reflectProgram derives the host-visible interface of a program from the sources of its stages.
//
// Parameters:
//   - stages: the compiled stage records in link order
//
// Returns:
//   - programInterface: the parameters, images and bind group layouts of the program
//   - error: if the uniform block type cannot be laid out or stages disagree on it
func reflectProgram(stages []*shaderRecord) (programInterface, error) {
	pi := programInterface{
		params:      make(map[string]fieldSlot),
		images:      make(map[string]uint32),
		descriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
	}

	for _, s := range stages {
		pi.descriptors = mergeBindGroupLayouts(pi.descriptors, parseBindGroupLayouts(s.source, stageVisibility(s.stage)))

		for _, decl := range parseResources(s.source) {
			switch {
			case decl.addressSpace == "uniform":
				slots, size, ok := structFieldSlots(s.source, decl.typeName)
				if !ok {
					return pi, fmt.Errorf("%s: cannot lay out uniform %q of type %s", s.label, decl.name, decl.typeName)
				}
				if pi.uniformSize != 0 && pi.uniformSize != size {
					return pi, fmt.Errorf("%s: uniform %q is %d bytes, another stage declares %d", s.label, decl.name, size, pi.uniformSize)
				}
				pi.uniformSize = size
				for name, slot := range slots {
					pi.params[name] = slot
				}
			case strings.HasPrefix(decl.typeName, "texture_"):
				pi.images[decl.name] = decl.binding
			}
		}
	}
	return pi, nil
}

func (b *webGPUBackend) CreateShader(shaderType backend.ShaderType, label, source string) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch shaderType {
	case backend.ShaderTypeVertex, backend.ShaderTypeFragment, backend.ShaderTypeCompute:
	default:
		return 0, fmt.Errorf("unsupported shader type %v", shaderType)
	}

	rec := &shaderRecord{stage: shaderType, label: label}
	h := b.allocHandle()
	b.shaders[h] = rec

	processed, err := b.preProcessor.Process(source)
	if err != nil {
		rec.log = err.Error()
		return h, nil
	}
	rec.source = processed

	if ok, log := validateWGSL(processed); !ok {
		rec.log = log
		return h, nil
	}
	if parseEntryPoint(processed, shaderType) == "" {
		rec.log = fmt.Sprintf("no @%s entry point", shaderType)
		return h, nil
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: processed,
		},
	})
	if err != nil {
		rec.log = err.Error()
		return h, nil
	}
	rec.module = module
	rec.compiled = true
	return h, nil
}

func (b *webGPUBackend) ShaderStatus(shader backend.Handle) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.shaders[shader]
	if !ok {
		return false, "unknown shader"
	}
	return rec.compiled, rec.log
}

func (b *webGPUBackend) DeleteShader(shader backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.shaders[shader]
	if !ok {
		return
	}
	if rec.module != nil {
		rec.module.Release()
	}
	delete(b.shaders, shader)
}

func (b *webGPUBackend) CreateProgram(label string, shaders ...backend.Handle) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := &programRecord{label: label}
	h := b.allocHandle()
	b.programs[h] = p

	if err := b.link(p, shaders); err != nil {
		p.log = err.Error()
		b.releaseProgram(p)
		return h, nil
	}
	p.linked = true
	return h, nil
}

// link builds the pipeline for p from the given shader handles.
func (b *webGPUBackend) link(p *programRecord, shaders []backend.Handle) error {
	stages := make(map[backend.ShaderType]*shaderRecord, len(shaders))
	ordered := make([]*shaderRecord, 0, len(shaders))
	for _, h := range shaders {
		rec, ok := b.shaders[h]
		if !ok {
			return fmt.Errorf("unknown shader %d", h)
		}
		if !rec.compiled {
			return fmt.Errorf("shader %q is not compiled", rec.label)
		}
		if _, dup := stages[rec.stage]; dup {
			return fmt.Errorf("more than one %s shader", rec.stage)
		}
		stages[rec.stage] = rec
		ordered = append(ordered, rec)
	}

	compute, hasCompute := stages[backend.ShaderTypeCompute]
	vertex, hasVertex := stages[backend.ShaderTypeVertex]
	fragment, hasFragment := stages[backend.ShaderTypeFragment]
	switch {
	case hasCompute && len(stages) == 1:
		p.compute = true
	case hasVertex && hasFragment && len(stages) == 2:
	default:
		return fmt.Errorf("a program needs one compute shader or a vertex and a fragment shader")
	}

	pi, err := reflectProgram(ordered)
	if err != nil {
		return err
	}
	p.params = pi.params
	p.images = pi.images

	p.resources, err = newBindGroupProvider(p.label, pi.descriptors)
	if err != nil {
		return err
	}
	if err := p.resources.initLayouts(b.device); err != nil {
		return err
	}
	if err := p.resources.initUniform(b.device, pi.uniformSize); err != nil {
		return err
	}

	p.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.label,
		BindGroupLayouts: p.resources.layouts,
	})
	if err != nil {
		return err
	}

	if p.compute {
		p.computePipeline, err = b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  p.label + " Compute Pipeline",
			Layout: p.pipelineLayout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     compute.module,
				EntryPoint: parseEntryPoint(compute.source, backend.ShaderTypeCompute),
			},
		})
		if err != nil {
			return err
		}
		p.workGroupSize = parseWorkgroupSize(compute.source)
		common.Logger().Debug("compute program linked",
			"program", p.label,
			"workgroupSize", p.workGroupSize,
		)
		return nil
	}

	p.renderPipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.label + " Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vertex.module,
			EntryPoint: parseEntryPoint(vertex.source, backend.ShaderTypeVertex),
			Buffers:    []wgpu.VertexBufferLayout{quadVertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragment.module,
			EntryPoint: parseEntryPoint(fragment.source, backend.ShaderTypeFragment),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	return err
}

func (b *webGPUBackend) ProgramStatus(program backend.Handle) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.programs[program]
	if !ok {
		return false, "unknown program"
	}
	return p.linked, p.log
}

func (b *webGPUBackend) DeleteProgram(program backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.programs[program]
	if !ok {
		return
	}
	b.releaseProgram(p)
	delete(b.programs, program)
}

func (b *webGPUBackend) releaseProgram(p *programRecord) {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.resources != nil {
		p.resources.Release()
		p.resources = nil
	}
}

func (b *webGPUBackend) WorkGroupSize(program backend.Handle) ([3]uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.programs[program]
	if !ok || !p.linked || !p.compute {
		return [3]uint32{}, false
	}
	return p.workGroupSize, true
}

// ParamLocation resolves uniform members to their byte offset and images to their binding index.
func (b *webGPUBackend) ParamLocation(program backend.Handle, name string) (backend.Location, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.programs[program]
	if !ok || !p.linked {
		return backend.NoLocation, false
	}
	if slot, ok := p.params[name]; ok {
		return backend.Location(slot.offset), true
	}
	if binding, ok := p.images[name]; ok {
		return backend.Location(binding), true
	}
	return backend.NoLocation, false
}
