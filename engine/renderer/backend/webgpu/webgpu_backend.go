// Package webgpu implements backend.Backend on WebGPU through wgpu-native.
//
// Programs expose their per-frame parameters as members of a single uniform struct (see the
// frame_params include) plus handle-typed image bindings. Parameter locations are byte offsets
// into that struct for uniform members and binding indices for images.
package webgpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// imageFormat is the texel format of every image the backend creates.
const imageFormat = wgpu.TextureFormatRGBA8Unorm

type shaderRecord struct {
	stage    backend.ShaderType
	label    string
	source   string
	module   *wgpu.ShaderModule
	compiled bool
	log      string
}

type programRecord struct {
	label   string
	compute bool
	linked  bool
	log     string

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline
	pipelineLayout  *wgpu.PipelineLayout
	resources       *bindGroupProvider

	// params maps uniform struct members to their placement.
	params map[string]fieldSlot
	// images maps handle-typed variable names to their binding index.
	images map[string]uint32
	// workGroupSize is the @workgroup_size of a compute program.
	workGroupSize [3]uint32
	// sampled is the image last bound with BindSampledImage.
	sampled backend.Handle
}

type imageRecord struct {
	texture       *wgpu.Texture
	view          *wgpu.TextureView
	width, height int
}

type quadRecord struct {
	buffer      *wgpu.Buffer
	vertexCount uint32
}

// webGPUBackend is the WebGPU implementation of backend.Backend.
type webGPUBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width, height int

	preProcessor *preProcessor
	samplerData  common.SamplerStagingData
	sampler      *wgpu.Sampler

	nextHandle backend.Handle
	shaders    map[backend.Handle]*shaderRecord
	programs   map[backend.Handle]*programRecord
	images     map[backend.Handle]*imageRecord
	quads      map[backend.Handle]*quadRecord

	// per-frame state, valid between BeginFrame and EndFrame
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	framePass    *wgpu.RenderPassEncoder
	clearPending bool
	clearColor   wgpu.Color
	viewport     [4]float32
	frameErr     error
}

var _ backend.Backend = &webGPUBackend{}

// ErrNoFrame is recorded when a command is issued outside BeginFrame/EndFrame.
var ErrNoFrame = errors.New("webgpu: no frame in progress")

// New creates a WebGPU device for the given window surface and configures the surface.
//
// Parameters:
//   - surfaceDescriptor: the platform surface of the window to present to
//   - presentMode: vsync or uncapped presentation
//   - width, height: the initial surface size in pixels
//   - options: variadic list of BackendOption functions to configure the backend
//
// Returns:
//   - backend.Backend: the backend
//   - error: if no adapter or device could be acquired
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, presentMode backend.PresentMode, width, height int, options ...BackendOption) (backend.Backend, error) {
	runtime.LockOSThread()

	b := &webGPUBackend{
		mu:           &sync.Mutex{},
		instance:     wgpu.CreateInstance(nil),
		preProcessor: newPreProcessor(),
		shaders:      make(map[backend.Handle]*shaderRecord),
		programs:     make(map[backend.Handle]*programRecord),
		images:       make(map[backend.Handle]*imageRecord),
		quads:        make(map[backend.Handle]*quadRecord),
		samplerData:  DefaultSamplerData,
	}
	for _, opt := range options {
		opt(b)
	}
	b.setPresentMode(presentMode)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Raymarch Device"})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.sampler, err = device.CreateSampler(samplerDescriptor("Image Sampler", b.samplerData))
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	if err := b.ResizeSurface(width, height); err != nil {
		b.Release()
		return nil, err
	}

	common.Logger().Info("WebGPU backend ready",
		"format", b.surfaceFormat,
		"width", width,
		"height", height,
	)
	return b, nil
}

func (b *webGPUBackend) Type() backend.BackendType {
	return backend.BackendTypeWebGPU
}

func (b *webGPUBackend) setPresentMode(mode backend.PresentMode) {
	switch mode {
	case backend.PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case backend.PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *webGPUBackend) allocHandle() backend.Handle {
	b.nextHandle++
	return b.nextHandle
}

// ResizeSurface reconfigures the swapchain. A zero-sized surface is left unconfigured.
func (b *webGPUBackend) ResizeSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = width, height
	return nil
}

func (b *webGPUBackend) CreateImage(width, height int) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     fmt.Sprintf("Raymarch Image %dx%d", width, height),
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        imageFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, err
	}

	h := b.allocHandle()
	b.images[h] = &imageRecord{texture: tex, view: view, width: width, height: height}
	return h, nil
}

func (b *webGPUBackend) DeleteImage(image backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	img, ok := b.images[image]
	if !ok {
		return
	}
	for _, p := range b.programs {
		if p.resources != nil {
			p.resources.forgetImage(uint32(image))
		}
		if p.sampled == image {
			p.sampled = 0
		}
	}
	img.view.Release()
	img.texture.Release()
	delete(b.images, image)
}

func (b *webGPUBackend) CreateQuad(vertices []float32) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertices) == 0 || len(vertices)%2 != 0 {
		return 0, fmt.Errorf("quad needs 2D vertices, got %d floats", len(vertices))
	}

	data := common.SliceToBytes(vertices)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "Quad Vertex Buffer",
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return 0, err
	}
	b.queue.WriteBuffer(buf, 0, data)

	h := b.allocHandle()
	b.quads[h] = &quadRecord{buffer: buf, vertexCount: uint32(len(vertices) / 2)}
	return h, nil
}

func (b *webGPUBackend) DeleteQuad(quad backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.quads[quad]
	if !ok {
		return
	}
	q.buffer.Release()
	delete(b.quads, quad)
}

func (b *webGPUBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.framePass = nil
	b.clearPending = false
	b.viewport = [4]float32{0, 0, float32(b.width), float32(b.height)}
	b.frameErr = nil
	return nil
}

func (b *webGPUBackend) SetFloat(program backend.Handle, loc backend.Location, v float32) {
	b.writeParam(program, loc, v)
}

func (b *webGPUBackend) SetVec2(program backend.Handle, loc backend.Location, v mgl32.Vec2) {
	b.writeParam(program, loc, v[0], v[1])
}

func (b *webGPUBackend) SetVec3(program backend.Handle, loc backend.Location, v mgl32.Vec3) {
	b.writeParam(program, loc, v[0], v[1], v[2])
}

func (b *webGPUBackend) writeParam(program backend.Handle, loc backend.Location, values ...float32) {
	if loc == backend.NoLocation {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.programs[program]
	if !ok || p.resources == nil {
		return
	}
	p.resources.writeFloats(uint64(loc), values...)
}

func (b *webGPUBackend) DispatchCompute(program, image backend.Handle, groups [3]uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		b.recordErr(ErrNoFrame)
		return
	}
	p, ok := b.programs[program]
	if !ok || p.computePipeline == nil {
		b.recordErr(fmt.Errorf("dispatch: program %d is not a linked compute program", program))
		return
	}
	img, ok := b.images[image]
	if !ok {
		b.recordErr(fmt.Errorf("dispatch: unknown image %d", image))
		return
	}

	bindGroups, err := p.resources.bindGroupsFor(b.device, bindGroupKey{storage: uint32(image)}, img.view, nil, b.sampler)
	if err != nil {
		b.recordErr(fmt.Errorf("dispatch %s: %w", p.label, err))
		return
	}
	p.resources.flush(b.queue)

	// compute work cannot run inside a render pass
	b.endRenderPass()

	pass := b.frameEncoder.BeginComputePass(nil)
	pass.SetPipeline(p.computePipeline)
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	pass.End()
}

// MemoryBarrier is a no-op: WebGPU orders storage writes before later passes that sample them.
func (b *webGPUBackend) MemoryBarrier(barrier backend.Barrier) {}

// Clear makes the next render pass clear its target to color.
func (b *webGPUBackend) Clear(color common.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.endRenderPass()
	b.clearPending = true
	b.clearColor = wgpu.Color{
		R: float64(color.R),
		G: float64(color.G),
		B: float64(color.B),
		A: float64(color.A),
	}
}

func (b *webGPUBackend) Viewport(x, y, width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.viewport = [4]float32{float32(x), float32(y), float32(width), float32(height)}
	if b.framePass != nil {
		b.framePass.SetViewport(b.viewport[0], b.viewport[1], b.viewport[2], b.viewport[3], 0, 1)
	}
}

func (b *webGPUBackend) BindSampledImage(program backend.Handle, loc backend.Location, image backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.programs[program]; ok {
		p.sampled = image
	}
}

func (b *webGPUBackend) DrawQuad(program, quad backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		b.recordErr(ErrNoFrame)
		return
	}
	p, ok := b.programs[program]
	if !ok || p.renderPipeline == nil {
		b.recordErr(fmt.Errorf("draw: program %d is not a linked render program", program))
		return
	}
	q, ok := b.quads[quad]
	if !ok {
		b.recordErr(fmt.Errorf("draw: unknown quad %d", quad))
		return
	}

	var sampledView *wgpu.TextureView
	if img, ok := b.images[p.sampled]; ok {
		sampledView = img.view
	}
	bindGroups, err := p.resources.bindGroupsFor(b.device, bindGroupKey{sampled: uint32(p.sampled)}, nil, sampledView, b.sampler)
	if err != nil {
		b.recordErr(fmt.Errorf("draw %s: %w", p.label, err))
		return
	}
	p.resources.flush(b.queue)

	pass := b.beginRenderPass()
	pass.SetPipeline(p.renderPipeline)
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	pass.SetVertexBuffer(0, q.buffer, 0, wgpu.WholeSize)
	pass.Draw(q.vertexCount, 1, 0, 0)
}

// beginRenderPass returns the open render pass onto the surface, starting one if needed.
// A pending Clear is consumed by the pass it starts.
func (b *webGPUBackend) beginRenderPass() *wgpu.RenderPassEncoder {
	if b.framePass != nil {
		return b.framePass
	}

	loadOp := wgpu.LoadOpLoad
	if b.clearPending {
		loadOp = wgpu.LoadOpClear
		b.clearPending = false
	}
	b.framePass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.frameView,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
	})
	b.framePass.SetViewport(b.viewport[0], b.viewport[1], b.viewport[2], b.viewport[3], 0, 1)
	return b.framePass
}

func (b *webGPUBackend) endRenderPass() {
	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil
}

func (b *webGPUBackend) recordErr(err error) {
	if b.frameErr == nil {
		b.frameErr = err
	}
}

// EndFrame submits the recorded commands and presents the surface. It returns the first
// error recorded by a command of this frame, if any.
func (b *webGPUBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}

	// a Clear with no draw after it still has to reach the surface
	if b.clearPending {
		b.beginRenderPass()
	}
	b.endRenderPass()

	frameErr := b.frameErr
	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.releaseFrame()
		return fmt.Errorf("finish frame: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	b.releaseFrame()
	return frameErr
}

func (b *webGPUBackend) releaseFrame() {
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	b.framePass = nil
	b.frameErr = nil
}

// Release destroys every object the backend owns, then the device and surface.
func (b *webGPUBackend) Release() {
	for h := range b.quads {
		b.DeleteQuad(h)
	}
	for h := range b.images {
		b.DeleteImage(h)
	}
	for h := range b.programs {
		b.DeleteProgram(h)
	}
	for h := range b.shaders {
		b.DeleteShader(h)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
