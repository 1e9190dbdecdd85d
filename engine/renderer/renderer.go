package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/camera"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultWorkGroupSize is the local size assumed when the backend cannot report the compute program's own.
const DefaultWorkGroupSize uint32 = 8

var (
	// ErrNotReady is returned by operations that require a Ready renderer.
	ErrNotReady = errors.New("renderer is not ready")
	// ErrWorkGroupSize is returned when a configured work group size disagrees with the compute shader.
	ErrWorkGroupSize = errors.New("work group size does not match the compute shader")
)

// State is the renderer lifecycle stage.
type State int

const (
	// StateUninitialized is the state before construction completes. A renderer returned by NewRenderer is never in it.
	StateUninitialized State = iota
	// StateReady means every program and resource exists and frames can be drawn.
	StateReady
	// StateDestroyed means every resource has been released. It is terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend backend.Backend
	shaders shader.Manager
	files   shader.FileProvider
	logger  *slog.Logger

	topology   pipeline.Topology
	pipelines  []pipeline.Pipeline
	shaderDir  string
	computeKey string
	displayKey string

	programs map[string]*shader.Program
	quad     backend.Handle
	image    backend.Handle
	imageW   int
	imageH   int

	width, height int
	clearColor    common.Color
	workGroupSize uint32
	localSize     [3]uint32
	state         State
}

// Renderer drives the raymarching pipeline: it owns the shader programs, the full-screen quad
// and, for the two-pass topology, the intermediate image the compute program writes to.
//
// Two-pass frames run the compute program over the image, wait for its stores with a memory barrier,
// clear, then draw the quad with the display program sampling the image. Single-pass frames draw the
// quad with one program that raymarches per fragment.
type Renderer interface {
	// Draw records and submits one frame. It does nothing unless the renderer is Ready and has a non-zero size.
	//
	// Parameters:
	//   - timeSeconds: seconds since the program started, uploaded as the time parameter
	//   - cam: the camera to upload; nil leaves the camera parameters untouched
	Draw(timeSeconds float32, cam *camera.Camera)

	// Resize records the new framebuffer size. In the two-pass topology the intermediate image is
	// recreated at the new size; a zero size releases it and suspends drawing until the next resize.
	// If the surface rejects the new size, the previous size and image stay in effect.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: if the renderer is not Ready, the surface could not be configured or the image could not be recreated
	Resize(width, height int) error

	// ReloadShaders rebuilds every program from source. Either all programs are replaced or none are:
	// on failure the previous programs stay active and the error describes the first failure.
	//
	// Returns:
	//   - error: ErrNotReady, or a *shader.BuildError
	ReloadShaders() error

	// Destroy releases every program and resource. Further calls do nothing.
	Destroy()

	// State returns the lifecycle stage.
	State() State

	// Size returns the size passed to the last Resize, or the construction size.
	Size() (width, height int)

	// Topology returns the frame topology.
	Topology() pipeline.Topology

	// Program returns the active program for a pipeline key, or nil.
	Program(key string) *shader.Program

	// ImageSize returns the dimensions of the intermediate image, if one exists.
	ImageSize() (width, height int, ok bool)

	// WorkGroups returns the dispatch grid for the current size. It is zero in the single-pass topology.
	WorkGroups() [3]uint32
}

var _ Renderer = &renderer{}

// NewRenderer builds every program, the quad and (for two-pass) the intermediate image.
// If anything fails, everything created so far is released and the error is returned.
//
// Parameters:
//   - b: the GPU backend
//   - files: where shader sources are read from
//   - width, height: the initial framebuffer size in pixels
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a Ready renderer
//   - error: a *shader.BuildError for shader failures, or a wrapped backend error
func NewRenderer(b backend.Backend, files shader.FileProvider, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		backend:       b,
		files:         files,
		topology:      pipeline.TopologyTwoPass,
		shaderDir:     "shaders",
		clearColor:    common.DefaultClearColor,
		state:         StateUninitialized,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.logger == nil {
		r.logger = common.Logger()
	}
	if r.shaders == nil {
		r.shaders = shader.NewManager(b, files, shader.WithLogger(r.logger))
	}
	if r.pipelines == nil {
		r.pipelines = pipeline.DefaultPipelines(r.topology, r.shaderDir, b.Type())
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid renderer size %dx%d", width, height)
	}
	if err := r.resolveRoles(); err != nil {
		return nil, err
	}

	var cleanup releaseStack
	defer cleanup.release()

	programs, err := r.buildPrograms()
	if err != nil {
		return nil, err
	}
	cleanup.push(func() { r.releasePrograms(programs) })

	localSize, err := r.resolveLocalSize(programs)
	if err != nil {
		return nil, err
	}

	quad, err := b.CreateQuad(backend.QuadVertices)
	if err != nil {
		return nil, fmt.Errorf("create quad: %w", err)
	}
	cleanup.push(func() { b.DeleteQuad(quad) })

	r.programs = programs
	r.localSize = localSize
	r.quad = quad
	r.width, r.height = width, height

	if err := b.ResizeSurface(width, height); err != nil {
		return nil, fmt.Errorf("configure surface: %w", err)
	}
	if r.topology == pipeline.TopologyTwoPass {
		if err := r.recreateImage(); err != nil {
			return nil, err
		}
		cleanup.push(func() { r.deleteImage() })
	}

	cleanup.commit()
	r.state = StateReady
	r.logger.Info("renderer ready",
		"backend", b.Type().String(),
		"topology", r.topology.String(),
		"width", width,
		"height", height,
	)
	return r, nil
}

func (r *renderer) Draw(timeSeconds float32, cam *camera.Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady || r.width <= 0 || r.height <= 0 {
		return
	}
	if r.topology == pipeline.TopologyTwoPass && (!r.image.Valid() || r.imageW != r.width || r.imageH != r.height) {
		return
	}

	if err := r.backend.BeginFrame(); err != nil {
		r.logger.Debug("skipping frame", "err", err)
		return
	}

	display := r.programs[r.displayKey]
	if r.topology == pipeline.TopologyTwoPass {
		compute := r.programs[r.computeKey]
		r.setParams(compute, timeSeconds, cam)
		r.backend.DispatchCompute(compute.Handle(), r.image, r.workGroups())
		r.backend.MemoryBarrier(backend.BarrierImageAccess)
		r.backend.Clear(r.clearColor)
		if loc, ok := display.Location(shader.ParamImage); ok {
			r.backend.BindSampledImage(display.Handle(), loc, r.image)
		}
	} else {
		r.setParams(display, timeSeconds, cam)
	}
	r.backend.Viewport(0, 0, r.width, r.height)
	r.backend.DrawQuad(display.Handle(), r.quad)

	if err := r.backend.EndFrame(); err != nil {
		r.logger.Warn("frame submission failed", "err", err)
	}
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady {
		return ErrNotReady
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("invalid renderer size %dx%d", width, height)
	}

	if err := r.backend.ResizeSurface(width, height); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	r.width, r.height = width, height
	if r.topology == pipeline.TopologyTwoPass {
		return r.recreateImage()
	}
	return nil
}

func (r *renderer) ReloadShaders() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady {
		return ErrNotReady
	}

	fresh, err := r.buildPrograms()
	if err == nil {
		var localSize [3]uint32
		if localSize, err = r.resolveLocalSize(fresh); err != nil {
			r.releasePrograms(fresh)
		} else {
			r.localSize = localSize
		}
	}
	if err != nil {
		r.logger.Warn("shader reload failed, keeping previous programs", "err", err)
		return err
	}

	old := r.programs
	r.programs = fresh
	r.releasePrograms(old)

	r.logger.Info("shaders reloaded")
	return nil
}

func (r *renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateDestroyed {
		return
	}
	r.releasePrograms(r.programs)
	r.programs = nil
	if r.quad.Valid() {
		r.backend.DeleteQuad(r.quad)
		r.quad = 0
	}
	r.deleteImage()
	r.state = StateDestroyed
}

func (r *renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Topology() pipeline.Topology {
	return r.topology
}

func (r *renderer) Program(key string) *shader.Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.programs[key]
}

func (r *renderer) ImageSize() (int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.image.Valid() {
		return 0, 0, false
	}
	return r.imageW, r.imageH, true
}

func (r *renderer) WorkGroups() [3]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workGroups()
}

// workGroups returns the dispatch grid covering the current size. Caller must hold the mutex.
func (r *renderer) workGroups() [3]uint32 {
	return [3]uint32{
		common.WorkGroupCount(uint32(r.width), r.localSize[0]),
		common.WorkGroupCount(uint32(r.height), r.localSize[1]),
		1,
	}
}

// resolveLocalSize returns the local size the dispatch grid is computed from. The compute program's
// declared size wins; a configured size must agree with it.
func (r *renderer) resolveLocalSize(programs map[string]*shader.Program) ([3]uint32, error) {
	if r.topology != pipeline.TopologyTwoPass {
		return [3]uint32{}, nil
	}
	declared, ok := r.backend.WorkGroupSize(programs[r.computeKey].Handle())
	if !ok {
		size := common.Coalesce(r.workGroupSize, DefaultWorkGroupSize)
		return [3]uint32{size, size, 1}, nil
	}
	if declared[0] == 0 || declared[1] == 0 {
		return [3]uint32{}, fmt.Errorf("%w: %q declares %dx%dx%d", ErrWorkGroupSize, r.computeKey, declared[0], declared[1], declared[2])
	}
	if r.workGroupSize != 0 && (declared[0] != r.workGroupSize || declared[1] != r.workGroupSize) {
		return [3]uint32{}, fmt.Errorf("%w: configured %d, %q declares %dx%dx%d",
			ErrWorkGroupSize, r.workGroupSize, r.computeKey, declared[0], declared[1], declared[2])
	}
	return declared, nil
}

// resolveRoles checks the pipeline set against the topology and records which key plays which role.
func (r *renderer) resolveRoles() error {
	var computes, renders []string
	keys := make(map[string]bool, len(r.pipelines))
	for _, p := range r.pipelines {
		if keys[p.PipelineKey()] {
			return fmt.Errorf("duplicate pipeline key %q", p.PipelineKey())
		}
		keys[p.PipelineKey()] = true
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			computes = append(computes, p.PipelineKey())
		case pipeline.PipelineTypeRender:
			renders = append(renders, p.PipelineKey())
		}
	}

	switch r.topology {
	case pipeline.TopologyTwoPass:
		if len(computes) != 1 || len(renders) != 1 {
			return fmt.Errorf("%s topology needs one compute and one render pipeline, got %d and %d", r.topology, len(computes), len(renders))
		}
		r.computeKey, r.displayKey = computes[0], renders[0]
	case pipeline.TopologySinglePass:
		if len(computes) != 0 || len(renders) != 1 {
			return fmt.Errorf("%s topology needs exactly one render pipeline, got %d compute and %d render", r.topology, len(computes), len(renders))
		}
		r.displayKey = renders[0]
	default:
		return fmt.Errorf("unknown topology %v", r.topology)
	}
	return nil
}

// buildPrograms builds every pipeline. On failure the programs built so far are released.
func (r *renderer) buildPrograms() (map[string]*shader.Program, error) {
	programs := make(map[string]*shader.Program, len(r.pipelines))
	for _, p := range r.pipelines {
		prog, err := r.shaders.LoadAndBuild(p)
		if err != nil {
			r.releasePrograms(programs)
			return nil, err
		}
		programs[p.PipelineKey()] = prog
	}
	return programs, nil
}

func (r *renderer) releasePrograms(programs map[string]*shader.Program) {
	for _, p := range programs {
		r.shaders.Release(p)
	}
}

// recreateImage replaces the intermediate image with one matching the current size. Caller must hold the mutex.
func (r *renderer) recreateImage() error {
	if r.image.Valid() && r.imageW == r.width && r.imageH == r.height {
		return nil
	}
	r.deleteImage()
	if r.width == 0 || r.height == 0 {
		return nil
	}

	img, err := r.backend.CreateImage(r.width, r.height)
	if err != nil {
		return fmt.Errorf("create %dx%d image: %w", r.width, r.height, err)
	}
	r.image, r.imageW, r.imageH = img, r.width, r.height
	return nil
}

func (r *renderer) deleteImage() {
	if !r.image.Valid() {
		return
	}
	r.backend.DeleteImage(r.image)
	r.image, r.imageW, r.imageH = 0, 0, 0
}

// setParams uploads the frame parameters a program declares. Caller must hold the mutex.
func (r *renderer) setParams(prog *shader.Program, timeSeconds float32, cam *camera.Camera) {
	h := prog.Handle()
	if loc, ok := prog.Location(shader.ParamResolution); ok {
		r.backend.SetVec2(h, loc, mgl32.Vec2{float32(r.width), float32(r.height)})
	}
	if loc, ok := prog.Location(shader.ParamTime); ok {
		r.backend.SetFloat(h, loc, timeSeconds)
	}
	if cam == nil {
		return
	}

	params := cam.GPUParams()
	vectors := []struct {
		param shader.Param
		value mgl32.Vec3
	}{
		{shader.ParamCameraPos, params.Position},
		{shader.ParamCameraForward, params.Forward},
		{shader.ParamCameraRight, params.Right},
		{shader.ParamCameraUp, params.Up},
	}
	for _, v := range vectors {
		if loc, ok := prog.Location(v.param); ok {
			r.backend.SetVec3(h, loc, v.value)
		}
	}
}

// releaseStack runs cleanup functions in reverse order unless committed.
type releaseStack struct {
	fns       []func()
	committed bool
}

func (s *releaseStack) push(fn func()) { s.fns = append(s.fns, fn) }

func (s *releaseStack) commit() { s.committed = true }

func (s *releaseStack) release() {
	if s.committed {
		return
	}
	for i := len(s.fns) - 1; i >= 0; i-- {
		s.fns[i]()
	}
}
