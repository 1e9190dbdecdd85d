// Package backendtest provides an in-memory backend.Backend that records every command it receives.
// It is used to test code that drives a GPU without needing a GPU.
package backendtest

import (
	"errors"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/go-gl/mathgl/mgl32"
)

// Op names a recorded frame command.
type Op string

const (
	OpBeginFrame       Op = "BeginFrame"
	OpSetFloat         Op = "SetFloat"
	OpSetVec2          Op = "SetVec2"
	OpSetVec3          Op = "SetVec3"
	OpDispatchCompute  Op = "DispatchCompute"
	OpMemoryBarrier    Op = "MemoryBarrier"
	OpClear            Op = "Clear"
	OpViewport         Op = "Viewport"
	OpBindSampledImage Op = "BindSampledImage"
	OpDrawQuad         Op = "DrawQuad"
	OpEndFrame         Op = "EndFrame"
)

// Command is one recorded call. Only the fields relevant to Op are set.
type Command struct {
	Op       Op
	Program  backend.Handle
	Image    backend.Handle
	Quad     backend.Handle
	Location backend.Location
	Param    string
	Float    float32
	Vec2     mgl32.Vec2
	Vec3     mgl32.Vec3
	Groups   [3]uint32
	Barrier  backend.Barrier
	Color    common.Color
	Rect     [4]int
}

type shaderObject struct {
	shaderType backend.ShaderType
	label      string
	source     string
	compiled   bool
	log        string
}

// programObject tracks one program. localSize is only meaningful when compute is set.
type programObject struct {
	label     string
	sources   []string
	linked    bool
	log       string
	params    map[string]backend.Location
	compute   bool
	localSize [3]uint32
}

// Backend is a recording fake. The exported fields configure failures and may be changed between calls.
type Backend struct {
	mu sync.Mutex

	// CompileFailure, when set, is consulted for each new shader; a non-empty result fails the compile with that log.
	CompileFailure func(label, source string) string
	// LinkFailure, when set, is consulted for each new program; a non-empty result fails the link with that log.
	LinkFailure func(label string) string
	// HiddenParams lists parameter names that no program exposes.
	HiddenParams map[string]bool
	// ImageError, QuadError, SurfaceError and BeginFrameError make the matching call fail.
	ImageError      error
	QuadError       error
	SurfaceError    error
	BeginFrameError error

	next     backend.Handle
	shaders  map[backend.Handle]*shaderObject
	programs map[backend.Handle]*programObject
	images   map[backend.Handle][2]int
	quads    map[backend.Handle]bool
	surface  [2]int
	released bool

	commands []Command
}

var _ backend.Backend = &Backend{}

// ErrReleased is returned by creation calls made after Release.
var ErrReleased = errors.New("backend released")

// New creates an empty recording backend.
func New() *Backend {
	return &Backend{
		shaders:  make(map[backend.Handle]*shaderObject),
		programs: make(map[backend.Handle]*programObject),
		images:   make(map[backend.Handle][2]int),
		quads:    make(map[backend.Handle]bool),
	}
}

func (b *Backend) Type() backend.BackendType { return backend.BackendTypeOpenGL }

func (b *Backend) handle() backend.Handle {
	b.next++
	return b.next
}

func (b *Backend) CreateShader(shaderType backend.ShaderType, label, source string) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0, ErrReleased
	}
	s := &shaderObject{shaderType: shaderType, label: label, source: source, compiled: true}
	if b.CompileFailure != nil {
		if log := b.CompileFailure(label, source); log != "" {
			s.compiled, s.log = false, log
		}
	}
	h := b.handle()
	b.shaders[h] = s
	return h, nil
}

func (b *Backend) ShaderStatus(shader backend.Handle) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.shaders[shader]
	if !ok {
		return false, "invalid shader handle"
	}
	return s.compiled, s.log
}

func (b *Backend) DeleteShader(shader backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.shaders, shader)
}

func (b *Backend) CreateProgram(label string, shaders ...backend.Handle) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0, ErrReleased
	}
	p := &programObject{label: label, linked: true, params: make(map[string]backend.Location)}
	for _, h := range shaders {
		s, ok := b.shaders[h]
		if !ok || !s.compiled {
			p.linked, p.log = false, "attached shader is not compiled"
			continue
		}
		p.sources = append(p.sources, s.source)
		if s.shaderType == backend.ShaderTypeCompute {
			p.compute, p.localSize = true, parseLocalSize(s.source)
		}
	}
	if p.linked && b.LinkFailure != nil {
		if log := b.LinkFailure(label); log != "" {
			p.linked, p.log = false, log
		}
	}
	h := b.handle()
	b.programs[h] = p
	return h, nil
}

func (b *Backend) ProgramStatus(program backend.Handle) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.programs[program]
	if !ok {
		return false, "invalid program handle"
	}
	return p.linked, p.log
}

func (b *Backend) DeleteProgram(program backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.programs, program)
}

func (b *Backend) WorkGroupSize(program backend.Handle) ([3]uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.programs[program]
	if !ok || !p.linked || !p.compute {
		return [3]uint32{}, false
	}
	return p.localSize, true
}

var localSizeRegex = regexp.MustCompile(`local_size_([xyz])\s*=\s*(\d+)`)

// parseLocalSize reads the local_size_x/y/z layout qualifiers of a GLSL compute shader. Omitted dimensions are 1.
func parseLocalSize(source string) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	for _, m := range localSizeRegex.FindAllStringSubmatch(source, -1) {
		n, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			continue
		}
		size[m[1][0]-'x'] = uint32(n)
	}
	return size
}

func (b *Backend) ParamLocation(program backend.Handle, name string) (backend.Location, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.programs[program]
	if !ok || !p.linked || b.HiddenParams[name] {
		return backend.NoLocation, false
	}
	loc, ok := p.params[name]
	if !ok {
		loc = backend.Location(len(p.params))
		p.params[name] = loc
	}
	return loc, true
}

func (b *Backend) CreateImage(width, height int) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0, ErrReleased
	}
	if b.ImageError != nil {
		return 0, b.ImageError
	}
	h := b.handle()
	b.images[h] = [2]int{width, height}
	return h, nil
}

func (b *Backend) DeleteImage(image backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.images, image)
}

func (b *Backend) CreateQuad(vertices []float32) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0, ErrReleased
	}
	if b.QuadError != nil {
		return 0, b.QuadError
	}
	h := b.handle()
	b.quads[h] = true
	return h, nil
}

func (b *Backend) DeleteQuad(quad backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.quads, quad)
}

func (b *Backend) ResizeSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SurfaceError != nil {
		return b.SurfaceError
	}
	b.surface = [2]int{width, height}
	return nil
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.BeginFrameError != nil {
		return b.BeginFrameError
	}
	b.record(Command{Op: OpBeginFrame})
	return nil
}

func (b *Backend) SetFloat(program backend.Handle, loc backend.Location, v float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpSetFloat, Program: program, Location: loc, Param: b.paramName(program, loc), Float: v})
}

func (b *Backend) SetVec2(program backend.Handle, loc backend.Location, v mgl32.Vec2) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpSetVec2, Program: program, Location: loc, Param: b.paramName(program, loc), Vec2: v})
}

func (b *Backend) SetVec3(program backend.Handle, loc backend.Location, v mgl32.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpSetVec3, Program: program, Location: loc, Param: b.paramName(program, loc), Vec3: v})
}

func (b *Backend) DispatchCompute(program, image backend.Handle, groups [3]uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpDispatchCompute, Program: program, Image: image, Groups: groups})
}

func (b *Backend) MemoryBarrier(barrier backend.Barrier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpMemoryBarrier, Barrier: barrier})
}

func (b *Backend) Clear(color common.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpClear, Color: color})
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpViewport, Rect: [4]int{x, y, width, height}})
}

func (b *Backend) BindSampledImage(program backend.Handle, loc backend.Location, image backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpBindSampledImage, Program: program, Location: loc, Param: b.paramName(program, loc), Image: image})
}

func (b *Backend) DrawQuad(program, quad backend.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpDrawQuad, Program: program, Quad: quad})
}

func (b *Backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Command{Op: OpEndFrame})
	return nil
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.shaders)
	clear(b.programs)
	clear(b.images)
	clear(b.quads)
	b.released = true
}

// record appends a command. Caller must hold the mutex.
func (b *Backend) record(c Command) {
	b.commands = append(b.commands, c)
}

// paramName reverse-maps a location to the name it was resolved from. Caller must hold the mutex.
func (b *Backend) paramName(program backend.Handle, loc backend.Location) string {
	p, ok := b.programs[program]
	if !ok {
		return ""
	}
	for name, l := range p.params {
		if l == loc {
			return name
		}
	}
	return ""
}

// Commands returns a copy of every command recorded since the last ResetCommands.
func (b *Backend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.commands)
}

// Ops returns the Op of every recorded command in order.
func (b *Backend) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]Op, len(b.commands))
	for i, c := range b.commands {
		ops[i] = c.Op
	}
	return ops
}

// Find returns the recorded commands with the given Op.
func (b *Backend) Find(op Op) []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Command
	for _, c := range b.commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCommands discards the recorded commands.
func (b *Backend) ResetCommands() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = nil
}

// LiveShaders, LivePrograms, LiveImages and LiveQuads count objects that have been created and not deleted.
func (b *Backend) LiveShaders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.shaders)
}

func (b *Backend) LivePrograms() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.programs)
}

func (b *Backend) LiveImages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.images)
}

func (b *Backend) LiveQuads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.quads)
}

// ImageSize returns the dimensions of a live image.
func (b *Backend) ImageSize(image backend.Handle) (width, height int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	size, ok := b.images[image]
	return size[0], size[1], ok
}

// SurfaceSize returns the dimensions passed to the last ResizeSurface.
func (b *Backend) SurfaceSize() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface[0], b.surface[1]
}

// ProgramSources returns the shader sources a live program was linked from.
func (b *Backend) ProgramSources(program backend.Handle) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.programs[program]; ok {
		return slices.Clone(p.sources)
	}
	return nil
}

// ProgramLive reports whether program has been created and not deleted.
func (b *Backend) ProgramLive(program backend.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.programs[program]
	return ok
}
