// Package opengl implements backend.Backend on an OpenGL 4.3 core profile context.
//
// The context must be current on the calling OS thread before New is called, and every
// method must be called from that thread.
package opengl

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// imageUnit is the image unit compute programs store to; sampledUnit is the texture unit display programs sample from.
const (
	imageUnit   = 0
	sampledUnit = 0
)

type quad struct {
	vao, vbo    uint32
	vertexCount int32
}

// openGLBackend is the OpenGL implementation of backend.Backend.
type openGLBackend struct {
	version  string
	shaders  map[backend.Handle]struct{}
	programs map[backend.Handle]struct{}
	images   map[backend.Handle]struct{}
	quads    map[backend.Handle]quad
	sampler  texParams
}

var _ backend.Backend = &openGLBackend{}

// New loads the OpenGL function pointers for the current context and returns a backend bound to it.
//
// Parameters:
//   - options: variadic list of BackendOption functions to configure the backend
//
// Returns:
//   - backend.Backend: the backend
//   - error: if the GL entry points could not be loaded or the context is older than 4.3
func New(options ...BackendOption) (backend.Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("load OpenGL entry points: %w", err)
	}

	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || (major == 4 && minor < 3) {
		return nil, fmt.Errorf("OpenGL 4.3 required for compute shaders, context is %d.%d", major, minor)
	}

	b := &openGLBackend{
		version:  gl.GoStr(gl.GetString(gl.VERSION)),
		shaders:  make(map[backend.Handle]struct{}),
		programs: make(map[backend.Handle]struct{}),
		images:   make(map[backend.Handle]struct{}),
		quads:    make(map[backend.Handle]quad),
		sampler:  defaultTexParams,
	}
	for _, opt := range options {
		opt(b)
	}
	common.Logger().Info("OpenGL backend ready",
		"version", b.version,
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
	)
	return b, nil
}

func (b *openGLBackend) Type() backend.BackendType {
	return backend.BackendTypeOpenGL
}

func (b *openGLBackend) CreateShader(shaderType backend.ShaderType, label, source string) (backend.Handle, error) {
	var glType uint32
	switch shaderType {
	case backend.ShaderTypeVertex:
		glType = gl.VERTEX_SHADER
	case backend.ShaderTypeFragment:
		glType = gl.FRAGMENT_SHADER
	case backend.ShaderTypeCompute:
		glType = gl.COMPUTE_SHADER
	default:
		return 0, fmt.Errorf("unsupported shader type %v", shaderType)
	}

	shader := gl.CreateShader(glType)
	if shader == 0 {
		return 0, fmt.Errorf("glCreateShader(%s) returned 0", shaderType)
	}
	csources, free := gl.Strs(source + "\x00")
	defer free()
	gl.ShaderSource(shader, 1, csources, nil)
	gl.CompileShader(shader)
	gl.ObjectLabel(gl.SHADER, shader, -1, gl.Str(label+"\x00"))

	h := backend.Handle(shader)
	b.shaders[h] = struct{}{}
	return h, nil
}

func (b *openGLBackend) ShaderStatus(shader backend.Handle) (bool, string) {
	var status int32
	gl.GetShaderiv(uint32(shader), gl.COMPILE_STATUS, &status)

	var logLen int32
	gl.GetShaderiv(uint32(shader), gl.INFO_LOG_LENGTH, &logLen)
	log := ""
	if logLen > 0 {
		buf := make([]byte, logLen+1)
		gl.GetShaderInfoLog(uint32(shader), logLen, nil, &buf[0])
		log = strings.TrimRight(string(buf), "\x00")
	}
	return status == gl.TRUE, log
}

func (b *openGLBackend) DeleteShader(shader backend.Handle) {
	if _, ok := b.shaders[shader]; !ok {
		return
	}
	gl.DeleteShader(uint32(shader))
	delete(b.shaders, shader)
}

func (b *openGLBackend) CreateProgram(label string, shaders ...backend.Handle) (backend.Handle, error) {
	program := gl.CreateProgram()
	if program == 0 {
		return 0, fmt.Errorf("glCreateProgram returned 0")
	}
	for _, s := range shaders {
		gl.AttachShader(program, uint32(s))
	}
	gl.ObjectLabel(gl.PROGRAM, program, -1, gl.Str(label+"\x00"))
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DetachShader(program, uint32(s))
	}

	h := backend.Handle(program)
	b.programs[h] = struct{}{}
	return h, nil
}

func (b *openGLBackend) ProgramStatus(program backend.Handle) (bool, string) {
	var status int32
	gl.GetProgramiv(uint32(program), gl.LINK_STATUS, &status)

	var logLen int32
	gl.GetProgramiv(uint32(program), gl.INFO_LOG_LENGTH, &logLen)
	log := ""
	if logLen > 0 {
		buf := make([]byte, logLen+1)
		gl.GetProgramInfoLog(uint32(program), logLen, nil, &buf[0])
		log = strings.TrimRight(string(buf), "\x00")
	}
	return status == gl.TRUE, log
}

func (b *openGLBackend) DeleteProgram(program backend.Handle) {
	if _, ok := b.programs[program]; !ok {
		return
	}
	gl.DeleteProgram(uint32(program))
	delete(b.programs, program)
}

func (b *openGLBackend) WorkGroupSize(program backend.Handle) ([3]uint32, bool) {
	if _, ok := b.programs[program]; !ok {
		return [3]uint32{}, false
	}
	var linked int32
	gl.GetProgramiv(uint32(program), gl.LINK_STATUS, &linked)
	if linked != gl.TRUE {
		return [3]uint32{}, false
	}

	var size [3]int32
	gl.GetProgramiv(uint32(program), gl.COMPUTE_WORK_GROUP_SIZE, &size[0])
	// Non-compute programs raise INVALID_OPERATION and leave size untouched.
	if code := gl.GetError(); code != gl.NO_ERROR || size[0] <= 0 {
		return [3]uint32{}, false
	}
	return [3]uint32{uint32(size[0]), uint32(size[1]), uint32(size[2])}, true
}

func (b *openGLBackend) ParamLocation(program backend.Handle, name string) (backend.Location, bool) {
	loc := gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
	if loc < 0 {
		return backend.NoLocation, false
	}
	return backend.Location(loc), true
}

func (b *openGLBackend) CreateImage(width, height int) (backend.Handle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexStorage2D(gl.TEXTURE_2D, 1, gl.RGBA8, int32(width), int32(height))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, b.sampler.minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, b.sampler.magFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, b.sampler.wrapS)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, b.sampler.wrapT)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("create %dx%d RGBA8 texture: GL error 0x%x", width, height, code)
	}

	h := backend.Handle(tex)
	b.images[h] = struct{}{}
	return h, nil
}

func (b *openGLBackend) DeleteImage(image backend.Handle) {
	if _, ok := b.images[image]; !ok {
		return
	}
	tex := uint32(image)
	gl.DeleteTextures(1, &tex)
	delete(b.images, image)
}

func (b *openGLBackend) CreateQuad(vertices []float32) (backend.Handle, error) {
	if len(vertices) == 0 || len(vertices)%2 != 0 {
		return 0, fmt.Errorf("quad needs 2D vertices, got %d floats", len(vertices))
	}

	var q quad
	gl.GenVertexArrays(1, &q.vao)
	gl.GenBuffers(1, &q.vbo)
	gl.BindVertexArray(q.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	q.vertexCount = int32(len(vertices) / 2)

	h := backend.Handle(q.vao)
	b.quads[h] = q
	return h, nil
}

func (b *openGLBackend) DeleteQuad(h backend.Handle) {
	q, ok := b.quads[h]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &q.vbo)
	gl.DeleteVertexArrays(1, &q.vao)
	delete(b.quads, h)
}

// ResizeSurface does nothing: the default framebuffer follows the window and draws set their own viewport.
func (b *openGLBackend) ResizeSurface(width, height int) error {
	return nil
}

func (b *openGLBackend) BeginFrame() error {
	return nil
}

func (b *openGLBackend) SetFloat(program backend.Handle, loc backend.Location, v float32) {
	if loc == backend.NoLocation {
		return
	}
	gl.ProgramUniform1f(uint32(program), int32(loc), v)
}

func (b *openGLBackend) SetVec2(program backend.Handle, loc backend.Location, v mgl32.Vec2) {
	if loc == backend.NoLocation {
		return
	}
	gl.ProgramUniform2f(uint32(program), int32(loc), v[0], v[1])
}

func (b *openGLBackend) SetVec3(program backend.Handle, loc backend.Location, v mgl32.Vec3) {
	if loc == backend.NoLocation {
		return
	}
	gl.ProgramUniform3f(uint32(program), int32(loc), v[0], v[1], v[2])
}

func (b *openGLBackend) DispatchCompute(program, image backend.Handle, groups [3]uint32) {
	gl.UseProgram(uint32(program))
	gl.BindImageTexture(imageUnit, uint32(image), 0, false, 0, gl.WRITE_ONLY, gl.RGBA8)
	gl.DispatchCompute(groups[0], groups[1], groups[2])
}

func (b *openGLBackend) MemoryBarrier(barrier backend.Barrier) {
	switch barrier {
	case backend.BarrierImageAccess:
		gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.TEXTURE_FETCH_BARRIER_BIT)
	}
}

func (b *openGLBackend) Clear(color common.Color) {
	gl.ClearColor(color.R, color.G, color.B, color.A)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (b *openGLBackend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *openGLBackend) BindSampledImage(program backend.Handle, loc backend.Location, image backend.Handle) {
	gl.ActiveTexture(gl.TEXTURE0 + sampledUnit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(image))
	if loc != backend.NoLocation {
		gl.ProgramUniform1i(uint32(program), int32(loc), sampledUnit)
	}
}

func (b *openGLBackend) DrawQuad(program, h backend.Handle) {
	q, ok := b.quads[h]
	if !ok {
		return
	}
	gl.UseProgram(uint32(program))
	gl.BindVertexArray(q.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, q.vertexCount)
	gl.BindVertexArray(0)
}

// EndFrame reports any pending GL error. Presentation is the window's buffer swap.
func (b *openGLBackend) EndFrame() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("GL error 0x%x", code)
	}
	return nil
}

func (b *openGLBackend) Release() {
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
}
