// Package shader turns shader source files into linked backend programs.
package shader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
)

// Manager compiles shader stages, links programs, and builds programs from pipeline descriptions.
// Every intermediate shader object is released on every path, success or failure.
type Manager interface {
	// Compile compiles one stage.
	//
	// Parameters:
	//   - shaderType: the stage being compiled
	//   - label: a human-readable name used in diagnostics
	//   - source: the stage source text
	//
	// Returns:
	//   - backend.Handle: the compiled shader
	//   - error: a *CompileError when compilation fails
	Compile(shaderType backend.ShaderType, label, source string) (backend.Handle, error)

	// Link links compiled shaders into a program. The shaders are released whether or not linking succeeds.
	//
	// Parameters:
	//   - label: a human-readable name used in diagnostics
	//   - shaders: the compiled stage shaders
	//
	// Returns:
	//   - backend.Handle: the linked program
	//   - error: a *LinkError when linking fails
	Link(label string, shaders ...backend.Handle) (backend.Handle, error)

	// LoadAndBuild reads every stage of p, compiles and links them, and resolves the parameter table.
	//
	// Parameters:
	//   - p: the pipeline description to build
	//
	// Returns:
	//   - *Program: the built program
	//   - error: a *BuildError wrapping a *FileError, *CompileError or *LinkError
	LoadAndBuild(p pipeline.Pipeline) (*Program, error)

	// Release deletes a program's backend object. Releasing a program twice, or a nil program, does nothing.
	//
	// Parameters:
	//   - p: the program to release
	Release(p *Program)
}

type manager struct {
	backend backend.Backend
	files   FileProvider
	logger  *slog.Logger
}

var _ Manager = &manager{}

// NewManager creates a Manager that builds programs on b from sources read through files.
//
// Parameters:
//   - b: the backend that owns the shader and program objects
//   - files: where shader sources are read from
//   - opts: functional options to configure the manager
//
// Returns:
//   - Manager: the new manager
func NewManager(b backend.Backend, files FileProvider, opts ...ManagerBuilderOption) Manager {
	m := &manager{
		backend: b,
		files:   files,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = common.Logger()
	}
	return m
}

func (m *manager) Compile(shaderType backend.ShaderType, label, source string) (backend.Handle, error) {
	h, err := m.backend.CreateShader(shaderType, label, source)
	if err != nil {
		return 0, fmt.Errorf("create %s shader %q: %w", shaderType, label, err)
	}
	if ok, log := m.backend.ShaderStatus(h); !ok {
		m.backend.DeleteShader(h)
		return 0, &CompileError{Stage: shaderType, Label: label, Log: truncateLog(log)}
	}
	return h, nil
}

func (m *manager) Link(label string, shaders ...backend.Handle) (backend.Handle, error) {
	defer func() {
		for _, h := range shaders {
			m.backend.DeleteShader(h)
		}
	}()

	h, err := m.backend.CreateProgram(label, shaders...)
	if err != nil {
		return 0, fmt.Errorf("create program %q: %w", label, err)
	}
	if ok, log := m.backend.ProgramStatus(h); !ok {
		m.backend.DeleteProgram(h)
		return 0, &LinkError{Label: label, Log: truncateLog(log)}
	}
	return h, nil
}

func (m *manager) LoadAndBuild(p pipeline.Pipeline) (*Program, error) {
	key := p.PipelineKey()
	if err := p.Validate(); err != nil {
		return nil, &BuildError{Key: key, Err: err}
	}

	stages := p.Stages()
	sources := make([]string, len(stages))
	for i, st := range stages {
		src, err := m.readSource(st.Path)
		if err != nil {
			return nil, &BuildError{Key: key, Err: err}
		}
		sources[i] = src
	}

	compiled := make([]backend.Handle, 0, len(stages))
	for i, st := range stages {
		h, err := m.Compile(st.Type, st.Path, sources[i])
		if err != nil {
			for _, c := range compiled {
				m.backend.DeleteShader(c)
			}
			return nil, &BuildError{Key: key, Err: err}
		}
		compiled = append(compiled, h)
	}

	handle, err := m.Link(key, compiled...)
	if err != nil {
		return nil, &BuildError{Key: key, Err: err}
	}

	prog := &Program{
		key:          key,
		pipelineType: p.Type(),
		handle:       handle,
		valid:        true,
	}
	for _, param := range Params() {
		loc, ok := m.backend.ParamLocation(handle, param.Name())
		if !ok {
			loc = backend.NoLocation
			m.logger.Debug("shader parameter not found", "program", key, "param", param.Name())
		}
		prog.locations[param] = loc
	}
	return prog, nil
}

func (m *manager) Release(p *Program) {
	if !p.Valid() {
		return
	}
	m.backend.DeleteProgram(p.handle)
	p.handle = 0
	p.valid = false
}

// readSource reads a stage source, rejecting files that are empty or whitespace only.
func (m *manager) readSource(path string) (string, error) {
	data, err := m.files.ReadFile(path)
	if err != nil {
		return "", &FileError{Path: path, Err: err}
	}
	src := string(data)
	if strings.TrimSpace(src) == "" {
		return "", &FileError{Path: path, Err: ErrEmptySource}
	}
	return src, nil
}
