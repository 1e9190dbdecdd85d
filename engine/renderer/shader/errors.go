package shader

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
)

// MaxLogSize bounds the compiler and linker output carried by CompileError and LinkError.
const MaxLogSize = 512

// ErrEmptySource is wrapped by FileError when a shader file exists but holds no source.
var ErrEmptySource = errors.New("shader source is empty")

// FileError reports a shader source file that could not be read or was empty.
// errors.Is(err, fs.ErrNotExist) distinguishes a missing file from ErrEmptySource.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("shader file %q: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// CompileError reports a shader stage that failed to compile. Log is the compiler output, truncated to MaxLogSize bytes.
type CompileError struct {
	Stage backend.ShaderType
	Label string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s shader %q: %s", e.Stage, e.Label, e.Log)
}

// LinkError reports a program that failed to link. Log is the linker output, truncated to MaxLogSize bytes.
type LinkError struct {
	Label string
	Log   string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link program %q: %s", e.Label, e.Log)
}

// BuildError wraps the FileError, CompileError or LinkError that stopped a program build.
type BuildError struct {
	Key string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build program %q: %v", e.Key, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// truncateLog cuts a log to at most MaxLogSize bytes without splitting a UTF-8 sequence.
func truncateLog(log string) string {
	if len(log) <= MaxLogSize {
		return log
	}
	cut := MaxLogSize
	for cut > 0 && !utf8.RuneStart(log[cut]) {
		cut--
	}
	return log[:cut]
}
