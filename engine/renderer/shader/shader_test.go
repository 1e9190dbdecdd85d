package shader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"s/raymarch.comp": {Data: []byte("compute source")},
		"s/display.vert":  {Data: []byte("vertex source")},
		"s/display.frag":  {Data: []byte("fragment source")},
		"s/empty.frag":    {Data: []byte("  \n\t")},
	}
}

func newTestManager(files fstest.MapFS) (*backendtest.Backend, Manager) {
	b := backendtest.New()
	return b, NewManager(b, FSFileProvider{FS: files})
}

func displayPipeline(frag string) pipeline.Pipeline {
	return pipeline.NewPipeline("display", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader("s/display.vert"),
		pipeline.WithFragmentShader(frag),
	)
}

func TestLoadAndBuildRender(t *testing.T) {
	b, m := newTestManager(testFiles())

	prog, err := m.LoadAndBuild(displayPipeline("s/display.frag"))
	require.NoError(t, err)
	require.True(t, prog.Valid())

	assert.Equal(t, "display", prog.Key())
	assert.Equal(t, pipeline.PipelineTypeRender, prog.Type())
	assert.Equal(t, []string{"vertex source", "fragment source"}, b.ProgramSources(prog.Handle()))
	assert.Equal(t, 0, b.LiveShaders(), "stage shaders are released after linking")
	assert.Equal(t, 1, b.LivePrograms())

	for _, p := range Params() {
		_, ok := prog.Location(p)
		assert.True(t, ok, p.Name())
	}
}

func TestLoadAndBuildCompute(t *testing.T) {
	b, m := newTestManager(testFiles())
	prog, err := m.LoadAndBuild(pipeline.NewPipeline("raymarch", pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader("s/raymarch.comp")))
	require.NoError(t, err)
	assert.Equal(t, pipeline.PipelineTypeCompute, prog.Type())
	assert.Equal(t, []string{"compute source"}, b.ProgramSources(prog.Handle()))
}

func TestLoadAndBuildMissingParamsAreSkipped(t *testing.T) {
	b, m := newTestManager(testFiles())
	b.HiddenParams = map[string]bool{"cameraUp": true, "image": true}

	prog, err := m.LoadAndBuild(displayPipeline("s/display.frag"))
	require.NoError(t, err)

	loc, ok := prog.Location(ParamCameraUp)
	assert.False(t, ok)
	assert.Equal(t, backend.NoLocation, loc)
	_, ok = prog.Location(ParamImage)
	assert.False(t, ok)
	_, ok = prog.Location(ParamTime)
	assert.True(t, ok)
}

func TestLoadAndBuildMissingFile(t *testing.T) {
	b, m := newTestManager(testFiles())

	_, err := m.LoadAndBuild(displayPipeline("s/nope.frag"))
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "display", buildErr.Key)

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "s/nope.frag", fileErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrEmptySource)

	assert.Equal(t, 0, b.LiveShaders())
	assert.Equal(t, 0, b.LivePrograms())
}

func TestLoadAndBuildEmptyFile(t *testing.T) {
	_, m := newTestManager(testFiles())

	_, err := m.LoadAndBuild(displayPipeline("s/empty.frag"))
	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.ErrorIs(t, err, ErrEmptySource)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadAndBuildCompileErrorReleasesEarlierStages(t *testing.T) {
	b, m := newTestManager(testFiles())
	b.CompileFailure = func(label, source string) string {
		if strings.HasSuffix(label, ".frag") {
			return "0:1(1): error: syntax error"
		}
		return ""
	}

	_, err := m.LoadAndBuild(displayPipeline("s/display.frag"))
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, backend.ShaderTypeFragment, compileErr.Stage)
	assert.Equal(t, "s/display.frag", compileErr.Label)
	assert.Equal(t, "0:1(1): error: syntax error", compileErr.Log)

	assert.Equal(t, 0, b.LiveShaders(), "the compiled vertex stage is released")
	assert.Equal(t, 0, b.LivePrograms())
}

func TestLoadAndBuildLinkError(t *testing.T) {
	b, m := newTestManager(testFiles())
	b.LinkFailure = func(string) string { return "link: varying mismatch" }

	_, err := m.LoadAndBuild(displayPipeline("s/display.frag"))
	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "display", linkErr.Label)
	assert.Equal(t, "link: varying mismatch", linkErr.Log)

	assert.Equal(t, 0, b.LiveShaders())
	assert.Equal(t, 0, b.LivePrograms())
}

func TestLoadAndBuildInvalidPipeline(t *testing.T) {
	b, m := newTestManager(testFiles())
	_, err := m.LoadAndBuild(pipeline.NewPipeline("bad", pipeline.PipelineTypeCompute))
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, 0, b.LivePrograms())
}

func TestCompileLogIsTruncated(t *testing.T) {
	b, m := newTestManager(testFiles())
	long := strings.Repeat("e", 2000)
	b.CompileFailure = func(string, string) string { return long }

	_, err := m.Compile(backend.ShaderTypeCompute, "big", "src")
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Len(t, compileErr.Log, MaxLogSize)
	assert.Equal(t, long[:MaxLogSize], compileErr.Log)
}

func TestTruncateLogKeepsRunesWhole(t *testing.T) {
	log := strings.Repeat("a", MaxLogSize-1) + "é"
	got := truncateLog(log)
	assert.Equal(t, strings.Repeat("a", MaxLogSize-1), got)
	assert.Equal(t, "short", truncateLog("short"))
}

func TestLinkReleasesShaders(t *testing.T) {
	b, m := newTestManager(testFiles())
	v, err := m.Compile(backend.ShaderTypeVertex, "v", "vertex")
	require.NoError(t, err)
	f, err := m.Compile(backend.ShaderTypeFragment, "f", "fragment")
	require.NoError(t, err)
	assert.Equal(t, 2, b.LiveShaders())

	prog, err := m.Link("p", v, f)
	require.NoError(t, err)
	assert.True(t, prog.Valid())
	assert.Equal(t, 0, b.LiveShaders())
}

func TestCreateShaderFailureIsNotCompileError(t *testing.T) {
	b, m := newTestManager(testFiles())
	b.Release()

	_, err := m.Compile(backend.ShaderTypeVertex, "v", "vertex")
	require.Error(t, err)
	var compileErr *CompileError
	assert.False(t, errors.As(err, &compileErr))
	assert.ErrorIs(t, err, backendtest.ErrReleased)
}

func TestReleaseIsIdempotent(t *testing.T) {
	b, m := newTestManager(testFiles())
	prog, err := m.LoadAndBuild(displayPipeline("s/display.frag"))
	require.NoError(t, err)

	m.Release(prog)
	assert.False(t, prog.Valid())
	assert.Equal(t, backend.Handle(0), prog.Handle())
	assert.Equal(t, 0, b.LivePrograms())

	m.Release(prog)
	m.Release(nil)
}

func TestParamNames(t *testing.T) {
	assert.Equal(t, "resolution", ParamResolution.Name())
	assert.Equal(t, "cameraForward", ParamCameraForward.Name())
	assert.Equal(t, "image", ParamImage.Name())
	assert.Len(t, Params(), 7)
	assert.Equal(t, "Param(42)", Param(42).Name())
}
