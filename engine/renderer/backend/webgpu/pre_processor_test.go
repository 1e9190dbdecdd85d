package webgpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorInclude(t *testing.T) {
	src := "//@oxy:include frame_params\n@group(0) @binding(0) var<uniform> params: FrameParams;"

	out, err := newPreProcessor().Process(src)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "struct FrameParams {"))
	assert.True(t, strings.HasSuffix(out, "var<uniform> params: FrameParams;"))
	assert.NotContains(t, out, "@oxy:")

	slots, size, ok := structFieldSlots(out, "FrameParams")
	require.True(t, ok)
	assert.Equal(t, uint64(80), size)
	assert.Len(t, slots, 6)
}

func TestPreProcessorPassesPlainLinesThrough(t *testing.T) {
	src := "fn f() -> f32 {\n    // an ordinary comment\n    return 1.0;\n}"
	out, err := newPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestPreProcessorErrors(t *testing.T) {
	cases := map[string]string{
		"unknown include": "//@oxy:include camera",
		"missing arg":     "\n//@oxy:include",
		"extra args":      "//@oxy:include frame_params extra",
		"unknown type":    "//@oxy:group 0 0",
		"empty":           "// @oxy:",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newPreProcessor().Process(src)
			assert.Error(t, err)
		})
	}

	_, err := newPreProcessor().Process("\n//@oxy:include")
	assert.ErrorContains(t, err, "line 2")
}

func TestParseAnnotationIgnoresNonComments(t *testing.T) {
	a, err := parseAnnotation(`let s = "@oxy:include frame_params";`, 1)
	assert.NoError(t, err)
	assert.Nil(t, a)
}
