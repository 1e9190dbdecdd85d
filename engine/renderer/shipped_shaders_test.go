package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-march/engine/renderer/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-march/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The shipped shader tree lives at the module root.
var shippedFiles = shader.OSFileProvider{Root: "../.."}

func TestShippedOpenGLShadersLoad(t *testing.T) {
	for _, topology := range []pipeline.Topology{pipeline.TopologyTwoPass, pipeline.TopologySinglePass} {
		t.Run(topology.String(), func(t *testing.T) {
			b := backendtest.New()
			r, err := NewRenderer(b, shippedFiles, 1600, 900, WithTopology(topology))
			require.NoError(t, err)
			defer r.Destroy()

			for _, src := range b.ProgramSources(r.Program(pipeline.KeyRaymarch).Handle()) {
				assert.Contains(t, src, "#version 430 core")
			}
		})
	}
}
