package common

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkGroupCount(t *testing.T) {
	tests := []struct {
		extent, size, want uint32
	}{
		{1600, 8, 200},
		{900, 8, 113},
		{8, 8, 1},
		{9, 8, 2},
		{1, 16, 1},
		{0, 8, 0},
		{100, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WorkGroupCount(tt.extent, tt.size), "extent=%d size=%d", tt.extent, tt.size)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1.57), Clamp(float32(2), -1.57, 1.57))
	assert.Equal(t, float32(-1.57), Clamp(float32(-3), -1.57, 1.57))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(16), AlignUp(12, 16))
	assert.Equal(t, uint64(32), AlignUp(32, 16))
	assert.Equal(t, uint64(0), AlignUp(0, 16))
	assert.Equal(t, uint64(7), AlignUp(7, 0))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))
	assert.Len(t, SliceToBytes([]float32{1, 2, 3}), 12)
}

func TestLoggerDefaultsToSilent(t *testing.T) {
	assert.False(t, Logger().Enabled(t.Context(), slog.LevelError))

	l := slog.New(slog.DiscardHandler)
	SetLogger(l)
	assert.Same(t, l, Logger())

	SetLogger(nil)
	assert.NotNil(t, Logger())
	assert.False(t, Logger().Enabled(t.Context(), slog.LevelError))
}
