package profiler

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithHeapStats(false))

	for range 59 {
		clock.advance(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock.advance(410 * time.Millisecond)
	require.True(t, p.Tick())
	assert.InDelta(t, 60.0, p.Last().FPS, 1e-9)

	clock.advance(500 * time.Millisecond)
	assert.False(t, p.Tick(), "frame count and reference time reset after a report")
}

func TestWithInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(250*time.Millisecond), WithHeapStats(false))
	clock.advance(250 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.InDelta(t, 4.0, p.Last().FPS, 1e-9)

	p = NewProfiler(WithInterval(-time.Second))
	assert.Equal(t, time.Second, p.updateInterval)
}

func TestHeapStats(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now))
	p.readMem = func(m *runtime.MemStats) {
		m.Alloc = 2 * 1024 * 1024
		m.Sys = 8 * 1024 * 1024
		m.TotalAlloc = 4 * 1024 * 1024
		m.NumGC = 2
		m.PauseNs[0] = 5000
		m.PauseNs[1] = 3000
	}

	clock.advance(2 * time.Second)
	require.True(t, p.Tick())
	stats := p.Last()
	assert.InDelta(t, 2.0, stats.HeapMB, 1e-9)
	assert.InDelta(t, 8.0, stats.SysMB, 1e-9)
	assert.InDelta(t, 2.0, stats.AllocRateMB, 1e-9)
	assert.Equal(t, uint32(2), stats.GCCount)
	assert.Equal(t, uint64(3), stats.LastPauseUs)
	assert.Equal(t, uint64(5), stats.MaxPauseUs)
}
