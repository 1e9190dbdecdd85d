package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-march/common"
)

// Stats is one profiler report.
type Stats struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	SysMB       float64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats

	now        func() time.Time
	readMem    func(*runtime.MemStats)
	reportHeap bool
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(p *Profiler)

// WithInterval sets how often statistics are reported. Non-positive values keep the default.
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithHeapStats toggles the memory part of each report. FPS is always reported.
func WithHeapStats(enabled bool) ProfilerOption {
	return func(p *Profiler) {
		p.reportHeap = enabled
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second and heap statistics are reported.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		readMem:        runtime.ReadMemStats,
		reportHeap:     true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	stats := Stats{FPS: float64(p.frameCount) / elapsed.Seconds()}
	if !p.reportHeap {
		common.Logger().Info("profiler", "fps", stats.FPS)
		p.finish(currentTime, stats)
		return true
	}

	p.readMem(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	stats.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	stats.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	stats.GCCount = p.memStats.NumGC
	if stats.GCCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		stats.LastPauseUs = p.memStats.PauseNs[(stats.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if stats.GCCount-startIdx > 256 {
			startIdx = stats.GCCount - 256
		}
		for i := startIdx; i < stats.GCCount; i++ {
			stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().Info("profiler",
		"fps", stats.FPS,
		"heap_mb", stats.HeapMB,
		"alloc_rate_mb_s", stats.AllocRateMB,
		"gc", stats.GCCount,
		"gc_last_pause_us", stats.LastPauseUs,
		"gc_max_pause_us", stats.MaxPauseUs,
		"sys_mb", stats.SysMB,
	)

	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.finish(currentTime, stats)
	return true
}

func (p *Profiler) finish(at time.Time, stats Stats) {
	p.last = stats
	p.frameCount = 0
	p.lastTime = at
}

// Last returns the most recent report, zero before the first one.
func (p *Profiler) Last() Stats {
	return p.last
}
