package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Stats is one reporting window of frame and memory statistics.
type Stats struct {
	Frames       int
	FPS          float64
	AvgFrameTime time.Duration
	MaxFrameTime time.Duration
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	MaxGCPause   time.Duration
	SysMB        float64
}

// Profiler tracks frame rate, frame time and memory statistics and logs them once per
// reporting interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	maxFrame       time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
	now            func() time.Time
	logger         *slog.Logger
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slog.String("component", "profiler"))
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
	return p
}

// Tick should be called once per presented frame. When the update interval has elapsed it
// logs FPS, average and worst frame time, heap usage, allocation rate and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	if frame := currentTime.Sub(p.lastFrame); frame > p.maxFrame {
		p.maxFrame = frame
	}
	p.lastFrame = currentTime

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	gcCount := p.memStats.NumGC
	var maxPause uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	// PauseNs is a circular buffer of the last 256 pauses.
	for i := startIdx; i < gcCount; i++ {
		maxPause = max(maxPause, p.memStats.PauseNs[i%256])
	}

	p.last = Stats{
		Frames:       p.frameCount,
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		AvgFrameTime: elapsed / time.Duration(p.frameCount),
		MaxFrameTime: p.maxFrame,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:  float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      gcCount,
		MaxGCPause:   time.Duration(maxPause),
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
	}
	p.logger.Info("frame stats",
		slog.Float64("fps", p.last.FPS),
		slog.Duration("frame_avg", p.last.AvgFrameTime),
		slog.Duration("frame_max", p.last.MaxFrameTime),
		slog.Float64("heap_mb", p.last.HeapMB),
		slog.Float64("alloc_mb_s", p.last.AllocRateMB),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Duration("gc_pause_max", p.last.MaxGCPause),
		slog.Float64("sys_mb", p.last.SysMB),
	)

	p.frameCount = 0
	p.maxFrame = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Reset restarts the current window, discarding frames counted so far. Call it after a
// pause so the idle time is not reported as one long frame.
func (p *Profiler) Reset() {
	p.frameCount = 0
	p.maxFrame = 0
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
}

// Last returns the statistics of the most recently logged window.
func (p *Profiler) Last() Stats {
	return p.last
}
