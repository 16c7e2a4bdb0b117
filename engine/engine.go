package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// ErrFramePanic wraps a panic recovered from inside a frame.
var ErrFramePanic = errors.New("frame panicked")

// engine implements the Engine interface.
// It drives the renderer from the window's message loop at a fixed cadence.
type engine struct {
	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	// frameInterval is the target frame duration; the loop sleeps the remainder.
	frameInterval time.Duration
	tickCallback  func(deltaTime float32)

	now   func() time.Time
	sleep func(time.Duration)

	lastFrame time.Time
	frames    uint64
	err       error

	logger *slog.Logger
}

// Engine is the main entry point for the engine.
// It owns the loop that pumps window events, runs the tick callback and renders frames.
// Every method must be called from the goroutine that created the window.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer the loop drives.
	Renderer() renderer.Renderer

	// EnableProfiler enables once-per-second frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// SetFrameInterval sets the target frame duration. The loop sleeps whatever part of the
	// interval the frame did not use.
	//
	// Parameters:
	//   - interval: the target duration (defaults to 16ms if <= 0)
	SetFrameInterval(interval time.Duration)

	// SetTickCallback registers the function called before each frame is rendered.
	// Use this for input processing and animation updates.
	//
	// Parameters:
	//   - callback: function receiving the time since the previous frame in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Frames returns the number of frames rendered so far.
	Frames() uint64

	// Run pumps the window until it closes, a frame fails fatally or Quit is called.
	//
	// Returns:
	//   - error: the fatal frame error, nil on a normal close
	Run() error

	// Quit stops the loop after the current iteration. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, profiling, cadence)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the window or renderer option is missing
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		frameInterval: 16 * time.Millisecond,
		now:           time.Now,
		sleep:         time.Sleep,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window == nil {
		return nil, errors.New("engine requires a window")
	}
	if e.renderer == nil {
		return nil, errors.New("engine requires a renderer")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With(slog.String("component", "engine"))
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger), profiler.WithClock(e.now))
	}

	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
		if width == 0 || height == 0 {
			e.logger.Info("window minimized, rendering paused")
			return
		}
		e.profiler.Reset()
	})
	e.window.SetUpdateCallback(e.frame)
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
	e.profiler.Reset()
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetFrameInterval(interval time.Duration) {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	e.frameInterval = interval
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) Frames() uint64 {
	return e.frames
}

func (e *engine) Run() error {
	e.lastFrame = e.now()
	e.logger.Info("engine running", slog.Duration("frame_interval", e.frameInterval))
	e.window.ProcessMessages()
	e.logger.Info("engine stopped", slog.Uint64("frames", e.frames))
	return e.err
}

func (e *engine) Quit() {
	e.window.Quit()
}

// frame runs one loop iteration: tick, render, profile, then sleep out the interval.
// A panic or fatal render error is logged, kept for Run and stops the loop.
func (e *engine) frame() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("frame recovered from panic", slog.Any("panic", r))
			e.fail(errors.Wrap(ErrFramePanic, fmt.Sprint(r)))
		}
	}()

	start := e.now()
	dt := float32(start.Sub(e.lastFrame).Seconds())
	e.lastFrame = start

	if e.tickCallback != nil {
		e.tickCallback(dt)
	}

	if err := e.renderer.RenderFrame(); err != nil {
		e.logger.Error("fatal render error", slog.Any("error", err))
		e.fail(err)
		return
	}
	if !e.renderer.Paused() {
		e.frames++
		if e.profilingEnabled {
			e.profiler.Tick()
		}
	}

	if remaining := e.frameInterval - e.now().Sub(start); remaining > 0 {
		e.sleep(remaining)
	}
}

func (e *engine) fail(err error) {
	if e.err == nil {
		e.err = err
	}
	e.window.Quit()
}
