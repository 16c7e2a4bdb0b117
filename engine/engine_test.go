package engine

import (
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// fakeWindow runs the update callback up to iterations times, calling before(i) first.
type fakeWindow struct {
	iterations int
	before     func(i int)
	running    bool
	onUpdate   func()
	onResize   func(width, height int)
	width      int
	height     int
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(cb func())                  { w.onUpdate = cb }
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetScrollCallback(func(float32))              {}
func (w *fakeWindow) SetKeyDownCallback(func(uint32))              {}
func (w *fakeWindow) SetKeyUpCallback(func(uint32))                {}
func (w *fakeWindow) SetDragCallback(func(float32, float32))       {}
func (w *fakeWindow) RequiredInstanceExtensions() []string         { return nil }
func (w *fakeWindow) CreateSurface(any) (uintptr, error)           { return 1, nil }
func (w *fakeWindow) IsRunning() bool                              { return w.running }
func (w *fakeWindow) Quit()                                        { w.running = false }
func (w *fakeWindow) Close() error                                 { return nil }
func (w *fakeWindow) Width() int                                   { return w.width }
func (w *fakeWindow) Height() int                                  { return w.height }
func (w *fakeWindow) Minimized() bool                              { return w.width == 0 || w.height == 0 }

func (w *fakeWindow) ProcessMessages() {
	w.running = true
	for i := 0; i < w.iterations && w.running; i++ {
		if w.before != nil {
			w.before(i)
		}
		w.onUpdate()
	}
}

func (w *fakeWindow) resize(width, height int) {
	w.width, w.height = width, height
	w.onResize(width, height)
}

// fakeRenderer advances the clock by cost on every frame and fails with err from frame failAt.
type fakeRenderer struct {
	clock   *fakeClock
	cost    time.Duration
	frames  int
	failAt  int
	err     error
	paused  bool
	resizes [][2]int
}

var _ renderer.Renderer = &fakeRenderer{}

func (r *fakeRenderer) AddObject(object.Object) (renderer.BundleID, error) { return 0, nil }
func (r *fakeRenderer) RemoveObject(renderer.BundleID) error               { return nil }
func (r *fakeRenderer) RequestShaderReload()                               {}
func (r *fakeRenderer) Extent() gpu.Extent2D                               { return gpu.Extent2D{} }
func (r *fakeRenderer) Bundles() []model.Model                             { return nil }
func (r *fakeRenderer) Paused() bool                                       { return r.paused }
func (r *fakeRenderer) Destroy()                                           {}

func (r *fakeRenderer) Resize(width, height int) {
	r.resizes = append(r.resizes, [2]int{width, height})
	r.paused = width == 0 || height == 0
}

func (r *fakeRenderer) RenderFrame() error {
	if r.paused {
		return nil
	}
	r.frames++
	r.clock.advance(r.cost)
	if r.err != nil && r.frames >= r.failAt {
		return r.err
	}
	return nil
}

type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.advance(d)
}

func newTestEngine(t *testing.T, w *fakeWindow, r *fakeRenderer, opts ...EngineBuilderOption) Engine {
	t.Helper()
	opts = append([]EngineBuilderOption{
		WithWindow(w),
		WithRenderer(r),
		WithClock(r.clock.now, r.clock.sleep),
		WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func TestRunHoldsFrameCadence(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := &fakeWindow{iterations: 5, width: 800, height: 600}
	r := &fakeRenderer{clock: clock, cost: 5 * time.Millisecond}
	e := newTestEngine(t, w, r)

	var deltas []float32
	e.SetTickCallback(func(dt float32) { deltas = append(deltas, dt) })

	require.NoError(t, e.Run())
	assert.Equal(t, 5, r.frames)
	assert.Equal(t, uint64(5), e.Frames())
	require.Len(t, clock.sleeps, 5)
	for _, d := range clock.sleeps {
		assert.Equal(t, 11*time.Millisecond, d)
	}
	require.Len(t, deltas, 5)
	assert.InDelta(t, 0.016, deltas[4], 1e-6)
}

func TestSlowFrameDoesNotSleep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := &fakeWindow{iterations: 3, width: 800, height: 600}
	r := &fakeRenderer{clock: clock, cost: 40 * time.Millisecond}
	e := newTestEngine(t, w, r, WithFrameInterval(16*time.Millisecond))

	require.NoError(t, e.Run())
	assert.Empty(t, clock.sleeps)
}

func TestFatalRenderErrorStopsLoop(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := &fakeWindow{iterations: 10, width: 800, height: 600}
	r := &fakeRenderer{clock: clock, failAt: 3, err: errors.Wrap(gpu.ErrDeviceLost, "presenting")}
	e := newTestEngine(t, w, r)

	err := e.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)
	assert.Equal(t, 3, r.frames)
	assert.Equal(t, uint64(2), e.Frames())
	assert.False(t, w.IsRunning())
}

func TestPanicInTickIsRecovered(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := &fakeWindow{iterations: 10, width: 800, height: 600}
	r := &fakeRenderer{clock: clock}
	e := newTestEngine(t, w, r, WithTickCallback(func(float32) {
		if r.frames == 2 {
			panic("boom")
		}
	}))

	err := e.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFramePanic)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 2, r.frames)
}

func TestMinimizePausesRendering(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	w := &fakeWindow{iterations: 6, width: 800, height: 600}
	r := &fakeRenderer{clock: clock}
	w.before = func(i int) {
		switch i {
		case 2:
			w.resize(0, 0)
		case 4:
			w.resize(1024, 768)
		}
	}
	e := newTestEngine(t, w, r)

	require.NoError(t, e.Run())
	assert.Equal(t, [][2]int{{0, 0}, {1024, 768}}, r.resizes)
	assert.Equal(t, 4, r.frames)
	assert.Equal(t, uint64(4), e.Frames())
}

func TestNewEngineRequiresWindowAndRenderer(t *testing.T) {
	_, err := NewEngine()
	assert.Error(t, err)

	_, err = NewEngine(WithWindow(&fakeWindow{}))
	assert.Error(t, err)
}
