package profiler

import (
	"bytes"
	"log/slog"
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

func TestTickLogsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var out bytes.Buffer
	p := NewProfiler(
		WithClock(clock.now),
		WithLogger(slog.New(slog.NewTextHandler(&out, nil))),
	)

	for range 9 {
		clock.advance(100 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick())

	stats := p.Last()
	assert.Equal(t, 10, stats.Frames)
	assert.InDelta(t, 10.0, stats.FPS, 1e-9)
	assert.Equal(t, 100*time.Millisecond, stats.AvgFrameTime)
	assert.Equal(t, 100*time.Millisecond, stats.MaxFrameTime)
	assert.Contains(t, out.String(), "frame stats")
	assert.Contains(t, out.String(), "component=profiler")
}

func TestMaxFrameTimeTracksSlowestFrame(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Second), WithLogger(slog.New(slog.DiscardHandler)))

	clock.advance(10 * time.Millisecond)
	p.Tick()
	clock.advance(400 * time.Millisecond)
	p.Tick()
	clock.advance(600 * time.Millisecond)
	require.True(t, p.Tick())

	assert.Equal(t, 600*time.Millisecond, p.Last().MaxFrameTime)
	assert.Equal(t, 3, p.Last().Frames)
}

func TestResetDiscardsPause(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithLogger(slog.New(slog.DiscardHandler)))

	clock.advance(10 * time.Second)
	p.Reset()
	clock.advance(16 * time.Millisecond)
	assert.False(t, p.Tick())
}
