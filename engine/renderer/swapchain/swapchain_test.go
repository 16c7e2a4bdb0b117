package swapchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := gpu.SurfaceFormat{Format: gpu.FormatB8G8R8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear}
	unorm := gpu.SurfaceFormat{Format: gpu.FormatB8G8R8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear}

	got, err := ChooseSurfaceFormat([]gpu.SurfaceFormat{unorm, srgb})
	require.NoError(t, err)
	assert.Equal(t, srgb, got)

	got, err = ChooseSurfaceFormat([]gpu.SurfaceFormat{unorm})
	require.NoError(t, err)
	assert.Equal(t, unorm, got)

	_, err = ChooseSurfaceFormat(nil)
	assert.ErrorIs(t, err, gpu.ErrNoSupportedFormat)
}

func TestChoosePresentMode(t *testing.T) {
	all := []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeImmediate, gpu.PresentModeMailbox}
	fifoOnly := []gpu.PresentMode{gpu.PresentModeFifo}

	tests := []struct {
		name      string
		available []gpu.PresentMode
		pref      PresentPreference
		want      gpu.PresentMode
	}{
		{"low latency picks mailbox", all, PresentLowLatency, gpu.PresentModeMailbox},
		{"low latency falls back to fifo", fifoOnly, PresentLowLatency, gpu.PresentModeFifo},
		{"vsync forces fifo", all, PresentVSync, gpu.PresentModeFifo},
		{"immediate when available", all, PresentImmediate, gpu.PresentModeImmediate},
		{"immediate falls back to mailbox", []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox}, PresentImmediate, gpu.PresentModeMailbox},
		{"immediate falls back to fifo", fifoOnly, PresentImmediate, gpu.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChoosePresentMode(tt.available, tt.pref))
		})
	}
}

func TestChooseExtent(t *testing.T) {
	caps := gpu.SurfaceCapabilities{
		CurrentExtent:  gpu.Extent2D{Width: gpu.AnyExtent, Height: gpu.AnyExtent},
		MinImageExtent: gpu.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: gpu.Extent2D{Width: 2000, Height: 1000},
	}
	assert.Equal(t, gpu.Extent2D{Width: 800, Height: 600}, ChooseExtent(caps, 800, 600))
	assert.Equal(t, gpu.Extent2D{Width: 2000, Height: 100}, ChooseExtent(caps, 4000, 10))

	caps.CurrentExtent = gpu.Extent2D{Width: 640, Height: 480}
	assert.Equal(t, gpu.Extent2D{Width: 640, Height: 480}, ChooseExtent(caps, 800, 600))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), ChooseImageCount(gpu.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, uint32(2), ChooseImageCount(gpu.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
	assert.Equal(t, uint32(4), ChooseImageCount(gpu.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 0}))
}

func newContext(t *testing.T, inst *gputest.Instance) device.DeviceContext {
	t.Helper()
	ctx, err := device.NewDeviceContext(inst, 1)
	require.NoError(t, err)
	return ctx
}

func TestCreateAndDestroy(t *testing.T) {
	inst := gputest.NewInstance()
	ctx := newContext(t, inst)
	dev := inst.LastDevice
	m := NewSwapchainManager(ctx)

	state, err := m.Create(800, 600)
	require.NoError(t, err)
	assert.Equal(t, gpu.Extent2D{Width: 800, Height: 600}, state.Extent)
	assert.Equal(t, 3, state.ImageCount())
	assert.Len(t, state.Views, 3)
	assert.Equal(t, gpu.FormatB8G8R8A8Srgb, state.Format.Format)
	assert.Equal(t, gpu.PresentModeMailbox, state.PresentMode)
	assert.Empty(t, dev.Swapchains[state.Swapchain].Desc.SharingFamilies, "exclusive sharing on a single family")

	m.Destroy(state)
	assert.Zero(t, dev.LiveTotal())
	assert.Greater(t, dev.CallIndex("DestroySwapchain", 0), dev.CallIndex("DestroyImageView", 0))

	ctx.Destroy()
	assert.Empty(t, dev.Violations)
}

func TestCreateConcurrentSharing(t *testing.T) {
	inst := gputest.NewInstance()
	inst.Devices[0].QueueFamilies = []gpu.QueueFamily{
		{Flags: gpu.QueueGraphics, Count: 1},
		{Flags: gpu.QueueTransfer, Count: 1, Present: true},
	}
	ctx := newContext(t, inst)
	m := NewSwapchainManager(ctx, WithPresentPreference(PresentVSync))

	state, err := m.Create(640, 480)
	require.NoError(t, err)
	desc := inst.LastDevice.Swapchains[state.Swapchain].Desc
	assert.Equal(t, []uint32{0, 1}, desc.SharingFamilies)
	assert.Equal(t, gpu.PresentModeFifo, desc.PresentMode)
	m.Destroy(state)
}

func TestCreateZeroExtent(t *testing.T) {
	inst := gputest.NewInstance()
	ctx := newContext(t, inst)
	m := NewSwapchainManager(ctx)

	_, err := m.Create(0, 0)
	assert.ErrorIs(t, err, gpu.ErrZeroExtent)

	inst.Caps.CurrentExtent = gpu.Extent2D{}
	_, err = m.Create(800, 600)
	assert.ErrorIs(t, err, gpu.ErrZeroExtent)

	assert.Zero(t, inst.LastDevice.CountCalls("CreateSwapchain"))
}

func TestRecreateDestroysOldFirst(t *testing.T) {
	inst := gputest.NewInstance()
	ctx := newContext(t, inst)
	dev := inst.LastDevice
	m := NewSwapchainManager(ctx)

	first, err := m.Create(800, 600)
	require.NoError(t, err)
	mark := len(dev.Calls)

	second, err := m.Recreate(first, 1024, 768)
	require.NoError(t, err)
	assert.NotEqual(t, first.Swapchain, second.Swapchain)
	assert.Equal(t, gpu.Extent2D{Width: 1024, Height: 768}, second.Extent)
	assert.Less(t, dev.CallIndex("DestroySwapchain", mark), dev.CallIndex("CreateSwapchain", mark))
	assert.Equal(t, 1, dev.LiveCount(gputest.KindSwapchain))
	assert.Equal(t, 3, dev.LiveCount(gputest.KindImageView))

	m.Destroy(second)
	assert.Empty(t, dev.Violations)
}

func TestCreateReleasesViewsOnFailure(t *testing.T) {
	inst := gputest.NewInstance()
	ctx := newContext(t, inst)
	dev := inst.LastDevice
	m := NewSwapchainManager(ctx)

	// the first two views succeed, the third fails
	dev.FailNext(gputest.KindImageView, nil)
	dev.FailNext(gputest.KindImageView, nil)
	dev.FailNext(gputest.KindImageView, gpu.ErrOutOfMemory)

	_, err := m.Create(800, 600)
	require.Error(t, err)
	var alloc *gpu.AllocationError
	assert.ErrorAs(t, err, &alloc)
	assert.Zero(t, dev.LiveTotal())
	assert.Empty(t, dev.Violations)
}
