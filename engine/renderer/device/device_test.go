package device

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestEvaluate(t *testing.T) {
	good := gputest.SuitableDevice(1, "good")

	tests := []struct {
		name   string
		mutate func(d *gpu.PhysicalDeviceInfo)
		reason string
	}{
		{"suitable", func(d *gpu.PhysicalDeviceInfo) {}, ""},
		{"no graphics", func(d *gpu.PhysicalDeviceInfo) {
			d.QueueFamilies = []gpu.QueueFamily{{Flags: gpu.QueueCompute, Count: 1, Present: true}}
		}, "no graphics queue family"},
		{"no present", func(d *gpu.PhysicalDeviceInfo) {
			d.QueueFamilies = []gpu.QueueFamily{{Flags: gpu.QueueGraphics, Count: 1}}
		}, "no present queue family"},
		{"no swapchain", func(d *gpu.PhysicalDeviceInfo) { d.Extensions = nil }, "missing extension VK_KHR_swapchain"},
		{"no formats", func(d *gpu.PhysicalDeviceInfo) { d.SurfaceFormats = nil }, "no surface formats"},
		{"no present modes", func(d *gpu.PhysicalDeviceInfo) { d.PresentModes = nil }, "no present modes"},
		{"no anisotropy", func(d *gpu.PhysicalDeviceInfo) { d.Features.SamplerAnisotropy = false }, "sampler anisotropy not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := good
			d.QueueFamilies = append([]gpu.QueueFamily(nil), good.QueueFamilies...)
			tt.mutate(&d)
			_, reason := Evaluate(d)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEvaluateSplitFamilies(t *testing.T) {
	d := gputest.SuitableDevice(1, "split")
	d.QueueFamilies = []gpu.QueueFamily{
		{Flags: gpu.QueueGraphics, Count: 1},
		{Flags: gpu.QueueTransfer, Count: 1, Present: true},
	}
	families, reason := Evaluate(d)
	require.Empty(t, reason)
	assert.Equal(t, QueueFamilies{Graphics: 0, Present: 1}, families)
	assert.False(t, families.Shared())
	assert.Equal(t, []uint32{0, 1}, families.Distinct())
}

func TestEvaluatePrefersCombinedFamily(t *testing.T) {
	d := gputest.SuitableDevice(1, "combined")
	d.QueueFamilies = []gpu.QueueFamily{
		{Flags: gpu.QueueGraphics, Count: 1},
		{Flags: gpu.QueueTransfer, Count: 1, Present: true},
		{Flags: gpu.QueueGraphics, Count: 1, Present: true},
	}
	families, reason := Evaluate(d)
	require.Empty(t, reason)
	assert.Equal(t, QueueFamilies{Graphics: 2, Present: 2}, families)
}

func TestMaxUsableSampleCount(t *testing.T) {
	limits := gpu.Limits{
		FramebufferColorSampleCounts: gpu.SampleCount1 | gpu.SampleCount2 | gpu.SampleCount4 | gpu.SampleCount8,
		FramebufferDepthSampleCounts: gpu.SampleCount1 | gpu.SampleCount2 | gpu.SampleCount4,
	}
	assert.Equal(t, gpu.SampleCount4, MaxUsableSampleCount(limits, 0))
	assert.Equal(t, gpu.SampleCount2, MaxUsableSampleCount(limits, gpu.SampleCount2))
	assert.Equal(t, gpu.SampleCount1, MaxUsableSampleCount(gpu.Limits{}, 0))
}

func TestNewDeviceContextLogsRejections(t *testing.T) {
	inst := gputest.NewInstance()
	bad := gputest.SuitableDevice(1, "Old Integrated")
	bad.Features.SamplerAnisotropy = false
	inst.Devices = []gpu.PhysicalDeviceInfo{bad, gputest.SuitableDevice(2, "Fake Discrete GPU")}
	logger, buf := bufferLogger()

	ctx, err := NewDeviceContext(inst, 99, WithLogger(logger))
	require.NoError(t, err)
	defer ctx.Destroy()

	assert.Equal(t, "Fake Discrete GPU", ctx.PhysicalDevice().Name)
	assert.Contains(t, buf.String(), "Old Integrated")
	assert.Contains(t, buf.String(), "sampler anisotropy not supported")
	assert.Contains(t, buf.String(), "component=device")
	assert.Equal(t, gpu.SampleCount8, ctx.MSAASamples())
	assert.Equal(t, []uint32{0}, inst.LastDevice.Desc.QueueFamilies)
	assert.True(t, inst.LastDevice.Desc.Features.SamplerAnisotropy)
	assert.Equal(t, []string{gpu.SwapchainExtensionName}, inst.LastDevice.Desc.Extensions)
}

func TestNewDeviceContextPrefersDiscrete(t *testing.T) {
	inst := gputest.NewInstance()
	integrated := gputest.SuitableDevice(1, "integrated")
	integrated.Type = gpu.PhysicalDeviceTypeIntegratedGPU
	inst.Devices = []gpu.PhysicalDeviceInfo{integrated, gputest.SuitableDevice(2, "discrete")}

	ctx, err := NewDeviceContext(inst, 1)
	require.NoError(t, err)
	defer ctx.Destroy()
	assert.Equal(t, gpu.PhysicalDevice(2), ctx.PhysicalDevice().Handle)
}

func TestNewDeviceContextNoSuitableDevice(t *testing.T) {
	inst := gputest.NewInstance()
	inst.Devices[0].Extensions = nil

	_, err := NewDeviceContext(inst, 1, WithValidation(true))
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrNoSuitableDevice)
	var setup *gpu.SetupError
	assert.ErrorAs(t, err, &setup)
	assert.Zero(t, inst.Reporters(), "reporter must not outlive a failed context")
}

func TestDebugReporterScopedToContext(t *testing.T) {
	inst := gputest.NewInstance()
	logger, buf := bufferLogger()

	ctx, err := NewDeviceContext(inst, 1, WithValidation(true), WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, 1, inst.Reporters())

	inst.Emit(gpu.DebugSeverityError, "Validation", "bad barrier")
	assert.Contains(t, buf.String(), "bad barrier")
	assert.Contains(t, buf.String(), "level=ERROR")

	ctx.Destroy()
	assert.Zero(t, inst.Reporters())
	assert.Empty(t, inst.LastDevice.Violations)
}

func TestFindSupportedFormat(t *testing.T) {
	inst := gputest.NewInstance()
	candidates := []gpu.Format{gpu.FormatD32Sfloat, gpu.FormatD32SfloatS8Uint, gpu.FormatD24UnormS8Uint}
	inst.OnlyOptimalFeatures(gpu.FormatFeatureDepthStencilAttachment, []gpu.Format{gpu.FormatD24UnormS8Uint}, candidates...)

	ctx, err := NewDeviceContext(inst, 1)
	require.NoError(t, err)
	defer ctx.Destroy()

	f, err := ctx.FindSupportedFormat(candidates, gpu.ImageTilingOptimal, gpu.FormatFeatureDepthStencilAttachment)
	require.NoError(t, err)
	assert.Equal(t, gpu.FormatD24UnormS8Uint, f)

	_, err = ctx.FindSupportedFormat(candidates, gpu.ImageTilingLinear, gpu.FormatFeatureDepthStencilAttachment)
	assert.ErrorIs(t, err, gpu.ErrNoSupportedFormat)
}
