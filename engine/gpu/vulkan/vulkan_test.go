package vulkan

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

func TestRegistriesShareHandleSpace(t *testing.T) {
	var ids counter
	a := newRegistry[string](&ids)
	b := newRegistry[int](&ids)

	h1 := a.add("x")
	h2 := b.add(7)
	h3 := a.add("y")
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h2, h3)
	assert.NotEqual(t, gpu.NullHandle, h1)

	_, ok := b.get(h1)
	assert.False(t, ok)

	v, ok := a.remove(h1)
	require.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, 1, a.len())
	_, ok = a.remove(h1)
	assert.False(t, ok)
	assert.Equal(t, "", a.must(h1))
}

func TestCheckClassifiesResults(t *testing.T) {
	assert.NoError(t, check(vk.Success, "noop"))

	cases := map[vk.Result]error{
		vk.ErrorOutOfDate:           gpu.ErrSwapchainStale,
		vk.ErrorDeviceLost:          gpu.ErrDeviceLost,
		vk.ErrorSurfaceLost:         gpu.ErrDeviceLost,
		vk.ErrorOutOfDeviceMemory:   gpu.ErrOutOfMemory,
		vk.ErrorOutOfHostMemory:     gpu.ErrOutOfMemory,
		vk.ErrorLayerNotPresent:     gpu.ErrMissingExtension,
		vk.ErrorExtensionNotPresent: gpu.ErrMissingExtension,
	}
	for res, want := range cases {
		err := check(res, "presenting")
		assert.ErrorIs(t, err, want, "result %d", res)
		assert.Contains(t, err.Error(), "presenting")
	}

	err := check(vk.ErrorInitializationFailed, "creating device")
	require.Error(t, err)
	assert.False(t, gpu.IsStale(err))
	assert.True(t, gpu.IsFatal(err))
}

func TestCheckAllocWrapsAllocationError(t *testing.T) {
	assert.NoError(t, checkAlloc(vk.Success, "vertex buffer"))

	err := checkAlloc(vk.ErrorOutOfDeviceMemory, "vertex buffer")
	var allocErr *gpu.AllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)
}

func TestSharingCollapsesDuplicateFamilies(t *testing.T) {
	mode, families := sharing([]uint32{0, 0})
	assert.Equal(t, vk.SharingModeExclusive, mode)
	assert.Nil(t, families)

	mode, families = sharing([]uint32{0, 2, 0})
	assert.Equal(t, vk.SharingModeConcurrent, mode)
	assert.Equal(t, []uint32{0, 2}, families)
}

func TestSpirvWordsLittleEndian(t *testing.T) {
	words := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	assert.Equal(t, []uint32{0x07230203, 1}, words)
}

func TestCstrTerminatesOnce(t *testing.T) {
	assert.Equal(t, "VK_KHR_swapchain\x00", cstr(gpu.SwapchainExtensionName))
	assert.Equal(t, "main\x00", cstr("main\x00"))
	assert.Nil(t, cstrs(nil))
}

func TestSeverityFromFlags(t *testing.T) {
	assert.Equal(t, gpu.DebugSeverityError,
		severityFromVk(vk.DebugReportFlags(vk.DebugReportErrorBit|vk.DebugReportWarningBit)))
	assert.Equal(t, gpu.DebugSeverityPerformance, severityFromVk(vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit)))
	assert.Equal(t, gpu.DebugSeverityWarning, severityFromVk(vk.DebugReportFlags(vk.DebugReportWarningBit)))
	assert.Equal(t, gpu.DebugSeverityInfo, severityFromVk(vk.DebugReportFlags(vk.DebugReportInformationBit)))
}
