package vulkan

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// check converts a Vulkan result into an error wrapping the matching gpu sentinel, so
// callers above the backend can classify failures with errors.Is.
func check(res vk.Result, what string) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate:
		return errors.Wrap(gpu.ErrSwapchainStale, what)
	case vk.ErrorDeviceLost, vk.ErrorSurfaceLost:
		return errors.Wrap(gpu.ErrDeviceLost, what)
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return errors.Wrap(gpu.ErrOutOfMemory, what)
	case vk.ErrorExtensionNotPresent, vk.ErrorLayerNotPresent, vk.ErrorFeatureNotPresent:
		return errors.Wrap(gpu.ErrMissingExtension, what)
	}
	err := vk.Error(res)
	if err == nil {
		err = errors.Errorf("VkResult %d", int32(res))
	}
	return errors.Wrap(err, what)
}

// checkAlloc is check for allocation calls: failures are reported as *gpu.AllocationError.
func checkAlloc(res vk.Result, resource string) error {
	return gpu.NewAllocationError(resource, check(res, "allocating "+resource))
}
