package swapchain

import (
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// PresentPreference selects how ChoosePresentMode trades latency against tearing.
type PresentPreference int

const (
	// PresentLowLatency prefers mailbox and falls back to FIFO.
	PresentLowLatency PresentPreference = iota
	// PresentVSync always uses FIFO.
	PresentVSync
	// PresentImmediate prefers immediate, then mailbox, then FIFO.
	PresentImmediate
)

// ChooseSurfaceFormat prefers B8G8R8A8_SRGB with the sRGB non-linear color space and
// otherwise returns the first available format.
//
// Parameters:
//   - available: the surface formats reported for the device
//
// Returns:
//   - gpu.SurfaceFormat: the chosen format
//   - error: gpu.ErrNoSupportedFormat if available is empty
func ChooseSurfaceFormat(available []gpu.SurfaceFormat) (gpu.SurfaceFormat, error) {
	if len(available) == 0 {
		return gpu.SurfaceFormat{}, errors.Wrap(gpu.ErrNoSupportedFormat, "surface reports no formats")
	}
	for _, f := range available {
		if f.Format == gpu.FormatB8G8R8A8Srgb && f.ColorSpace == gpu.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return available[0], nil
}

// ChoosePresentMode picks a present mode according to pref. FIFO is the fallback because
// every conforming implementation supports it.
//
// Parameters:
//   - available: the present modes reported for the device
//   - pref: the latency preference
//
// Returns:
//   - gpu.PresentMode: the chosen mode
func ChoosePresentMode(available []gpu.PresentMode, pref PresentPreference) gpu.PresentMode {
	has := func(mode gpu.PresentMode) bool {
		for _, m := range available {
			if m == mode {
				return true
			}
		}
		return false
	}
	switch pref {
	case PresentVSync:
		return gpu.PresentModeFifo
	case PresentImmediate:
		if has(gpu.PresentModeImmediate) {
			return gpu.PresentModeImmediate
		}
	}
	if has(gpu.PresentModeMailbox) {
		return gpu.PresentModeMailbox
	}
	return gpu.PresentModeFifo
}

// ChooseExtent returns the surface's current extent unless it is the "any size" sentinel,
// in which case the window size is clamped into the supported range.
//
// Parameters:
//   - caps: the current surface capabilities
//   - width, height: the window framebuffer size in pixels
//
// Returns:
//   - gpu.Extent2D: the swapchain extent
func ChooseExtent(caps gpu.SurfaceCapabilities, width, height uint32) gpu.Extent2D {
	if caps.CurrentExtent.Width != gpu.AnyExtent {
		return caps.CurrentExtent
	}
	return gpu.Extent2D{
		Width:  common.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: common.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount requests one image more than the minimum, capped by the maximum when the
// surface reports one (0 means unbounded).
func ChooseImageCount(caps gpu.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}
