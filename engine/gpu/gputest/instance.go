// Package gputest provides an in-memory implementation of the gpu seam for tests.
//
// The fake executes buffer copies at submit time, tracks fence, semaphore and image layout
// state, counts live handles per kind and records every misuse it can detect as a
// violation instead of failing outright, so tests can assert on the full sequence.
package gputest

import (
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Instance is a fake gpu.Instance. Its fields may be edited freely between calls.
type Instance struct {
	Devices []gpu.PhysicalDeviceInfo

	// Caps is returned by SurfaceCapabilities for every device.
	Caps gpu.SurfaceCapabilities

	// Formats overrides FormatProperties per format. Formats absent from the map support every feature.
	Formats map[gpu.Format]gpu.FormatProperties

	// CreateDeviceErr, when set, is returned by CreateDevice.
	CreateDeviceErr error

	// LastDevice is the most recently created device.
	LastDevice *Device

	reporters map[gpu.DebugReporter]func(gpu.DebugSeverity, string, string)
	next      gpu.Handle
}

var _ gpu.Instance = &Instance{}

// NewInstance returns an instance exposing one suitable discrete GPU, a surface whose extent
// follows the window (sentinel current extent) and full support for every format.
func NewInstance() *Instance {
	return &Instance{
		Devices: []gpu.PhysicalDeviceInfo{SuitableDevice(1, "Fake Discrete GPU")},
		Caps: gpu.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  gpu.Extent2D{Width: gpu.AnyExtent, Height: gpu.AnyExtent},
			MinImageExtent: gpu.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: gpu.Extent2D{Width: 4096, Height: 4096},
		},
		Formats:   map[gpu.Format]gpu.FormatProperties{},
		reporters: map[gpu.DebugReporter]func(gpu.DebugSeverity, string, string){},
		next:      1 << 40,
	}
}

// SuitableDevice returns a physical device snapshot that passes every selection check,
// with one combined graphics+present queue family and 8x MSAA.
func SuitableDevice(handle gpu.PhysicalDevice, name string) gpu.PhysicalDeviceInfo {
	return gpu.PhysicalDeviceInfo{
		Handle: handle,
		Name:   name,
		Type:   gpu.PhysicalDeviceTypeDiscreteGPU,
		QueueFamilies: []gpu.QueueFamily{
			{Flags: gpu.QueueGraphics | gpu.QueueTransfer, Count: 1, Present: true},
		},
		Extensions: []string{gpu.SwapchainExtensionName},
		SurfaceFormats: []gpu.SurfaceFormat{
			{Format: gpu.FormatB8G8R8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear},
			{Format: gpu.FormatB8G8R8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox},
		Features:     gpu.Features{SamplerAnisotropy: true},
		Limits: gpu.Limits{
			MaxSamplerAnisotropy:         16,
			MaxPushConstantsSize:         128,
			FramebufferColorSampleCounts: gpu.SampleCount1 | gpu.SampleCount2 | gpu.SampleCount4 | gpu.SampleCount8,
			FramebufferDepthSampleCounts: gpu.SampleCount1 | gpu.SampleCount2 | gpu.SampleCount4 | gpu.SampleCount8 | gpu.SampleCount16,
		},
	}
}

func (i *Instance) PhysicalDevices(_ gpu.Surface) ([]gpu.PhysicalDeviceInfo, error) {
	out := make([]gpu.PhysicalDeviceInfo, len(i.Devices))
	copy(out, i.Devices)
	return out, nil
}

func (i *Instance) SurfaceCapabilities(_ gpu.PhysicalDevice, _ gpu.Surface) (gpu.SurfaceCapabilities, error) {
	return i.Caps, nil
}

func (i *Instance) FormatProperties(_ gpu.PhysicalDevice, format gpu.Format) gpu.FormatProperties {
	if props, ok := i.Formats[format]; ok {
		return props
	}
	return gpu.FormatProperties{
		LinearTilingFeatures:  ^gpu.FormatFeature(0),
		OptimalTilingFeatures: ^gpu.FormatFeature(0),
	}
}

// OnlyOptimalFeatures restricts format support: every listed format supports features on
// optimal tiling and nothing on linear tiling; every other format in candidates supports nothing.
func (i *Instance) OnlyOptimalFeatures(features gpu.FormatFeature, supported []gpu.Format, candidates ...gpu.Format) {
	for _, f := range candidates {
		i.Formats[f] = gpu.FormatProperties{}
	}
	for _, f := range supported {
		i.Formats[f] = gpu.FormatProperties{OptimalTilingFeatures: features}
	}
}

func (i *Instance) CreateDevice(pd gpu.PhysicalDevice, desc gpu.DeviceDesc) (gpu.Device, error) {
	if i.CreateDeviceErr != nil {
		return nil, i.CreateDeviceErr
	}
	d := NewDevice()
	d.PhysicalDevice = pd
	d.Desc = desc
	i.LastDevice = d
	return d, nil
}

func (i *Instance) CreateDebugReporter(callback func(gpu.DebugSeverity, string, string)) (gpu.DebugReporter, error) {
	i.next++
	h := gpu.DebugReporter(i.next)
	i.reporters[h] = callback
	return h, nil
}

func (i *Instance) DestroyDebugReporter(reporter gpu.DebugReporter) {
	delete(i.reporters, reporter)
}

// Reporters returns the number of installed debug reporters.
func (i *Instance) Reporters() int {
	return len(i.reporters)
}

// Emit delivers a validation message to every installed reporter.
func (i *Instance) Emit(severity gpu.DebugSeverity, layer, message string) {
	for _, cb := range i.reporters {
		cb(severity, layer, message)
	}
}
