// Package device selects a physical device, picks the MSAA sample count and owns the logical
// device, its queues and the validation message reporter.
package device

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// QueueFamilies are the queue family indices the renderer submits and presents on.
type QueueFamilies struct {
	Graphics uint32
	Present  uint32
}

// Shared reports whether graphics and present use the same family.
func (q QueueFamilies) Shared() bool {
	return q.Graphics == q.Present
}

// Distinct returns the family indices with duplicates removed, graphics first.
func (q QueueFamilies) Distinct() []uint32 {
	if q.Shared() {
		return []uint32{q.Graphics}
	}
	return []uint32{q.Graphics, q.Present}
}

// DeviceContext owns the selected physical device, the logical device and its queues.
// Everything that creates GPU objects receives it, or the gpu.Device it exposes.
type DeviceContext interface {
	// Instance returns the instance the context was created from.
	Instance() gpu.Instance

	// Surface returns the presentation surface.
	Surface() gpu.Surface

	// Device returns the logical device.
	Device() gpu.Device

	// PhysicalDevice returns the snapshot of the selected adapter.
	PhysicalDevice() gpu.PhysicalDeviceInfo

	// QueueFamilies returns the graphics and present family indices.
	QueueFamilies() QueueFamilies

	// GraphicsQueue returns the queue used for every submission.
	GraphicsQueue() gpu.Queue

	// PresentQueue returns the queue used for presentation.
	PresentQueue() gpu.Queue

	// MSAASamples returns the sample count of the multisampled color and depth attachments.
	MSAASamples() gpu.SampleCount

	// SurfaceCapabilities queries the current surface limits.
	//
	// Returns:
	//   - gpu.SurfaceCapabilities: limits reflecting the current window size
	//   - error: error if the query fails
	SurfaceCapabilities() (gpu.SurfaceCapabilities, error)

	// FormatProperties returns the supported features of format on the selected adapter.
	FormatProperties(format gpu.Format) gpu.FormatProperties

	// FindSupportedFormat returns the first candidate supporting every feature with the
	// given tiling.
	//
	// Parameters:
	//   - candidates: formats in priority order
	//   - tiling: optimal or linear
	//   - features: the required feature flags
	//
	// Returns:
	//   - gpu.Format: the first supported candidate
	//   - error: gpu.ErrNoSupportedFormat if none qualifies
	FindSupportedFormat(candidates []gpu.Format, tiling gpu.ImageTiling, features gpu.FormatFeature) (gpu.Format, error)

	// Logger returns the logger the context was configured with, without its component
	// attribute, so dependent packages can tag their own.
	Logger() *slog.Logger

	// Destroy destroys the logical device and removes the validation reporter, in that order.
	// All other device objects must already be gone.
	Destroy()
}

// deviceContext is the implementation of the DeviceContext interface.
type deviceContext struct {
	instance gpu.Instance
	surface  gpu.Surface
	base     *slog.Logger
	logger   *slog.Logger

	// validation enables the debug report callback
	validation bool

	// maxSamples caps the MSAA sample count; 0 means no cap
	maxSamples gpu.SampleCount

	physical gpu.PhysicalDeviceInfo
	device   gpu.Device
	families QueueFamilies
	graphics gpu.Queue
	present  gpu.Queue
	samples  gpu.SampleCount
	reporter gpu.DebugReporter
}

var _ DeviceContext = &deviceContext{}

// NewDeviceContext picks a physical device for surface, creates the logical device and, when
// validation is enabled, installs a validation message reporter scoped to the context.
//
// Parameters:
//   - instance: the graphics instance
//   - surface: the presentation surface
//   - options: functional options
//
// Returns:
//   - DeviceContext: the ready context
//   - error: a *gpu.SetupError wrapping gpu.ErrNoSuitableDevice, or a device creation error
func NewDeviceContext(instance gpu.Instance, surface gpu.Surface, options ...DeviceContextBuilderOption) (DeviceContext, error) {
	c := &deviceContext{
		instance: instance,
		surface:  surface,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.base = c.logger
	c.logger = c.logger.With(slog.String("component", "device"))

	var undo gpu.Cleanup
	defer undo.Run()

	if c.validation {
		reporter, err := instance.CreateDebugReporter(c.report)
		if err != nil {
			return nil, gpu.NewSetupError("debug report", err)
		}
		c.reporter = reporter
		undo.Add(func() { instance.DestroyDebugReporter(reporter) })
	}

	devices, err := instance.PhysicalDevices(surface)
	if err != nil {
		return nil, gpu.NewSetupError("physical device enumeration", err)
	}
	physical, families, err := c.pick(devices)
	if err != nil {
		return nil, err
	}
	c.physical = physical
	c.families = families
	c.samples = MaxUsableSampleCount(physical.Limits, c.maxSamples)

	c.device, err = instance.CreateDevice(physical.Handle, gpu.DeviceDesc{
		QueueFamilies: families.Distinct(),
		Extensions:    []string{gpu.SwapchainExtensionName},
		Features:      gpu.Features{SamplerAnisotropy: true},
	})
	if err != nil {
		return nil, gpu.NewSetupError("logical device", err)
	}
	c.graphics = c.device.Queue(families.Graphics)
	c.present = c.device.Queue(families.Present)

	c.logger.Info("selected physical device",
		"device", physical.Name,
		"type", physical.Type,
		"graphics_family", families.Graphics,
		"present_family", families.Present,
		"msaa", c.samples.Int(),
	)
	undo.Disarm()
	return c, nil
}

// pick returns the preferred passing device: the first discrete GPU, otherwise the first
// device that passed every check.
func (c *deviceContext) pick(devices []gpu.PhysicalDeviceInfo) (gpu.PhysicalDeviceInfo, QueueFamilies, error) {
	chosen := -1
	var chosenFamilies QueueFamilies
	for i, d := range devices {
		families, reason := Evaluate(d)
		if reason != "" {
			c.logger.Warn("rejecting physical device", "device", d.Name, "reason", reason)
			continue
		}
		if chosen < 0 || (d.Type == gpu.PhysicalDeviceTypeDiscreteGPU && devices[chosen].Type != gpu.PhysicalDeviceTypeDiscreteGPU) {
			chosen = i
			chosenFamilies = families
		}
	}
	if chosen < 0 {
		return gpu.PhysicalDeviceInfo{}, QueueFamilies{}, gpu.NewSetupError("physical device selection",
			errors.Wrapf(gpu.ErrNoSuitableDevice, "%d device(s) examined", len(devices)))
	}
	return devices[chosen], chosenFamilies, nil
}

// Evaluate runs every suitability check on a physical device.
//
// Parameters:
//   - d: the physical device snapshot
//
// Returns:
//   - QueueFamilies: the chosen graphics and present families, valid when reason is empty
//   - string: the first failed check, or empty if the device is suitable
func Evaluate(d gpu.PhysicalDeviceInfo) (QueueFamilies, string) {
	graphics, present := -1, -1
	for i, f := range d.QueueFamilies {
		if f.Count == 0 {
			continue
		}
		if graphics < 0 && f.Flags&gpu.QueueGraphics != 0 {
			graphics = i
		}
		if present < 0 && f.Present {
			present = i
		}
	}
	// a family that does both avoids concurrent image sharing
	for i, f := range d.QueueFamilies {
		if f.Count > 0 && f.Flags&gpu.QueueGraphics != 0 && f.Present {
			graphics, present = i, i
			break
		}
	}
	switch {
	case graphics < 0:
		return QueueFamilies{}, "no graphics queue family"
	case present < 0:
		return QueueFamilies{}, "no present queue family"
	case !d.HasExtension(gpu.SwapchainExtensionName):
		return QueueFamilies{}, "missing extension " + gpu.SwapchainExtensionName
	case len(d.SurfaceFormats) == 0:
		return QueueFamilies{}, "no surface formats"
	case len(d.PresentModes) == 0:
		return QueueFamilies{}, "no present modes"
	case !d.Features.SamplerAnisotropy:
		return QueueFamilies{}, "sampler anisotropy not supported"
	}
	return QueueFamilies{Graphics: uint32(graphics), Present: uint32(present)}, ""
}

// MaxUsableSampleCount returns the highest sample count supported by both color and depth
// framebuffers, optionally capped.
//
// Parameters:
//   - limits: the device limits
//   - ceiling: the highest acceptable count, or 0 for no cap
//
// Returns:
//   - gpu.SampleCount: a single-bit sample count, at least gpu.SampleCount1
func MaxUsableSampleCount(limits gpu.Limits, ceiling gpu.SampleCount) gpu.SampleCount {
	counts := limits.FramebufferColorSampleCounts & limits.FramebufferDepthSampleCounts
	for _, s := range gpu.SampleCountPreference {
		if ceiling != 0 && s > ceiling {
			continue
		}
		if counts&s != 0 {
			return s
		}
	}
	return gpu.SampleCount1
}

func (c *deviceContext) report(severity gpu.DebugSeverity, layer, message string) {
	level := slog.LevelDebug
	switch severity {
	case gpu.DebugSeverityError:
		level = slog.LevelError
	case gpu.DebugSeverityWarning, gpu.DebugSeverityPerformance:
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, message, "layer", layer)
}

func (c *deviceContext) Instance() gpu.Instance                 { return c.instance }
func (c *deviceContext) Surface() gpu.Surface                   { return c.surface }
func (c *deviceContext) Device() gpu.Device                     { return c.device }
func (c *deviceContext) PhysicalDevice() gpu.PhysicalDeviceInfo { return c.physical }
func (c *deviceContext) QueueFamilies() QueueFamilies           { return c.families }
func (c *deviceContext) GraphicsQueue() gpu.Queue               { return c.graphics }
func (c *deviceContext) PresentQueue() gpu.Queue                { return c.present }
func (c *deviceContext) MSAASamples() gpu.SampleCount           { return c.samples }
func (c *deviceContext) Logger() *slog.Logger                   { return c.base }

func (c *deviceContext) SurfaceCapabilities() (gpu.SurfaceCapabilities, error) {
	caps, err := c.instance.SurfaceCapabilities(c.physical.Handle, c.surface)
	if err != nil {
		return gpu.SurfaceCapabilities{}, errors.Wrap(err, "querying surface capabilities")
	}
	return caps, nil
}

func (c *deviceContext) FormatProperties(format gpu.Format) gpu.FormatProperties {
	return c.instance.FormatProperties(c.physical.Handle, format)
}

func (c *deviceContext) FindSupportedFormat(candidates []gpu.Format, tiling gpu.ImageTiling, features gpu.FormatFeature) (gpu.Format, error) {
	for _, f := range candidates {
		if c.FormatProperties(f).Supports(tiling, features) {
			return f, nil
		}
	}
	return gpu.FormatUndefined, errors.Wrapf(gpu.ErrNoSupportedFormat, "none of %v supports features 0x%x", candidates, uint32(features))
}

func (c *deviceContext) Destroy() {
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
	}
	if c.reporter != 0 {
		c.instance.DestroyDebugReporter(c.reporter)
		c.reporter = 0
	}
}
