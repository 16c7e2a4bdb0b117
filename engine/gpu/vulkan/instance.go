// Package vulkan implements the gpu Instance and Device interfaces on top of
// github.com/vulkan-go/vulkan.
//
// Native handles never leave the package: every object is registered under an opaque
// gpu handle and looked up again on use.
package vulkan

import (
	"log/slog"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Instance is a Vulkan instance together with the surfaces and debug reporters created from it.
type Instance struct {
	instance vk.Instance

	ids       counter
	physical  registry[vk.PhysicalDevice]
	surfaces  registry[vk.Surface]
	reporters registry[vk.DebugReportCallback]

	appName     string
	extensions  []string
	validation  bool
	debugReport bool

	logger *slog.Logger
}

var _ gpu.Instance = &Instance{}

// NewInstance loads the Vulkan entry points through procAddr and creates an instance.
//
// Parameters:
//   - procAddr: the vkGetInstanceProcAddr pointer provided by the window system
//   - options: functional options (extensions, validation, logger)
//
// Returns:
//   - *Instance: the created instance
//   - error: a *gpu.SetupError if the loader, a layer or an extension is unavailable
func NewInstance(procAddr unsafe.Pointer, options ...InstanceBuilderOption) (*Instance, error) {
	i := &Instance{appName: "oxyvk"}
	i.physical = newRegistry[vk.PhysicalDevice](&i.ids)
	i.surfaces = newRegistry[vk.Surface](&i.ids)
	i.reporters = newRegistry[vk.DebugReportCallback](&i.ids)
	for _, opt := range options {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	i.logger = i.logger.With(slog.String("component", "vulkan"))

	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, gpu.NewSetupError("loading vulkan", err)
	}

	extensions := append([]string(nil), i.extensions...)
	var layers []string
	if i.validation {
		if !instanceLayerAvailable(gpu.ValidationLayerName) {
			return nil, gpu.NewSetupError("creating instance",
				errors.Wrap(gpu.ErrMissingExtension, gpu.ValidationLayerName))
		}
		layers = append(layers, gpu.ValidationLayerName)
		if instanceExtensionAvailable(gpu.DebugReportExtensionName) {
			extensions = append(extensions, gpu.DebugReportExtensionName)
			i.debugReport = true
		} else {
			i.logger.Warn("debug report extension unavailable, validation messages go to stderr")
		}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cstr(i.appName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        cstr("oxyvk"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: cstrs(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     cstrs(layers),
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&createInfo, nil, &instance), "creating instance"); err != nil {
		return nil, gpu.NewSetupError("creating instance", err)
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, gpu.NewSetupError("loading instance functions", err)
	}
	i.instance = instance
	i.logger.Info("instance created",
		slog.Any("extensions", extensions),
		slog.Bool("validation", i.validation),
	)
	return i, nil
}

// CreateSurface wraps a window surface created by create, typically Window.CreateSurface.
//
// Parameters:
//   - create: receives the native vk.Instance and returns a raw VkSurfaceKHR
//
// Returns:
//   - gpu.Surface: the registered surface
//   - error: a *gpu.SetupError if the window system cannot create the surface
func (i *Instance) CreateSurface(create func(instance any) (uintptr, error)) (gpu.Surface, error) {
	ptr, err := create(i.instance)
	if err != nil {
		return 0, gpu.NewSetupError("creating surface", err)
	}
	return gpu.Surface(i.surfaces.add(vk.SurfaceFromPointer(ptr))), nil
}

// DestroySurface destroys a surface created by CreateSurface.
func (i *Instance) DestroySurface(surface gpu.Surface) {
	if s, ok := i.surfaces.remove(gpu.Handle(surface)); ok {
		vk.DestroySurface(i.instance, s, nil)
	}
}

// Destroy destroys every remaining surface and reporter, then the instance. Devices created
// from it must already be destroyed.
func (i *Instance) Destroy() {
	if i.instance == nil {
		return
	}
	for h := range i.reporters.items {
		i.DestroyDebugReporter(gpu.DebugReporter(h))
	}
	for h := range i.surfaces.items {
		i.DestroySurface(gpu.Surface(h))
	}
	vk.DestroyInstance(i.instance, nil)
	i.instance = nil
	i.logger.Debug("instance destroyed")
}

func (i *Instance) PhysicalDevices(surface gpu.Surface) ([]gpu.PhysicalDeviceInfo, error) {
	vkSurface, ok := i.surfaces.get(gpu.Handle(surface))
	if !ok {
		return nil, errors.New("unknown surface")
	}

	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(i.instance, &count, nil), "enumerating physical devices"); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(i.instance, &count, devices), "enumerating physical devices"); err != nil {
		return nil, err
	}

	// Handles are re-issued per enumeration; the previous snapshot's handles stay valid.
	out := make([]gpu.PhysicalDeviceInfo, 0, count)
	for _, pd := range devices[:count] {
		info := describePhysicalDevice(pd, vkSurface)
		info.Handle = gpu.PhysicalDevice(i.physicalHandle(pd))
		out = append(out, info)
	}
	return out, nil
}

func (i *Instance) physicalHandle(pd vk.PhysicalDevice) gpu.Handle {
	for h, known := range i.physical.items {
		if known == pd {
			return h
		}
	}
	return i.physical.add(pd)
}

func (i *Instance) SurfaceCapabilities(pd gpu.PhysicalDevice, surface gpu.Surface) (gpu.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(i.physical.must(gpu.Handle(pd)), i.surfaces.must(gpu.Handle(surface)), &caps)
	if err := check(res, "querying surface capabilities"); err != nil {
		return gpu.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return gpu.SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    extentFromVk(caps.CurrentExtent),
		MinImageExtent:   extentFromVk(caps.MinImageExtent),
		MaxImageExtent:   extentFromVk(caps.MaxImageExtent),
		CurrentTransform: uint32(caps.CurrentTransform),
	}, nil
}

func (i *Instance) FormatProperties(pd gpu.PhysicalDevice, format gpu.Format) gpu.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(i.physical.must(gpu.Handle(pd)), vk.Format(format), &props)
	props.Deref()
	return gpu.FormatProperties{
		LinearTilingFeatures:  gpu.FormatFeature(props.LinearTilingFeatures),
		OptimalTilingFeatures: gpu.FormatFeature(props.OptimalTilingFeatures),
	}
}

func (i *Instance) CreateDevice(pd gpu.PhysicalDevice, desc gpu.DeviceDesc) (gpu.Device, error) {
	physical, ok := i.physical.get(gpu.Handle(pd))
	if !ok {
		return nil, errors.New("unknown physical device")
	}

	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(desc.QueueFamilies))
	for _, family := range desc.QueueFamilies {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	features := []vk.PhysicalDeviceFeatures{{
		SamplerAnisotropy: boolToVk(desc.Features.SamplerAnisotropy),
	}}
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(desc.Extensions)),
		PpEnabledExtensionNames: cstrs(desc.Extensions),
		PEnabledFeatures:        features,
	}
	if i.validation {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = cstrs([]string{gpu.ValidationLayerName})
	}

	var device vk.Device
	if err := check(vk.CreateDevice(physical, &createInfo, nil, &device), "creating logical device"); err != nil {
		return nil, err
	}
	return newDevice(i, physical, device, desc.QueueFamilies), nil
}

func (i *Instance) CreateDebugReporter(callback func(severity gpu.DebugSeverity, layer, message string)) (gpu.DebugReporter, error) {
	if !i.debugReport {
		return gpu.DebugReporter(gpu.NullHandle), nil
	}
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: func(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _ uint64, _ uint,
			_ int32, layerPrefix string, message string, _ unsafe.Pointer) vk.Bool32 {
			callback(severityFromVk(flags), layerPrefix, message)
			return vk.False
		},
	}
	var reporter vk.DebugReportCallback
	if err := check(vk.CreateDebugReportCallback(i.instance, &createInfo, nil, &reporter), "creating debug report callback"); err != nil {
		return gpu.DebugReporter(gpu.NullHandle), err
	}
	return gpu.DebugReporter(i.reporters.add(reporter)), nil
}

func (i *Instance) DestroyDebugReporter(reporter gpu.DebugReporter) {
	if r, ok := i.reporters.remove(gpu.Handle(reporter)); ok {
		vk.DestroyDebugReportCallback(i.instance, r, nil)
	}
}

// describePhysicalDevice snapshots everything device selection reads about pd.
func describePhysicalDevice(pd vk.PhysicalDevice, surface vk.Surface) gpu.PhysicalDeviceInfo {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	info := gpu.PhysicalDeviceInfo{
		Name:     vk.ToString(props.DeviceName[:]),
		Type:     gpu.PhysicalDeviceType(props.DeviceType),
		Features: gpu.Features{SamplerAnisotropy: features.SamplerAnisotropy.B()},
		Limits: gpu.Limits{
			MaxSamplerAnisotropy:         props.Limits.MaxSamplerAnisotropy,
			MaxPushConstantsSize:         props.Limits.MaxPushConstantsSize,
			FramebufferColorSampleCounts: gpu.SampleCount(props.Limits.FramebufferColorSampleCounts),
			FramebufferDepthSampleCounts: gpu.SampleCount(props.Limits.FramebufferDepthSampleCounts),
		},
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
	for idx, family := range families {
		family.Deref()
		var present vk.Bool32
		if vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(idx), surface, &present) != vk.Success {
			present = vk.False
		}
		info.QueueFamilies = append(info.QueueFamilies, gpu.QueueFamily{
			Flags:   gpu.QueueFlags(family.QueueFlags),
			Count:   family.QueueCount,
			Present: present.B(),
		})
	}

	var extCount uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, nil) == vk.Success {
		exts := make([]vk.ExtensionProperties, extCount)
		if vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, exts) == vk.Success {
			for _, ext := range exts {
				ext.Deref()
				info.Extensions = append(info.Extensions, vk.ToString(ext.ExtensionName[:]))
			}
		}
	}

	var formatCount uint32
	if vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil) == vk.Success && formatCount > 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, formats)
		for _, f := range formats {
			f.Deref()
			info.SurfaceFormats = append(info.SurfaceFormats, gpu.SurfaceFormat{
				Format:     gpu.Format(f.Format),
				ColorSpace: gpu.ColorSpace(f.ColorSpace),
			})
		}
	}

	var modeCount uint32
	if vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil) == vk.Success && modeCount > 0 {
		modes := make([]vk.PresentMode, modeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, modes)
		for _, m := range modes {
			info.PresentModes = append(info.PresentModes, gpu.PresentMode(m))
		}
	}
	return info
}

func instanceLayerAvailable(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
		return false
	}
	for _, layer := range layers {
		layer.Deref()
		if vk.ToString(layer.LayerName[:]) == name {
			return true
		}
	}
	return false
}

func instanceExtensionAvailable(name string) bool {
	var count uint32
	if vk.EnumerateInstanceExtensionProperties("", &count, nil) != vk.Success {
		return false
	}
	exts := make([]vk.ExtensionProperties, count)
	if vk.EnumerateInstanceExtensionProperties("", &count, exts) != vk.Success {
		return false
	}
	for _, ext := range exts {
		ext.Deref()
		if vk.ToString(ext.ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func severityFromVk(flags vk.DebugReportFlags) gpu.DebugSeverity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return gpu.DebugSeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return gpu.DebugSeverityPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return gpu.DebugSeverityWarning
	}
	return gpu.DebugSeverityInfo
}
