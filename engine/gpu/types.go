package gpu

// Handle is an opaque identifier for a device object owned by an Instance or Device implementation.
// The zero value is the null handle.
type Handle uint64

// NullHandle is the zero handle, never returned by a successful create call.
const NullHandle Handle = 0

// Typed handles. Each kind is distinct so a Buffer can never be passed where an Image is expected.
type (
	PhysicalDevice      Handle
	Surface             Handle
	Queue               Handle
	Swapchain           Handle
	Image               Handle
	ImageView           Handle
	Buffer              Handle
	Sampler             Handle
	RenderPass          Handle
	Framebuffer         Handle
	ShaderModule        Handle
	DescriptorSetLayout Handle
	DescriptorPool      Handle
	DescriptorSet       Handle
	PipelineLayout      Handle
	Pipeline            Handle
	CommandPool         Handle
	CommandBuffer       Handle
	Semaphore           Handle
	Fence               Handle
	DebugReporter       Handle
)

// Extent2D is a width/height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// AnyExtent is the sentinel current-extent value a surface reports when the swapchain
// extent is decided by the application rather than the window system.
const AnyExtent uint32 = 0xFFFFFFFF

// SurfaceCapabilities describes the image count and extent limits of a surface on a physical device.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32 // 0 means unbounded
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
	// CurrentTransform is passed through unchanged as the swapchain pre-transform.
	CurrentTransform uint32
}

// SurfaceFormat is a supported (format, color space) pair.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// QueueFamily describes one queue family of a physical device. Present is resolved against
// the surface the device list was queried for.
type QueueFamily struct {
	Flags   QueueFlags
	Count   uint32
	Present bool
}

// Features lists the optional device features the renderer cares about.
type Features struct {
	SamplerAnisotropy bool
}

// Limits lists the device limits the renderer reads.
type Limits struct {
	MaxSamplerAnisotropy         float32
	MaxPushConstantsSize         uint32
	FramebufferColorSampleCounts SampleCount
	FramebufferDepthSampleCounts SampleCount
}

// PhysicalDeviceInfo is a snapshot of everything device selection needs to know about one adapter.
type PhysicalDeviceInfo struct {
	Handle         PhysicalDevice
	Name           string
	Type           PhysicalDeviceType
	QueueFamilies  []QueueFamily
	Extensions     []string
	SurfaceFormats []SurfaceFormat
	PresentModes   []PresentMode
	Features       Features
	Limits         Limits
}

// HasExtension reports whether the named device extension is available.
func (p PhysicalDeviceInfo) HasExtension(name string) bool {
	for _, ext := range p.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

// FormatProperties holds the feature flags supported for a format per tiling mode.
type FormatProperties struct {
	LinearTilingFeatures  FormatFeature
	OptimalTilingFeatures FormatFeature
}

// Supports reports whether the format supports every flag in features with the given tiling.
func (f FormatProperties) Supports(tiling ImageTiling, features FormatFeature) bool {
	switch tiling {
	case ImageTilingLinear:
		return f.LinearTilingFeatures&features == features
	default:
		return f.OptimalTilingFeatures&features == features
	}
}

// ClearColor is an RGBA clear value for the color attachment.
type ClearColor [4]float32

// Names of the extensions and layers the renderer requests.
const (
	SwapchainExtensionName   = "VK_KHR_swapchain"
	DebugReportExtensionName = "VK_EXT_debug_report"
	ValidationLayerName      = "VK_LAYER_KHRONOS_validation"
)
