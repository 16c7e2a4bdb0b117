package gpu

import "strconv"

// The numeric values of the enums and flag sets below match the Vulkan specification,
// so a backend can convert with a plain type conversion.

// Format is a texel format.
type Format uint32

const (
	FormatUndefined       Format = 0
	FormatR8G8B8A8Unorm   Format = 37
	FormatR8G8B8A8Srgb    Format = 43
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatR32G32Sfloat    Format = 103
	FormatR32G32B32Sfloat Format = 106
	FormatD32Sfloat       Format = 126
	FormatD24UnormS8Uint  Format = 129
	FormatD32SfloatS8Uint Format = 130
)

var formatNames = map[Format]string{
	FormatUndefined:       "UNDEFINED",
	FormatR8G8B8A8Unorm:   "R8G8B8A8_UNORM",
	FormatR8G8B8A8Srgb:    "R8G8B8A8_SRGB",
	FormatB8G8R8A8Unorm:   "B8G8R8A8_UNORM",
	FormatB8G8R8A8Srgb:    "B8G8R8A8_SRGB",
	FormatR32G32Sfloat:    "R32G32_SFLOAT",
	FormatR32G32B32Sfloat: "R32G32B32_SFLOAT",
	FormatD32Sfloat:       "D32_SFLOAT",
	FormatD24UnormS8Uint:  "D24_UNORM_S8_UINT",
	FormatD32SfloatS8Uint: "D32_SFLOAT_S8_UINT",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "FORMAT(" + strconv.FormatUint(uint64(f), 10) + ")"
}

// HasStencil reports whether a depth format carries a stencil component.
func (f Format) HasStencil() bool {
	return f == FormatD32SfloatS8Uint || f == FormatD24UnormS8Uint
}

// ColorSpace is a presentation color space.
type ColorSpace uint32

const ColorSpaceSrgbNonlinear ColorSpace = 0

// PresentMode is a swapchain presentation mode.
type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (p PresentMode) String() string {
	switch p {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	}
	return "present-mode(" + strconv.FormatUint(uint64(p), 10) + ")"
}

// SampleCount is a sample count flag set. A single bit names one sample count.
type SampleCount uint32

const (
	SampleCount1  SampleCount = 0x01
	SampleCount2  SampleCount = 0x02
	SampleCount4  SampleCount = 0x04
	SampleCount8  SampleCount = 0x08
	SampleCount16 SampleCount = 0x10
	SampleCount32 SampleCount = 0x20
	SampleCount64 SampleCount = 0x40
)

// SampleCountPreference is the descending order in which MSAA sample counts are tried.
var SampleCountPreference = []SampleCount{
	SampleCount64, SampleCount32, SampleCount16, SampleCount8, SampleCount4, SampleCount2, SampleCount1,
}

// Int returns the number of samples for a single-bit sample count.
func (s SampleCount) Int() int {
	return int(s)
}

// PhysicalDeviceType classifies an adapter.
type PhysicalDeviceType uint32

const (
	PhysicalDeviceTypeOther         PhysicalDeviceType = 0
	PhysicalDeviceTypeIntegratedGPU PhysicalDeviceType = 1
	PhysicalDeviceTypeDiscreteGPU   PhysicalDeviceType = 2
	PhysicalDeviceTypeVirtualGPU    PhysicalDeviceType = 3
	PhysicalDeviceTypeCPU           PhysicalDeviceType = 4
)

// QueueFlags describes queue family capabilities.
type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 0x1
	QueueCompute  QueueFlags = 0x2
	QueueTransfer QueueFlags = 0x4
)

// FormatFeature is a format feature flag set.
type FormatFeature uint32

const (
	FormatFeatureSampledImage             FormatFeature = 0x0001
	FormatFeatureColorAttachment          FormatFeature = 0x0080
	FormatFeatureDepthStencilAttachment   FormatFeature = 0x0200
	FormatFeatureBlitSrc                  FormatFeature = 0x0400
	FormatFeatureBlitDst                  FormatFeature = 0x0800
	FormatFeatureSampledImageFilterLinear FormatFeature = 0x1000
)

// ImageTiling selects optimal or linear image tiling.
type ImageTiling uint32

const (
	ImageTilingOptimal ImageTiling = 0
	ImageTilingLinear  ImageTiling = 1
)

// ImageLayout is the layout an image subresource is in.
type ImageLayout uint32

const (
	ImageLayoutUndefined                     ImageLayout = 0
	ImageLayoutColorAttachmentOptimal        ImageLayout = 2
	ImageLayoutDepthStencilAttachmentOptimal ImageLayout = 3
	ImageLayoutShaderReadOnlyOptimal         ImageLayout = 5
	ImageLayoutTransferSrcOptimal            ImageLayout = 6
	ImageLayoutTransferDstOptimal            ImageLayout = 7
	ImageLayoutPresentSrc                    ImageLayout = 1000001002
)

// BufferUsage is a buffer usage flag set.
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x01
	BufferUsageTransferDst BufferUsage = 0x02
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageIndex       BufferUsage = 0x40
	BufferUsageVertex      BufferUsage = 0x80
)

// ImageUsage is an image usage flag set.
type ImageUsage uint32

const (
	ImageUsageTransferSrc            ImageUsage = 0x01
	ImageUsageTransferDst            ImageUsage = 0x02
	ImageUsageSampled                ImageUsage = 0x04
	ImageUsageColorAttachment        ImageUsage = 0x10
	ImageUsageDepthStencilAttachment ImageUsage = 0x20
	ImageUsageTransientAttachment    ImageUsage = 0x40
)

// MemoryProperty is a memory property flag set.
type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal  MemoryProperty = 0x1
	MemoryPropertyHostVisible  MemoryProperty = 0x2
	MemoryPropertyHostCoherent MemoryProperty = 0x4
)

// ImageAspect selects the aspects of an image a view or barrier covers.
type ImageAspect uint32

const (
	ImageAspectColor   ImageAspect = 0x1
	ImageAspectDepth   ImageAspect = 0x2
	ImageAspectStencil ImageAspect = 0x4
)

// DescriptorType is the type of a descriptor binding.
type DescriptorType uint32

const (
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeUniformBuffer        DescriptorType = 6
)

// ShaderStage is a shader stage flag set.
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x01
	ShaderStageFragment ShaderStage = 0x10
)

// PipelineStage is a pipeline stage flag set.
type PipelineStage uint32

const (
	PipelineStageTopOfPipe             PipelineStage = 0x0001
	PipelineStageFragmentShader        PipelineStage = 0x0080
	PipelineStageEarlyFragmentTests    PipelineStage = 0x0100
	PipelineStageColorAttachmentOutput PipelineStage = 0x0400
	PipelineStageTransfer              PipelineStage = 0x1000
	PipelineStageBottomOfPipe          PipelineStage = 0x2000
)

// Access is a memory access flag set.
type Access uint32

const (
	AccessShaderRead                  Access = 0x0020
	AccessColorAttachmentRead         Access = 0x0080
	AccessColorAttachmentWrite        Access = 0x0100
	AccessDepthStencilAttachmentRead  Access = 0x0200
	AccessDepthStencilAttachmentWrite Access = 0x0400
	AccessTransferRead                Access = 0x0800
	AccessTransferWrite               Access = 0x1000
)

// CullMode selects which triangle faces are discarded.
type CullMode uint32

const (
	CullModeNone  CullMode = 0
	CullModeFront CullMode = 1
	CullModeBack  CullMode = 2
)

// FrontFace selects the winding considered front-facing.
type FrontFace uint32

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

// PrimitiveTopology is the primitive assembly mode.
type PrimitiveTopology uint32

const (
	PrimitiveTopologyLineList     PrimitiveTopology = 1
	PrimitiveTopologyTriangleList PrimitiveTopology = 3
)

// CompareOp is a depth comparison operator.
type CompareOp uint32

const (
	CompareOpLess        CompareOp = 1
	CompareOpLessOrEqual CompareOp = 3
	CompareOpAlways      CompareOp = 7
)

// CommandBufferLevel distinguishes primary and secondary command buffers.
type CommandBufferLevel uint32

const (
	CommandBufferLevelPrimary   CommandBufferLevel = 0
	CommandBufferLevelSecondary CommandBufferLevel = 1
)

// CommandBufferUsage is a command buffer begin flag set.
type CommandBufferUsage uint32

const (
	CommandBufferUsageOneTimeSubmit      CommandBufferUsage = 0x1
	CommandBufferUsageRenderPassContinue CommandBufferUsage = 0x2
)

// CommandPoolFlags is a command pool creation flag set.
type CommandPoolFlags uint32

const (
	CommandPoolTransient          CommandPoolFlags = 0x1
	CommandPoolResetCommandBuffer CommandPoolFlags = 0x2
)

// SubpassContents says whether a render pass's commands are recorded inline or in secondary buffers.
type SubpassContents uint32

const (
	SubpassContentsInline                  SubpassContents = 0
	SubpassContentsSecondaryCommandBuffers SubpassContents = 1
)

// Filter is a texel filter.
type Filter uint32

const (
	FilterNearest Filter = 0
	FilterLinear  Filter = 1
)

// SamplerAddressMode is the addressing mode outside [0,1].
type SamplerAddressMode uint32

const (
	SamplerAddressModeRepeat      SamplerAddressMode = 0
	SamplerAddressModeClampToEdge SamplerAddressMode = 2
)

// SubpassExternal names the implicit subpass outside a render pass in a dependency.
const SubpassExternal = ^uint32(0)

// QueueFamilyIgnored marks a barrier that does not transfer queue family ownership.
const QueueFamilyIgnored = ^uint32(0)
