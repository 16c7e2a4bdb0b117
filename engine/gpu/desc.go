package gpu

// DeviceDesc configures logical device creation.
type DeviceDesc struct {
	// QueueFamilies lists the distinct queue families to create one queue each for.
	QueueFamilies []uint32
	Extensions    []string
	Features      Features
}

// BufferDesc describes a buffer and the memory bound to it.
type BufferDesc struct {
	Label  string
	Size   uint64
	Usage  BufferUsage
	Memory MemoryProperty
	// SharingFamilies enables concurrent sharing between the listed queue families when it holds more than one.
	SharingFamilies []uint32
}

// ImageDesc describes a 2D image and the memory bound to it.
type ImageDesc struct {
	Label     string
	Extent    Extent2D
	MipLevels uint32
	Samples   SampleCount
	Format    Format
	Tiling    ImageTiling
	Usage     ImageUsage
	Memory    MemoryProperty
}

// ImageViewDesc describes a 2D view over an image.
type ImageViewDesc struct {
	Image     Image
	Format    Format
	Aspect    ImageAspect
	MipLevels uint32
}

// SamplerDesc describes a texture sampler.
type SamplerDesc struct {
	MagFilter     Filter
	MinFilter     Filter
	AddressMode   SamplerAddressMode
	Anisotropy    bool
	MaxAnisotropy float32
	MinLod        float32
	MaxLod        float32
}

// SwapchainDesc describes a swapchain over a surface.
type SwapchainDesc struct {
	Surface      Surface
	MinImages    uint32
	Format       SurfaceFormat
	Extent       Extent2D
	PresentMode  PresentMode
	PreTransform uint32
	// SharingFamilies enables concurrent image sharing when it holds more than one distinct family.
	SharingFamilies []uint32
	OldSwapchain    Swapchain
}

// AttachmentDesc describes one render pass attachment.
type AttachmentDesc struct {
	Format        Format
	Samples       SampleCount
	Clear         bool // load op clear, otherwise don't care
	Store         bool // store op store, otherwise don't care
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// SubpassDependency describes an execution/memory dependency between subpasses.
type SubpassDependency struct {
	SrcSubpass uint32
	DstSubpass uint32
	SrcStage   PipelineStage
	DstStage   PipelineStage
	SrcAccess  Access
	DstAccess  Access
}

// RenderPassDesc describes a single-subpass render pass. Color, DepthStencil and
// Resolve are indices into Attachments; a negative index means the attachment is absent.
type RenderPassDesc struct {
	Attachments  []AttachmentDesc
	Color        int
	DepthStencil int
	Resolve      int
	Dependencies []SubpassDependency
}

// FramebufferDesc describes a framebuffer. Attachments must follow the render pass's attachment order.
type FramebufferDesc struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      Extent2D
}

// DescriptorBinding is one entry of a descriptor-set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

// PushConstantRange is a push constant block visible to the given stages.
type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

// PipelineLayoutDesc describes a pipeline layout.
type PipelineLayoutDesc struct {
	SetLayouts    []DescriptorSetLayout
	PushConstants []PushConstantRange
}

// VertexAttribute describes one vertex input attribute within binding 0.
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// VertexLayout describes the per-vertex input of binding 0.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// GraphicsPipelineDesc describes a graphics pipeline with a static viewport and scissor.
type GraphicsPipelineDesc struct {
	Label          string
	VertexModule   ShaderModule
	FragmentModule ShaderModule
	EntryPoint     string
	VertexLayout   VertexLayout
	Topology       PrimitiveTopology
	CullMode       CullMode
	FrontFace      FrontFace
	Extent         Extent2D
	Samples        SampleCount
	DepthTest      bool
	DepthWrite     bool
	DepthCompare   CompareOp
	BlendEnabled   bool
	Layout         PipelineLayout
	RenderPass     RenderPass
	Subpass        uint32
}

// DescriptorPoolSize is the number of descriptors of one type a pool can hand out.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorPoolDesc describes a descriptor pool.
type DescriptorPoolDesc struct {
	MaxSets uint32
	Sizes   []DescriptorPoolSize
}

// DescriptorWrite updates one binding of one descriptor set. Exactly one of Buffer or
// (ImageView, Sampler) is set depending on Type.
type DescriptorWrite struct {
	Set       DescriptorSet
	Binding   uint32
	Type      DescriptorType
	Buffer    Buffer
	Offset    uint64
	Range     uint64
	ImageView ImageView
	Sampler   Sampler
	Layout    ImageLayout
}

// CommandPoolDesc describes a command pool.
type CommandPoolDesc struct {
	QueueFamily uint32
	Flags       CommandPoolFlags
}

// InheritanceInfo is the render pass state a secondary command buffer continues.
type InheritanceInfo struct {
	RenderPass  RenderPass
	Subpass     uint32
	Framebuffer Framebuffer
}

// BeginInfo configures command buffer recording.
type BeginInfo struct {
	Usage       CommandBufferUsage
	Inheritance *InheritanceInfo
}

// RenderPassBegin configures the start of a render pass instance.
type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      Extent2D
	ClearColor  ClearColor
	ClearDepth  float32
	Contents    SubpassContents
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	CommandBuffers []CommandBuffer
	Wait           []Semaphore
	WaitStages     []PipelineStage
	Signal         []Semaphore
}

// ImageBarrier is an image memory barrier over a range of mip levels.
type ImageBarrier struct {
	Image        Image
	Aspect       ImageAspect
	OldLayout    ImageLayout
	NewLayout    ImageLayout
	SrcAccess    Access
	DstAccess    Access
	SrcStage     PipelineStage
	DstStage     PipelineStage
	BaseMipLevel uint32
	LevelCount   uint32
}

// ImageBlit describes a blit between two mip levels of the same or different images.
type ImageBlit struct {
	Src       Image
	SrcLayout ImageLayout
	SrcLevel  uint32
	SrcExtent Extent2D
	Dst       Image
	DstLayout ImageLayout
	DstLevel  uint32
	DstExtent Extent2D
	Filter    Filter
}
