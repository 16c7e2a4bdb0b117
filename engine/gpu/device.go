package gpu

// Instance is the instance-level half of the graphics API: adapter enumeration,
// surface queries, logical device creation and debug reporting.
//
// The renderer only ever talks to the graphics API through Instance and Device,
// which keeps every piece of frame and resource logic testable without a GPU.
type Instance interface {
	// PhysicalDevices enumerates the adapters visible to the instance. Queue family present
	// support, surface formats and present modes are resolved against the given surface.
	//
	// Parameters:
	//   - surface: the surface the renderer will present to
	//
	// Returns:
	//   - []PhysicalDeviceInfo: one snapshot per adapter, in enumeration order
	//   - error: error if enumeration fails
	PhysicalDevices(surface Surface) ([]PhysicalDeviceInfo, error)

	// SurfaceCapabilities queries the current surface limits. The result changes as the window resizes.
	//
	// Parameters:
	//   - pd: the physical device
	//   - surface: the surface
	//
	// Returns:
	//   - SurfaceCapabilities: the current capabilities
	//   - error: error if the query fails
	SurfaceCapabilities(pd PhysicalDevice, surface Surface) (SurfaceCapabilities, error)

	// FormatProperties returns the supported features of a format on a physical device.
	FormatProperties(pd PhysicalDevice, format Format) FormatProperties

	// CreateDevice creates a logical device on pd.
	//
	// Parameters:
	//   - pd: the selected physical device
	//   - desc: queue families, extensions and features to enable
	//
	// Returns:
	//   - Device: the logical device
	//   - error: error if device creation fails
	CreateDevice(pd PhysicalDevice, desc DeviceDesc) (Device, error)

	// CreateDebugReporter installs a validation message callback. It returns NullHandle and
	// no error when the instance was created without the debug report extension.
	CreateDebugReporter(callback func(severity DebugSeverity, layer, message string)) (DebugReporter, error)

	// DestroyDebugReporter removes a callback installed by CreateDebugReporter.
	DestroyDebugReporter(reporter DebugReporter)
}

// DebugSeverity classifies a validation message.
type DebugSeverity int

const (
	DebugSeverityInfo DebugSeverity = iota
	DebugSeverityWarning
	DebugSeverityPerformance
	DebugSeverityError
)

// Device is a logical device together with its queues. All methods must be called from
// a single goroutine; the render loop is that goroutine.
type Device interface {
	// Queue returns the first queue of the given family.
	Queue(family uint32) Queue

	// WaitIdle blocks until every queue of the device is idle.
	WaitIdle() error

	// Destroy destroys the logical device. Every child object must already be destroyed.
	Destroy()

	// CreateBuffer creates a buffer and binds freshly allocated memory with the requested properties.
	//
	// Parameters:
	//   - desc: size, usage and memory properties
	//
	// Returns:
	//   - Buffer: the buffer handle
	//   - error: an *AllocationError if the buffer or its memory could not be created
	CreateBuffer(desc BufferDesc) (Buffer, error)
	DestroyBuffer(buffer Buffer)

	// WriteBuffer maps a host-visible buffer, copies data at offset and unmaps it.
	WriteBuffer(buffer Buffer, offset uint64, data []byte) error

	// ReadBuffer maps a host-visible buffer and returns a copy of size bytes at offset.
	ReadBuffer(buffer Buffer, offset, size uint64) ([]byte, error)

	CreateImage(desc ImageDesc) (Image, error)
	DestroyImage(image Image)
	CreateImageView(desc ImageViewDesc) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateSampler(desc SamplerDesc) (Sampler, error)
	DestroySampler(sampler Sampler)

	// CreateSwapchain creates a swapchain. When desc.OldSwapchain is set it is retired, not destroyed.
	CreateSwapchain(desc SwapchainDesc) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain)

	// SwapchainImages returns the presentable images owned by the swapchain.
	SwapchainImages(swapchain Swapchain) ([]Image, error)

	// AcquireNextImage acquires the next presentable image with an unbounded timeout and
	// arranges for signal to be signaled when it is ready.
	//
	// Returns:
	//   - uint32: the acquired image index
	//   - bool: true when the swapchain still works but no longer matches the surface
	//   - error: ErrSwapchainStale when the swapchain is out of date, ErrDeviceLost or another error otherwise
	AcquireNextImage(swapchain Swapchain, signal Semaphore) (uint32, bool, error)

	// QueuePresent presents image index on queue after wait is signaled.
	//
	// Returns:
	//   - bool: true when the presentation succeeded but the swapchain is suboptimal
	//   - error: ErrSwapchainStale when out of date, ErrDeviceLost or another error otherwise
	QueuePresent(queue Queue, swapchain Swapchain, index uint32, wait Semaphore) (bool, error)

	// QueueSubmit submits work to queue, signaling fence (if not NullHandle) on completion.
	QueueSubmit(queue Queue, submit SubmitInfo, fence Fence) error
	QueueWaitIdle(queue Queue) error

	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(pass RenderPass)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)

	// CreateShaderModule wraps SPIR-V code. The byte length must be a multiple of four.
	CreateShaderModule(code []byte) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	CreatePipelineLayout(desc PipelineLayoutDesc) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)

	// CreateDescriptorPool creates a pool; destroying it frees every set allocated from it.
	CreateDescriptorPool(desc DescriptorPoolDesc) (DescriptorPool, error)
	DestroyDescriptorPool(pool DescriptorPool)
	AllocateDescriptorSets(pool DescriptorPool, layouts []DescriptorSetLayout) ([]DescriptorSet, error)
	UpdateDescriptorSets(writes []DescriptorWrite)

	CreateCommandPool(desc CommandPoolDesc) (CommandPool, error)
	DestroyCommandPool(pool CommandPool)

	// ResetCommandPool recycles every command buffer allocated from pool. The buffers must
	// not be pending execution.
	ResetCommandPool(pool CommandPool) error
	AllocateCommandBuffers(pool CommandPool, level CommandBufferLevel, count uint32) ([]CommandBuffer, error)
	FreeCommandBuffers(pool CommandPool, buffers []CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer, info BeginInfo) error
	EndCommandBuffer(cb CommandBuffer) error

	CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin)
	CmdEndRenderPass(cb CommandBuffer)
	CmdExecuteCommands(cb CommandBuffer, secondaries []CommandBuffer)
	CmdBindPipeline(cb CommandBuffer, pipeline Pipeline)
	CmdBindVertexBuffer(cb CommandBuffer, buffer Buffer)
	CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer)
	CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, set DescriptorSet)
	CmdPushConstants(cb CommandBuffer, layout PipelineLayout, stages ShaderStage, offset uint32, data []byte)
	CmdDrawIndexed(cb CommandBuffer, indexCount uint32)
	CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, size uint64)
	CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, extent Extent2D)
	CmdPipelineBarrier(cb CommandBuffer, barrier ImageBarrier)
	CmdBlitImage(cb CommandBuffer, blit ImageBlit)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)

	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)

	// WaitForFence blocks with an unbounded timeout until fence is signaled.
	WaitForFence(fence Fence) error
	ResetFence(fence Fence) error

	// FenceSignaled polls the fence without blocking.
	FenceSignaled(fence Fence) (bool, error)
}
