package vulkan

import (
	"log/slog"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

type buffer struct {
	buf  vk.Buffer
	mem  vk.DeviceMemory
	size uint64
}

// image is a device image. Swapchain images are not owned: their memory belongs to the
// swapchain and they are released with it.
type image struct {
	img   vk.Image
	mem   vk.DeviceMemory
	owned bool
}

type renderPass struct {
	pass        vk.RenderPass
	attachments int
	depth       int
}

type descriptorSet struct {
	set  vk.DescriptorSet
	pool gpu.DescriptorPool
}

type commandBuffer struct {
	cb   vk.CommandBuffer
	pool gpu.CommandPool
}

// Device is a Vulkan logical device. Every object it creates is tracked in a registry so
// the renderer only ever handles gpu handles.
type Device struct {
	inst     *Instance
	physical vk.PhysicalDevice
	device   vk.Device
	memory   vk.PhysicalDeviceMemoryProperties

	ids             counter
	queues          registry[vk.Queue]
	queueByFamily   map[uint32]gpu.Queue
	buffers         registry[buffer]
	images          registry[image]
	views           registry[vk.ImageView]
	samplers        registry[vk.Sampler]
	swapchains      registry[vk.Swapchain]
	swapchainImages map[gpu.Swapchain][]gpu.Image
	renderPasses    registry[renderPass]
	framebuffers    registry[vk.Framebuffer]
	shaders         registry[vk.ShaderModule]
	setLayouts      registry[vk.DescriptorSetLayout]
	pipelineLayouts registry[vk.PipelineLayout]
	pipelines       registry[vk.Pipeline]
	descriptorPools registry[vk.DescriptorPool]
	descriptorSets  registry[descriptorSet]
	commandPools    registry[vk.CommandPool]
	commandBuffers  registry[commandBuffer]
	semaphores      registry[vk.Semaphore]
	fences          registry[vk.Fence]

	logger *slog.Logger
}

var _ gpu.Device = &Device{}

func newDevice(inst *Instance, physical vk.PhysicalDevice, device vk.Device, families []uint32) *Device {
	d := &Device{
		inst:            inst,
		physical:        physical,
		device:          device,
		queueByFamily:   make(map[uint32]gpu.Queue, len(families)),
		swapchainImages: make(map[gpu.Swapchain][]gpu.Image),
		logger:          inst.logger.With(slog.String("object", "device")),
	}
	d.queues = newRegistry[vk.Queue](&d.ids)
	d.buffers = newRegistry[buffer](&d.ids)
	d.images = newRegistry[image](&d.ids)
	d.views = newRegistry[vk.ImageView](&d.ids)
	d.samplers = newRegistry[vk.Sampler](&d.ids)
	d.swapchains = newRegistry[vk.Swapchain](&d.ids)
	d.renderPasses = newRegistry[renderPass](&d.ids)
	d.framebuffers = newRegistry[vk.Framebuffer](&d.ids)
	d.shaders = newRegistry[vk.ShaderModule](&d.ids)
	d.setLayouts = newRegistry[vk.DescriptorSetLayout](&d.ids)
	d.pipelineLayouts = newRegistry[vk.PipelineLayout](&d.ids)
	d.pipelines = newRegistry[vk.Pipeline](&d.ids)
	d.descriptorPools = newRegistry[vk.DescriptorPool](&d.ids)
	d.descriptorSets = newRegistry[descriptorSet](&d.ids)
	d.commandPools = newRegistry[vk.CommandPool](&d.ids)
	d.commandBuffers = newRegistry[commandBuffer](&d.ids)
	d.semaphores = newRegistry[vk.Semaphore](&d.ids)
	d.fences = newRegistry[vk.Fence](&d.ids)

	vk.GetPhysicalDeviceMemoryProperties(physical, &d.memory)
	d.memory.Deref()

	for _, family := range families {
		if _, ok := d.queueByFamily[family]; ok {
			continue
		}
		var q vk.Queue
		vk.GetDeviceQueue(device, family, 0, &q)
		d.queueByFamily[family] = gpu.Queue(d.queues.add(q))
	}
	return d
}

func (d *Device) Queue(family uint32) gpu.Queue {
	return d.queueByFamily[family]
}

func (d *Device) WaitIdle() error {
	return check(vk.DeviceWaitIdle(d.device), "waiting for device idle")
}

// Destroy destroys the logical device. Objects still registered at this point are leaks in
// the caller and are logged, not destroyed.
func (d *Device) Destroy() {
	if d.device == nil {
		return
	}
	leaked := d.buffers.len() + d.images.len() + d.views.len() + d.samplers.len() +
		d.swapchains.len() + d.renderPasses.len() + d.framebuffers.len() + d.shaders.len() +
		d.setLayouts.len() + d.pipelineLayouts.len() + d.pipelines.len() +
		d.descriptorPools.len() + d.commandPools.len() + d.semaphores.len() + d.fences.len()
	if leaked > 0 {
		d.logger.Warn("destroying device with live objects", slog.Int("objects", leaked))
	}
	vk.DestroyDevice(d.device, nil)
	d.device = nil
	d.logger.Debug("device destroyed")
}

func (d *Device) allocate(reqs vk.MemoryRequirements, props gpu.MemoryProperty, resource string) (vk.DeviceMemory, error) {
	reqs.Deref()
	index, ok := memoryTypeIndex(d.memory, reqs.MemoryTypeBits, vk.MemoryPropertyFlags(props))
	if !ok {
		return nil, gpu.NewAllocationError(resource, errors.Wrap(gpu.ErrOutOfMemory, "no suitable memory type"))
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	}
	var mem vk.DeviceMemory
	if err := checkAlloc(vk.AllocateMemory(d.device, &info, nil, &mem), resource); err != nil {
		return nil, err
	}
	return mem, nil
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if desc.Size == 0 {
		return 0, gpu.NewAllocationError(desc.Label, errors.New("zero-sized buffer"))
	}
	mode, families := sharing(desc.SharingFamilies)
	info := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  vk.DeviceSize(desc.Size),
		Usage:                 vk.BufferUsageFlags(desc.Usage),
		SharingMode:           mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
	}
	var buf vk.Buffer
	if err := checkAlloc(vk.CreateBuffer(d.device, &info, nil, &buf), desc.Label); err != nil {
		return 0, err
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buf, &reqs)
	mem, err := d.allocate(reqs, desc.Memory, desc.Label)
	if err != nil {
		vk.DestroyBuffer(d.device, buf, nil)
		return 0, err
	}
	if err := checkAlloc(vk.BindBufferMemory(d.device, buf, mem, 0), desc.Label); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyBuffer(d.device, buf, nil)
		return 0, err
	}
	return gpu.Buffer(d.buffers.add(buffer{buf: buf, mem: mem, size: desc.Size})), nil
}

func (d *Device) DestroyBuffer(b gpu.Buffer) {
	if buf, ok := d.buffers.remove(gpu.Handle(b)); ok {
		vk.DestroyBuffer(d.device, buf.buf, nil)
		vk.FreeMemory(d.device, buf.mem, nil)
	}
}

func (d *Device) mapBuffer(b gpu.Buffer, offset, size uint64) (buffer, unsafe.Pointer, error) {
	buf, ok := d.buffers.get(gpu.Handle(b))
	if !ok {
		return buffer{}, nil, errors.New("unknown buffer")
	}
	if offset+size > buf.size {
		return buffer{}, nil, errors.Errorf("range %d+%d exceeds buffer size %d", offset, size, buf.size)
	}
	var ptr unsafe.Pointer
	if err := check(vk.MapMemory(d.device, buf.mem, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &ptr), "mapping buffer"); err != nil {
		return buffer{}, nil, err
	}
	return buf, ptr, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	buf, ptr, err := d.mapBuffer(b, offset, uint64(len(data)))
	if err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(d.device, buf.mem)
	return nil
}

func (d *Device) ReadBuffer(b gpu.Buffer, offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf, ptr, err := d.mapBuffer(b, offset, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(ptr), size))
	vk.UnmapMemory(d.device, buf.mem)
	return out, nil
}

func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.Image, error) {
	if desc.Extent.IsZero() {
		return 0, gpu.NewAllocationError(desc.Label, gpu.ErrZeroExtent)
	}
	levels := desc.MipLevels
	if levels == 0 {
		levels = 1
	}
	samples := desc.Samples
	if samples == 0 {
		samples = gpu.SampleCount1
	}
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vk.Format(desc.Format),
		Extent:        vk.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
		MipLevels:     levels,
		ArrayLayers:   1,
		Samples:       vk.SampleCountFlagBits(samples),
		Tiling:        vk.ImageTiling(desc.Tiling),
		Usage:         vk.ImageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := checkAlloc(vk.CreateImage(d.device, &info, nil, &img), desc.Label); err != nil {
		return 0, err
	}
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, img, &reqs)
	mem, err := d.allocate(reqs, desc.Memory, desc.Label)
	if err != nil {
		vk.DestroyImage(d.device, img, nil)
		return 0, err
	}
	if err := checkAlloc(vk.BindImageMemory(d.device, img, mem, 0), desc.Label); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyImage(d.device, img, nil)
		return 0, err
	}
	return gpu.Image(d.images.add(image{img: img, mem: mem, owned: true})), nil
}

func (d *Device) DestroyImage(i gpu.Image) {
	img, ok := d.images.get(gpu.Handle(i))
	if !ok || !img.owned {
		return
	}
	d.images.remove(gpu.Handle(i))
	vk.DestroyImage(d.device, img.img, nil)
	vk.FreeMemory(d.device, img.mem, nil)
}

func (d *Device) CreateImageView(desc gpu.ImageViewDesc) (gpu.ImageView, error) {
	img, ok := d.images.get(gpu.Handle(desc.Image))
	if !ok {
		return 0, errors.New("unknown image")
	}
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.img,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: subresourceRange(desc.Aspect, 0, desc.MipLevels),
	}
	var view vk.ImageView
	if err := check(vk.CreateImageView(d.device, &info, nil, &view), "creating image view"); err != nil {
		return 0, err
	}
	return gpu.ImageView(d.views.add(view)), nil
}

func (d *Device) DestroyImageView(v gpu.ImageView) {
	if view, ok := d.views.remove(gpu.Handle(v)); ok {
		vk.DestroyImageView(d.device, view, nil)
	}
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Sampler, error) {
	address := vk.SamplerAddressMode(desc.AddressMode)
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.Filter(desc.MagFilter),
		MinFilter:               vk.Filter(desc.MinFilter),
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            address,
		AddressModeV:            address,
		AddressModeW:            address,
		AnisotropyEnable:        boolToVk(desc.Anisotropy),
		MaxAnisotropy:           desc.MaxAnisotropy,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  desc.MinLod,
		MaxLod:                  desc.MaxLod,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if !desc.Anisotropy {
		info.MaxAnisotropy = 1
	}
	var sampler vk.Sampler
	if err := check(vk.CreateSampler(d.device, &info, nil, &sampler), "creating sampler"); err != nil {
		return 0, err
	}
	return gpu.Sampler(d.samplers.add(sampler)), nil
}

func (d *Device) DestroySampler(s gpu.Sampler) {
	if sampler, ok := d.samplers.remove(gpu.Handle(s)); ok {
		vk.DestroySampler(d.device, sampler, nil)
	}
}

func (d *Device) CreateSwapchain(desc gpu.SwapchainDesc) (gpu.Swapchain, error) {
	surface, ok := d.inst.surfaces.get(gpu.Handle(desc.Surface))
	if !ok {
		return 0, errors.New("unknown surface")
	}
	mode, families := sharing(desc.SharingFamilies)
	info := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               surface,
		MinImageCount:         desc.MinImages,
		ImageFormat:           vk.Format(desc.Format.Format),
		ImageColorSpace:       vk.ColorSpace(desc.Format.ColorSpace),
		ImageExtent:           extentToVk(desc.Extent),
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          vk.SurfaceTransformFlagBits(desc.PreTransform),
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           vk.PresentMode(desc.PresentMode),
		Clipped:               vk.True,
		OldSwapchain:          d.swapchains.must(gpu.Handle(desc.OldSwapchain)),
	}
	var sc vk.Swapchain
	if err := check(vk.CreateSwapchain(d.device, &info, nil, &sc), "creating swapchain"); err != nil {
		return 0, err
	}
	return gpu.Swapchain(d.swapchains.add(sc)), nil
}

func (d *Device) DestroySwapchain(s gpu.Swapchain) {
	sc, ok := d.swapchains.remove(gpu.Handle(s))
	if !ok {
		return
	}
	for _, img := range d.swapchainImages[s] {
		d.images.remove(gpu.Handle(img))
	}
	delete(d.swapchainImages, s)
	vk.DestroySwapchain(d.device, sc, nil)
}

func (d *Device) SwapchainImages(s gpu.Swapchain) ([]gpu.Image, error) {
	if imgs, ok := d.swapchainImages[s]; ok {
		return append([]gpu.Image(nil), imgs...), nil
	}
	sc, ok := d.swapchains.get(gpu.Handle(s))
	if !ok {
		return nil, errors.New("unknown swapchain")
	}
	var count uint32
	if err := check(vk.GetSwapchainImages(d.device, sc, &count, nil), "querying swapchain images"); err != nil {
		return nil, err
	}
	native := make([]vk.Image, count)
	if err := check(vk.GetSwapchainImages(d.device, sc, &count, native), "querying swapchain images"); err != nil {
		return nil, err
	}
	imgs := make([]gpu.Image, 0, count)
	for _, img := range native[:count] {
		imgs = append(imgs, gpu.Image(d.images.add(image{img: img})))
	}
	d.swapchainImages[s] = imgs
	return append([]gpu.Image(nil), imgs...), nil
}

func (d *Device) CreateRenderPass(desc gpu.RenderPassDesc) (gpu.RenderPass, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		load, store := vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpDontCare
		if a.Clear {
			load = vk.AttachmentLoadOpClear
		}
		if a.Store {
			store = vk.AttachmentStoreOpStore
		}
		samples := a.Samples
		if samples == 0 {
			samples = gpu.SampleCount1
		}
		attachments[i] = vk.AttachmentDescription{
			Format:         vk.Format(a.Format),
			Samples:        vk.SampleCountFlagBits(samples),
			LoadOp:         load,
			StoreOp:        store,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayout(a.InitialLayout),
			FinalLayout:    vk.ImageLayout(a.FinalLayout),
		}
	}

	subpass := vk.SubpassDescription{PipelineBindPoint: vk.PipelineBindPointGraphics}
	if desc.Color >= 0 && desc.Color < len(attachments) {
		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{{
			Attachment: uint32(desc.Color),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}
	if desc.DepthStencil >= 0 && desc.DepthStencil < len(attachments) {
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(desc.DepthStencil),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}
	if desc.Resolve >= 0 && desc.Resolve < len(attachments) {
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: uint32(desc.Resolve),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	deps := make([]vk.SubpassDependency, len(desc.Dependencies))
	for i, dep := range desc.Dependencies {
		deps[i] = vk.SubpassDependency{
			SrcSubpass:    dep.SrcSubpass,
			DstSubpass:    dep.DstSubpass,
			SrcStageMask:  vk.PipelineStageFlags(dep.SrcStage),
			DstStageMask:  vk.PipelineStageFlags(dep.DstStage),
			SrcAccessMask: vk.AccessFlags(dep.SrcAccess),
			DstAccessMask: vk.AccessFlags(dep.DstAccess),
		}
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}
	var pass vk.RenderPass
	if err := check(vk.CreateRenderPass(d.device, &info, nil, &pass), "creating render pass"); err != nil {
		return 0, err
	}
	return gpu.RenderPass(d.renderPasses.add(renderPass{
		pass:        pass,
		attachments: len(attachments),
		depth:       desc.DepthStencil,
	})), nil
}

func (d *Device) DestroyRenderPass(p gpu.RenderPass) {
	if rp, ok := d.renderPasses.remove(gpu.Handle(p)); ok {
		vk.DestroyRenderPass(d.device, rp.pass, nil)
	}
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	views := make([]vk.ImageView, len(desc.Attachments))
	for i, v := range desc.Attachments {
		views[i] = d.views.must(gpu.Handle(v))
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      d.renderPasses.must(gpu.Handle(desc.RenderPass)).pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := check(vk.CreateFramebuffer(d.device, &info, nil, &fb), "creating framebuffer"); err != nil {
		return 0, err
	}
	return gpu.Framebuffer(d.framebuffers.add(fb)), nil
}

func (d *Device) DestroyFramebuffer(f gpu.Framebuffer) {
	if fb, ok := d.framebuffers.remove(gpu.Handle(f)); ok {
		vk.DestroyFramebuffer(d.device, fb, nil)
	}
}

func (d *Device) CreateShaderModule(code []byte) (gpu.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, errors.Errorf("SPIR-V length %d is not a positive multiple of four", len(code))
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    spirvWords(code),
	}
	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(d.device, &info, nil, &module), "creating shader module"); err != nil {
		return 0, err
	}
	return gpu.ShaderModule(d.shaders.add(module)), nil
}

func (d *Device) DestroyShaderModule(m gpu.ShaderModule) {
	if module, ok := d.shaders.remove(gpu.Handle(m)); ok {
		vk.DestroyShaderModule(d.device, module, nil)
	}
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	native := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		count := b.Count
		if count == 0 {
			count = 1
		}
		native[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: count,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(native)),
		PBindings:    native,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(d.device, &info, nil, &layout), "creating descriptor set layout"); err != nil {
		return 0, err
	}
	return gpu.DescriptorSetLayout(d.setLayouts.add(layout)), nil
}

func (d *Device) DestroyDescriptorSetLayout(l gpu.DescriptorSetLayout) {
	if layout, ok := d.setLayouts.remove(gpu.Handle(l)); ok {
		vk.DestroyDescriptorSetLayout(d.device, layout, nil)
	}
}

func (d *Device) CreatePipelineLayout(desc gpu.PipelineLayoutDesc) (gpu.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(desc.SetLayouts))
	for i, l := range desc.SetLayouts {
		setLayouts[i] = d.setLayouts.must(gpu.Handle(l))
	}
	ranges := make([]vk.PushConstantRange, len(desc.PushConstants))
	for i, r := range desc.PushConstants {
		ranges[i] = vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(r.Stages),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}
	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(d.device, &info, nil, &layout), "creating pipeline layout"); err != nil {
		return 0, err
	}
	return gpu.PipelineLayout(d.pipelineLayouts.add(layout)), nil
}

func (d *Device) DestroyPipelineLayout(l gpu.PipelineLayout) {
	if layout, ok := d.pipelineLayouts.remove(gpu.Handle(l)); ok {
		vk.DestroyPipelineLayout(d.device, layout, nil)
	}
}

func (d *Device) CreateGraphicsPipeline(desc gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	entry := desc.EntryPoint
	if entry == "" {
		entry = "main"
	}
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: d.shaders.must(gpu.Handle(desc.VertexModule)),
			PName:  cstr(entry),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: d.shaders.must(gpu.Handle(desc.FragmentModule)),
			PName:  cstr(entry),
		},
	}

	attrs := make([]vk.VertexInputAttributeDescription, len(desc.VertexLayout.Attributes))
	for i, a := range desc.VertexLayout.Attributes {
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    desc.VertexLayout.Stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopology(desc.Topology),
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(desc.Extent.Width),
			Height:   float32(desc.Extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		}},
		ScissorCount: 1,
		PScissors:    []vk.Rect2D{{Extent: extentToVk(desc.Extent)}},
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(desc.CullMode),
		FrontFace:   vk.FrontFace(desc.FrontFace),
		LineWidth:   1.0,
	}
	samples := desc.Samples
	if samples == 0 {
		samples = gpu.SampleCount1
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCountFlagBits(samples),
		MinSampleShading:     1.0,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  boolToVk(desc.DepthTest),
		DepthWriteEnable: boolToVk(desc.DepthWrite),
		DepthCompareOp:   vk.CompareOp(desc.DepthCompare),
		MaxDepthBounds:   1.0,
	}
	blend := vk.PipelineColorBlendAttachmentState{
		BlendEnable: boolToVk(desc.BlendEnabled),
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if desc.BlendEnabled {
		blend.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		blend.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blend.ColorBlendOp = vk.BlendOpAdd
		blend.SrcAlphaBlendFactor = vk.BlendFactorOne
		blend.DstAlphaBlendFactor = vk.BlendFactorZero
		blend.AlphaBlendOp = vk.BlendOpAdd
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blend},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		Layout:              d.pipelineLayouts.must(gpu.Handle(desc.Layout)),
		RenderPass:          d.renderPasses.must(gpu.Handle(desc.RenderPass)).pass,
		Subpass:             desc.Subpass,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := check(res, "creating graphics pipeline "+desc.Label); err != nil {
		return 0, err
	}
	return gpu.Pipeline(d.pipelines.add(pipelines[0])), nil
}

func (d *Device) DestroyPipeline(p gpu.Pipeline) {
	if pipeline, ok := d.pipelines.remove(gpu.Handle(p)); ok {
		vk.DestroyPipeline(d.device, pipeline, nil)
	}
}

func (d *Device) CreateDescriptorPool(desc gpu.DescriptorPoolDesc) (gpu.DescriptorPool, error) {
	sizes := make([]vk.DescriptorPoolSize, len(desc.Sizes))
	for i, s := range desc.Sizes {
		sizes[i] = vk.DescriptorPoolSize{Type: vk.DescriptorType(s.Type), DescriptorCount: s.Count}
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       desc.MaxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := checkAlloc(vk.CreateDescriptorPool(d.device, &info, nil, &pool), "descriptor pool"); err != nil {
		return 0, err
	}
	return gpu.DescriptorPool(d.descriptorPools.add(pool)), nil
}

func (d *Device) DestroyDescriptorPool(p gpu.DescriptorPool) {
	pool, ok := d.descriptorPools.remove(gpu.Handle(p))
	if !ok {
		return
	}
	for h, set := range d.descriptorSets.items {
		if set.pool == p {
			delete(d.descriptorSets.items, h)
		}
	}
	vk.DestroyDescriptorPool(d.device, pool, nil)
}

func (d *Device) AllocateDescriptorSets(p gpu.DescriptorPool, layouts []gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	if len(layouts) == 0 {
		return nil, nil
	}
	native := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		native[i] = d.setLayouts.must(gpu.Handle(l))
	}
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descriptorPools.must(gpu.Handle(p)),
		DescriptorSetCount: uint32(len(native)),
		PSetLayouts:        native,
	}
	sets := make([]vk.DescriptorSet, len(native))
	if err := checkAlloc(vk.AllocateDescriptorSets(d.device, &info, &sets[0]), "descriptor sets"); err != nil {
		return nil, err
	}
	out := make([]gpu.DescriptorSet, len(sets))
	for i, s := range sets {
		out[i] = gpu.DescriptorSet(d.descriptorSets.add(descriptorSet{set: s, pool: p}))
	}
	return out, nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	if len(writes) == 0 {
		return
	}
	native := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		nw := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.descriptorSets.must(gpu.Handle(w.Set)).set,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
		}
		switch w.Type {
		case gpu.DescriptorTypeCombinedImageSampler:
			nw.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     d.samplers.must(gpu.Handle(w.Sampler)),
				ImageView:   d.views.must(gpu.Handle(w.ImageView)),
				ImageLayout: vk.ImageLayout(w.Layout),
			}}
		default:
			rng := vk.DeviceSize(w.Range)
			if w.Range == 0 {
				rng = vk.DeviceSize(vk.WholeSize)
			}
			nw.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: d.buffers.must(gpu.Handle(w.Buffer)).buf,
				Offset: vk.DeviceSize(w.Offset),
				Range:  rng,
			}}
		}
		native[i] = nw
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(native)), native, 0, nil)
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var sem vk.Semaphore
	if err := check(vk.CreateSemaphore(d.device, &info, nil, &sem), "creating semaphore"); err != nil {
		return 0, err
	}
	return gpu.Semaphore(d.semaphores.add(sem)), nil
}

func (d *Device) DestroySemaphore(s gpu.Semaphore) {
	if sem, ok := d.semaphores.remove(gpu.Handle(s)); ok {
		vk.DestroySemaphore(d.device, sem, nil)
	}
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := check(vk.CreateFence(d.device, &info, nil, &fence), "creating fence"); err != nil {
		return 0, err
	}
	return gpu.Fence(d.fences.add(fence)), nil
}

func (d *Device) DestroyFence(f gpu.Fence) {
	if fence, ok := d.fences.remove(gpu.Handle(f)); ok {
		vk.DestroyFence(d.device, fence, nil)
	}
}

func (d *Device) WaitForFence(f gpu.Fence) error {
	fence := d.fences.must(gpu.Handle(f))
	return check(vk.WaitForFences(d.device, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64), "waiting for fence")
}

func (d *Device) ResetFence(f gpu.Fence) error {
	fence := d.fences.must(gpu.Handle(f))
	return check(vk.ResetFences(d.device, 1, []vk.Fence{fence}), "resetting fence")
}

func (d *Device) FenceSignaled(f gpu.Fence) (bool, error) {
	switch res := vk.GetFenceStatus(d.device, d.fences.must(gpu.Handle(f))); res {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, check(res, "polling fence")
	}
}
