package vulkan

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

func (d *Device) AcquireNextImage(s gpu.Swapchain, signal gpu.Semaphore) (uint32, bool, error) {
	var index uint32
	res := vk.AcquireNextImage(d.device, d.swapchains.must(gpu.Handle(s)), vk.MaxUint64,
		d.semaphores.must(gpu.Handle(signal)), vk.NullFence, &index)
	switch res {
	case vk.Success:
		return index, false, nil
	case vk.Suboptimal:
		return index, true, nil
	}
	return 0, false, check(res, "acquiring swapchain image")
}

func (d *Device) QueuePresent(q gpu.Queue, s gpu.Swapchain, index uint32, wait gpu.Semaphore) (bool, error) {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.semaphores.must(gpu.Handle(wait))},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchains.must(gpu.Handle(s))},
		PImageIndices:      []uint32{index},
	}
	switch res := vk.QueuePresent(d.queues.must(gpu.Handle(q)), &info); res {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	default:
		return false, check(res, "presenting")
	}
}

func (d *Device) QueueSubmit(q gpu.Queue, submit gpu.SubmitInfo, f gpu.Fence) error {
	if len(submit.Wait) != len(submit.WaitStages) {
		return errors.Errorf("%d wait semaphores with %d wait stages", len(submit.Wait), len(submit.WaitStages))
	}
	cbs := make([]vk.CommandBuffer, len(submit.CommandBuffers))
	for i, cb := range submit.CommandBuffers {
		cbs[i] = d.commandBuffers.must(gpu.Handle(cb)).cb
	}
	wait := make([]vk.Semaphore, len(submit.Wait))
	stages := make([]vk.PipelineStageFlags, len(submit.Wait))
	for i, s := range submit.Wait {
		wait[i] = d.semaphores.must(gpu.Handle(s))
		stages[i] = vk.PipelineStageFlags(submit.WaitStages[i])
	}
	signal := make([]vk.Semaphore, len(submit.Signal))
	for i, s := range submit.Signal {
		signal[i] = d.semaphores.must(gpu.Handle(s))
	}
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cbs)),
		PCommandBuffers:      cbs,
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}
	fence := vk.NullFence
	if f != gpu.Fence(gpu.NullHandle) {
		fence = d.fences.must(gpu.Handle(f))
	}
	return check(vk.QueueSubmit(d.queues.must(gpu.Handle(q)), 1, []vk.SubmitInfo{info}, fence), "submitting to queue")
}

func (d *Device) QueueWaitIdle(q gpu.Queue) error {
	return check(vk.QueueWaitIdle(d.queues.must(gpu.Handle(q))), "waiting for queue idle")
}

func (d *Device) CreateCommandPool(desc gpu.CommandPoolDesc) (gpu.CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(desc.Flags),
		QueueFamilyIndex: desc.QueueFamily,
	}
	var pool vk.CommandPool
	if err := check(vk.CreateCommandPool(d.device, &info, nil, &pool), "creating command pool"); err != nil {
		return 0, err
	}
	return gpu.CommandPool(d.commandPools.add(pool)), nil
}

// DestroyCommandPool destroys the pool and forgets every command buffer allocated from it.
func (d *Device) DestroyCommandPool(p gpu.CommandPool) {
	pool, ok := d.commandPools.remove(gpu.Handle(p))
	if !ok {
		return
	}
	for h, cb := range d.commandBuffers.items {
		if cb.pool == p {
			delete(d.commandBuffers.items, h)
		}
	}
	vk.DestroyCommandPool(d.device, pool, nil)
}

func (d *Device) ResetCommandPool(p gpu.CommandPool) error {
	return check(vk.ResetCommandPool(d.device, d.commandPools.must(gpu.Handle(p)), 0), "resetting command pool")
}

func (d *Device) AllocateCommandBuffers(p gpu.CommandPool, level gpu.CommandBufferLevel, count uint32) ([]gpu.CommandBuffer, error) {
	if count == 0 {
		return nil, nil
	}
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPools.must(gpu.Handle(p)),
		Level:              vk.CommandBufferLevel(level),
		CommandBufferCount: count,
	}
	native := make([]vk.CommandBuffer, count)
	if err := checkAlloc(vk.AllocateCommandBuffers(d.device, &info, native), "command buffers"); err != nil {
		return nil, err
	}
	out := make([]gpu.CommandBuffer, count)
	for i, cb := range native {
		out[i] = gpu.CommandBuffer(d.commandBuffers.add(commandBuffer{cb: cb, pool: p}))
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(p gpu.CommandPool, buffers []gpu.CommandBuffer) {
	native := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if cb, ok := d.commandBuffers.remove(gpu.Handle(b)); ok {
			native = append(native, cb.cb)
		}
	}
	if len(native) == 0 {
		return
	}
	vk.FreeCommandBuffers(d.device, d.commandPools.must(gpu.Handle(p)), uint32(len(native)), native)
}

func (d *Device) BeginCommandBuffer(cb gpu.CommandBuffer, begin gpu.BeginInfo) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(begin.Usage),
	}
	if in := begin.Inheritance; in != nil {
		info.PInheritanceInfo = []vk.CommandBufferInheritanceInfo{{
			SType:       vk.StructureTypeCommandBufferInheritanceInfo,
			RenderPass:  d.renderPasses.must(gpu.Handle(in.RenderPass)).pass,
			Subpass:     in.Subpass,
			Framebuffer: d.framebuffers.must(gpu.Handle(in.Framebuffer)),
		}}
	}
	return check(vk.BeginCommandBuffer(d.cmd(cb), &info), "beginning command buffer")
}

func (d *Device) EndCommandBuffer(cb gpu.CommandBuffer) error {
	return check(vk.EndCommandBuffer(d.cmd(cb)), "ending command buffer")
}

func (d *Device) cmd(cb gpu.CommandBuffer) vk.CommandBuffer {
	return d.commandBuffers.must(gpu.Handle(cb)).cb
}

func (d *Device) CmdBeginRenderPass(cb gpu.CommandBuffer, begin gpu.RenderPassBegin) {
	rp := d.renderPasses.must(gpu.Handle(begin.RenderPass))
	clears := make([]vk.ClearValue, rp.attachments)
	for i := range clears {
		if i == rp.depth {
			clears[i] = vk.NewClearDepthStencil(begin.ClearDepth, 0)
			continue
		}
		clears[i] = vk.NewClearValue(begin.ClearColor[:])
	}
	info := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.pass,
		Framebuffer:     d.framebuffers.must(gpu.Handle(begin.Framebuffer)),
		RenderArea:      vk.Rect2D{Extent: extentToVk(begin.Extent)},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vk.CmdBeginRenderPass(d.cmd(cb), &info, vk.SubpassContents(begin.Contents))
}

func (d *Device) CmdEndRenderPass(cb gpu.CommandBuffer) {
	vk.CmdEndRenderPass(d.cmd(cb))
}

func (d *Device) CmdExecuteCommands(cb gpu.CommandBuffer, secondaries []gpu.CommandBuffer) {
	if len(secondaries) == 0 {
		return
	}
	native := make([]vk.CommandBuffer, len(secondaries))
	for i, s := range secondaries {
		native[i] = d.cmd(s)
	}
	vk.CmdExecuteCommands(d.cmd(cb), uint32(len(native)), native)
}

func (d *Device) CmdBindPipeline(cb gpu.CommandBuffer, p gpu.Pipeline) {
	vk.CmdBindPipeline(d.cmd(cb), vk.PipelineBindPointGraphics, d.pipelines.must(gpu.Handle(p)))
}

func (d *Device) CmdBindVertexBuffer(cb gpu.CommandBuffer, b gpu.Buffer) {
	vk.CmdBindVertexBuffers(d.cmd(cb), 0, 1, []vk.Buffer{d.buffers.must(gpu.Handle(b)).buf}, []vk.DeviceSize{0})
}

func (d *Device) CmdBindIndexBuffer(cb gpu.CommandBuffer, b gpu.Buffer) {
	vk.CmdBindIndexBuffer(d.cmd(cb), d.buffers.must(gpu.Handle(b)).buf, 0, vk.IndexTypeUint32)
}

func (d *Device) CmdBindDescriptorSet(cb gpu.CommandBuffer, layout gpu.PipelineLayout, set gpu.DescriptorSet) {
	vk.CmdBindDescriptorSets(d.cmd(cb), vk.PipelineBindPointGraphics, d.pipelineLayouts.must(gpu.Handle(layout)),
		0, 1, []vk.DescriptorSet{d.descriptorSets.must(gpu.Handle(set)).set}, 0, nil)
}

func (d *Device) CmdPushConstants(cb gpu.CommandBuffer, layout gpu.PipelineLayout, stages gpu.ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(d.cmd(cb), d.pipelineLayouts.must(gpu.Handle(layout)), vk.ShaderStageFlags(stages),
		offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *Device) CmdDrawIndexed(cb gpu.CommandBuffer, indexCount uint32) {
	vk.CmdDrawIndexed(d.cmd(cb), indexCount, 1, 0, 0, 0)
}

func (d *Device) CmdCopyBuffer(cb gpu.CommandBuffer, src, dst gpu.Buffer, size uint64) {
	vk.CmdCopyBuffer(d.cmd(cb), d.buffers.must(gpu.Handle(src)).buf, d.buffers.must(gpu.Handle(dst)).buf,
		1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
}

func (d *Device) CmdCopyBufferToImage(cb gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, extent gpu.Extent2D) {
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(d.cmd(cb), d.buffers.must(gpu.Handle(src)).buf, d.images.must(gpu.Handle(dst)).img,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (d *Device) CmdPipelineBarrier(cb gpu.CommandBuffer, b gpu.ImageBarrier) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
		DstAccessMask:       vk.AccessFlags(b.DstAccess),
		OldLayout:           vk.ImageLayout(b.OldLayout),
		NewLayout:           vk.ImageLayout(b.NewLayout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               d.images.must(gpu.Handle(b.Image)).img,
		SubresourceRange:    subresourceRange(b.Aspect, b.BaseMipLevel, b.LevelCount),
	}
	vk.CmdPipelineBarrier(d.cmd(cb), vk.PipelineStageFlags(b.SrcStage), vk.PipelineStageFlags(b.DstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (d *Device) CmdBlitImage(cb gpu.CommandBuffer, b gpu.ImageBlit) {
	layers := func(level uint32) vk.ImageSubresourceLayers {
		return vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   level,
			LayerCount: 1,
		}
	}
	corner := func(e gpu.Extent2D) vk.Offset3D {
		return vk.Offset3D{X: int32(e.Width), Y: int32(e.Height), Z: 1}
	}
	region := vk.ImageBlit{
		SrcSubresource: layers(b.SrcLevel),
		SrcOffsets:     [2]vk.Offset3D{{}, corner(b.SrcExtent)},
		DstSubresource: layers(b.DstLevel),
		DstOffsets:     [2]vk.Offset3D{{}, corner(b.DstExtent)},
	}
	vk.CmdBlitImage(d.cmd(cb),
		d.images.must(gpu.Handle(b.Src)).img, vk.ImageLayout(b.SrcLayout),
		d.images.must(gpu.Handle(b.Dst)).img, vk.ImageLayout(b.DstLayout),
		1, []vk.ImageBlit{region}, vk.Filter(b.Filter))
}
