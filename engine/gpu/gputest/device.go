package gputest

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Handle kinds reported by Live and LiveCount.
const (
	KindBuffer              = "buffer"
	KindImage               = "image"
	KindImageView           = "imageView"
	KindSampler             = "sampler"
	KindSwapchain           = "swapchain"
	KindRenderPass          = "renderPass"
	KindFramebuffer         = "framebuffer"
	KindShaderModule        = "shaderModule"
	KindDescriptorSetLayout = "descriptorSetLayout"
	KindPipelineLayout      = "pipelineLayout"
	KindPipeline            = "pipeline"
	KindDescriptorPool      = "descriptorPool"
	KindCommandPool         = "commandPool"
	KindSemaphore           = "semaphore"
	KindFence               = "fence"
)

// BufferState is the fake's view of a buffer.
type BufferState struct {
	Desc gpu.BufferDesc
	Data []byte
}

// ImageState is the fake's view of an image. Layouts holds one entry per mip level.
type ImageState struct {
	Desc      gpu.ImageDesc
	Layouts   []gpu.ImageLayout
	Data      []byte
	Swapchain gpu.Swapchain
}

// SwapchainState is the fake's view of a swapchain.
type SwapchainState struct {
	Desc   gpu.SwapchainDesc
	Images []gpu.Image
	next   uint32
}

// DescriptorPoolState is the fake's view of a descriptor pool.
type DescriptorPoolState struct {
	Desc gpu.DescriptorPoolDesc
	Sets []gpu.DescriptorSet
}

// DescriptorSetState is the fake's view of a descriptor set.
type DescriptorSetState struct {
	Pool   gpu.DescriptorPool
	Layout gpu.DescriptorSetLayout
	Writes map[uint32]gpu.DescriptorWrite
}

// Command is one recorded command.
type Command struct {
	Op   string
	Args any
}

// CommandBufferState is the fake's view of a command buffer.
type CommandBufferState struct {
	Pool      gpu.CommandPool
	Level     gpu.CommandBufferLevel
	Begin     gpu.BeginInfo
	Recording bool
	Commands  []Command
	// pendingFence is the fence of the last submission that included this buffer.
	pendingFence gpu.Fence
}

// FenceState is the fake's view of a fence.
type FenceState struct {
	Signaled bool
	Pending  bool
}

// Submit records one QueueSubmit call.
type Submit struct {
	Queue gpu.Queue
	Info  gpu.SubmitInfo
	Fence gpu.Fence
}

// Present records one successful QueuePresent call.
type Present struct {
	Swapchain gpu.Swapchain
	Index     uint32
}

// PresentResult scripts the outcome of one QueuePresent call.
type PresentResult struct {
	Suboptimal bool
	Err        error
}

// Device is a fake gpu.Device.
type Device struct {
	PhysicalDevice gpu.PhysicalDevice
	Desc           gpu.DeviceDesc

	// DeferCompletion keeps submitted work pending until a fence wait or idle wait completes it.
	DeferCompletion bool

	// AcquireErrors scripts AcquireNextImage results first-in first-out; a nil entry succeeds.
	AcquireErrors []error

	// PresentResults scripts QueuePresent results first-in first-out.
	PresentResults []PresentResult

	// Calls logs every create/destroy/wait call in order, e.g. "DestroyFramebuffer".
	Calls []string

	Buffers         map[gpu.Buffer]*BufferState
	Images          map[gpu.Image]*ImageState
	Views           map[gpu.ImageView]gpu.ImageViewDesc
	Samplers        map[gpu.Sampler]gpu.SamplerDesc
	Swapchains      map[gpu.Swapchain]*SwapchainState
	RenderPasses    map[gpu.RenderPass]gpu.RenderPassDesc
	Framebuffers    map[gpu.Framebuffer]gpu.FramebufferDesc
	Modules         map[gpu.ShaderModule][]byte
	SetLayouts      map[gpu.DescriptorSetLayout][]gpu.DescriptorBinding
	PipelineLayouts map[gpu.PipelineLayout]gpu.PipelineLayoutDesc
	Pipelines       map[gpu.Pipeline]gpu.GraphicsPipelineDesc
	DescriptorPools map[gpu.DescriptorPool]*DescriptorPoolState
	DescriptorSets  map[gpu.DescriptorSet]*DescriptorSetState
	CommandPools    map[gpu.CommandPool]gpu.CommandPoolDesc
	CommandBuffers  map[gpu.CommandBuffer]*CommandBufferState
	Semaphores      map[gpu.Semaphore]bool
	Fences          map[gpu.Fence]*FenceState

	Submits  []Submit
	Presents []Present

	// Violations lists every misuse detected, in order.
	Violations []string

	failures  map[string][]error
	destroyed bool
	next      gpu.Handle
}

var _ gpu.Device = &Device{}

// NewDevice returns an empty fake device.
func NewDevice() *Device {
	return &Device{
		Buffers:         map[gpu.Buffer]*BufferState{},
		Images:          map[gpu.Image]*ImageState{},
		Views:           map[gpu.ImageView]gpu.ImageViewDesc{},
		Samplers:        map[gpu.Sampler]gpu.SamplerDesc{},
		Swapchains:      map[gpu.Swapchain]*SwapchainState{},
		RenderPasses:    map[gpu.RenderPass]gpu.RenderPassDesc{},
		Framebuffers:    map[gpu.Framebuffer]gpu.FramebufferDesc{},
		Modules:         map[gpu.ShaderModule][]byte{},
		SetLayouts:      map[gpu.DescriptorSetLayout][]gpu.DescriptorBinding{},
		PipelineLayouts: map[gpu.PipelineLayout]gpu.PipelineLayoutDesc{},
		Pipelines:       map[gpu.Pipeline]gpu.GraphicsPipelineDesc{},
		DescriptorPools: map[gpu.DescriptorPool]*DescriptorPoolState{},
		DescriptorSets:  map[gpu.DescriptorSet]*DescriptorSetState{},
		CommandPools:    map[gpu.CommandPool]gpu.CommandPoolDesc{},
		CommandBuffers:  map[gpu.CommandBuffer]*CommandBufferState{},
		Semaphores:      map[gpu.Semaphore]bool{},
		Fences:          map[gpu.Fence]*FenceState{},
		failures:        map[string][]error{},
	}
}

// FailNext queues err for the next create call of kind. A nil err lets that call succeed,
// so FailNext(k, nil), FailNext(k, err) fails the second call.
func (d *Device) FailNext(kind string, err error) {
	d.failures[kind] = append(d.failures[kind], err)
}

func (d *Device) injected(kind string) error {
	queue := d.failures[kind]
	if len(queue) == 0 {
		return nil
	}
	d.failures[kind] = queue[1:]
	return queue[0]
}

func (d *Device) handle() gpu.Handle {
	d.next++
	return d.next
}

func (d *Device) violate(format string, args ...any) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

func (d *Device) call(name string) {
	d.Calls = append(d.Calls, name)
}

// Live returns the number of live handles per kind. Swapchain-owned images are not counted.
func (d *Device) Live() map[string]int {
	images := 0
	for _, img := range d.Images {
		if img.Swapchain == 0 {
			images++
		}
	}
	live := map[string]int{
		KindBuffer:              len(d.Buffers),
		KindImage:               images,
		KindImageView:           len(d.Views),
		KindSampler:             len(d.Samplers),
		KindSwapchain:           len(d.Swapchains),
		KindRenderPass:          len(d.RenderPasses),
		KindFramebuffer:         len(d.Framebuffers),
		KindShaderModule:        len(d.Modules),
		KindDescriptorSetLayout: len(d.SetLayouts),
		KindPipelineLayout:      len(d.PipelineLayouts),
		KindPipeline:            len(d.Pipelines),
		KindDescriptorPool:      len(d.DescriptorPools),
		KindCommandPool:         len(d.CommandPools),
		KindSemaphore:           len(d.Semaphores),
		KindFence:               len(d.Fences),
	}
	for k, v := range live {
		if v == 0 {
			delete(live, k)
		}
	}
	return live
}

// LiveCount returns the number of live handles of one kind.
func (d *Device) LiveCount(kind string) int {
	return d.Live()[kind]
}

// LiveTotal returns the number of live handles of every kind.
func (d *Device) LiveTotal() int {
	total := 0
	for _, v := range d.Live() {
		total += v
	}
	return total
}

// CountCalls returns how many times name appears in Calls.
func (d *Device) CountCalls(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// CallIndex returns the index of the first occurrence of name in Calls at or after from, or -1.
func (d *Device) CallIndex(name string, from int) int {
	for i := from; i < len(d.Calls); i++ {
		if d.Calls[i] == name {
			return i
		}
	}
	return -1
}

// Queue returns a stable queue handle per family.
func (d *Device) Queue(family uint32) gpu.Queue {
	return gpu.Queue(family + 1)
}

func (d *Device) WaitIdle() error {
	d.call("WaitIdle")
	d.completeAll()
	return nil
}

func (d *Device) Destroy() {
	d.call("DestroyDevice")
	if d.destroyed {
		d.violate("device destroyed twice")
	}
	if live := d.Live(); len(live) > 0 {
		keys := make([]string, 0, len(live))
		for k := range live {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d.violate("device destroyed with live children: %v", keys)
	}
	d.destroyed = true
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if err := d.injected(KindBuffer); err != nil {
		return 0, err
	}
	if desc.Size == 0 {
		return 0, errors.New("zero-size buffer")
	}
	h := gpu.Buffer(d.handle())
	d.Buffers[h] = &BufferState{Desc: desc, Data: make([]byte, desc.Size)}
	d.call("CreateBuffer")
	return h, nil
}

func (d *Device) DestroyBuffer(buffer gpu.Buffer) {
	if buffer == 0 {
		return
	}
	d.call("DestroyBuffer")
	if _, ok := d.Buffers[buffer]; !ok {
		d.violate("destroy of unknown buffer %d", buffer)
		return
	}
	delete(d.Buffers, buffer)
}

func (d *Device) hostBuffer(buffer gpu.Buffer, offset, size uint64) (*BufferState, error) {
	b, ok := d.Buffers[buffer]
	if !ok {
		return nil, errors.Errorf("unknown buffer %d", buffer)
	}
	if b.Desc.Memory&gpu.MemoryPropertyHostVisible == 0 {
		d.violate("map of non host-visible buffer %d", buffer)
		return nil, errors.New("memory is not host visible")
	}
	if offset+size > uint64(len(b.Data)) {
		return nil, errors.Errorf("range %d+%d exceeds buffer size %d", offset, size, len(b.Data))
	}
	return b, nil
}

func (d *Device) WriteBuffer(buffer gpu.Buffer, offset uint64, data []byte) error {
	b, err := d.hostBuffer(buffer, offset, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(b.Data[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(buffer gpu.Buffer, offset, size uint64) ([]byte, error) {
	b, err := d.hostBuffer(buffer, offset, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, b.Data[offset:offset+size])
	return out, nil
}

func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.Image, error) {
	if err := d.injected(KindImage); err != nil {
		return 0, err
	}
	if desc.Extent.IsZero() {
		return 0, gpu.ErrZeroExtent
	}
	levels := desc.MipLevels
	if levels == 0 {
		levels = 1
	}
	h := gpu.Image(d.handle())
	d.Images[h] = &ImageState{Desc: desc, Layouts: make([]gpu.ImageLayout, levels)}
	d.call("CreateImage")
	return h, nil
}

func (d *Device) DestroyImage(image gpu.Image) {
	if image == 0 {
		return
	}
	d.call("DestroyImage")
	img, ok := d.Images[image]
	if !ok {
		d.violate("destroy of unknown image %d", image)
		return
	}
	if img.Swapchain != 0 {
		d.violate("destroy of swapchain-owned image %d", image)
		return
	}
	for _, v := range d.Views {
		if v.Image == image {
			d.violate("image %d destroyed while a view of it is alive", image)
			break
		}
	}
	delete(d.Images, image)
}

func (d *Device) CreateImageView(desc gpu.ImageViewDesc) (gpu.ImageView, error) {
	if err := d.injected(KindImageView); err != nil {
		return 0, err
	}
	if _, ok := d.Images[desc.Image]; !ok {
		return 0, errors.Errorf("view of unknown image %d", desc.Image)
	}
	h := gpu.ImageView(d.handle())
	d.Views[h] = desc
	d.call("CreateImageView")
	return h, nil
}

func (d *Device) DestroyImageView(view gpu.ImageView) {
	if view == 0 {
		return
	}
	d.call("DestroyImageView")
	if _, ok := d.Views[view]; !ok {
		d.violate("destroy of unknown image view %d", view)
		return
	}
	delete(d.Views, view)
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Sampler, error) {
	if err := d.injected(KindSampler); err != nil {
		return 0, err
	}
	h := gpu.Sampler(d.handle())
	d.Samplers[h] = desc
	d.call("CreateSampler")
	return h, nil
}

func (d *Device) DestroySampler(sampler gpu.Sampler) {
	if sampler == 0 {
		return
	}
	d.call("DestroySampler")
	if _, ok := d.Samplers[sampler]; !ok {
		d.violate("destroy of unknown sampler %d", sampler)
		return
	}
	delete(d.Samplers, sampler)
}

func (d *Device) CreateSwapchain(desc gpu.SwapchainDesc) (gpu.Swapchain, error) {
	if err := d.injected(KindSwapchain); err != nil {
		return 0, err
	}
	if desc.Extent.IsZero() {
		d.violate("swapchain created with zero extent")
		return 0, gpu.ErrZeroExtent
	}
	h := gpu.Swapchain(d.handle())
	sc := &SwapchainState{Desc: desc}
	for i := uint32(0); i < desc.MinImages; i++ {
		img := gpu.Image(d.handle())
		d.Images[img] = &ImageState{
			Desc: gpu.ImageDesc{
				Extent:    desc.Extent,
				MipLevels: 1,
				Samples:   gpu.SampleCount1,
				Format:    desc.Format.Format,
				Usage:     gpu.ImageUsageColorAttachment,
			},
			Layouts:   []gpu.ImageLayout{gpu.ImageLayoutUndefined},
			Swapchain: h,
		}
		sc.Images = append(sc.Images, img)
	}
	d.Swapchains[h] = sc
	d.call("CreateSwapchain")
	return h, nil
}

func (d *Device) DestroySwapchain(swapchain gpu.Swapchain) {
	if swapchain == 0 {
		return
	}
	d.call("DestroySwapchain")
	sc, ok := d.Swapchains[swapchain]
	if !ok {
		d.violate("destroy of unknown swapchain %d", swapchain)
		return
	}
	for _, img := range sc.Images {
		for _, v := range d.Views {
			if v.Image == img {
				d.violate("swapchain %d destroyed while a view of its image %d is alive", swapchain, img)
			}
		}
		delete(d.Images, img)
	}
	delete(d.Swapchains, swapchain)
}

func (d *Device) SwapchainImages(swapchain gpu.Swapchain) ([]gpu.Image, error) {
	sc, ok := d.Swapchains[swapchain]
	if !ok {
		return nil, errors.Errorf("unknown swapchain %d", swapchain)
	}
	out := make([]gpu.Image, len(sc.Images))
	copy(out, sc.Images)
	return out, nil
}

func (d *Device) AcquireNextImage(swapchain gpu.Swapchain, signal gpu.Semaphore) (uint32, bool, error) {
	d.call("AcquireNextImage")
	if len(d.AcquireErrors) > 0 {
		err := d.AcquireErrors[0]
		d.AcquireErrors = d.AcquireErrors[1:]
		if err != nil {
			return 0, false, err
		}
	}
	sc, ok := d.Swapchains[swapchain]
	if !ok {
		return 0, false, errors.Errorf("unknown swapchain %d", swapchain)
	}
	if d.Semaphores[signal] {
		d.violate("acquire signals semaphore %d that is already signaled", signal)
	}
	d.Semaphores[signal] = true
	idx := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.Images))
	return idx, false, nil
}

func (d *Device) QueuePresent(_ gpu.Queue, swapchain gpu.Swapchain, index uint32, wait gpu.Semaphore) (bool, error) {
	d.call("QueuePresent")
	if !d.Semaphores[wait] {
		d.violate("present waits on unsignaled semaphore %d", wait)
	}
	d.Semaphores[wait] = false
	var result PresentResult
	if len(d.PresentResults) > 0 {
		result = d.PresentResults[0]
		d.PresentResults = d.PresentResults[1:]
	}
	if result.Err != nil {
		return false, result.Err
	}
	d.Presents = append(d.Presents, Present{Swapchain: swapchain, Index: index})
	return result.Suboptimal, nil
}

func (d *Device) QueueSubmit(queue gpu.Queue, submit gpu.SubmitInfo, fence gpu.Fence) error {
	d.call("QueueSubmit")
	for _, s := range submit.Wait {
		if !d.Semaphores[s] {
			d.violate("submit waits on unsignaled semaphore %d", s)
		}
		d.Semaphores[s] = false
	}
	if fence != 0 {
		f, ok := d.Fences[fence]
		if !ok {
			return errors.Errorf("unknown fence %d", fence)
		}
		if f.Signaled || f.Pending {
			d.violate("fence %d submitted while signaled=%v pending=%v", fence, f.Signaled, f.Pending)
		}
	}
	for _, cb := range submit.CommandBuffers {
		st, ok := d.CommandBuffers[cb]
		if !ok {
			return errors.Errorf("unknown command buffer %d", cb)
		}
		if st.Recording {
			d.violate("command buffer %d submitted while recording", cb)
		}
		if st.Level != gpu.CommandBufferLevelPrimary {
			d.violate("secondary command buffer %d submitted directly", cb)
		}
		d.execute(st, fence)
	}
	for _, s := range submit.Signal {
		d.Semaphores[s] = true
	}
	d.Submits = append(d.Submits, Submit{Queue: queue, Info: submit, Fence: fence})
	if fence != 0 {
		if d.DeferCompletion {
			d.Fences[fence].Pending = true
		} else {
			d.Fences[fence].Signaled = true
		}
	}
	return nil
}

// execute applies the data effects of a recorded command buffer.
func (d *Device) execute(st *CommandBufferState, fence gpu.Fence) {
	st.pendingFence = fence
	for _, c := range st.Commands {
		switch c.Op {
		case "CopyBuffer":
			a := c.Args.(copyBufferArgs)
			src, dst := d.Buffers[a.src], d.Buffers[a.dst]
			if src == nil || dst == nil {
				d.violate("copy between unknown buffers %d -> %d", a.src, a.dst)
				continue
			}
			copy(dst.Data[:a.size], src.Data[:a.size])
		case "CopyBufferToImage":
			a := c.Args.(copyBufferToImageArgs)
			src, dst := d.Buffers[a.src], d.Images[a.dst]
			if src == nil || dst == nil {
				d.violate("copy from unknown buffer %d to image %d", a.src, a.dst)
				continue
			}
			if dst.Layouts[0] != gpu.ImageLayoutTransferDstOptimal {
				d.violate("copy into image %d in layout %d", a.dst, dst.Layouts[0])
			}
			dst.Data = append([]byte(nil), src.Data...)
		case "PipelineBarrier":
			b := c.Args.(gpu.ImageBarrier)
			img := d.Images[b.Image]
			if img == nil {
				d.violate("barrier on unknown image %d", b.Image)
				continue
			}
			for l := b.BaseMipLevel; l < b.BaseMipLevel+b.LevelCount && int(l) < len(img.Layouts); l++ {
				if b.OldLayout != gpu.ImageLayoutUndefined && img.Layouts[l] != b.OldLayout {
					d.violate("barrier on image %d level %d expects layout %d, found %d", b.Image, l, b.OldLayout, img.Layouts[l])
				}
				img.Layouts[l] = b.NewLayout
			}
		case "BlitImage":
			b := c.Args.(gpu.ImageBlit)
			src, dst := d.Images[b.Src], d.Images[b.Dst]
			if src == nil || dst == nil {
				d.violate("blit between unknown images")
				continue
			}
			if src.Layouts[b.SrcLevel] != b.SrcLayout || dst.Layouts[b.DstLevel] != b.DstLayout {
				d.violate("blit level %d->%d with mismatched layouts", b.SrcLevel, b.DstLevel)
			}
		case "ExecuteCommands":
			for _, sec := range c.Args.([]gpu.CommandBuffer) {
				s, ok := d.CommandBuffers[sec]
				if !ok {
					d.violate("execute of unknown secondary %d", sec)
					continue
				}
				if s.Level != gpu.CommandBufferLevelSecondary {
					d.violate("execute of primary command buffer %d", sec)
				}
				d.execute(s, fence)
			}
		}
	}
}

func (d *Device) completeAll() {
	for _, f := range d.Fences {
		if f.Pending {
			f.Pending = false
			f.Signaled = true
		}
	}
}

func (d *Device) QueueWaitIdle(_ gpu.Queue) error {
	d.call("QueueWaitIdle")
	d.completeAll()
	return nil
}

func (d *Device) CreateRenderPass(desc gpu.RenderPassDesc) (gpu.RenderPass, error) {
	if err := d.injected(KindRenderPass); err != nil {
		return 0, err
	}
	h := gpu.RenderPass(d.handle())
	d.RenderPasses[h] = desc
	d.call("CreateRenderPass")
	return h, nil
}

func (d *Device) DestroyRenderPass(pass gpu.RenderPass) {
	if pass == 0 {
		return
	}
	d.call("DestroyRenderPass")
	if _, ok := d.RenderPasses[pass]; !ok {
		d.violate("destroy of unknown render pass %d", pass)
		return
	}
	for _, fb := range d.Framebuffers {
		if fb.RenderPass == pass {
			d.violate("render pass %d destroyed while a framebuffer uses it", pass)
			break
		}
	}
	delete(d.RenderPasses, pass)
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	if err := d.injected(KindFramebuffer); err != nil {
		return 0, err
	}
	rp, ok := d.RenderPasses[desc.RenderPass]
	if !ok {
		return 0, errors.Errorf("framebuffer for unknown render pass %d", desc.RenderPass)
	}
	if len(desc.Attachments) != len(rp.Attachments) {
		d.violate("framebuffer has %d attachments, render pass declares %d", len(desc.Attachments), len(rp.Attachments))
	}
	for i, view := range desc.Attachments {
		v, ok := d.Views[view]
		if !ok || i >= len(rp.Attachments) {
			continue
		}
		img := d.Images[v.Image]
		if img == nil {
			continue
		}
		want := rp.Attachments[i]
		if img.Desc.Format != want.Format || img.Desc.Samples != want.Samples {
			d.violate("framebuffer attachment %d is %s/%dx, render pass expects %s/%dx",
				i, img.Desc.Format, img.Desc.Samples, want.Format, want.Samples)
		}
	}
	h := gpu.Framebuffer(d.handle())
	d.Framebuffers[h] = desc
	d.call("CreateFramebuffer")
	return h, nil
}

func (d *Device) DestroyFramebuffer(framebuffer gpu.Framebuffer) {
	if framebuffer == 0 {
		return
	}
	d.call("DestroyFramebuffer")
	if _, ok := d.Framebuffers[framebuffer]; !ok {
		d.violate("destroy of unknown framebuffer %d", framebuffer)
		return
	}
	delete(d.Framebuffers, framebuffer)
}

func (d *Device) CreateShaderModule(code []byte) (gpu.ShaderModule, error) {
	if err := d.injected(KindShaderModule); err != nil {
		return 0, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, errors.Errorf("invalid SPIR-V length %d", len(code))
	}
	h := gpu.ShaderModule(d.handle())
	d.Modules[h] = append([]byte(nil), code...)
	d.call("CreateShaderModule")
	return h, nil
}

func (d *Device) DestroyShaderModule(module gpu.ShaderModule) {
	if module == 0 {
		return
	}
	d.call("DestroyShaderModule")
	if _, ok := d.Modules[module]; !ok {
		d.violate("destroy of unknown shader module %d", module)
		return
	}
	delete(d.Modules, module)
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	if err := d.injected(KindDescriptorSetLayout); err != nil {
		return 0, err
	}
	h := gpu.DescriptorSetLayout(d.handle())
	d.SetLayouts[h] = append([]gpu.DescriptorBinding(nil), bindings...)
	d.call("CreateDescriptorSetLayout")
	return h, nil
}

func (d *Device) DestroyDescriptorSetLayout(layout gpu.DescriptorSetLayout) {
	if layout == 0 {
		return
	}
	d.call("DestroyDescriptorSetLayout")
	if _, ok := d.SetLayouts[layout]; !ok {
		d.violate("destroy of unknown descriptor set layout %d", layout)
		return
	}
	for _, s := range d.DescriptorSets {
		if s.Layout == layout {
			d.violate("descriptor set layout %d destroyed while sets built from it exist", layout)
			break
		}
	}
	delete(d.SetLayouts, layout)
}

func (d *Device) CreatePipelineLayout(desc gpu.PipelineLayoutDesc) (gpu.PipelineLayout, error) {
	if err := d.injected(KindPipelineLayout); err != nil {
		return 0, err
	}
	for _, l := range desc.SetLayouts {
		if _, ok := d.SetLayouts[l]; !ok {
			return 0, errors.Errorf("pipeline layout references unknown set layout %d", l)
		}
	}
	h := gpu.PipelineLayout(d.handle())
	d.PipelineLayouts[h] = desc
	d.call("CreatePipelineLayout")
	return h, nil
}

func (d *Device) DestroyPipelineLayout(layout gpu.PipelineLayout) {
	if layout == 0 {
		return
	}
	d.call("DestroyPipelineLayout")
	if _, ok := d.PipelineLayouts[layout]; !ok {
		d.violate("destroy of unknown pipeline layout %d", layout)
		return
	}
	delete(d.PipelineLayouts, layout)
}

func (d *Device) CreateGraphicsPipeline(desc gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	if err := d.injected(KindPipeline); err != nil {
		return 0, err
	}
	if _, ok := d.RenderPasses[desc.RenderPass]; !ok {
		return 0, errors.Errorf("pipeline for unknown render pass %d", desc.RenderPass)
	}
	if _, ok := d.PipelineLayouts[desc.Layout]; !ok {
		return 0, errors.Errorf("pipeline with unknown layout %d", desc.Layout)
	}
	if _, ok := d.Modules[desc.VertexModule]; !ok {
		return 0, errors.New("pipeline with unknown vertex module")
	}
	if _, ok := d.Modules[desc.FragmentModule]; !ok {
		return 0, errors.New("pipeline with unknown fragment module")
	}
	h := gpu.Pipeline(d.handle())
	d.Pipelines[h] = desc
	d.call("CreateGraphicsPipeline")
	return h, nil
}

func (d *Device) DestroyPipeline(pipeline gpu.Pipeline) {
	if pipeline == 0 {
		return
	}
	d.call("DestroyPipeline")
	if _, ok := d.Pipelines[pipeline]; !ok {
		d.violate("destroy of unknown pipeline %d", pipeline)
		return
	}
	delete(d.Pipelines, pipeline)
}

func (d *Device) CreateDescriptorPool(desc gpu.DescriptorPoolDesc) (gpu.DescriptorPool, error) {
	if err := d.injected(KindDescriptorPool); err != nil {
		return 0, err
	}
	h := gpu.DescriptorPool(d.handle())
	d.DescriptorPools[h] = &DescriptorPoolState{Desc: desc}
	d.call("CreateDescriptorPool")
	return h, nil
}

func (d *Device) DestroyDescriptorPool(pool gpu.DescriptorPool) {
	if pool == 0 {
		return
	}
	d.call("DestroyDescriptorPool")
	p, ok := d.DescriptorPools[pool]
	if !ok {
		d.violate("destroy of unknown descriptor pool %d", pool)
		return
	}
	for _, s := range p.Sets {
		delete(d.DescriptorSets, s)
	}
	delete(d.DescriptorPools, pool)
}

func (d *Device) AllocateDescriptorSets(pool gpu.DescriptorPool, layouts []gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	if err := d.injected("descriptorSet"); err != nil {
		return nil, err
	}
	p, ok := d.DescriptorPools[pool]
	if !ok {
		return nil, errors.Errorf("unknown descriptor pool %d", pool)
	}
	if uint32(len(p.Sets)+len(layouts)) > p.Desc.MaxSets {
		return nil, errors.Wrapf(gpu.ErrOutOfMemory, "pool %d exhausted (max %d sets)", pool, p.Desc.MaxSets)
	}
	out := make([]gpu.DescriptorSet, 0, len(layouts))
	for _, l := range layouts {
		if _, ok := d.SetLayouts[l]; !ok {
			return nil, errors.Errorf("unknown descriptor set layout %d", l)
		}
		h := gpu.DescriptorSet(d.handle())
		d.DescriptorSets[h] = &DescriptorSetState{Pool: pool, Layout: l, Writes: map[uint32]gpu.DescriptorWrite{}}
		p.Sets = append(p.Sets, h)
		out = append(out, h)
	}
	return out, nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	for _, w := range writes {
		s, ok := d.DescriptorSets[w.Set]
		if !ok {
			d.violate("write to unknown descriptor set %d", w.Set)
			continue
		}
		found := false
		for _, b := range d.SetLayouts[s.Layout] {
			if b.Binding == w.Binding {
				found = true
				if b.Type != w.Type {
					d.violate("write of type %d to binding %d of type %d", w.Type, w.Binding, b.Type)
				}
			}
		}
		if !found {
			d.violate("write to binding %d absent from layout %d", w.Binding, s.Layout)
		}
		s.Writes[w.Binding] = w
	}
}

func (d *Device) CreateCommandPool(desc gpu.CommandPoolDesc) (gpu.CommandPool, error) {
	if err := d.injected(KindCommandPool); err != nil {
		return 0, err
	}
	h := gpu.CommandPool(d.handle())
	d.CommandPools[h] = desc
	d.call("CreateCommandPool")
	return h, nil
}

func (d *Device) DestroyCommandPool(pool gpu.CommandPool) {
	if pool == 0 {
		return
	}
	d.call("DestroyCommandPool")
	if _, ok := d.CommandPools[pool]; !ok {
		d.violate("destroy of unknown command pool %d", pool)
		return
	}
	for h, cb := range d.CommandBuffers {
		if cb.Pool == pool {
			if d.isPending(cb) {
				d.violate("command pool %d destroyed while buffer %d is pending", pool, h)
			}
			delete(d.CommandBuffers, h)
		}
	}
	delete(d.CommandPools, pool)
}

func (d *Device) isPending(cb *CommandBufferState) bool {
	if cb.pendingFence == 0 {
		return false
	}
	f, ok := d.Fences[cb.pendingFence]
	return ok && f.Pending
}

func (d *Device) ResetCommandPool(pool gpu.CommandPool) error {
	d.call("ResetCommandPool")
	if _, ok := d.CommandPools[pool]; !ok {
		return errors.Errorf("unknown command pool %d", pool)
	}
	for h, cb := range d.CommandBuffers {
		if cb.Pool != pool {
			continue
		}
		if d.isPending(cb) {
			d.violate("command pool %d reset while buffer %d is pending", pool, h)
		}
		cb.Commands = nil
		cb.Recording = false
	}
	return nil
}

func (d *Device) AllocateCommandBuffers(pool gpu.CommandPool, level gpu.CommandBufferLevel, count uint32) ([]gpu.CommandBuffer, error) {
	if err := d.injected("commandBuffer"); err != nil {
		return nil, err
	}
	if _, ok := d.CommandPools[pool]; !ok {
		return nil, errors.Errorf("unknown command pool %d", pool)
	}
	out := make([]gpu.CommandBuffer, count)
	for i := range out {
		h := gpu.CommandBuffer(d.handle())
		d.CommandBuffers[h] = &CommandBufferState{Pool: pool, Level: level}
		out[i] = h
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(_ gpu.CommandPool, buffers []gpu.CommandBuffer) {
	for _, b := range buffers {
		cb, ok := d.CommandBuffers[b]
		if !ok {
			d.violate("free of unknown command buffer %d", b)
			continue
		}
		if d.isPending(cb) {
			d.violate("command buffer %d freed while pending", b)
		}
		delete(d.CommandBuffers, b)
	}
}

func (d *Device) BeginCommandBuffer(cb gpu.CommandBuffer, info gpu.BeginInfo) error {
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return errors.Errorf("unknown command buffer %d", cb)
	}
	if d.isPending(st) {
		d.violate("command buffer %d re-recorded while pending", cb)
	}
	if st.Level == gpu.CommandBufferLevelSecondary && info.Inheritance == nil {
		d.violate("secondary command buffer %d begun without inheritance info", cb)
	}
	st.Begin = info
	st.Recording = true
	st.Commands = nil
	return nil
}

func (d *Device) EndCommandBuffer(cb gpu.CommandBuffer) error {
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return errors.Errorf("unknown command buffer %d", cb)
	}
	if !st.Recording {
		d.violate("end of command buffer %d that is not recording", cb)
	}
	st.Recording = false
	return nil
}

func (d *Device) record(cb gpu.CommandBuffer, op string, args any) {
	st, ok := d.CommandBuffers[cb]
	if !ok {
		d.violate("%s on unknown command buffer %d", op, cb)
		return
	}
	if !st.Recording {
		d.violate("%s on command buffer %d that is not recording", op, cb)
	}
	st.Commands = append(st.Commands, Command{Op: op, Args: args})
}

type copyBufferArgs struct {
	src, dst gpu.Buffer
	size     uint64
}

type copyBufferToImageArgs struct {
	src    gpu.Buffer
	dst    gpu.Image
	extent gpu.Extent2D
}

// PushConstants is the recorded argument of a CmdPushConstants command.
type PushConstants struct {
	Layout gpu.PipelineLayout
	Stages gpu.ShaderStage
	Offset uint32
	Data   []byte
}

// BindDescriptorSet is the recorded argument of a CmdBindDescriptorSet command.
type BindDescriptorSet struct {
	Layout gpu.PipelineLayout
	Set    gpu.DescriptorSet
}

func (d *Device) CmdBeginRenderPass(cb gpu.CommandBuffer, begin gpu.RenderPassBegin) {
	d.record(cb, "BeginRenderPass", begin)
}

func (d *Device) CmdEndRenderPass(cb gpu.CommandBuffer) {
	d.record(cb, "EndRenderPass", nil)
}

func (d *Device) CmdExecuteCommands(cb gpu.CommandBuffer, secondaries []gpu.CommandBuffer) {
	d.record(cb, "ExecuteCommands", append([]gpu.CommandBuffer(nil), secondaries...))
}

func (d *Device) CmdBindPipeline(cb gpu.CommandBuffer, pipeline gpu.Pipeline) {
	if _, ok := d.Pipelines[pipeline]; !ok {
		d.violate("bind of unknown pipeline %d", pipeline)
	}
	d.record(cb, "BindPipeline", pipeline)
}

func (d *Device) CmdBindVertexBuffer(cb gpu.CommandBuffer, buffer gpu.Buffer) {
	d.record(cb, "BindVertexBuffer", buffer)
}

func (d *Device) CmdBindIndexBuffer(cb gpu.CommandBuffer, buffer gpu.Buffer) {
	d.record(cb, "BindIndexBuffer", buffer)
}

func (d *Device) CmdBindDescriptorSet(cb gpu.CommandBuffer, layout gpu.PipelineLayout, set gpu.DescriptorSet) {
	if _, ok := d.DescriptorSets[set]; !ok {
		d.violate("bind of unknown descriptor set %d", set)
	}
	d.record(cb, "BindDescriptorSet", BindDescriptorSet{Layout: layout, Set: set})
}

func (d *Device) CmdPushConstants(cb gpu.CommandBuffer, layout gpu.PipelineLayout, stages gpu.ShaderStage, offset uint32, data []byte) {
	d.record(cb, "PushConstants", PushConstants{Layout: layout, Stages: stages, Offset: offset, Data: append([]byte(nil), data...)})
}

func (d *Device) CmdDrawIndexed(cb gpu.CommandBuffer, indexCount uint32) {
	d.record(cb, "DrawIndexed", indexCount)
}

func (d *Device) CmdCopyBuffer(cb gpu.CommandBuffer, src, dst gpu.Buffer, size uint64) {
	d.record(cb, "CopyBuffer", copyBufferArgs{src: src, dst: dst, size: size})
}

func (d *Device) CmdCopyBufferToImage(cb gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, extent gpu.Extent2D) {
	d.record(cb, "CopyBufferToImage", copyBufferToImageArgs{src: src, dst: dst, extent: extent})
}

func (d *Device) CmdPipelineBarrier(cb gpu.CommandBuffer, barrier gpu.ImageBarrier) {
	d.record(cb, "PipelineBarrier", barrier)
}

func (d *Device) CmdBlitImage(cb gpu.CommandBuffer, blit gpu.ImageBlit) {
	d.record(cb, "BlitImage", blit)
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	if err := d.injected(KindSemaphore); err != nil {
		return 0, err
	}
	h := gpu.Semaphore(d.handle())
	d.Semaphores[h] = false
	d.call("CreateSemaphore")
	return h, nil
}

func (d *Device) DestroySemaphore(semaphore gpu.Semaphore) {
	if semaphore == 0 {
		return
	}
	d.call("DestroySemaphore")
	if _, ok := d.Semaphores[semaphore]; !ok {
		d.violate("destroy of unknown semaphore %d", semaphore)
		return
	}
	delete(d.Semaphores, semaphore)
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	if err := d.injected(KindFence); err != nil {
		return 0, err
	}
	h := gpu.Fence(d.handle())
	d.Fences[h] = &FenceState{Signaled: signaled}
	d.call("CreateFence")
	return h, nil
}

func (d *Device) DestroyFence(fence gpu.Fence) {
	if fence == 0 {
		return
	}
	d.call("DestroyFence")
	f, ok := d.Fences[fence]
	if !ok {
		d.violate("destroy of unknown fence %d", fence)
		return
	}
	if f.Pending {
		d.violate("fence %d destroyed while pending", fence)
	}
	delete(d.Fences, fence)
}

func (d *Device) WaitForFence(fence gpu.Fence) error {
	d.call("WaitForFence")
	f, ok := d.Fences[fence]
	if !ok {
		return errors.Errorf("unknown fence %d", fence)
	}
	if f.Pending {
		f.Pending = false
		f.Signaled = true
	}
	if !f.Signaled {
		d.violate("wait on fence %d that nothing will signal", fence)
		return errors.Errorf("fence %d would block forever", fence)
	}
	return nil
}

func (d *Device) ResetFence(fence gpu.Fence) error {
	f, ok := d.Fences[fence]
	if !ok {
		return errors.Errorf("unknown fence %d", fence)
	}
	if f.Pending {
		d.violate("fence %d reset while its submission is pending", fence)
	}
	f.Signaled = false
	return nil
}

func (d *Device) FenceSignaled(fence gpu.Fence) (bool, error) {
	f, ok := d.Fences[fence]
	if !ok {
		return false, errors.Errorf("unknown fence %d", fence)
	}
	return f.Signaled, nil
}

// Complete finishes every pending submission, as if the GPU caught up.
func (d *Device) Complete() {
	d.completeAll()
}

// LastSubmit returns the most recent submission.
func (d *Device) LastSubmit() (Submit, bool) {
	if len(d.Submits) == 0 {
		return Submit{}, false
	}
	return d.Submits[len(d.Submits)-1], true
}

// Secondaries returns the secondary command buffers executed by a primary, in execution order.
func (d *Device) Secondaries(primary gpu.CommandBuffer) []gpu.CommandBuffer {
	st, ok := d.CommandBuffers[primary]
	if !ok {
		return nil
	}
	var out []gpu.CommandBuffer
	for _, c := range st.Commands {
		if c.Op == "ExecuteCommands" {
			out = append(out, c.Args.([]gpu.CommandBuffer)...)
		}
	}
	return out
}

// Ops returns the recorded op names of a command buffer.
func (d *Device) Ops(cb gpu.CommandBuffer) []string {
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return nil
	}
	out := make([]string, len(st.Commands))
	for i, c := range st.Commands {
		out[i] = c.Op
	}
	return out
}

// Find returns the first recorded command named op in cb.
func (d *Device) Find(cb gpu.CommandBuffer, op string) (Command, bool) {
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return Command{}, false
	}
	for _, c := range st.Commands {
		if c.Op == op {
			return c, true
		}
	}
	return Command{}, false
}
