// Package target owns the render pass and the swapchain-sized attachments and framebuffers
// of the forward pass.
package target

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/swapchain"
)

// Attachment indices of the render pass. Framebuffers list their views in the same order.
const (
	AttachmentColor = iota
	AttachmentDepth
	AttachmentResolve
	attachmentCount
)

// DepthCandidates are the depth formats tried, highest priority first.
var DepthCandidates = []gpu.Format{gpu.FormatD32Sfloat, gpu.FormatD32SfloatS8Uint, gpu.FormatD24UnormS8Uint}

// FindDepthFormat returns the first depth candidate usable as an optimal-tiling depth-stencil
// attachment.
//
// Parameters:
//   - ctx: the device context
//
// Returns:
//   - gpu.Format: the depth format
//   - error: a *gpu.SetupError wrapping gpu.ErrNoSupportedFormat if no candidate qualifies
func FindDepthFormat(ctx device.DeviceContext) (gpu.Format, error) {
	f, err := ctx.FindSupportedFormat(DepthCandidates, gpu.ImageTilingOptimal, gpu.FormatFeatureDepthStencilAttachment)
	if err != nil {
		return gpu.FormatUndefined, gpu.NewSetupError("depth format", err)
	}
	return f, nil
}

// attachment is one image with its single view.
type attachment struct {
	image gpu.Image
	view  gpu.ImageView
}

// RenderTargets holds the render pass, the multisampled color and depth attachments and one
// framebuffer per swapchain image.
type RenderTargets interface {
	// Create builds the render pass, attachments and framebuffers for a swapchain generation.
	// Any previous generation must have been destroyed.
	//
	// Parameters:
	//   - state: the swapchain generation to render into
	//
	// Returns:
	//   - error: a *gpu.AllocationError or creation error; nothing is left allocated on failure
	Create(state *swapchain.State) error

	// RenderPass returns the current render pass.
	RenderPass() gpu.RenderPass

	// Framebuffer returns the framebuffer targeting swapchain image index.
	Framebuffer(index uint32) gpu.Framebuffer

	// Framebuffers returns every framebuffer in swapchain image order.
	Framebuffers() []gpu.Framebuffer

	// DepthFormat returns the selected depth format.
	DepthFormat() gpu.Format

	// Samples returns the sample count of the color and depth attachments.
	Samples() gpu.SampleCount

	// Extent returns the attachment size.
	Extent() gpu.Extent2D

	// Destroy releases attachments, then framebuffers, then the render pass. It is safe to
	// call on an already destroyed generation.
	Destroy()
}

// renderTargets is the implementation of the RenderTargets interface.
type renderTargets struct {
	ctx    device.DeviceContext
	logger *slog.Logger

	depthFormat gpu.Format
	samples     gpu.SampleCount
	extent      gpu.Extent2D

	renderPass   gpu.RenderPass
	color        attachment
	depth        attachment
	framebuffers []gpu.Framebuffer
}

var _ RenderTargets = &renderTargets{}

// NewRenderTargets selects the depth format and returns an empty RenderTargets; call Create
// with a swapchain generation to allocate.
//
// Parameters:
//   - ctx: the device context; its MSAA sample count is used for color and depth
//   - options: functional options
//
// Returns:
//   - RenderTargets: the targets
//   - error: a *gpu.SetupError if no depth format is supported
func NewRenderTargets(ctx device.DeviceContext, options ...RenderTargetsBuilderOption) (RenderTargets, error) {
	rt := &renderTargets{
		ctx:     ctx,
		logger:  ctx.Logger(),
		samples: ctx.MSAASamples(),
	}
	for _, opt := range options {
		opt(rt)
	}
	rt.logger = rt.logger.With(slog.String("component", "target"))

	depth, err := FindDepthFormat(ctx)
	if err != nil {
		return nil, err
	}
	rt.depthFormat = depth
	return rt, nil
}

// RenderPassDesc describes the forward pass: multisampled color and depth resolved into the
// swapchain image, with a dependency that orders the first color write and depth test after
// the previous frame's use of the attachments.
//
// Parameters:
//   - colorFormat: the swapchain format
//   - depthFormat: the depth format
//   - samples: the MSAA sample count
//
// Returns:
//   - gpu.RenderPassDesc: the description, attachments in [color, depth, resolve] order
func RenderPassDesc(colorFormat, depthFormat gpu.Format, samples gpu.SampleCount) gpu.RenderPassDesc {
	attachments := make([]gpu.AttachmentDesc, attachmentCount)
	attachments[AttachmentColor] = gpu.AttachmentDesc{
		Format:        colorFormat,
		Samples:       samples,
		Clear:         true,
		InitialLayout: gpu.ImageLayoutUndefined,
		FinalLayout:   gpu.ImageLayoutColorAttachmentOptimal,
	}
	attachments[AttachmentDepth] = gpu.AttachmentDesc{
		Format:        depthFormat,
		Samples:       samples,
		Clear:         true,
		InitialLayout: gpu.ImageLayoutUndefined,
		FinalLayout:   gpu.ImageLayoutDepthStencilAttachmentOptimal,
	}
	attachments[AttachmentResolve] = gpu.AttachmentDesc{
		Format:        colorFormat,
		Samples:       gpu.SampleCount1,
		Store:         true,
		InitialLayout: gpu.ImageLayoutUndefined,
		FinalLayout:   gpu.ImageLayoutPresentSrc,
	}
	return gpu.RenderPassDesc{
		Attachments:  attachments,
		Color:        AttachmentColor,
		DepthStencil: AttachmentDepth,
		Resolve:      AttachmentResolve,
		Dependencies: []gpu.SubpassDependency{{
			SrcSubpass: gpu.SubpassExternal,
			DstSubpass: 0,
			SrcStage:   gpu.PipelineStageColorAttachmentOutput | gpu.PipelineStageEarlyFragmentTests,
			DstStage:   gpu.PipelineStageColorAttachmentOutput | gpu.PipelineStageEarlyFragmentTests,
			DstAccess:  gpu.AccessColorAttachmentWrite | gpu.AccessDepthStencilAttachmentWrite,
		}},
	}
}

func (rt *renderTargets) Create(state *swapchain.State) error {
	if state.Extent.IsZero() {
		return errors.Wrap(gpu.ErrZeroExtent, "render targets")
	}
	dev := rt.ctx.Device()
	var undo gpu.Cleanup
	defer undo.Run()

	pass, err := dev.CreateRenderPass(RenderPassDesc(state.Format.Format, rt.depthFormat, rt.samples))
	if err != nil {
		return errors.Wrap(err, "creating render pass")
	}
	undo.Add(func() { dev.DestroyRenderPass(pass) })

	color, err := rt.createAttachment("msaa color", state.Extent, state.Format.Format,
		gpu.ImageUsageTransientAttachment|gpu.ImageUsageColorAttachment, gpu.ImageAspectColor)
	if err != nil {
		return err
	}
	undo.Add(func() { rt.destroyAttachment(color) })

	depthAspect := gpu.ImageAspectDepth
	if rt.depthFormat.HasStencil() {
		depthAspect |= gpu.ImageAspectStencil
	}
	depth, err := rt.createAttachment("depth", state.Extent, rt.depthFormat,
		gpu.ImageUsageDepthStencilAttachment, depthAspect)
	if err != nil {
		return err
	}
	undo.Add(func() { rt.destroyAttachment(depth) })

	framebuffers := make([]gpu.Framebuffer, 0, len(state.Views))
	for i, view := range state.Views {
		views := make([]gpu.ImageView, attachmentCount)
		views[AttachmentColor] = color.view
		views[AttachmentDepth] = depth.view
		views[AttachmentResolve] = view
		fb, err := dev.CreateFramebuffer(gpu.FramebufferDesc{
			RenderPass:  pass,
			Attachments: views,
			Extent:      state.Extent,
		})
		if err != nil {
			return gpu.NewAllocationError("framebuffer", errors.Wrapf(err, "image %d", i))
		}
		undo.Add(func() { dev.DestroyFramebuffer(fb) })
		framebuffers = append(framebuffers, fb)
	}

	rt.renderPass = pass
	rt.color = color
	rt.depth = depth
	rt.framebuffers = framebuffers
	rt.extent = state.Extent
	rt.logger.Debug("render targets created",
		"extent", state.Extent,
		"depth_format", rt.depthFormat,
		"samples", rt.samples.Int(),
		"framebuffers", len(framebuffers),
	)
	undo.Disarm()
	return nil
}

func (rt *renderTargets) createAttachment(label string, extent gpu.Extent2D, format gpu.Format, usage gpu.ImageUsage, aspect gpu.ImageAspect) (attachment, error) {
	dev := rt.ctx.Device()
	img, err := dev.CreateImage(gpu.ImageDesc{
		Label:     label,
		Extent:    extent,
		MipLevels: 1,
		Samples:   rt.samples,
		Format:    format,
		Tiling:    gpu.ImageTilingOptimal,
		Usage:     usage,
		Memory:    gpu.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return attachment{}, gpu.NewAllocationError(label+" image", err)
	}
	view, err := dev.CreateImageView(gpu.ImageViewDesc{Image: img, Format: format, Aspect: aspect, MipLevels: 1})
	if err != nil {
		dev.DestroyImage(img)
		return attachment{}, gpu.NewAllocationError(label+" view", err)
	}
	return attachment{image: img, view: view}, nil
}

func (rt *renderTargets) destroyAttachment(a attachment) {
	dev := rt.ctx.Device()
	dev.DestroyImageView(a.view)
	dev.DestroyImage(a.image)
}

func (rt *renderTargets) RenderPass() gpu.RenderPass {
	return rt.renderPass
}

func (rt *renderTargets) Framebuffer(index uint32) gpu.Framebuffer {
	return rt.framebuffers[index]
}

func (rt *renderTargets) Framebuffers() []gpu.Framebuffer {
	return rt.framebuffers
}

func (rt *renderTargets) DepthFormat() gpu.Format {
	return rt.depthFormat
}

func (rt *renderTargets) Samples() gpu.SampleCount {
	return rt.samples
}

func (rt *renderTargets) Extent() gpu.Extent2D {
	return rt.extent
}

func (rt *renderTargets) Destroy() {
	dev := rt.ctx.Device()
	rt.destroyAttachment(rt.color)
	rt.destroyAttachment(rt.depth)
	rt.color, rt.depth = attachment{}, attachment{}
	for _, fb := range rt.framebuffers {
		dev.DestroyFramebuffer(fb)
	}
	rt.framebuffers = nil
	dev.DestroyRenderPass(rt.renderPass)
	rt.renderPass = 0
	rt.extent = gpu.Extent2D{}
}
