// Package renderer drives the frame loop: it owns the device context, the swapchain
// generation and everything sized to it, the shader variants and the resource bundles of
// every drawable, and records one secondary command buffer per bundle each frame.
package renderer

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/swapchain"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/upload"
)

// DefaultClearColor is the color the forward pass clears to.
var DefaultClearColor = gpu.ClearColor{0, 0.1, 0.1, 1}

// BundleID identifies a drawable added with AddObject.
type BundleID uint64

// bundle is one live drawable in insertion order.
type bundle struct {
	id    BundleID
	model model.Model
}

// imageCommands is the transient command pool of one swapchain image and the buffers
// recorded from it. The pool is reset before the image is recorded again.
type imageCommands struct {
	pool        gpu.CommandPool
	primary     gpu.CommandBuffer
	secondaries []gpu.CommandBuffer
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	ctx      device.DeviceContext
	dev      gpu.Device
	chain    swapchain.SwapchainManager
	state    *swapchain.State
	targets  target.RenderTargets
	shaders  shader.ShaderVariantCache
	uploader upload.Uploader
	sync     *FrameSync
	images   []imageCommands
	watcher  *shader.Watcher

	bundles []bundle
	nextID  BundleID

	frame         int
	width, height int

	// paused is set while the window has zero area; nothing touches the GPU until a
	// non-zero Resize arrives.
	paused bool
	// rebuild forces a swapchain rebuild before the next frame.
	rebuild bool
	// resized is the external resize flag, honored after the next present.
	resized bool
	// reload is set from the shader watcher goroutine.
	reload atomic.Bool
	// failed holds the error of a swapchain rebuild that could not complete; every later
	// RenderFrame returns it.
	failed error

	logger    *slog.Logger
	destroyed bool
	start     time.Time

	// Pre-creation config collected from builder options
	deviceOptions       []device.DeviceContextBuilderOption
	swapchainOptions    []swapchain.SwapchainManagerBuilderOption
	shaderOptions       []shader.ShaderVariantCacheBuilderOption
	watchDir            string
	clearColor          gpu.ClearColor
	singleLevelTextures bool
	now                 func() time.Time
}

// Renderer is the frame orchestrator. It is driven from a single goroutine, the window's
// message loop; only RequestShaderReload may be called from elsewhere.
//
// Usage pattern:
//  1. Create the Renderer with the window's surface and framebuffer size
//  2. Add drawables with AddObject
//  3. Call RenderFrame once per tick and Resize from the window's size callback
//  4. Destroy the Renderer before the window
type Renderer interface {
	// AddObject uploads obj and appends its bundle to the draw list.
	//
	// Parameters:
	//   - obj: the drawable
	//
	// Returns:
	//   - BundleID: the bundle's identifier
	//   - error: a *gpu.AllocationError or upload error; other bundles are untouched
	AddObject(obj object.Object) (BundleID, error)

	// RemoveObject waits for the device to go idle and destroys the bundle.
	//
	// Parameters:
	//   - id: the bundle to remove
	//
	// Returns:
	//   - error: error if id is unknown
	RemoveObject(id BundleID) error

	// Resize records a new framebuffer size. A zero width or height pauses rendering; the
	// swapchain is rebuilt once a non-zero size arrives.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// RenderFrame renders and presents one frame. Stale swapchains are rebuilt internally
	// and never reported.
	//
	// Returns:
	//   - error: a fatal error such as gpu.ErrDeviceLost; the loop must stop. A swapchain
	//     rebuild that failed is returned again by every later call.
	RenderFrame() error

	// RequestShaderReload asks for the shader variants to be rebuilt from disk at the next
	// frame boundary. It is safe to call from any goroutine.
	RequestShaderReload()

	// Extent returns the current swapchain extent, zero while paused before the first
	// rebuild.
	Extent() gpu.Extent2D

	// Bundles returns the live bundles in insertion order.
	Bundles() []model.Model

	// Paused reports whether rendering is paused for a zero-area window.
	Paused() bool

	// Destroy waits for the device to go idle and releases everything, bundles first and the
	// device last. It is safe to call more than once.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer brings up the device and the first swapchain generation for surface.
//
// Parameters:
//   - instance: the graphics API instance
//   - surface: the window surface
//   - width: the framebuffer width in pixels
//   - height: the framebuffer height in pixels
//   - options: functional options
//
// Returns:
//   - Renderer: the renderer
//   - error: a *gpu.SetupError when no device or format is usable, or any creation error
func NewRenderer(instance gpu.Instance, surface gpu.Surface, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		width:      width,
		height:     height,
		clearColor: DefaultClearColor,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	base := r.logger
	r.logger = r.logger.With(slog.String("component", "renderer"))

	ctx, err := device.NewDeviceContext(instance, surface, append([]device.DeviceContextBuilderOption{device.WithLogger(base)}, r.deviceOptions...)...)
	if err != nil {
		return nil, err
	}
	r.ctx = ctx
	r.dev = ctx.Device()

	var undo gpu.Cleanup
	defer undo.Run()
	undo.Add(ctx.Destroy)

	r.chain = swapchain.NewSwapchainManager(ctx, r.swapchainOptions...)
	r.targets, err = target.NewRenderTargets(ctx)
	if err != nil {
		return nil, err
	}
	r.shaders = shader.NewShaderVariantCache(ctx, r.shaderOptions...)
	undo.Add(r.shaders.Destroy)
	r.uploader, err = upload.NewUploader(ctx)
	if err != nil {
		return nil, err
	}
	undo.Add(r.uploader.Destroy)
	r.sync, err = NewFrameSync(r.dev, 0)
	if err != nil {
		return nil, err
	}
	undo.Add(func() { r.sync.Destroy(r.dev) })

	undo.Add(func() {
		r.releaseGeneration()
		r.chain.Destroy(r.state)
	})
	err = r.createGeneration(nil)
	if errors.Is(err, gpu.ErrZeroExtent) {
		r.paused = true
		r.rebuild = true
	} else if err != nil {
		return nil, err
	}

	if r.watchDir != "" {
		r.watcher, err = shader.NewWatcher(r.watchDir, r.RequestShaderReload, base)
		if err != nil {
			return nil, err
		}
	}
	undo.Disarm()

	r.start = r.now()
	r.logger.Info("renderer ready",
		slog.String("device", ctx.PhysicalDevice().Name),
		slog.Int("samples", ctx.MSAASamples().Int()),
		slog.Int("width", width),
		slog.Int("height", height),
	)
	return r, nil
}

// pipelineTarget is the swapchain-dependent input of every pipeline.
func (r *renderer) pipelineTarget() pipeline.Target {
	return pipeline.Target{
		RenderPass: r.targets.RenderPass(),
		Extent:     r.targets.Extent(),
		Samples:    r.targets.Samples(),
	}
}

// createGeneration replaces old with a swapchain for the current window size and builds
// everything sized to it: render targets, pipelines, per-bundle descriptor sets, per-image
// command pools and the image owner table. A nil old creates the first generation.
func (r *renderer) createGeneration(old *swapchain.State) error {
	state, err := r.chain.Recreate(old, uint32(r.width), uint32(r.height))
	r.state = state
	if err != nil {
		return err
	}
	if err := r.targets.Create(state); err != nil {
		return err
	}
	if err := r.shaders.ReloadSwapchain(r.pipelineTarget()); err != nil {
		return err
	}
	for _, b := range r.bundles {
		variant, ok := r.shaders.Lookup(b.model.Kind())
		if !ok {
			return errors.Errorf("no %s variant for bundle %s", b.model.Kind(), b.model.Name())
		}
		if err := b.model.ReloadSwapchain(state.ImageCount(), variant.SetLayout); err != nil {
			return err
		}
	}
	if err := r.createImageCommands(state.ImageCount()); err != nil {
		return err
	}
	r.sync.ResetImages(state.ImageCount())
	return nil
}

// releaseGeneration releases the render targets (attachments, framebuffers, render pass) and
// the per-image command pools. The swapchain itself is retired by the next createGeneration.
func (r *renderer) releaseGeneration() {
	r.targets.Destroy()
	r.destroyImageCommands()
}

func (r *renderer) createImageCommands(count int) error {
	r.images = make([]imageCommands, 0, count)
	for i := 0; i < count; i++ {
		pool, err := r.dev.CreateCommandPool(gpu.CommandPoolDesc{
			QueueFamily: r.ctx.QueueFamilies().Graphics,
			Flags:       gpu.CommandPoolTransient,
		})
		if err != nil {
			return errors.Wrapf(err, "creating command pool for image %d", i)
		}
		r.images = append(r.images, imageCommands{pool: pool})
		primary, err := r.dev.AllocateCommandBuffers(pool, gpu.CommandBufferLevelPrimary, 1)
		if err != nil {
			return gpu.NewAllocationError("primary command buffer", err)
		}
		r.images[i].primary = primary[0]
	}
	return nil
}

func (r *renderer) destroyImageCommands() {
	for _, img := range r.images {
		r.dev.DestroyCommandPool(img.pool)
	}
	r.images = nil
}

// recreate rebuilds the swapchain generation for the current window size, or pauses when
// the window or surface has zero area.
func (r *renderer) recreate() error {
	if r.width == 0 || r.height == 0 {
		r.paused = true
		r.rebuild = true
		return nil
	}
	if err := r.dev.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for device idle before resize")
	}
	r.releaseGeneration()
	err := r.createGeneration(r.state)
	if errors.Is(err, gpu.ErrZeroExtent) {
		r.paused = true
		r.rebuild = true
		return nil
	}
	if err != nil {
		r.failed = errors.Wrap(err, "rebuilding swapchain")
		return r.failed
	}
	r.rebuild = false
	r.logger.Debug("swapchain rebuilt",
		slog.Int("width", int(r.state.Extent.Width)),
		slog.Int("height", int(r.state.Extent.Height)),
		slog.Int("images", r.state.ImageCount()),
	)
	return nil
}

func (r *renderer) bundleContext() model.BundleContext {
	return model.BundleContext{
		Device:              r.dev,
		Uploader:            r.uploader,
		Shaders:             r.shaders,
		Target:              r.pipelineTarget(),
		ImageCount:          r.imageCount(),
		SingleLevelTextures: r.singleLevelTextures,
		Logger:              r.ctx.Logger(),
	}
}

func (r *renderer) imageCount() int {
	if r.state == nil {
		return 0
	}
	return r.state.ImageCount()
}

func (r *renderer) AddObject(obj object.Object) (BundleID, error) {
	if r.failed != nil {
		return 0, r.failed
	}
	if r.state == nil {
		return 0, errors.New("cannot add objects while the swapchain is paused")
	}
	id := r.nextID
	m, err := model.FromObject(r.bundleContext(), obj, int(id))
	if err != nil {
		return 0, err
	}
	r.nextID++
	r.bundles = append(r.bundles, bundle{id: id, model: m})
	return id, nil
}

func (r *renderer) RemoveObject(id BundleID) error {
	for i, b := range r.bundles {
		if b.id != id {
			continue
		}
		if err := r.dev.WaitIdle(); err != nil {
			return errors.Wrap(err, "waiting for device idle before removal")
		}
		b.model.Destroy()
		r.bundles = append(r.bundles[:i], r.bundles[i+1:]...)
		return nil
	}
	return errors.Errorf("unknown bundle %d", id)
}

func (r *renderer) Resize(width, height int) {
	r.width, r.height = width, height
	if width == 0 || height == 0 {
		r.paused = true
		return
	}
	if r.paused {
		r.paused = false
		r.rebuild = true
		return
	}
	r.resized = true
}

func (r *renderer) RequestShaderReload() {
	r.reload.Store(true)
}

func (r *renderer) Extent() gpu.Extent2D {
	if r.state == nil {
		return gpu.Extent2D{}
	}
	return r.state.Extent
}

func (r *renderer) Bundles() []model.Model {
	out := make([]model.Model, len(r.bundles))
	for i, b := range r.bundles {
		out[i] = b.model
	}
	return out
}

func (r *renderer) Paused() bool {
	return r.paused
}

func (r *renderer) reloadShaders() {
	if err := r.dev.WaitIdle(); err != nil {
		r.logger.Error("waiting for device idle before shader reload", slog.String("error", err.Error()))
		return
	}
	if err := r.shaders.Reload(); err != nil {
		r.logger.Error("shader reload failed, keeping previous pipelines", slog.String("error", err.Error()))
	}
}

func (r *renderer) RenderFrame() error {
	if r.destroyed {
		return errors.New("renderer destroyed")
	}
	if r.failed != nil {
		return r.failed
	}
	if r.paused {
		return nil
	}
	if r.rebuild {
		if err := r.recreate(); err != nil {
			return err
		}
		if r.paused {
			return nil
		}
	}
	if r.reload.Swap(false) {
		r.reloadShaders()
	}

	slot := r.frame
	fence := r.sync.InFlight[slot]
	if err := r.dev.WaitForFence(fence); err != nil {
		return errors.Wrap(err, "waiting for frame fence")
	}

	index, _, err := r.dev.AcquireNextImage(r.state.Swapchain, r.sync.ImageAvailable[slot])
	if gpu.IsStale(err) {
		return r.recreate()
	}
	if err != nil {
		return errors.Wrap(err, "acquiring swapchain image")
	}

	if owner := r.sync.ImagesInFlight[index]; owner != 0 && owner != fence {
		signaled, err := r.dev.FenceSignaled(owner)
		if err != nil {
			return errors.Wrap(err, "polling image fence")
		}
		if !signaled {
			if err := r.dev.WaitForFence(owner); err != nil {
				return errors.Wrap(err, "waiting for image fence")
			}
		}
	}
	r.sync.ImagesInFlight[index] = fence

	if err := r.record(index); err != nil {
		return err
	}

	if err := r.dev.ResetFence(fence); err != nil {
		return errors.Wrap(err, "resetting frame fence")
	}
	err = r.dev.QueueSubmit(r.ctx.GraphicsQueue(), gpu.SubmitInfo{
		CommandBuffers: []gpu.CommandBuffer{r.images[index].primary},
		Wait:           []gpu.Semaphore{r.sync.ImageAvailable[slot]},
		WaitStages:     []gpu.PipelineStage{gpu.PipelineStageColorAttachmentOutput},
		Signal:         []gpu.Semaphore{r.sync.RenderFinished[slot]},
	}, fence)
	if err != nil {
		return errors.Wrap(err, "submitting frame")
	}

	suboptimal, err := r.dev.QueuePresent(r.ctx.PresentQueue(), r.state.Swapchain, index, r.sync.RenderFinished[slot])
	r.frame = (r.frame + 1) % MaxFramesInFlight
	if gpu.IsFatal(err) {
		return errors.Wrap(err, "presenting frame")
	}
	if err != nil || suboptimal || r.resized {
		r.resized = false
		return r.recreate()
	}
	return nil
}

// record resets image index's command pool, records one secondary command buffer per bundle
// inside a primary that begins the render pass, and writes each bundle's uniforms for the image.
func (r *renderer) record(index uint32) error {
	img := &r.images[index]
	if err := r.dev.ResetCommandPool(img.pool); err != nil {
		return errors.Wrap(err, "resetting command pool")
	}
	if missing := len(r.bundles) - len(img.secondaries); missing > 0 {
		more, err := r.dev.AllocateCommandBuffers(img.pool, gpu.CommandBufferLevelSecondary, uint32(missing))
		if err != nil {
			return gpu.NewAllocationError("secondary command buffers", err)
		}
		img.secondaries = append(img.secondaries, more...)
	}

	framebuffer := r.targets.Framebuffer(index)
	extent := r.state.Extent
	if err := r.dev.BeginCommandBuffer(img.primary, gpu.BeginInfo{Usage: gpu.CommandBufferUsageOneTimeSubmit}); err != nil {
		return errors.Wrap(err, "beginning primary command buffer")
	}
	r.dev.CmdBeginRenderPass(img.primary, gpu.RenderPassBegin{
		RenderPass:  r.targets.RenderPass(),
		Framebuffer: framebuffer,
		Extent:      extent,
		ClearColor:  r.clearColor,
		ClearDepth:  1,
		Contents:    gpu.SubpassContentsSecondaryCommandBuffers,
	})

	elapsed := float32(r.now().Sub(r.start).Seconds())
	inheritance := &gpu.InheritanceInfo{RenderPass: r.targets.RenderPass(), Subpass: 0, Framebuffer: framebuffer}
	secondaries := img.secondaries[:len(r.bundles)]
	for i, b := range r.bundles {
		variant, ok := r.shaders.Lookup(b.model.Kind())
		if !ok {
			return errors.Errorf("no %s variant for bundle %s", b.model.Kind(), b.model.Name())
		}
		cb := secondaries[i]
		err := r.dev.BeginCommandBuffer(cb, gpu.BeginInfo{
			Usage:       gpu.CommandBufferUsageOneTimeSubmit | gpu.CommandBufferUsageRenderPassContinue,
			Inheritance: inheritance,
		})
		if err != nil {
			return errors.Wrapf(err, "beginning secondary command buffer for %s", b.model.Name())
		}
		transforms := b.model.Transforms(i, elapsed, extent.Width, extent.Height)
		b.model.RecordDraw(cb, variant, index, transforms.Model)
		if err := r.dev.EndCommandBuffer(cb); err != nil {
			return errors.Wrapf(err, "ending secondary command buffer for %s", b.model.Name())
		}
		if err := b.model.UpdateUniform(index, transforms); err != nil {
			return errors.Wrapf(err, "updating uniforms of %s", b.model.Name())
		}
	}
	if len(secondaries) > 0 {
		r.dev.CmdExecuteCommands(img.primary, secondaries)
	}
	r.dev.CmdEndRenderPass(img.primary)
	return errors.Wrap(r.dev.EndCommandBuffer(img.primary), "ending primary command buffer")
}

func (r *renderer) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			r.logger.Warn("closing shader watcher", slog.String("error", err.Error()))
		}
	}
	if err := r.dev.WaitIdle(); err != nil {
		r.logger.Error("waiting for device idle before teardown", slog.String("error", err.Error()))
	}
	for _, b := range r.bundles {
		b.model.Destroy()
	}
	r.bundles = nil
	r.releaseGeneration()
	r.chain.Destroy(r.state)
	r.state = nil
	r.shaders.Destroy()
	r.sync.Destroy(r.dev)
	r.uploader.Destroy()
	r.ctx.Destroy()
	r.logger.Info("renderer destroyed")
}
