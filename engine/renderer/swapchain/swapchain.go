// Package swapchain creates, recreates and destroys the swapchain and its image views.
package swapchain

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
)

// State is one generation of the swapchain. It is replaced as a whole on resize and never
// mutated after Create returns.
type State struct {
	Swapchain   gpu.Swapchain
	Format      gpu.SurfaceFormat
	Extent      gpu.Extent2D
	PresentMode gpu.PresentMode
	Images      []gpu.Image
	Views       []gpu.ImageView
}

// ImageCount returns the number of presentable images.
func (s *State) ImageCount() int {
	return len(s.Images)
}

// SwapchainManager builds swapchain generations for a device context's surface.
type SwapchainManager interface {
	// Create builds a swapchain and its image views for a window of the given pixel size.
	//
	// Parameters:
	//   - width, height: the window framebuffer size
	//
	// Returns:
	//   - *State: the new swapchain generation
	//   - error: gpu.ErrZeroExtent for a zero-area window, or a creation error
	Create(width, height uint32) (*State, error)

	// Recreate destroys old (views first, then the swapchain) and creates a replacement.
	// The device must be idle.
	//
	// Parameters:
	//   - old: the previous generation, may be nil
	//   - width, height: the new window framebuffer size
	//
	// Returns:
	//   - *State: the new swapchain generation
	//   - error: gpu.ErrZeroExtent for a zero-area window, or a creation error
	Recreate(old *State, width, height uint32) (*State, error)

	// Destroy destroys the image views, then the swapchain. A nil state is ignored.
	Destroy(state *State)
}

// swapchainManager is the implementation of the SwapchainManager interface.
type swapchainManager struct {
	ctx        device.DeviceContext
	preference PresentPreference
	logger     *slog.Logger
}

var _ SwapchainManager = &swapchainManager{}

// NewSwapchainManager creates a SwapchainManager bound to ctx.
//
// Parameters:
//   - ctx: the device context owning the surface and device
//   - options: functional options
//
// Returns:
//   - SwapchainManager: the manager
func NewSwapchainManager(ctx device.DeviceContext, options ...SwapchainManagerBuilderOption) SwapchainManager {
	m := &swapchainManager{
		ctx:        ctx,
		preference: PresentLowLatency,
		logger:     ctx.Logger(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "swapchain"))
	return m
}

func (m *swapchainManager) Create(width, height uint32) (*State, error) {
	if width == 0 || height == 0 {
		return nil, errors.Wrapf(gpu.ErrZeroExtent, "window is %dx%d", width, height)
	}
	caps, err := m.ctx.SurfaceCapabilities()
	if err != nil {
		return nil, err
	}
	extent := ChooseExtent(caps, width, height)
	if extent.IsZero() {
		return nil, errors.Wrapf(gpu.ErrZeroExtent, "surface extent is %dx%d", extent.Width, extent.Height)
	}

	physical := m.ctx.PhysicalDevice()
	format, err := ChooseSurfaceFormat(physical.SurfaceFormats)
	if err != nil {
		return nil, gpu.NewSetupError("surface format", err)
	}
	mode := ChoosePresentMode(physical.PresentModes, m.preference)

	var sharing []uint32
	if families := m.ctx.QueueFamilies(); !families.Shared() {
		sharing = families.Distinct()
	}

	dev := m.ctx.Device()
	var undo gpu.Cleanup
	defer undo.Run()

	sc, err := dev.CreateSwapchain(gpu.SwapchainDesc{
		Surface:         m.ctx.Surface(),
		MinImages:       ChooseImageCount(caps),
		Format:          format,
		Extent:          extent,
		PresentMode:     mode,
		PreTransform:    caps.CurrentTransform,
		SharingFamilies: sharing,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating swapchain")
	}
	undo.Add(func() { dev.DestroySwapchain(sc) })

	images, err := dev.SwapchainImages(sc)
	if err != nil {
		return nil, errors.Wrap(err, "querying swapchain images")
	}

	state := &State{
		Swapchain:   sc,
		Format:      format,
		Extent:      extent,
		PresentMode: mode,
		Images:      images,
	}
	for i, img := range images {
		view, err := dev.CreateImageView(gpu.ImageViewDesc{
			Image:     img,
			Format:    format.Format,
			Aspect:    gpu.ImageAspectColor,
			MipLevels: 1,
		})
		if err != nil {
			return nil, gpu.NewAllocationError("swapchain image view", errors.Wrapf(err, "image %d", i))
		}
		undo.Add(func() { dev.DestroyImageView(view) })
		state.Views = append(state.Views, view)
	}

	m.logger.Info("swapchain created",
		"extent", extent,
		"images", len(images),
		"format", format.Format,
		"present_mode", mode,
	)
	undo.Disarm()
	return state, nil
}

func (m *swapchainManager) Recreate(old *State, width, height uint32) (*State, error) {
	m.Destroy(old)
	return m.Create(width, height)
}

func (m *swapchainManager) Destroy(state *State) {
	if state == nil {
		return
	}
	dev := m.ctx.Device()
	for _, v := range state.Views {
		dev.DestroyImageView(v)
	}
	state.Views = nil
	dev.DestroySwapchain(state.Swapchain)
	state.Swapchain = 0
}
