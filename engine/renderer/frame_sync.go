package renderer

import (
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// MaxFramesInFlight is the number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// FrameSync holds the per-slot semaphores and fences of the frame loop, and which slot's
// fence last used each swapchain image.
type FrameSync struct {
	ImageAvailable [MaxFramesInFlight]gpu.Semaphore
	RenderFinished [MaxFramesInFlight]gpu.Semaphore

	// InFlight fences are created signaled so the first wait of each slot returns at once.
	InFlight [MaxFramesInFlight]gpu.Fence

	// ImagesInFlight maps a swapchain image to the InFlight fence of the frame that last
	// rendered to it, or 0.
	ImagesInFlight []gpu.Fence
}

// NewFrameSync creates the synchronization objects for every slot.
//
// Parameters:
//   - dev: the logical device
//   - imageCount: the number of swapchain images
//
// Returns:
//   - *FrameSync: the sync objects
//   - error: error if any object cannot be created; nothing is left allocated then
func NewFrameSync(dev gpu.Device, imageCount int) (*FrameSync, error) {
	s := &FrameSync{}
	var undo gpu.Cleanup
	defer undo.Run()

	for i := 0; i < MaxFramesInFlight; i++ {
		available, err := dev.CreateSemaphore()
		if err != nil {
			return nil, errors.Wrapf(err, "creating image-available semaphore %d", i)
		}
		undo.Add(func() { dev.DestroySemaphore(available) })
		finished, err := dev.CreateSemaphore()
		if err != nil {
			return nil, errors.Wrapf(err, "creating render-finished semaphore %d", i)
		}
		undo.Add(func() { dev.DestroySemaphore(finished) })
		fence, err := dev.CreateFence(true)
		if err != nil {
			return nil, errors.Wrapf(err, "creating in-flight fence %d", i)
		}
		undo.Add(func() { dev.DestroyFence(fence) })

		s.ImageAvailable[i] = available
		s.RenderFinished[i] = finished
		s.InFlight[i] = fence
	}
	s.ResetImages(imageCount)
	undo.Disarm()
	return s, nil
}

// ResetImages forgets every image owner, sized for a new swapchain generation.
func (s *FrameSync) ResetImages(imageCount int) {
	s.ImagesInFlight = make([]gpu.Fence, imageCount)
}

// Destroy releases every semaphore and fence. The device must be idle.
func (s *FrameSync) Destroy(dev gpu.Device) {
	for i := 0; i < MaxFramesInFlight; i++ {
		dev.DestroySemaphore(s.ImageAvailable[i])
		dev.DestroySemaphore(s.RenderFinished[i])
		dev.DestroyFence(s.InFlight[i])
	}
	*s = FrameSync{}
}
