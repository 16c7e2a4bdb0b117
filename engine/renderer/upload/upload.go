// Package upload moves host data into device-local buffers and images through staging
// buffers and one-shot command buffers on the graphics queue.
package upload

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
)

// stagingMemory is the memory of every staging buffer.
const stagingMemory = gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent

// Uploader owns a transient command pool for one-shot transfers. Every method blocks until
// the transfer has completed on the GPU.
type Uploader interface {
	// SingleTimeCommands records commands into a fresh primary command buffer, submits it to
	// the graphics queue and waits for the queue to drain.
	//
	// Parameters:
	//   - record: records the commands
	//
	// Returns:
	//   - error: error if allocation, recording or submission fails
	SingleTimeCommands(record func(cb gpu.CommandBuffer)) error

	// Buffer creates a device-local buffer holding data. A host-visible staging buffer is
	// filled, copied with a one-shot command and destroyed before Buffer returns.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the contents, must not be empty
	//   - usage: the buffer's usage besides transfer destination, e.g. gpu.BufferUsageVertex
	//
	// Returns:
	//   - gpu.Buffer: the device-local buffer, owned by the caller
	//   - error: a *gpu.AllocationError; nothing is left allocated on failure
	Buffer(label string, data []byte, usage gpu.BufferUsage) (gpu.Buffer, error)

	// Texture uploads an RGBA8 texture and builds its view and sampler.
	//
	// Parameters:
	//   - label: the debug label
	//   - tex: the texture description
	//
	// Returns:
	//   - *Texture: the texture, owned by the caller
	//   - error: a *gpu.UnsupportedFormatError, *gpu.AllocationError or submission error
	Texture(label string, tex TextureSource) (*Texture, error)

	// ReadBuffer copies size bytes of a device-local buffer into host memory. It is meant for
	// diagnostics and tests; the buffer must have been created with transfer-source usage.
	//
	// Parameters:
	//   - buf: the buffer to read
	//   - size: the number of bytes from offset zero
	//
	// Returns:
	//   - []byte: the contents
	//   - error: error if the copy fails
	ReadBuffer(buf gpu.Buffer, size uint64) ([]byte, error)

	// Destroy releases the command pool.
	Destroy()
}

// uploader is the implementation of the Uploader interface.
type uploader struct {
	ctx    device.DeviceContext
	device gpu.Device
	queue  gpu.Queue
	logger *slog.Logger

	// readBack adds transfer-source usage to every uploaded buffer so ReadBuffer can copy it.
	readBack bool

	pool gpu.CommandPool
}

var _ Uploader = &uploader{}

// NewUploader creates a transient command pool on the graphics family.
//
// Parameters:
//   - ctx: the device context
//   - options: functional options
//
// Returns:
//   - Uploader: the uploader
//   - error: error if the command pool cannot be created
func NewUploader(ctx device.DeviceContext, options ...UploaderBuilderOption) (Uploader, error) {
	u := &uploader{
		ctx:    ctx,
		device: ctx.Device(),
		queue:  ctx.GraphicsQueue(),
		logger: ctx.Logger(),
	}
	for _, opt := range options {
		opt(u)
	}
	u.logger = u.logger.With(slog.String("component", "upload"))

	pool, err := u.device.CreateCommandPool(gpu.CommandPoolDesc{
		QueueFamily: ctx.QueueFamilies().Graphics,
		Flags:       gpu.CommandPoolTransient,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating upload command pool")
	}
	u.pool = pool
	return u, nil
}

func (u *uploader) SingleTimeCommands(record func(cb gpu.CommandBuffer)) error {
	cbs, err := u.device.AllocateCommandBuffers(u.pool, gpu.CommandBufferLevelPrimary, 1)
	if err != nil {
		return gpu.NewAllocationError("one-shot command buffer", err)
	}
	cb := cbs[0]
	defer u.device.FreeCommandBuffers(u.pool, cbs)

	if err := u.device.BeginCommandBuffer(cb, gpu.BeginInfo{Usage: gpu.CommandBufferUsageOneTimeSubmit}); err != nil {
		return errors.Wrap(err, "beginning one-shot commands")
	}
	record(cb)
	if err := u.device.EndCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "ending one-shot commands")
	}
	if err := u.device.QueueSubmit(u.queue, gpu.SubmitInfo{CommandBuffers: cbs}, 0); err != nil {
		return errors.Wrap(err, "submitting one-shot commands")
	}
	return errors.Wrap(u.device.QueueWaitIdle(u.queue), "waiting for one-shot commands")
}

// staging creates a host-visible buffer filled with data.
func (u *uploader) staging(label string, data []byte) (gpu.Buffer, error) {
	buf, err := u.device.CreateBuffer(gpu.BufferDesc{
		Label:  label + " staging",
		Size:   uint64(len(data)),
		Usage:  gpu.BufferUsageTransferSrc,
		Memory: stagingMemory,
	})
	if err != nil {
		return 0, gpu.NewAllocationError(label+" staging buffer", err)
	}
	if err := u.device.WriteBuffer(buf, 0, data); err != nil {
		u.device.DestroyBuffer(buf)
		return 0, gpu.NewAllocationError(label+" staging buffer", err)
	}
	return buf, nil
}

func (u *uploader) Buffer(label string, data []byte, usage gpu.BufferUsage) (gpu.Buffer, error) {
	if len(data) == 0 {
		return 0, gpu.NewAllocationError(label, errors.New("empty buffer"))
	}
	staging, err := u.staging(label, data)
	if err != nil {
		return 0, err
	}
	defer u.device.DestroyBuffer(staging)

	usage |= gpu.BufferUsageTransferDst
	if u.readBack {
		usage |= gpu.BufferUsageTransferSrc
	}
	size := uint64(len(data))
	buf, err := u.device.CreateBuffer(gpu.BufferDesc{
		Label:  label,
		Size:   size,
		Usage:  usage,
		Memory: gpu.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return 0, gpu.NewAllocationError(label, err)
	}

	err = u.SingleTimeCommands(func(cb gpu.CommandBuffer) {
		u.device.CmdCopyBuffer(cb, staging, buf, size)
	})
	if err != nil {
		u.device.DestroyBuffer(buf)
		return 0, errors.Wrapf(err, "uploading %s", label)
	}
	return buf, nil
}

func (u *uploader) ReadBuffer(buf gpu.Buffer, size uint64) ([]byte, error) {
	host, err := u.device.CreateBuffer(gpu.BufferDesc{
		Label:  "read back",
		Size:   size,
		Usage:  gpu.BufferUsageTransferDst,
		Memory: stagingMemory,
	})
	if err != nil {
		return nil, gpu.NewAllocationError("read back buffer", err)
	}
	defer u.device.DestroyBuffer(host)

	err = u.SingleTimeCommands(func(cb gpu.CommandBuffer) {
		u.device.CmdCopyBuffer(cb, buf, host, size)
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading back buffer")
	}
	return u.device.ReadBuffer(host, 0, size)
}

func (u *uploader) Destroy() {
	u.device.DestroyCommandPool(u.pool)
	u.pool = 0
}
