package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
)

type fixture struct {
	inst *gputest.Instance
	dev  *gputest.Device
	up   Uploader
}

func newFixture(t *testing.T, inst *gputest.Instance, options ...UploaderBuilderOption) *fixture {
	t.Helper()
	ctx, err := device.NewDeviceContext(inst, 1)
	require.NoError(t, err)
	up, err := NewUploader(ctx, options...)
	require.NoError(t, err)
	return &fixture{inst: inst, dev: inst.LastDevice, up: up}
}

func checker(w, h uint32) *common.DecodedTexture {
	px := make([]byte, w*h*4)
	for i := range px {
		px[i] = byte(i)
	}
	return &common.DecodedTexture{Pixels: px, Width: w, Height: h}
}

func TestBufferRoundTrip(t *testing.T) {
	f := newFixture(t, gputest.NewInstance(), WithReadBack(true))
	data := []byte("vertex data that is not a multiple of anything")

	buf, err := f.up.Buffer("vertices", data, gpu.BufferUsageVertex)
	require.NoError(t, err)

	desc := f.dev.Buffers[buf].Desc
	assert.Equal(t, gpu.MemoryPropertyDeviceLocal, desc.Memory)
	assert.NotZero(t, desc.Usage&gpu.BufferUsageVertex)
	assert.NotZero(t, desc.Usage&gpu.BufferUsageTransferDst)
	assert.Equal(t, 1, f.dev.LiveCount(gputest.KindBuffer), "staging buffer is destroyed")

	got, err := f.up.ReadBuffer(buf, uint64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 1, f.dev.LiveCount(gputest.KindBuffer))
	assert.Empty(t, f.dev.Violations)
}

func TestBufferAllocationFailureCleansUp(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	f.dev.FailNext(gputest.KindBuffer, nil)
	f.dev.FailNext(gputest.KindBuffer, gpu.ErrOutOfMemory)

	_, err := f.up.Buffer("indices", []byte{1, 2, 3, 4}, gpu.BufferUsageIndex)
	var alloc *gpu.AllocationError
	require.ErrorAs(t, err, &alloc)
	assert.Equal(t, "indices", alloc.Resource)
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindBuffer))

	_, err = f.up.Buffer("empty", nil, gpu.BufferUsageIndex)
	assert.ErrorAs(t, err, &alloc)
}

func TestSingleTimeCommandsDrainQueue(t *testing.T) {
	inst := gputest.NewInstance()
	f := newFixture(t, inst)
	f.dev.DeferCompletion = true

	require.NoError(t, f.up.SingleTimeCommands(func(cb gpu.CommandBuffer) {}))
	assert.Equal(t, 1, f.dev.CountCalls("QueueWaitIdle"))
	assert.Empty(t, f.dev.Violations)
}

func TestTextureMipChain(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())

	tex, err := f.up.Texture("checker", TextureSource{Pixels: checker(256, 64)})
	require.NoError(t, err)

	assert.Equal(t, uint32(9), tex.MipLevels)
	img := f.dev.Images[tex.Image]
	require.Len(t, img.Layouts, 9)
	for level, layout := range img.Layouts {
		assert.Equal(t, gpu.ImageLayoutShaderReadOnlyOptimal, layout, "level %d", level)
	}
	assert.Len(t, img.Data, 256*64*4)
	assert.NotZero(t, img.Desc.Usage&gpu.ImageUsageTransferSrc)

	sampler := f.dev.Samplers[tex.Sampler]
	assert.Equal(t, float32(9), sampler.MaxLod)
	assert.Equal(t, float32(16), sampler.MaxAnisotropy)
	assert.Equal(t, gpu.SamplerAddressModeRepeat, sampler.AddressMode)
	assert.Equal(t, uint32(9), f.dev.Views[tex.View].MipLevels)
	assert.Empty(t, f.dev.Violations)

	tex.Destroy(f.dev)
	tex.Destroy(f.dev)
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindImage))
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindBuffer))
	assert.Empty(t, f.dev.Violations)
}

func TestTextureSingleLevel(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	tex, err := f.up.Texture("flat", TextureSource{Pixels: checker(8, 8), SingleLevel: true})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tex.MipLevels)
	assert.Equal(t, []gpu.ImageLayout{gpu.ImageLayoutShaderReadOnlyOptimal}, f.dev.Images[tex.Image].Layouts)
	assert.Empty(t, f.dev.Violations)
}

func TestTextureRepacksStride(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	src := &common.DecodedTexture{Width: 2, Height: 2, Stride: 12, Pixels: []byte{
		1, 1, 1, 1, 2, 2, 2, 2, 9, 9, 9, 9,
		3, 3, 3, 3, 4, 4, 4, 4,
	}}
	tex, err := f.up.Texture("strided", TextureSource{Pixels: src, SingleLevel: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}, f.dev.Images[tex.Image].Data)
}

func TestTextureWithoutLinearBlit(t *testing.T) {
	inst := gputest.NewInstance()
	inst.Formats[TextureFormat] = gpu.FormatProperties{OptimalTilingFeatures: gpu.FormatFeatureSampledImage}
	f := newFixture(t, inst)

	_, err := f.up.Texture("checker", TextureSource{Pixels: checker(16, 16)})
	var unsupported *gpu.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, TextureFormat, unsupported.Format)
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindImage))
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindBuffer))

	_, err = f.up.Texture("checker", TextureSource{Pixels: checker(16, 16), SingleLevel: true})
	assert.NoError(t, err)
}

func TestTextureSamplerFailureReleasesImage(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	f.dev.FailNext(gputest.KindSampler, gpu.ErrOutOfMemory)

	_, err := f.up.Texture("checker", TextureSource{Pixels: checker(4, 4)})
	var alloc *gpu.AllocationError
	require.ErrorAs(t, err, &alloc)
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindImage))
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindImageView))
	assert.Equal(t, 0, f.dev.LiveCount(gputest.KindBuffer))
	assert.Empty(t, f.dev.Violations)
}

func TestRecordMipmapsHalvesExtents(t *testing.T) {
	dev := gputest.NewDevice()
	image, err := dev.CreateImage(gpu.ImageDesc{Extent: gpu.Extent2D{Width: 5, Height: 3}, MipLevels: 3})
	require.NoError(t, err)
	pool, err := dev.CreateCommandPool(gpu.CommandPoolDesc{})
	require.NoError(t, err)
	cbs, err := dev.AllocateCommandBuffers(pool, gpu.CommandBufferLevelPrimary, 1)
	require.NoError(t, err)
	require.NoError(t, dev.BeginCommandBuffer(cbs[0], gpu.BeginInfo{}))

	transition(dev, cbs[0], image, gpu.ImageLayoutUndefined, gpu.ImageLayoutTransferDstOptimal, 0, 3)
	recordMipmaps(dev, cbs[0], image, gpu.Extent2D{Width: 5, Height: 3}, 3)
	require.NoError(t, dev.EndCommandBuffer(cbs[0]))

	var blits []gpu.ImageBlit
	for _, c := range dev.CommandBuffers[cbs[0]].Commands {
		if c.Op == "BlitImage" {
			blits = append(blits, c.Args.(gpu.ImageBlit))
		}
	}
	require.Len(t, blits, 2)
	assert.Equal(t, gpu.Extent2D{Width: 2, Height: 1}, blits[0].DstExtent)
	assert.Equal(t, gpu.Extent2D{Width: 1, Height: 1}, blits[1].DstExtent)
	assert.Equal(t, uint32(1), blits[1].SrcLevel)

	require.NoError(t, dev.QueueSubmit(dev.Queue(0), gpu.SubmitInfo{CommandBuffers: cbs}, 0))
	for _, l := range dev.Images[image].Layouts {
		assert.Equal(t, gpu.ImageLayoutShaderReadOnlyOptimal, l)
	}
	assert.Empty(t, dev.Violations)
}
