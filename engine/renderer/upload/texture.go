package upload

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// TextureFormat is the format every texture is uploaded in.
const TextureFormat = gpu.FormatR8G8B8A8Srgb

// TextureSource is a decoded texture and how to upload it.
type TextureSource struct {
	Pixels *common.DecodedTexture

	// SingleLevel skips mipmap generation.
	SingleLevel bool
}

// Texture is a sampled image with its view and sampler.
type Texture struct {
	Image     gpu.Image
	View      gpu.ImageView
	Sampler   gpu.Sampler
	Extent    gpu.Extent2D
	MipLevels uint32
}

// Destroy releases the sampler, view and image. It is safe to call more than once.
func (t *Texture) Destroy(dev gpu.Device) {
	if t == nil {
		return
	}
	dev.DestroySampler(t.Sampler)
	dev.DestroyImageView(t.View)
	dev.DestroyImage(t.Image)
	*t = Texture{}
}

// transition records a layout change of mip levels [base, base+count).
func transition(dev gpu.Device, cb gpu.CommandBuffer, image gpu.Image, oldLayout, newLayout gpu.ImageLayout, base, count uint32) {
	b := gpu.ImageBarrier{
		Image:        image,
		Aspect:       gpu.ImageAspectColor,
		OldLayout:    oldLayout,
		NewLayout:    newLayout,
		BaseMipLevel: base,
		LevelCount:   count,
	}
	switch {
	case oldLayout == gpu.ImageLayoutUndefined && newLayout == gpu.ImageLayoutTransferDstOptimal:
		b.SrcStage, b.DstStage = gpu.PipelineStageTopOfPipe, gpu.PipelineStageTransfer
		b.DstAccess = gpu.AccessTransferWrite
	case oldLayout == gpu.ImageLayoutTransferDstOptimal && newLayout == gpu.ImageLayoutTransferSrcOptimal:
		b.SrcStage, b.DstStage = gpu.PipelineStageTransfer, gpu.PipelineStageTransfer
		b.SrcAccess, b.DstAccess = gpu.AccessTransferWrite, gpu.AccessTransferRead
	case oldLayout == gpu.ImageLayoutTransferSrcOptimal:
		b.SrcStage, b.DstStage = gpu.PipelineStageTransfer, gpu.PipelineStageFragmentShader
		b.SrcAccess, b.DstAccess = gpu.AccessTransferRead, gpu.AccessShaderRead
	default:
		b.SrcStage, b.DstStage = gpu.PipelineStageTransfer, gpu.PipelineStageFragmentShader
		b.SrcAccess, b.DstAccess = gpu.AccessTransferWrite, gpu.AccessShaderRead
	}
	dev.CmdPipelineBarrier(cb, b)
}

// recordMipmaps records the blit chain that fills levels 1..levels-1 from level 0 and leaves
// every level shader-read-only. Level 0 must be in transfer-dst layout.
func recordMipmaps(dev gpu.Device, cb gpu.CommandBuffer, image gpu.Image, extent gpu.Extent2D, levels uint32) {
	for i := uint32(1); i < levels; i++ {
		transition(dev, cb, image, gpu.ImageLayoutTransferDstOptimal, gpu.ImageLayoutTransferSrcOptimal, i-1, 1)
		dev.CmdBlitImage(cb, gpu.ImageBlit{
			Src:       image,
			SrcLayout: gpu.ImageLayoutTransferSrcOptimal,
			SrcLevel:  i - 1,
			SrcExtent: gpu.Extent2D{Width: common.MipExtent(extent.Width, i-1), Height: common.MipExtent(extent.Height, i-1)},
			Dst:       image,
			DstLayout: gpu.ImageLayoutTransferDstOptimal,
			DstLevel:  i,
			DstExtent: gpu.Extent2D{Width: common.MipExtent(extent.Width, i), Height: common.MipExtent(extent.Height, i)},
			Filter:    gpu.FilterLinear,
		})
		transition(dev, cb, image, gpu.ImageLayoutTransferSrcOptimal, gpu.ImageLayoutShaderReadOnlyOptimal, i-1, 1)
	}
	transition(dev, cb, image, gpu.ImageLayoutTransferDstOptimal, gpu.ImageLayoutShaderReadOnlyOptimal, levels-1, 1)
}

func (u *uploader) Texture(label string, src TextureSource) (*Texture, error) {
	tex := src.Pixels
	if err := tex.Validate(); err != nil {
		return nil, errors.Wrapf(err, "texture %s", label)
	}
	extent := gpu.Extent2D{Width: tex.Width, Height: tex.Height}
	levels := uint32(1)
	if !src.SingleLevel {
		levels = common.MipLevels(tex.Width, tex.Height)
	}
	if levels > 1 {
		props := u.ctx.FormatProperties(TextureFormat)
		if !props.Supports(gpu.ImageTilingOptimal, gpu.FormatFeatureSampledImageFilterLinear) {
			return nil, &gpu.UnsupportedFormatError{Format: TextureFormat, Feature: gpu.FormatFeatureSampledImageFilterLinear}
		}
	}

	staging, err := u.staging(label, tex.Packed())
	if err != nil {
		return nil, err
	}
	defer u.device.DestroyBuffer(staging)

	var undo gpu.Cleanup
	defer undo.Run()

	usage := gpu.ImageUsageTransferDst | gpu.ImageUsageSampled
	if levels > 1 {
		usage |= gpu.ImageUsageTransferSrc
	}
	image, err := u.device.CreateImage(gpu.ImageDesc{
		Label:     label,
		Extent:    extent,
		MipLevels: levels,
		Samples:   gpu.SampleCount1,
		Format:    TextureFormat,
		Tiling:    gpu.ImageTilingOptimal,
		Usage:     usage,
		Memory:    gpu.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return nil, gpu.NewAllocationError(label+" image", err)
	}
	undo.Add(func() { u.device.DestroyImage(image) })

	err = u.SingleTimeCommands(func(cb gpu.CommandBuffer) {
		transition(u.device, cb, image, gpu.ImageLayoutUndefined, gpu.ImageLayoutTransferDstOptimal, 0, levels)
		u.device.CmdCopyBufferToImage(cb, staging, image, extent)
		recordMipmaps(u.device, cb, image, extent, levels)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "uploading texture %s", label)
	}

	view, err := u.device.CreateImageView(gpu.ImageViewDesc{
		Image:     image,
		Format:    TextureFormat,
		Aspect:    gpu.ImageAspectColor,
		MipLevels: levels,
	})
	if err != nil {
		return nil, gpu.NewAllocationError(label+" image view", err)
	}
	undo.Add(func() { u.device.DestroyImageView(view) })

	sampler, err := u.device.CreateSampler(SamplerDesc(u.ctx.PhysicalDevice().Limits, levels))
	if err != nil {
		return nil, gpu.NewAllocationError(label+" sampler", err)
	}
	undo.Disarm()

	u.logger.Debug("uploaded texture",
		slog.String("label", label),
		slog.Int("width", int(extent.Width)),
		slog.Int("height", int(extent.Height)),
		slog.Int("mip_levels", int(levels)),
	)
	return &Texture{Image: image, View: view, Sampler: sampler, Extent: extent, MipLevels: levels}, nil
}

// SamplerDesc returns the texture sampler: linear filtering, repeat addressing, the device's
// maximum anisotropy and the full LOD range of the image.
//
// Parameters:
//   - limits: the physical device limits
//   - levels: the image's mip level count
//
// Returns:
//   - gpu.SamplerDesc: the sampler description
func SamplerDesc(limits gpu.Limits, levels uint32) gpu.SamplerDesc {
	return gpu.SamplerDesc{
		MagFilter:     gpu.FilterLinear,
		MinFilter:     gpu.FilterLinear,
		AddressMode:   gpu.SamplerAddressModeRepeat,
		Anisotropy:    limits.MaxSamplerAnisotropy > 1,
		MaxAnisotropy: limits.MaxSamplerAnisotropy,
		MinLod:        0,
		MaxLod:        float32(levels),
	}
}
