package loader

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/oxy-vk/common"
)

// imageBackend decodes any registered image format into straight-alpha RGBA8.
type imageBackend struct {
	maxDimension uint32
}

var _ loaderBackend[*common.DecodedTexture] = &imageBackend{}

func newImageBackend(maxDimension uint32) *imageBackend {
	return &imageBackend{maxDimension: maxDimension}
}

func (b *imageBackend) Load(r io.Reader) (*common.DecodedTexture, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	pixels := fit(toNRGBA(img), b.maxDimension)
	size := pixels.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return nil, errors.Errorf("%s image has zero size", format)
	}
	return &common.DecodedTexture{
		Pixels: pixels.Pix,
		Width:  uint32(size.X),
		Height: uint32(size.Y),
		Stride: uint32(pixels.Stride),
	}, nil
}

// toNRGBA returns img as an NRGBA image whose bounds start at the origin, converting only
// when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// fit downscales src so neither side exceeds maxDimension. A zero maxDimension disables it.
func fit(src *image.NRGBA, maxDimension uint32) *image.NRGBA {
	size := src.Bounds().Size()
	longest := max(size.X, size.Y)
	if maxDimension == 0 || longest <= int(maxDimension) {
		return src
	}
	w := max(1, size.X*int(maxDimension)/longest)
	h := max(1, size.Y*int(maxDimension)/longest)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
