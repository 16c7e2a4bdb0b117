// package common contains plain data types and helpers shared across the engine. They are not
// interface-wrapped structs, just values that cross package boundaries.
package common

import (
	"fmt"
)

// DecodedTexture is an RGBA8 pixel buffer produced by an image decoder and consumed by the
// texture upload path.
type DecodedTexture struct {
	// Pixels holds the rows of the image, top row first, 4 bytes per pixel.
	Pixels []byte

	// Width is the width of the texture in pixels.
	Width uint32

	// Height is the height of the texture in pixels.
	Height uint32

	// Stride is the byte distance between the starts of two consecutive rows. Zero means Width*4.
	Stride uint32
}

// RowPitch returns the effective stride of the texture in bytes.
func (t *DecodedTexture) RowPitch() uint32 {
	return Coalesce(t.Stride, t.Width*4)
}

// Validate checks that the pixel buffer is large enough for the declared dimensions.
//
// Returns:
//   - error: error if the texture is empty or the buffer is too short
func (t *DecodedTexture) Validate() error {
	if t == nil {
		return fmt.Errorf("texture is nil")
	}
	if t.Width == 0 || t.Height == 0 {
		return fmt.Errorf("texture has zero size %dx%d", t.Width, t.Height)
	}
	pitch := t.RowPitch()
	if pitch < t.Width*4 {
		return fmt.Errorf("stride %d is shorter than a row of %d pixels", pitch, t.Width)
	}
	need := uint64(pitch)*uint64(t.Height-1) + uint64(t.Width)*4
	if uint64(len(t.Pixels)) < need {
		return fmt.Errorf("pixel buffer holds %d bytes, need %d", len(t.Pixels), need)
	}
	return nil
}

// Packed returns the pixels with rows tightly packed (stride == Width*4). When the texture is
// already packed the original slice is returned without copying.
//
// Returns:
//   - []byte: Width*Height*4 bytes of RGBA data
func (t *DecodedTexture) Packed() []byte {
	row := t.Width * 4
	pitch := t.RowPitch()
	if pitch == row {
		return t.Pixels[:row*t.Height]
	}
	out := make([]byte, row*t.Height)
	for y := uint32(0); y < t.Height; y++ {
		copy(out[y*row:(y+1)*row], t.Pixels[y*pitch:y*pitch+row])
	}
	return out
}

// Size returns the packed byte size of the texture.
func (t *DecodedTexture) Size() uint64 {
	return uint64(t.Width) * uint64(t.Height) * 4
}
