package object

import "github.com/Carmen-Shannon/oxy-vk/common"

// ObjectBuilderOption is a functional option applied when a generator builds an Object.
type ObjectBuilderOption func(s *shape)

// WithTexture attaches a decoded RGBA8 texture; the object is drawn with the textured variant.
//
// Parameters:
//   - texture: the decoded texture, shared and never modified
//
// Returns:
//   - ObjectBuilderOption: option function to apply
func WithTexture(texture *common.DecodedTexture) ObjectBuilderOption {
	return func(s *shape) {
		s.texture = texture
	}
}

// WithTransform attaches a per-frame transform callback.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ObjectBuilderOption: option function to apply
func WithTransform(fn TransformFunc) ObjectBuilderOption {
	return func(s *shape) {
		s.transform = fn
	}
}
