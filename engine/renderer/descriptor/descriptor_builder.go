package descriptor

// GroupBuilderOption is a functional option used to configure a Group during construction.
type GroupBuilderOption func(*group)

// WithLabel sets the debug label used in buffer labels and errors.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - GroupBuilderOption: a function that sets the label
func WithLabel(label string) GroupBuilderOption {
	return func(g *group) {
		if label != "" {
			g.label = label
		}
	}
}

// WithTexture adds a combined image sampler at binding 1 of every set. The layout must
// declare that binding.
//
// Parameters:
//   - binding: the texture's view and sampler
//
// Returns:
//   - GroupBuilderOption: a function that sets the texture binding
func WithTexture(binding TextureBinding) GroupBuilderOption {
	return func(g *group) {
		g.texture = &binding
	}
}
