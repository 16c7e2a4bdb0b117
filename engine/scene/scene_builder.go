package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-vk/engine/object"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene starts with its objects in the renderer. Defaults to true.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene, in order, once it is constructed.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...object.Object) SceneBuilderOption {
	return func(s *scene) {
		s.pending = append(s.pending, objects...)
	}
}

// WithLogger sets the scene logger.
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.logger = logger
	}
}
