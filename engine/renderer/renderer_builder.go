package renderer

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/swapchain"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the base logger handed to every renderer component.
//
// Parameters:
//   - logger: the base logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = logger
	}
}

// WithValidation enables the validation layers and routes their messages to the log.
//
// Parameters:
//   - enabled: whether validation is requested
//
// Returns:
//   - RendererBuilderOption: a function that applies the validation option to a renderer
func WithValidation(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, device.WithValidation(enabled))
	}
}

// WithMaxSamples caps the MSAA sample count. The device's highest supported count at or
// below the cap is used.
//
// Parameters:
//   - samples: the sample count ceiling
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMaxSamples(samples gpu.SampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.deviceOptions = append(r.deviceOptions, device.WithMaxSamples(samples))
	}
}

// WithPresentPreference selects how frames are delivered to the display.
func WithPresentPreference(pref swapchain.PresentPreference) RendererBuilderOption {
	return func(r *renderer) {
		r.swapchainOptions = append(r.swapchainOptions, swapchain.WithPresentPreference(pref))
	}
}

// WithShaderSource sets where compiled shader modules are loaded from.
//
// Parameters:
//   - source: the module source
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader source option to a renderer
func WithShaderSource(source shader.ModuleSource) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderOptions = append(r.shaderOptions, shader.WithModuleSource(source))
	}
}

// WithShaderDir loads compiled shader modules from dir on disk.
func WithShaderDir(dir string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderOptions = append(r.shaderOptions, shader.WithDir(dir))
	}
}

// WithShaderWatch watches dir for rebuilt shader modules and reloads the variants at the
// next frame boundary when one changes. It does not change where modules are loaded from.
//
// Parameters:
//   - dir: the directory to watch
//
// Returns:
//   - RendererBuilderOption: a function that applies the watch option to a renderer
func WithShaderWatch(dir string) RendererBuilderOption {
	return func(r *renderer) {
		r.watchDir = dir
	}
}

// WithClearColor sets the color the forward pass clears to.
func WithClearColor(color gpu.ClearColor) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}

// WithSingleLevelTextures uploads textures without a mip chain.
func WithSingleLevelTextures(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.singleLevelTextures = enabled
	}
}

// WithClock replaces the time source used for the elapsed time handed to transforms.
func WithClock(now func() time.Time) RendererBuilderOption {
	return func(r *renderer) {
		r.now = now
	}
}
