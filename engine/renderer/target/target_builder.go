package target

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// RenderTargetsBuilderOption is a functional option for configuring renderTargets.
type RenderTargetsBuilderOption func(rt *renderTargets)

// WithSamples overrides the MSAA sample count taken from the device context.
//
// Parameters:
//   - samples: a single-bit sample count supported by the device
//
// Returns:
//   - RenderTargetsBuilderOption: option function to apply
func WithSamples(samples gpu.SampleCount) RenderTargetsBuilderOption {
	return func(rt *renderTargets) {
		if samples != 0 {
			rt.samples = samples
		}
	}
}

// WithLogger overrides the logger inherited from the device context.
//
// Parameters:
//   - logger: the base logger
//
// Returns:
//   - RenderTargetsBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) RenderTargetsBuilderOption {
	return func(rt *renderTargets) {
		if logger != nil {
			rt.logger = logger
		}
	}
}
