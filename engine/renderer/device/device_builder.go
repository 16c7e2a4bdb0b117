package device

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// DeviceContextBuilderOption is a functional option for configuring a deviceContext.
type DeviceContextBuilderOption func(c *deviceContext)

// WithLogger sets the logger; a "component" attribute is added to it.
//
// Parameters:
//   - logger: the base logger
//
// Returns:
//   - DeviceContextBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) DeviceContextBuilderOption {
	return func(c *deviceContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithValidation installs a validation message reporter for the lifetime of the context.
//
// Parameters:
//   - enabled: whether validation messages are routed to the logger
//
// Returns:
//   - DeviceContextBuilderOption: option function to apply
func WithValidation(enabled bool) DeviceContextBuilderOption {
	return func(c *deviceContext) {
		c.validation = enabled
	}
}

// WithMaxSamples caps the MSAA sample count.
//
// Parameters:
//   - samples: the highest acceptable sample count, 0 for the device maximum
//
// Returns:
//   - DeviceContextBuilderOption: option function to apply
func WithMaxSamples(samples gpu.SampleCount) DeviceContextBuilderOption {
	return func(c *deviceContext) {
		c.maxSamples = samples
	}
}
