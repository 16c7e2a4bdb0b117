package vulkan

import "log/slog"

// InstanceBuilderOption is a functional option applied to an Instance via NewInstance.
type InstanceBuilderOption func(*Instance)

// WithExtensions adds instance extensions, typically the ones the window system requires.
//
// Parameters:
//   - names: extension names, with or without a trailing NUL
//
// Returns:
//   - InstanceBuilderOption: option function to apply
func WithExtensions(names ...string) InstanceBuilderOption {
	return func(i *Instance) {
		i.extensions = append(i.extensions, names...)
	}
}

// WithValidation enables the Khronos validation layer and, when available, the debug
// report extension that routes its messages to the logger.
func WithValidation(enabled bool) InstanceBuilderOption {
	return func(i *Instance) {
		i.validation = enabled
	}
}

// WithApplicationName sets the application name reported to the driver.
func WithApplicationName(name string) InstanceBuilderOption {
	return func(i *Instance) {
		if name != "" {
			i.appName = name
		}
	}
}

// WithLogger sets the backend logger.
func WithLogger(logger *slog.Logger) InstanceBuilderOption {
	return func(i *Instance) {
		i.logger = logger
	}
}
