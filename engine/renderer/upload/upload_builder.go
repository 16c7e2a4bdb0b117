package upload

import "log/slog"

// UploaderBuilderOption is a functional option for configuring uploader.
type UploaderBuilderOption func(u *uploader)

// WithLogger overrides the logger inherited from the device context.
func WithLogger(logger *slog.Logger) UploaderBuilderOption {
	return func(u *uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithReadBack makes every uploaded buffer readable with ReadBuffer.
//
// Parameters:
//   - enabled: whether to add transfer-source usage to uploaded buffers
//
// Returns:
//   - UploaderBuilderOption: option function to apply
func WithReadBack(enabled bool) UploaderBuilderOption {
	return func(u *uploader) {
		u.readBack = enabled
	}
}
