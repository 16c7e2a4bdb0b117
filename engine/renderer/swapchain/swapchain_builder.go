package swapchain

import "log/slog"

// SwapchainManagerBuilderOption is a functional option for configuring a swapchainManager.
type SwapchainManagerBuilderOption func(m *swapchainManager)

// WithPresentPreference sets the present mode preference.
//
// Parameters:
//   - pref: low latency (default), vsync or immediate
//
// Returns:
//   - SwapchainManagerBuilderOption: option function to apply
func WithPresentPreference(pref PresentPreference) SwapchainManagerBuilderOption {
	return func(m *swapchainManager) {
		m.preference = pref
	}
}

// WithLogger overrides the logger inherited from the device context.
//
// Parameters:
//   - logger: the base logger
//
// Returns:
//   - SwapchainManagerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SwapchainManagerBuilderOption {
	return func(m *swapchainManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}
