package gpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Match them with errors.Is; the concrete error usually wraps one of these.
var (
	// ErrNoSuitableDevice means no physical device passed every selection check.
	ErrNoSuitableDevice = errors.New("no suitable physical device")

	// ErrNoSupportedFormat means none of the candidate formats supports the requested features.
	ErrNoSupportedFormat = errors.New("no supported format")

	// ErrMissingExtension means a required instance/device extension or layer is unavailable.
	ErrMissingExtension = errors.New("missing required extension")

	// ErrSwapchainStale means the swapchain no longer matches the surface and must be recreated.
	ErrSwapchainStale = errors.New("swapchain out of date")

	// ErrDeviceLost means the logical device was lost. Fatal.
	ErrDeviceLost = errors.New("device lost")

	// ErrOutOfMemory means a host or device memory allocation failed.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidBundle means a resource bundle was assembled from parts that were not all allocated.
	ErrInvalidBundle = errors.New("resource bundle assembled from unallocated parts")

	// ErrZeroExtent means a swapchain or attachment was requested with a zero-area extent.
	ErrZeroExtent = errors.New("zero-area extent")
)

// SetupError is a fatal startup failure: no usable device, missing extensions or layers,
// or no supported format for a required attachment.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed during %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// NewSetupError wraps err as a SetupError for stage.
func NewSetupError(stage string, err error) error {
	return &SetupError{Stage: stage, Err: err}
}

// AllocationError reports a failed buffer, image, descriptor or memory allocation.
// It is fatal for the resource being built and is not retried.
type AllocationError struct {
	Resource string
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating %s: %v", e.Resource, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// NewAllocationError wraps err as an AllocationError for resource. A nil err yields nil,
// and an err that already is an AllocationError is annotated instead of nested.
func NewAllocationError(resource string, err error) error {
	if err == nil {
		return nil
	}
	var alloc *AllocationError
	if errors.As(err, &alloc) {
		return errors.Wrap(err, resource)
	}
	return &AllocationError{Resource: resource, Err: err}
}

// UnsupportedFormatError reports a format that lacks a feature an operation needs,
// such as linear filtering for mipmap blits.
type UnsupportedFormatError struct {
	Format  Format
	Feature FormatFeature
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("format %s does not support feature 0x%x", e.Format, uint32(e.Feature))
}

// IsStale reports whether err signals a recoverable out-of-date swapchain.
func IsStale(err error) bool {
	return errors.Is(err, ErrSwapchainStale)
}

// IsFatal reports whether err must terminate the render loop. Stale swapchain errors are
// the only recoverable class.
func IsFatal(err error) bool {
	return err != nil && !IsStale(err)
}
