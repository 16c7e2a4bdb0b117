package loader

import (
	"io"
)

// loaderBackend decodes one asset kind from a stream. Concrete implementations handle the
// format-specific details.
type loaderBackend[T any] interface {
	// Load decodes a single asset.
	//
	// Parameters:
	//   - r: the encoded asset
	//
	// Returns:
	//   - T: the decoded asset
	//   - error: error if the stream is not a valid asset
	Load(r io.Reader) (T, error)
}
