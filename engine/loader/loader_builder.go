package loader

import (
	"io/fs"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-vk/common"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS reads every path from fsys instead of the local file system.
//
// Parameters:
//   - fsys: the file system
//
// Returns:
//   - LoaderBuilderOption: a function that applies the file system option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.open = fsOpener(fsys)
	}
}

// WithWorkers sets how many textures are decoded in parallel by Textures.
//
// Parameters:
//   - n: the worker count; values below one mean one
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithMaxDimension downscales decoded textures whose width or height exceeds px, keeping
// the aspect ratio. Zero keeps every image at its native size.
func WithMaxDimension(px uint32) LoaderBuilderOption {
	return func(l *loader) {
		l.maxDimension = px
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithTexture pre-populates the texture cache.
//
// Parameters:
//   - key: the cache key
//   - tex: the decoded texture
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture option to a loader
func WithTexture(key string, tex *common.DecodedTexture) LoaderBuilderOption {
	return func(l *loader) {
		l.textureCache[key] = tex
	}
}
