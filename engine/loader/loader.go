// Package loader decodes texture images and OBJ meshes from disk, once per path.
//
// Decoded assets are cached by path and shared by every later request for the same path.
// Batches of textures are decoded in parallel on a worker pool; nothing in this package
// touches the GPU.
package loader

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	textureCache map[string]*common.DecodedTexture
	meshCache    map[string]*meshData

	open           func(path string) (io.ReadCloser, error)
	maxDimension   uint32
	workers        int
	pool           worker.DynamicWorkerPool
	closed         bool
	textureBackend loaderBackend[*common.DecodedTexture]
	meshBackend    loaderBackend[*meshData]
	logger         *slog.Logger
}

// Loader loads and caches texture images and meshes.
//
// Texture, TextureReader and Mesh may be called from any goroutine. Textures blocks until the
// whole batch is decoded.
type Loader interface {
	// Texture decodes the image at path into an RGBA8 pixel buffer, or returns the cached
	// buffer when path was loaded before. PNG, JPEG, GIF, BMP, TIFF and WebP are recognized
	// by content.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - *common.DecodedTexture: the shared pixel buffer; callers must not modify it
	//   - error: error if the file cannot be read or decoded
	Texture(path string) (*common.DecodedTexture, error)

	// TextureReader decodes an image from r and caches it under name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the encoded image
	//
	// Returns:
	//   - *common.DecodedTexture: the pixel buffer
	//   - error: error if decoding fails
	TextureReader(name string, r io.Reader) (*common.DecodedTexture, error)

	// Textures decodes every path on the worker pool and returns the results in input order.
	// Cached paths are not decoded again and a path listed twice is decoded once.
	//
	// Parameters:
	//   - paths: the image files
	//   - progress: called on the calling goroutine after each path completes; may be nil
	//
	// Returns:
	//   - []*common.DecodedTexture: one entry per path, nil where decoding failed
	//   - error: the first failure in input order, or nil
	Textures(paths []string, progress func(path string, err error)) ([]*common.DecodedTexture, error)

	// Mesh parses the OBJ file at path into a deduplicated mesh object. The parsed geometry
	// is cached; each call builds a new object with the given options.
	//
	// Parameters:
	//   - path: the .obj file
	//   - options: texture and transform options for the object
	//
	// Returns:
	//   - object.Object: the mesh
	//   - error: error if the file cannot be read or parsed
	Mesh(path string, options ...object.ObjectBuilderOption) (object.Object, error)

	// Get returns the cached texture for path without loading it.
	Get(path string) (*common.DecodedTexture, bool)

	// Len returns the number of cached textures and meshes.
	Len() int

	// Close stops the worker pool. Cached assets stay readable; Textures fails afterwards.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading from the local file system unless WithFS says otherwise.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		textureCache: make(map[string]*common.DecodedTexture),
		meshCache:    make(map[string]*meshData),
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(l)
	}
	l.logger = l.logger.With(slog.String("component", "loader"))
	l.textureBackend = newImageBackend(l.maxDimension)
	l.meshBackend = newOBJBackend()
	l.pool = worker.NewDynamicWorkerPool(l.workers, 64, time.Second)
	return l
}

func (l *loader) Texture(path string) (*common.DecodedTexture, error) {
	if tex, ok := l.Get(path); ok {
		return tex, nil
	}
	tex, err := loadFile(l, path, l.textureBackend)
	if err != nil {
		return nil, err
	}
	return l.storeTexture(path, tex), nil
}

func (l *loader) TextureReader(name string, r io.Reader) (*common.DecodedTexture, error) {
	if tex, ok := l.Get(name); ok {
		return tex, nil
	}
	tex, err := l.textureBackend.Load(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %q", name)
	}
	return l.storeTexture(name, tex), nil
}

// storeTexture caches tex under key unless a concurrent load got there first, and returns
// the cached value.
func (l *loader) storeTexture(key string, tex *common.DecodedTexture) *common.DecodedTexture {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.textureCache[key]; ok {
		return cached
	}
	l.textureCache[key] = tex
	l.logger.Debug("texture loaded",
		slog.String("path", key),
		slog.Int("width", int(tex.Width)),
		slog.Int("height", int(tex.Height)),
	)
	return tex
}

// batchResult is the outcome of one decode task.
type batchResult struct {
	path string
	tex  *common.DecodedTexture
	err  error
}

func (l *loader) Textures(paths []string, progress func(path string, err error)) ([]*common.DecodedTexture, error) {
	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return nil, errors.New("loader is closed")
	}

	pending := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, ok := l.Get(p); ok {
			if progress != nil {
				progress(p, nil)
			}
			continue
		}
		pending = append(pending, p)
	}

	results := make(chan batchResult, len(pending))
	var wg sync.WaitGroup
	wg.Add(len(pending))
	for i, p := range pending {
		l.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: p,
			Do: func() (any, error) {
				defer wg.Done()
				tex, err := loadFile(l, p, l.textureBackend)
				results <- batchResult{path: p, tex: tex, err: err}
				return tex, err
			},
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	failed := make(map[string]error)
	for res := range results {
		if res.err != nil {
			failed[res.path] = res.err
			l.logger.Warn("texture failed to load", slog.String("path", res.path), slog.String("error", res.err.Error()))
		} else {
			l.storeTexture(res.path, res.tex)
		}
		if progress != nil {
			progress(res.path, res.err)
		}
	}

	out := make([]*common.DecodedTexture, len(paths))
	var first error
	for i, p := range paths {
		if err, ok := failed[p]; ok {
			if first == nil {
				first = err
			}
			continue
		}
		out[i], _ = l.Get(p)
	}
	return out, first
}

func (l *loader) Mesh(path string, options ...object.ObjectBuilderOption) (object.Object, error) {
	l.mu.RLock()
	data, ok := l.meshCache[path]
	l.mu.RUnlock()
	if !ok {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".obj" {
			return nil, errors.Errorf("unsupported mesh format %q", ext)
		}
		parsed, err := loadFile(l, path, l.meshBackend)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if cached, ok := l.meshCache[path]; ok {
			parsed = cached
		} else {
			l.meshCache[path] = parsed
		}
		l.mu.Unlock()
		data = parsed
		l.logger.Debug("mesh loaded",
			slog.String("path", path),
			slog.Int("vertices", len(data.vertices)),
			slog.Int("indices", len(data.indices)),
		)
	}
	return object.Mesh(data.vertices, data.indices, options...)
}

func (l *loader) Get(path string) (*common.DecodedTexture, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tex, ok := l.textureCache[path]
	return tex, ok
}

func (l *loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.textureCache) + len(l.meshCache)
}

func (l *loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.pool.Stop()
}

// loadFile opens path with the loader's opener and runs backend over its contents.
func loadFile[T any](l *loader, path string, backend loaderBackend[T]) (T, error) {
	var zero T
	f, err := l.open(path)
	if err != nil {
		return zero, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	asset, err := backend.Load(f)
	if err != nil {
		return zero, errors.Wrapf(err, "loading %s", path)
	}
	return asset, nil
}

// fsOpener adapts an fs.FS to the loader's opener.
func fsOpener(fsys fs.FS) func(string) (io.ReadCloser, error) {
	return func(path string) (io.ReadCloser, error) {
		return fsys.Open(filepath.ToSlash(path))
	}
}
