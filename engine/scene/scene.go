package scene

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
)

// ErrUnknownObject is returned for a scene ID that was never issued or was already removed.
var ErrUnknownObject = errors.New("unknown scene object")

// Scene is a flat, named set of objects viewed through one camera. While the scene is active
// every object has a resource bundle in the renderer; deactivating it releases the bundles
// and keeps the objects, so scenes can be swapped without rebuilding their content.
//
// Scene IDs stay stable across activation changes; bundle IDs do not.
// Every method must be called from the render goroutine.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether the scene's objects are currently in the renderer.
	Active() bool

	// SetActive adds every object to the renderer or removes every object from it.
	//
	// Parameters:
	//   - active: the new state
	//
	// Returns:
	//   - error: the first renderer failure; objects added before it stay added
	SetActive(active bool) error

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Renderer returns the renderer the scene feeds.
	Renderer() renderer.Renderer

	// Add stores obj under a new scene ID and, when the scene is active, builds its bundle.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the scene ID, valid for Get and Remove
	//   - error: the renderer error if the bundle could not be built; nothing is stored then
	Add(obj object.Object) (uint64, error)

	// Get returns the object stored under id.
	Get(id uint64) (object.Object, bool)

	// Bundle returns the renderer bundle of id while the scene is active.
	Bundle(id uint64) (renderer.BundleID, bool)

	// Remove releases the bundle of id, if any, and forgets the object.
	Remove(id uint64) error

	// Clear removes every object.
	Clear() error

	// Count returns the number of stored objects.
	Count() int

	// IDs returns the scene IDs in insertion order.
	IDs() []uint64
}

type entry struct {
	obj    object.Object
	bundle renderer.BundleID
	live   bool
}

type scene struct {
	name    string
	active  bool
	cam     camera.Camera
	r       renderer.Renderer
	nextID  uint64
	entries map[uint64]*entry
	pending []object.Object
	logger  *slog.Logger
}

var _ Scene = &scene{}

// NewScene creates a scene feeding r. Objects given with WithObjects are added in order.
//
// Parameters:
//   - name: the scene identifier used in logs
//   - cam: the camera whose transforms the objects use
//   - r: the renderer the bundles are built in
//   - options: functional options (active state, initial objects, logger)
//
// Returns:
//   - Scene: the scene
//   - error: the first renderer failure while adding the initial objects
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		name:    name,
		active:  true,
		cam:     cam,
		r:       r,
		nextID:  1,
		entries: make(map[uint64]*entry),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "scene"), slog.String("scene", name))
	if r == nil {
		return nil, errors.New("scene requires a renderer")
	}

	pending := s.pending
	s.pending = nil
	for _, obj := range pending {
		if _, err := s.Add(obj); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *scene) Name() string                { return s.name }
func (s *scene) Active() bool                { return s.active }
func (s *scene) Camera() camera.Camera       { return s.cam }
func (s *scene) Renderer() renderer.Renderer { return s.r }
func (s *scene) Count() int                  { return len(s.entries) }

func (s *scene) SetActive(active bool) error {
	if active == s.active {
		return nil
	}
	s.active = active
	for _, id := range s.IDs() {
		e := s.entries[id]
		if active {
			if err := s.attach(e); err != nil {
				return errors.Wrapf(err, "activating scene %s", s.name)
			}
			continue
		}
		if err := s.detach(e); err != nil {
			return errors.Wrapf(err, "deactivating scene %s", s.name)
		}
	}
	s.logger.Info("scene state changed", slog.Bool("active", active), slog.Int("objects", len(s.entries)))
	return nil
}

func (s *scene) Add(obj object.Object) (uint64, error) {
	if obj == nil {
		return 0, errors.New("nil object")
	}
	e := &entry{obj: obj}
	if s.active {
		if err := s.attach(e); err != nil {
			return 0, err
		}
	}
	id := s.nextID
	s.nextID++
	s.entries[id] = e
	return id, nil
}

func (s *scene) Get(id uint64) (object.Object, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.obj, true
}

func (s *scene) Bundle(id uint64) (renderer.BundleID, bool) {
	e, ok := s.entries[id]
	if !ok || !e.live {
		return 0, false
	}
	return e.bundle, true
}

func (s *scene) Remove(id uint64) error {
	e, ok := s.entries[id]
	if !ok {
		return errors.Wrapf(ErrUnknownObject, "id %d", id)
	}
	if err := s.detach(e); err != nil {
		return err
	}
	delete(s.entries, id)
	return nil
}

func (s *scene) Clear() error {
	for _, id := range s.IDs() {
		if err := s.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) IDs() []uint64 {
	ids := make([]uint64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *scene) attach(e *entry) error {
	if e.live {
		return nil
	}
	bundle, err := s.r.AddObject(e.obj)
	if err != nil {
		return errors.Wrapf(err, "adding %s", e.obj.Kind())
	}
	e.bundle, e.live = bundle, true
	return nil
}

func (s *scene) detach(e *entry) error {
	if !e.live {
		return nil
	}
	if err := s.r.RemoveObject(e.bundle); err != nil {
		return err
	}
	e.live = false
	return nil
}
