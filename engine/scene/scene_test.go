package scene

import (
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
)

// fakeRenderer records live bundles and fails AddObject once failAdds reaches zero.
type fakeRenderer struct {
	next     renderer.BundleID
	live     map[renderer.BundleID]object.Object
	failAdds int
}

var _ renderer.Renderer = &fakeRenderer{}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{live: make(map[renderer.BundleID]object.Object), failAdds: -1}
}

func (r *fakeRenderer) AddObject(obj object.Object) (renderer.BundleID, error) {
	if r.failAdds == 0 {
		return 0, errors.Wrap(gpu.ErrOutOfMemory, "vertex buffer")
	}
	r.failAdds--
	r.next++
	r.live[r.next] = obj
	return r.next, nil
}

func (r *fakeRenderer) RemoveObject(id renderer.BundleID) error {
	if _, ok := r.live[id]; !ok {
		return errors.New("unknown bundle")
	}
	delete(r.live, id)
	return nil
}

func (r *fakeRenderer) Resize(int, int)        {}
func (r *fakeRenderer) RenderFrame() error     { return nil }
func (r *fakeRenderer) RequestShaderReload()   {}
func (r *fakeRenderer) Extent() gpu.Extent2D   { return gpu.Extent2D{} }
func (r *fakeRenderer) Bundles() []model.Model { return nil }
func (r *fakeRenderer) Paused() bool           { return false }
func (r *fakeRenderer) Destroy()               {}

func triangle() object.Object {
	return object.TriangleFrom(object.NewVertex(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, mgl32.Vec2{}), 1, 1)
}

func newTestScene(t *testing.T, r *fakeRenderer, opts ...SceneBuilderOption) Scene {
	t.Helper()
	opts = append([]SceneBuilderOption{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	s, err := NewScene("test", camera.NewCamera(), r, opts...)
	require.NoError(t, err)
	return s
}

func TestAddBuildsBundleWhileActive(t *testing.T) {
	r := newFakeRenderer()
	s := newTestScene(t, r)

	id, err := s.Add(triangle())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
	assert.Len(t, r.live, 1)

	bundle, ok := s.Bundle(id)
	require.True(t, ok)
	assert.Contains(t, r.live, bundle)

	require.NoError(t, s.Remove(id))
	assert.Empty(t, r.live)
	assert.Equal(t, 0, s.Count())
	assert.ErrorIs(t, s.Remove(id), ErrUnknownObject)
}

func TestDeactivateReleasesBundlesAndKeepsIDs(t *testing.T) {
	r := newFakeRenderer()
	s := newTestScene(t, r, WithObjects(triangle(), triangle(), triangle()))
	ids := s.IDs()
	require.Len(t, ids, 3)
	require.Len(t, r.live, 3)

	require.NoError(t, s.SetActive(false))
	assert.False(t, s.Active())
	assert.Empty(t, r.live)
	_, ok := s.Bundle(ids[0])
	assert.False(t, ok)

	extra, err := s.Add(triangle())
	require.NoError(t, err)
	assert.Empty(t, r.live)

	require.NoError(t, s.SetActive(true))
	assert.Len(t, r.live, 4)
	assert.Equal(t, append(ids, extra), s.IDs())
	for _, id := range s.IDs() {
		_, ok := s.Bundle(id)
		assert.True(t, ok)
	}
}

func TestAddFailureStoresNothing(t *testing.T) {
	r := newFakeRenderer()
	r.failAdds = 1
	s := newTestScene(t, r)

	_, err := s.Add(triangle())
	require.NoError(t, err)
	_, err = s.Add(triangle())
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)
	assert.Equal(t, 1, s.Count())
}

func TestClearRemovesEverything(t *testing.T) {
	r := newFakeRenderer()
	s := newTestScene(t, r, WithObjects(triangle(), triangle()))

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, r.live)
}

func TestNewSceneInactiveDefersBundles(t *testing.T) {
	r := newFakeRenderer()
	s := newTestScene(t, r, WithActive(false), WithObjects(triangle()))
	assert.Equal(t, 1, s.Count())
	assert.Empty(t, r.live)

	_, err := NewScene("nil", camera.NewCamera(), nil)
	assert.Error(t, err)
}
