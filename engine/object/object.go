// Package object holds the CPU-side description of drawable content: vertices, indices, an
// optional decoded texture and an optional per-frame transform callback.
package object

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-vk/common"
)

// Transforms are the matrices of one object for one frame.
type Transforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// IdentityTransforms returns identity for all three matrices.
func IdentityTransforms() Transforms {
	return Transforms{Model: mgl32.Ident4(), View: mgl32.Ident4(), Projection: mgl32.Ident4()}
}

// TransformFunc produces the transforms of the object at index in the current draw list,
// elapsed seconds after the renderer started, for a width x height swapchain. It runs once
// per object per frame and must not block or allocate.
type TransformFunc func(index int, elapsed float32, width, height uint32) Transforms

// Kind names the generator that produced an Object.
type Kind int

const (
	KindMesh Kind = iota
	KindTriangle
	KindRectangle
	KindCube
	KindSphere
	KindCircle
)

func (k Kind) String() string {
	switch k {
	case KindTriangle:
		return "triangle"
	case KindRectangle:
		return "rectangle"
	case KindCube:
		return "cube"
	case KindSphere:
		return "sphere"
	case KindCircle:
		return "circle"
	default:
		return "mesh"
	}
}

// Object is a drawable that can be turned into GPU resources.
//
// The implementor set is closed: values come only from Triangle, TriangleFrom, Rectangle,
// RectangleFrom, Cube, CubeFrom, Sphere, Circle and Mesh. Objects are immutable once built.
type Object interface {
	// Kind returns the generator that built the object.
	Kind() Kind

	// Vertices returns the vertex list. Callers must not modify it.
	Vertices() []Vertex

	// Indices returns the index list. Callers must not modify it.
	Indices() []uint32

	// Texture returns the decoded texture, or nil for an untextured object.
	Texture() *common.DecodedTexture

	// Transform returns the per-frame callback, or nil for identity transforms.
	Transform() TransformFunc

	sealed()
}

// shape is the single implementation of Object.
type shape struct {
	kind      Kind
	vertices  []Vertex
	indices   []uint32
	texture   *common.DecodedTexture
	transform TransformFunc
}

var _ Object = &shape{}

func newShape(kind Kind, vertices []Vertex, indices []uint32, options []ObjectBuilderOption) *shape {
	s := &shape{kind: kind, vertices: vertices, indices: indices}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *shape) Kind() Kind                      { return s.kind }
func (s *shape) Vertices() []Vertex              { return s.vertices }
func (s *shape) Indices() []uint32               { return s.indices }
func (s *shape) Texture() *common.DecodedTexture { return s.texture }
func (s *shape) Transform() TransformFunc        { return s.transform }
func (s *shape) sealed()                         {}

// Evaluate runs the object's transform callback, or returns identity when it has none.
//
// Parameters:
//   - o: the object
//   - index: the object's position in draw order
//   - elapsed: seconds since the renderer started
//   - width, height: the current swapchain extent
//
// Returns:
//   - Transforms: the matrices for this frame
func Evaluate(o Object, index int, elapsed float32, width, height uint32) Transforms {
	if fn := o.Transform(); fn != nil {
		return fn(index, elapsed, width, height)
	}
	return IdentityTransforms()
}
