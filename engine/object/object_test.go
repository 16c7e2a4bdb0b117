package object

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/common"
)

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, uint32(32), VertexSize)

	layout := VertexLayout()
	assert.Equal(t, uint32(32), layout.Stride)
	require.Len(t, layout.Attributes, 3)
	assert.Equal(t, uint32(0), layout.Attributes[0].Offset)
	assert.Equal(t, uint32(12), layout.Attributes[1].Offset)
	assert.Equal(t, uint32(24), layout.Attributes[2].Offset)
	for i, a := range layout.Attributes {
		assert.Equal(t, uint32(i), a.Location)
	}
}

func TestVertexEqualityIsBitwise(t *testing.T) {
	a := NewVertex(mgl32.Vec3{0, 1, 2}, mgl32.Vec3{1, 1, 1}, mgl32.Vec2{0, 0})
	b := a
	assert.True(t, a.Equal(b))

	negZero := a
	negZero.Pos[0] = float32(math.Copysign(0, -1))
	assert.False(t, a.Equal(negZero), "-0 and +0 have different bits")

	nan := float32(math.NaN())
	n1, n2 := a, a
	n1.TexCoord[0], n2.TexCoord[0] = nan, nan
	assert.True(t, n1.Equal(n2), "identical NaN bits are equal")

	nearly := a
	nearly.Pos[1] = math.Nextafter32(1, 2)
	assert.False(t, a.Equal(nearly))
}

func randomCorners(r *rand.Rand, n int) []Vertex {
	palette := []float32{0, 0.5, 1, -1}
	pick := func() float32 { return palette[r.Intn(len(palette))] }
	out := make([]Vertex, n)
	for i := range out {
		out[i] = NewVertex(mgl32.Vec3{pick(), pick(), 0}, mgl32.Vec3{1, pick(), 1}, mgl32.Vec2{pick(), 0})
	}
	return out
}

func TestDedupProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		corners := randomCorners(r, 1+r.Intn(300))
		vertices, indices := Dedup(corners)

		assert.Len(t, indices, len(corners))

		seen := map[VertexKey]bool{}
		for _, v := range vertices {
			assert.False(t, seen[v.Key()], "duplicate vertex %v", v)
			seen[v.Key()] = true
		}
		for i, idx := range indices {
			require.Less(t, int(idx), len(vertices))
			assert.True(t, vertices[idx].Equal(corners[i]), "corner %d resolves to a different vertex", i)
		}
	}
}

func TestDedupTrianglesFlipsV(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	texCoords := []float32{0, 0, 1, 0.25, 0, 1}
	vertices, indices, err := DedupTriangles(positions, texCoords, []uint32{0, 1, 2, 2, 1, 0})
	require.NoError(t, err)

	assert.Len(t, vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 0}, indices)
	assert.Equal(t, mgl32.Vec2{0, 1}, vertices[0].TexCoord)
	assert.Equal(t, mgl32.Vec2{1, 0.75}, vertices[1].TexCoord)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, vertices[2].Color)

	_, _, err = DedupTriangles(positions, texCoords, []uint32{3})
	assert.Error(t, err)
}

func TestTriangleFrom(t *testing.T) {
	one := NewVertex(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1, 0, 0}, mgl32.Vec2{9, 9})
	tri := TriangleFrom(one, 2, 4)

	assert.Equal(t, KindTriangle, tri.Kind())
	assert.Equal(t, []uint32{0, 1, 2, 2, 0, 1}, tri.Indices())
	v := tri.Vertices()
	require.Len(t, v, 3)
	assert.Equal(t, mgl32.Vec2{0, 0}, v[0].TexCoord)
	assert.Equal(t, mgl32.Vec3{3, 2, 3}, v[1].Pos)
	assert.Equal(t, mgl32.Vec3{1, 6, 3}, v[2].Pos)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, v[2].Color)
	assert.Nil(t, tri.Texture())
	assert.Nil(t, tri.Transform())
}

func TestRectangleFrom(t *testing.T) {
	tex := &common.DecodedTexture{Pixels: make([]byte, 4), Width: 1, Height: 1}
	rect := RectangleFrom(NewVertex(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, mgl32.Vec2{}), 1, 1, WithTexture(tex))

	assert.Equal(t, []uint32{0, 1, 2, 2, 3, 0, 2, 1, 0, 0, 3, 2}, rect.Indices())
	v := rect.Vertices()
	require.Len(t, v, 4)
	assert.Equal(t, mgl32.Vec2{1, 1}, v[3].TexCoord)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, v[3].Pos)
	assert.Same(t, tex, rect.Texture())
}

func TestCubeFrom(t *testing.T) {
	cube := CubeFrom(NewVertex(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec2{}), 1, 2, 3)

	assert.Len(t, cube.Vertices(), 24)
	assert.Len(t, cube.Indices(), 36)
	for _, idx := range cube.Indices() {
		assert.Less(t, idx, uint32(24))
	}
	v := cube.Vertices()
	assert.Equal(t, mgl32.Vec3{1, -2, 3}, v[6].Pos)
	// left face reuses the front-left corner with its own texture coordinate
	assert.Equal(t, v[0].Pos, v[8].Pos)
	assert.Equal(t, mgl32.Vec2{1, 0}, v[8].TexCoord)
}

func TestSphere(t *testing.T) {
	sphere, err := Sphere(NewVertex(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, mgl32.Vec2{}), 8, 8)
	require.NoError(t, err)

	assert.Len(t, sphere.Indices(), 8*8*6)
	assert.Less(t, len(sphere.Vertices()), 8*8*6)
	for _, v := range sphere.Vertices() {
		assert.InDelta(t, 0.5, v.Pos.Len(), 1e-5)
		assert.Equal(t, mgl32.Vec3{0, 0, 1}, v.Color)
	}

	_, err = Sphere(Vertex{}, 1, 8)
	assert.Error(t, err)
}

func TestCircle(t *testing.T) {
	const edges = 6
	circle, err := Circle(NewVertex(mgl32.Vec3{1, 1, 0}, mgl32.Vec3{1, 1, 1}, mgl32.Vec2{}), 2, edges)
	require.NoError(t, err)

	v := circle.Vertices()
	assert.Equal(t, mgl32.Vec2{0.5, 0.5}, v[0].TexCoord)
	assert.Len(t, circle.Indices(), 12*edges)

	indices := circle.Indices()
	for i := 0; i < 3*edges; i += 3 {
		assert.Equal(t, uint32(0), indices[i+1], "front triangle %d must fan around the center", i/3)
	}
	for _, idx := range indices {
		assert.Less(t, int(idx), len(v))
	}
	for _, vert := range v[1:] {
		assert.InDelta(t, 2, vert.Pos.Sub(mgl32.Vec3{1, 1, 0}).Len(), 1e-5)
	}

	_, err = Circle(Vertex{}, 1, 2)
	assert.Error(t, err)
}

func TestMeshValidatesIndices(t *testing.T) {
	_, err := Mesh([]Vertex{{}}, []uint32{0, 1})
	assert.Error(t, err)

	m, err := Mesh([]Vertex{{}, {}}, []uint32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, KindMesh, m.Kind())
}

func TestEvaluate(t *testing.T) {
	tri := TriangleFrom(Vertex{}, 1, 1)
	assert.Equal(t, IdentityTransforms(), Evaluate(tri, 0, 1, 800, 600))

	var gotIndex int
	var gotW uint32
	moved := TriangleFrom(Vertex{}, 1, 1, WithTransform(func(index int, elapsed float32, width, height uint32) Transforms {
		gotIndex, gotW = index, width
		tr := IdentityTransforms()
		tr.Model = mgl32.Translate3D(elapsed, 0, 0)
		return tr
	}))
	got := Evaluate(moved, 3, 2, 640, 480)
	assert.Equal(t, 3, gotIndex)
	assert.Equal(t, uint32(640), gotW)
	assert.Equal(t, mgl32.Translate3D(2, 0, 0), got.Model)
}
