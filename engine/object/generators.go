package object

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	triangleIndices = []uint32{0, 1, 2, 2, 0, 1}

	// front face then back face so the quad is visible from both sides
	rectangleIndices = []uint32{0, 1, 2, 2, 3, 0, 2, 1, 0, 0, 3, 2}

	cubeIndices = []uint32{
		0, 1, 3, 1, 2, 3, // front
		6, 5, 4, 4, 7, 6, // back
		8, 9, 10, 9, 11, 10, // left
		14, 13, 12, 14, 15, 13, // right
		18, 17, 16, 18, 19, 17, // up
		20, 21, 22, 22, 23, 20, // down
	}
)

// Triangle builds a triangle from three explicit vertices.
func Triangle(vertices [3]Vertex, options ...ObjectBuilderOption) Object {
	return newShape(KindTriangle, vertices[:], triangleIndices, options)
}

// TriangleFrom builds a right triangle from its first corner: the second corner is offset by
// width along x and the third by height along y. Texture coordinates are (0,0), (1,0), (0,1).
//
// Parameters:
//   - one: the first corner; its color is used for all three
//   - width, height: the leg lengths
//   - options: texture and transform options
//
// Returns:
//   - Object: the triangle
func TriangleFrom(one Vertex, width, height float32, options ...ObjectBuilderOption) Object {
	one.TexCoord = mgl32.Vec2{0, 0}
	return Triangle([3]Vertex{
		one,
		NewVertex(one.Pos.Add(mgl32.Vec3{width, 0, 0}), one.Color, mgl32.Vec2{1, 0}),
		NewVertex(one.Pos.Add(mgl32.Vec3{0, height, 0}), one.Color, mgl32.Vec2{0, 1}),
	}, options...)
}

// Rectangle builds a two-sided quad from four explicit vertices ordered
// origin, +x, +y, +x+y.
func Rectangle(vertices [4]Vertex, options ...ObjectBuilderOption) Object {
	return newShape(KindRectangle, vertices[:], rectangleIndices, options)
}

// RectangleFrom builds an axis-aligned two-sided quad from its first corner.
//
// Parameters:
//   - one: the first corner; its color is used for all four
//   - width, height: the side lengths along x and y
//   - options: texture and transform options
//
// Returns:
//   - Object: the rectangle
func RectangleFrom(one Vertex, width, height float32, options ...ObjectBuilderOption) Object {
	one.TexCoord = mgl32.Vec2{0, 0}
	return Rectangle([4]Vertex{
		one,
		NewVertex(one.Pos.Add(mgl32.Vec3{width, 0, 0}), one.Color, mgl32.Vec2{1, 0}),
		NewVertex(one.Pos.Add(mgl32.Vec3{0, height, 0}), one.Color, mgl32.Vec2{0, 1}),
		NewVertex(one.Pos.Add(mgl32.Vec3{width, height, 0}), one.Color, mgl32.Vec2{1, 1}),
	}, options...)
}

// Cube builds a box from 24 explicit vertices, four per face in the order
// front, back, left, right, up, down.
func Cube(vertices [24]Vertex, options ...ObjectBuilderOption) Object {
	return newShape(KindCube, vertices[:], cubeIndices, options)
}

// CubeFrom builds an axis-aligned box from its top-left-front corner. The box extends +x by
// width, -y by height and +z by depth. Each face has its own four vertices so texture
// coordinates can differ per face.
//
// Parameters:
//   - one: the corner; its color is used for every vertex
//   - width, height, depth: the box dimensions
//   - options: texture and transform options
//
// Returns:
//   - Object: the cube
func CubeFrom(one Vertex, width, height, depth float32, options ...ObjectBuilderOption) Object {
	pos, color := one.Pos, one.Color
	at := func(x, y, z, u, v float32) Vertex {
		return NewVertex(pos.Add(mgl32.Vec3{x, y, z}), color, mgl32.Vec2{u, v})
	}
	withUV := func(src Vertex, u, v float32) Vertex {
		src.TexCoord = mgl32.Vec2{u, v}
		return src
	}

	v0 := at(0, 0, 0, 0, 0)
	v1 := at(width, 0, 0, 1, 0)
	v2 := at(width, -height, 0, 1, 1)
	v3 := at(0, -height, 0, 0, 1)
	v4 := at(0, 0, depth, 1, 0)
	v5 := at(width, 0, depth, 0, 0)
	v6 := at(width, -height, depth, 0, 1)
	v7 := at(0, -height, depth, 1, 1)

	return Cube([24]Vertex{
		v0, v1, v2, v3, v4, v5, v6, v7,
		withUV(v0, 1, 0), withUV(v3, 1, 1), withUV(v4, 0, 0), withUV(v7, 0, 1),
		withUV(v1, 0, 0), withUV(v2, 0, 1), withUV(v5, 1, 0), withUV(v6, 1, 1),
		withUV(v0, 0, 1), withUV(v1, 1, 1), withUV(v4, 0, 0), withUV(v5, 1, 0),
		withUV(v3, 0, 0), withUV(v2, 1, 0), withUV(v6, 1, 1), withUV(v7, 0, 1),
	}, options...)
}

// sphereRadius is the radius of every generated sphere; scale it with the model matrix.
const sphereRadius = 0.5

func spherical(norm, theta, phi float32) mgl32.Vec3 {
	return mgl32.Vec3{
		norm * math32.Sin(theta) * math32.Sin(phi),
		norm * math32.Cos(phi),
		norm * math32.Cos(theta) * math32.Sin(phi),
	}
}

// Sphere builds a UV sphere of radius 0.5 around the origin, tessellated into
// longitudes x latitudes cells of two triangles each. Shared vertices are deduplicated.
//
// Parameters:
//   - center: supplies the color of every vertex
//   - latitudes: the number of horizontal bands, at least 2
//   - longitudes: the number of vertical slices, at least 3
//   - options: texture and transform options
//
// Returns:
//   - Object: the sphere
//   - error: error if the tessellation is degenerate
func Sphere(center Vertex, latitudes, longitudes int, options ...ObjectBuilderOption) (Object, error) {
	if latitudes < 2 || longitudes < 3 {
		return nil, fmt.Errorf("sphere needs at least 2 latitudes and 3 longitudes, got %d and %d", latitudes, longitudes)
	}
	nbX, nbY := float32(latitudes), float32(longitudes)
	color := center.Color
	at := func(x, y float32) Vertex {
		return NewVertex(
			spherical(sphereRadius, x*2*math32.Pi/nbX, y*math32.Pi/nbY),
			color,
			mgl32.Vec2{x / nbX, y / nbY},
		)
	}

	d := NewDeduper()
	for xi := 0; xi < longitudes; xi++ {
		x := float32(xi)
		for yi := 0; yi < latitudes; yi++ {
			y := float32(yi)
			d.Add(at(x+1, y))
			d.Add(at(x, y))
			d.Add(at(x, y+1))
			d.Add(at(x+1, y))
			d.Add(at(x, y+1))
			d.Add(at(x+1, y+1))
		}
	}
	return newShape(KindSphere, d.Vertices(), d.Indices(), options), nil
}

// Circle builds a flat disc in the xy plane as a triangle fan around center, with a second
// fan of reversed triangles so the disc is visible from both sides. Texture coordinates map
// the unit circle onto the unit square with the center at (0.5, 0.5).
//
// Parameters:
//   - center: the disc center; its color is used for every vertex
//   - radius: the disc radius
//   - edges: the number of rim segments, at least 3
//   - options: texture and transform options
//
// Returns:
//   - Object: the circle
//   - error: error if edges is below 3
func Circle(center Vertex, radius float32, edges int, options ...ObjectBuilderOption) (Object, error) {
	if edges < 3 {
		return nil, fmt.Errorf("circle needs at least 3 edges, got %d", edges)
	}
	center.TexCoord = mgl32.Vec2{0.5, 0.5}
	n := float32(edges)
	rim := func(i float32) Vertex {
		x := math32.Cos(i * 2 * math32.Pi / n)
		y := math32.Sin(i * 2 * math32.Pi / n)
		return NewVertex(
			center.Pos.Add(mgl32.Vec3{radius * x, radius * y, 0}),
			center.Color,
			mgl32.Vec2{0.5*x + 0.5, 0.5 - 0.5*y},
		)
	}

	d := NewDeduper()
	d.vertices = append(d.vertices, center)
	d.seen[center.Key()] = 0
	for i := 0; i < edges; i++ {
		d.Add(rim(float32(i)))
		d.AddIndex(0)
		d.Add(rim(float32(i + 1)))
	}

	// The back fan walks every index of the front fan in a sliding window, so it reads
	// entries it appended itself near the end of the loop.
	indices := d.Indices()
	front := len(indices)
	for i := 0; i < front; i++ {
		indices = append(indices, indices[i+2], 0, indices[i])
	}
	return newShape(KindCircle, d.Vertices(), indices, options), nil
}

// Mesh wraps explicit vertex and index arrays, typically from DedupTriangles.
//
// Parameters:
//   - vertices: the vertex list
//   - indices: the index list; every entry must address vertices
//   - options: texture and transform options
//
// Returns:
//   - Object: the mesh
//   - error: error if the mesh is empty or an index is out of range
func Mesh(vertices []Vertex, indices []uint32, options ...ObjectBuilderOption) (Object, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh needs vertices and indices, got %d and %d", len(vertices), len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("index %d at position %d addresses %d vertices", idx, i, len(vertices))
		}
	}
	return newShape(KindMesh, vertices, indices, options), nil
}
