package object

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Vertex is the per-vertex input of both shader variants. The struct is tightly packed:
// position at offset 0, color at 12, texture coordinate at 24, 32 bytes in total.
type Vertex struct {
	Pos      mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// VertexSize is the stride of Vertex in a vertex buffer.
const VertexSize = uint32(unsafe.Sizeof(Vertex{}))

// NewVertex builds a Vertex from its components.
func NewVertex(pos, color mgl32.Vec3, texCoord mgl32.Vec2) Vertex {
	return Vertex{Pos: pos, Color: color, TexCoord: texCoord}
}

// VertexKey is the bit pattern of every component of a Vertex. Two vertices share a key
// exactly when all of their float bits match, so -0 and +0 differ and NaNs with equal
// payloads compare equal.
type VertexKey [8]uint32

// Key returns the bit-wise identity of v, usable as a map key.
func (v Vertex) Key() VertexKey {
	return VertexKey{
		math.Float32bits(v.Pos[0]), math.Float32bits(v.Pos[1]), math.Float32bits(v.Pos[2]),
		math.Float32bits(v.Color[0]), math.Float32bits(v.Color[1]), math.Float32bits(v.Color[2]),
		math.Float32bits(v.TexCoord[0]), math.Float32bits(v.TexCoord[1]),
	}
}

// Equal reports bit-wise equality of every component.
func (v Vertex) Equal(o Vertex) bool {
	return v.Key() == o.Key()
}

// VertexLayout describes Vertex to the pipeline as binding 0, locations 0/1/2.
//
// Returns:
//   - gpu.VertexLayout: stride and attribute formats/offsets
func VertexLayout() gpu.VertexLayout {
	return gpu.VertexLayout{
		Stride: VertexSize,
		Attributes: []gpu.VertexAttribute{
			{Location: 0, Format: gpu.FormatR32G32B32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Pos))},
			{Location: 1, Format: gpu.FormatR32G32B32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Color))},
			{Location: 2, Format: gpu.FormatR32G32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.TexCoord))},
		},
	}
}
