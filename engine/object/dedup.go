package object

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Deduper accumulates a unique vertex list and the index list that references it.
// The zero value is not usable; call NewDeduper.
type Deduper struct {
	seen     map[VertexKey]uint32
	vertices []Vertex
	indices  []uint32
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: map[VertexKey]uint32{}}
}

// Add appends one corner reference. The vertex is stored only if no bit-identical vertex
// was added before; the index always grows by one.
//
// Parameters:
//   - v: the vertex of this corner
//
// Returns:
//   - uint32: the index now referencing v
func (d *Deduper) Add(v Vertex) uint32 {
	key := v.Key()
	idx, ok := d.seen[key]
	if !ok {
		idx = uint32(len(d.vertices))
		d.seen[key] = idx
		d.vertices = append(d.vertices, v)
	}
	d.indices = append(d.indices, idx)
	return idx
}

// AddIndex appends a raw index without touching the vertex list.
func (d *Deduper) AddIndex(idx uint32) {
	d.indices = append(d.indices, idx)
}

// Vertices returns the unique vertices in first-seen order.
func (d *Deduper) Vertices() []Vertex {
	return d.vertices
}

// Indices returns every index added so far.
func (d *Deduper) Indices() []uint32 {
	return d.indices
}

// Dedup collapses a corner list into unique vertices plus indices.
//
// Parameters:
//   - corners: one vertex per referenced corner, in draw order
//
// Returns:
//   - []Vertex: the unique vertices
//   - []uint32: len(corners) indices into the unique vertices
func Dedup(corners []Vertex) ([]Vertex, []uint32) {
	d := NewDeduper()
	for _, c := range corners {
		d.Add(c)
	}
	return d.Vertices(), d.Indices()
}

// DedupTriangles builds a deduplicated mesh from flat OBJ-style arrays: 3 floats per
// position, 2 floats per texture coordinate, and one index per corner addressing both arrays.
// The V coordinate is flipped (1 - v) to match the image row order and every vertex is white.
//
// Parameters:
//   - positions: x,y,z triples
//   - texCoords: u,v pairs
//   - indices: corner indices into positions and texCoords
//
// Returns:
//   - []Vertex: the unique vertices
//   - []uint32: one index per input corner
//   - error: error if an index is out of range
func DedupTriangles(positions, texCoords []float32, indices []uint32) ([]Vertex, []uint32, error) {
	d := NewDeduper()
	white := mgl32.Vec3{1, 1, 1}
	for i, idx := range indices {
		p, t := int(idx)*3, int(idx)*2
		if p+2 >= len(positions) {
			return nil, nil, fmt.Errorf("corner %d: position index %d out of range", i, idx)
		}
		var uv mgl32.Vec2
		if len(texCoords) > 0 {
			if t+1 >= len(texCoords) {
				return nil, nil, fmt.Errorf("corner %d: texture coordinate index %d out of range", i, idx)
			}
			uv = mgl32.Vec2{texCoords[t], 1 - texCoords[t+1]}
		}
		d.Add(Vertex{
			Pos:      mgl32.Vec3{positions[p], positions[p+1], positions[p+2]},
			Color:    white,
			TexCoord: uv,
		})
	}
	return d.Vertices(), d.Indices(), nil
}
