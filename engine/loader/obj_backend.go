package loader

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/object"
)

// meshData is parsed, deduplicated geometry.
type meshData struct {
	vertices []object.Vertex
	indices  []uint32
}

// objBackend parses the geometry subset of Wavefront OBJ: positions, texture coordinates
// and polygonal faces. Normals, groups and materials are ignored.
type objBackend struct{}

var _ loaderBackend[*meshData] = objBackend{}

func newOBJBackend() objBackend {
	return objBackend{}
}

func (objBackend) Load(r io.Reader) (*meshData, error) {
	var (
		positions []float32
		texCoords []float32
		// one entry per triangle corner
		cornerPos []float32
		cornerUV  []float32
		textured  bool
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			positions = append(positions, v...)
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			texCoords = append(texCoords, v...)
		case "f":
			if len(fields) < 4 {
				return nil, errors.Errorf("line %d: face has %d corners", line, len(fields)-1)
			}
			corners := make([][2]int, len(fields)-1)
			for i, ref := range fields[1:] {
				pos, uv, err := parseCorner(ref, len(positions)/3, len(texCoords)/2)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", line)
				}
				if uv >= 0 {
					textured = true
				}
				corners[i] = [2]int{pos, uv}
			}
			// fan triangulation
			for i := 1; i+1 < len(corners); i++ {
				for _, c := range [3][2]int{corners[0], corners[i], corners[i+1]} {
					cornerPos = append(cornerPos, positions[c[0]*3:c[0]*3+3]...)
					if c[1] >= 0 {
						cornerUV = append(cornerUV, texCoords[c[1]*2:c[1]*2+2]...)
					} else {
						cornerUV = append(cornerUV, 0, 1)
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading obj")
	}
	if len(cornerPos) == 0 {
		return nil, errors.New("obj contains no faces")
	}
	if !textured {
		cornerUV = nil
	}

	indices := make([]uint32, len(cornerPos)/3)
	for i := range indices {
		indices[i] = uint32(i)
	}
	vertices, deduped, err := object.DedupTriangles(cornerPos, cornerUV, indices)
	if err != nil {
		return nil, err
	}
	return &meshData{vertices: vertices, indices: deduped}, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, errors.Errorf("want %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, errors.Wrapf(err, "component %d", i)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner resolves a "v", "v/vt", "v//vn" or "v/vt/vn" reference to zero-based position
// and texture coordinate indices. OBJ indices are one-based; negative ones count back from the
// latest element. A missing texture coordinate yields -1.
func parseCorner(ref string, positions, texCoords int) (int, int, error) {
	parts := strings.Split(ref, "/")
	pos, err := resolveIndex(parts[0], positions)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "corner %q position", ref)
	}
	uv := -1
	if len(parts) > 1 && parts[1] != "" {
		uv, err = resolveIndex(parts[1], texCoords)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "corner %q texture coordinate", ref)
		}
	}
	return pos, uv, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "parsing index")
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, errors.Errorf("index %s out of range for %d elements", s, count)
	}
	return i, nil
}
