// Package shader loads the SPIR-V of the textured and untextured variants and caches the
// pipeline state built from them.
package shader

//go:generate glslc ../../../assets/shaders/untextured.vert -o ../../../assets/shaders/untextured.vert.spv
//go:generate glslc ../../../assets/shaders/untextured.frag -o ../../../assets/shaders/untextured.frag.spv
//go:generate glslc ../../../assets/shaders/textured.vert -o ../../../assets/shaders/textured.vert.spv
//go:generate glslc ../../../assets/shaders/textured.frag -o ../../../assets/shaders/textured.frag.spv

import (
	"encoding/binary"
	"github.com/pkg/errors"
)

// ShaderType identifies the pipeline stage a shader module runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// Extension returns the file name infix of the stage, as produced by glslc.
func (t ShaderType) Extension() string {
	if t == ShaderTypeFragment {
		return "frag"
	}
	return "vert"
}

func (t ShaderType) String() string {
	return t.Extension()
}

// spirvMagic is the first word of every SPIR-V binary.
const spirvMagic = 0x07230203

// shader is the implementation of the Shader interface.
// It holds validated SPIR-V for one stage of one variant.
type shader struct {
	key        string
	kind       Kind
	shaderType ShaderType
	code       []byte
	entryPoint string
}

// Shader is one compiled SPIR-V stage of a shader variant, ready to be wrapped in a module.
type Shader interface {
	// Key retrieves the unique identifier for this shader, "<kind>.<stage>".
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Kind returns the variant the shader belongs to.
	Kind() Kind

	// Type returns the pipeline stage of the shader.
	Type() ShaderType

	// Code returns the SPIR-V words as little-endian bytes.
	Code() []byte

	// EntryPoint returns the entry point function name.
	EntryPoint() string
}

var _ Shader = &shader{}

// NewShader validates code as SPIR-V and wraps it.
//
// Parameters:
//   - kind: the variant
//   - shaderType: the stage
//   - code: the SPIR-V binary
//
// Returns:
//   - Shader: the shader
//   - error: error if code is not a SPIR-V binary
func NewShader(kind Kind, shaderType ShaderType, code []byte) (Shader, error) {
	key := kind.String() + "." + shaderType.Extension()
	if len(code) < 20 || len(code)%4 != 0 {
		return nil, errors.Errorf("shader %s: %d bytes is not a SPIR-V binary", key, len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return nil, errors.Errorf("shader %s: bad SPIR-V magic 0x%08x", key, magic)
	}
	return &shader{
		key:        key,
		kind:       kind,
		shaderType: shaderType,
		code:       code,
		entryPoint: "main",
	}, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Kind() Kind {
	return s.kind
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) Code() []byte {
	return s.code
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}
