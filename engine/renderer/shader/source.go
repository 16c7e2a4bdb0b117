package shader

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// ModuleSource provides the SPIR-V of every variant stage.
type ModuleSource interface {
	// Load reads and validates one stage of one variant.
	//
	// Parameters:
	//   - kind: the variant
	//   - shaderType: the stage
	//
	// Returns:
	//   - Shader: the validated shader
	//   - error: error if the file is missing or not SPIR-V
	Load(kind Kind, shaderType ShaderType) (Shader, error)
}

// fsSource loads "<kind>.<stage>.spv" files from a file system.
type fsSource struct {
	fsys fs.FS
}

var _ ModuleSource = &fsSource{}

// NewFSSource returns a ModuleSource reading "<kind>.vert.spv" and "<kind>.frag.spv" from fsys.
func NewFSSource(fsys fs.FS) ModuleSource {
	return &fsSource{fsys: fsys}
}

// NewDirSource returns a ModuleSource reading SPIR-V files from dir on disk.
func NewDirSource(dir string) ModuleSource {
	return NewFSSource(os.DirFS(dir))
}

// FileName returns the SPIR-V file name of one variant stage.
func FileName(kind Kind, shaderType ShaderType) string {
	return kind.String() + "." + shaderType.Extension() + ".spv"
}

func (s *fsSource) Load(kind Kind, shaderType ShaderType) (Shader, error) {
	name := FileName(kind, shaderType)
	code, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return NewShader(kind, shaderType, code)
}
