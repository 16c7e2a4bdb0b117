package shader

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// Kind is the closed set of shader variants.
type Kind int

const (
	// Untextured draws vertex colors. Its set layout holds only the uniform buffer.
	Untextured Kind = iota
	// Textured samples a texture. Its set layout adds a combined image sampler at binding 1.
	Textured
)

// Kinds lists every variant.
var Kinds = []Kind{Untextured, Textured}

func (k Kind) String() string {
	if k == Textured {
		return "textured"
	}
	return "untextured"
}

// Binding numbers shared by both variants' shaders.
const (
	BindingUniform = 0
	BindingSampler = 1
)

// ModelPushConstantSize is the size of the per-draw model matrix push constant.
const ModelPushConstantSize = 64

// Bindings returns the descriptor-set layout of kind.
//
// Parameters:
//   - kind: the variant
//
// Returns:
//   - []gpu.DescriptorBinding: uniform buffer at binding 0 and, for Textured, a sampler at binding 1
func Bindings(kind Kind) []gpu.DescriptorBinding {
	bindings := []gpu.DescriptorBinding{
		{Binding: BindingUniform, Type: gpu.DescriptorTypeUniformBuffer, Count: 1, Stages: gpu.ShaderStageVertex},
	}
	if kind == Textured {
		bindings = append(bindings, gpu.DescriptorBinding{
			Binding: BindingSampler, Type: gpu.DescriptorTypeCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageFragment,
		})
	}
	return bindings
}
