package pipeline

import (
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexLayout sets the vertex input description for binding 0.
//
// Parameters:
//   - layout: the stride and attributes of the vertex buffer
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layout for this pipeline
func WithVertexLayout(layout gpu.VertexLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayout = layout
	}
}

// WithPushConstant declares a push constant range in the pipeline layout.
//
// Parameters:
//   - stages: the shader stages that read the range
//   - offset: byte offset of the range
//   - size: byte size of the range
//
// Returns:
//   - PipelineBuilderOption: a function that appends the range to this pipeline
func WithPushConstant(stages gpu.ShaderStage, offset, size uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.pushConstants = append(p.pushConstants, gpu.PushConstantRange{Stages: stages, Offset: offset, Size: size})
	}
}

// WithEntryPoint sets the shader entry point used for both stages.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - PipelineBuilderOption: a function that sets the entry point for this pipeline
func WithEntryPoint(name string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.entryPoint = name
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth comparison operator.
//
// Parameters:
//   - op: the comparison, CompareOpLess by default
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth compare op for this pipeline
func WithDepthCompare(op gpu.CompareOp) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = op
	}
}

// WithBlendEnabled sets whether alpha blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use (e.g., gpu.CullModeNone, gpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode gpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use (e.g., gpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology gpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face winding order to use (e.g., gpu.FrontFaceCounterClockwise)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face winding order for this pipeline
func WithFrontFace(frontFace gpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}
