package pipeline

import (
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Target is the swapchain-dependent half of a graphics pipeline: everything that changes
// when the render targets are rebuilt.
type Target struct {
	// RenderPass is the pass the pipeline draws in (subpass 0).
	RenderPass gpu.RenderPass
	// Extent is the fixed viewport and scissor size.
	Extent gpu.Extent2D
	// Samples is the rasterization sample count, matching the color attachment.
	Samples gpu.SampleCount
}

// Stages are the shader modules and the layout a pipeline is built from.
type Stages struct {
	VertexModule   gpu.ShaderModule
	FragmentModule gpu.ShaderModule
	Layout         gpu.PipelineLayout
}

// pipeline is the implementation of the Pipeline interface.
// It holds the fixed-function configuration of a graphics pipeline; the GPU object itself is
// created by Build and owned by the caller.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for logging and lookups
	pipelineKey string

	// entryPoint is the shader entry point name for both stages
	entryPoint string

	// vertexLayout describes the single interleaved vertex buffer at binding 0
	vertexLayout gpu.VertexLayout

	// pushConstants are the push constant ranges declared in the pipeline layout
	pushConstants []gpu.PushConstantRange

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      gpu.CompareOp
	blendEnabled      bool
	cullMode          gpu.CullMode
	topology          gpu.PrimitiveTopology
	frontFace         gpu.FrontFace
}

// Pipeline describes the fixed-function state of a graphics pipeline and turns it, together
// with shader stages and the current render target, into a gpu.GraphicsPipelineDesc.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// VertexLayout returns the vertex input description.
	//
	// Returns:
	//   - gpu.VertexLayout: stride and attributes of binding 0
	VertexLayout() gpu.VertexLayout

	// PushConstants returns the push constant ranges the pipeline layout must declare.
	//
	// Returns:
	//   - []gpu.PushConstantRange: the ranges, possibly empty
	PushConstants() []gpu.PushConstantRange

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// DepthCompare returns the depth comparison operator.
	DepthCompare() gpu.CompareOp

	// BlendEnabled returns whether alpha blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() gpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() gpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() gpu.FrontFace

	// Describe combines the fixed-function state with the shader stages and render target.
	//
	// Parameters:
	//   - stages: shader modules and pipeline layout
	//   - target: render pass, extent and sample count
	//
	// Returns:
	//   - gpu.GraphicsPipelineDesc: the complete creation description
	Describe(stages Stages, target Target) gpu.GraphicsPipelineDesc

	// Build creates the GPU pipeline on dev. The caller owns the returned handle.
	//
	// Parameters:
	//   - dev: the logical device
	//   - stages: shader modules and pipeline layout
	//   - target: render pass, extent and sample count
	//
	// Returns:
	//   - gpu.Pipeline: the pipeline handle
	//   - error: error if the target is unusable or creation fails
	Build(dev gpu.Device, stages Stages, target Target) (gpu.Pipeline, error)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline description.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		entryPoint:        "main",
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      gpu.CompareOpLess,
		blendEnabled:      false,
		cullMode:          gpu.CullModeBack,
		topology:          gpu.PrimitiveTopologyTriangleList,
		frontFace:         gpu.FrontFaceCounterClockwise,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) VertexLayout() gpu.VertexLayout {
	return p.vertexLayout
}

func (p *pipeline) PushConstants() []gpu.PushConstantRange {
	return p.pushConstants
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() gpu.CompareOp {
	return p.depthCompare
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() gpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() gpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() gpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) Describe(stages Stages, target Target) gpu.GraphicsPipelineDesc {
	return gpu.GraphicsPipelineDesc{
		Label:          p.pipelineKey,
		VertexModule:   stages.VertexModule,
		FragmentModule: stages.FragmentModule,
		EntryPoint:     p.entryPoint,
		VertexLayout:   p.vertexLayout,
		Topology:       p.topology,
		CullMode:       p.cullMode,
		FrontFace:      p.frontFace,
		Extent:         target.Extent,
		Samples:        target.Samples,
		DepthTest:      p.depthTestEnabled,
		DepthWrite:     p.depthWriteEnabled,
		DepthCompare:   p.depthCompare,
		BlendEnabled:   p.blendEnabled,
		Layout:         stages.Layout,
		RenderPass:     target.RenderPass,
		Subpass:        0,
	}
}

func (p *pipeline) Build(dev gpu.Device, stages Stages, target Target) (gpu.Pipeline, error) {
	if target.Extent.IsZero() {
		return 0, errors.Wrapf(gpu.ErrZeroExtent, "pipeline %s", p.pipelineKey)
	}
	if target.Samples == 0 {
		target.Samples = gpu.SampleCount1
	}
	handle, err := dev.CreateGraphicsPipeline(p.Describe(stages, target))
	if err != nil {
		return 0, errors.Wrapf(err, "creating pipeline %s", p.pipelineKey)
	}
	return handle, nil
}
