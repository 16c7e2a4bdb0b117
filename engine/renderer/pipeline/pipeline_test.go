package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("untextured")

	assert.Equal(t, "untextured", p.PipelineKey())
	assert.True(t, p.DepthTestEnabled())
	assert.True(t, p.DepthWriteEnabled())
	assert.Equal(t, gpu.CompareOpLess, p.DepthCompare())
	assert.False(t, p.BlendEnabled())
	assert.Equal(t, gpu.CullModeBack, p.CullMode())
	assert.Equal(t, gpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, gpu.FrontFaceCounterClockwise, p.FrontFace())
	assert.Empty(t, p.PushConstants())
}

func TestDescribeCarriesTarget(t *testing.T) {
	layout := gpu.VertexLayout{Stride: 32}
	p := NewPipeline("textured",
		WithVertexLayout(layout),
		WithPushConstant(gpu.ShaderStageVertex, 0, 64),
		WithCullMode(gpu.CullModeNone),
		WithDepthWriteEnabled(false),
	)

	desc := p.Describe(
		Stages{VertexModule: 1, FragmentModule: 2, Layout: 3},
		Target{RenderPass: 4, Extent: gpu.Extent2D{Width: 800, Height: 600}, Samples: gpu.SampleCount4},
	)
	assert.Equal(t, "textured", desc.Label)
	assert.Equal(t, "main", desc.EntryPoint)
	assert.Equal(t, layout, desc.VertexLayout)
	assert.Equal(t, gpu.CullModeNone, desc.CullMode)
	assert.False(t, desc.DepthWrite)
	assert.Equal(t, gpu.SampleCount4, desc.Samples)
	assert.Equal(t, gpu.RenderPass(4), desc.RenderPass)
	assert.Equal(t, gpu.PipelineLayout(3), desc.Layout)
	assert.Equal(t, []gpu.PushConstantRange{{Stages: gpu.ShaderStageVertex, Offset: 0, Size: 64}}, p.PushConstants())
}

func TestBuildRejectsZeroExtent(t *testing.T) {
	dev := gputest.NewDevice()
	_, err := NewPipeline("p").Build(dev, Stages{}, Target{})
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrZeroExtent)
	assert.Zero(t, dev.LiveCount(gputest.KindPipeline))
}

func TestBuildCreatesPipeline(t *testing.T) {
	dev := gputest.NewDevice()
	rp, err := dev.CreateRenderPass(gpu.RenderPassDesc{})
	require.NoError(t, err)
	setLayout, err := dev.CreateDescriptorSetLayout(nil)
	require.NoError(t, err)
	layout, err := dev.CreatePipelineLayout(gpu.PipelineLayoutDesc{SetLayouts: []gpu.DescriptorSetLayout{setLayout}})
	require.NoError(t, err)
	vert, err := dev.CreateShaderModule(make([]byte, 8))
	require.NoError(t, err)
	frag, err := dev.CreateShaderModule(make([]byte, 8))
	require.NoError(t, err)

	handle, err := NewPipeline("p").Build(dev,
		Stages{VertexModule: vert, FragmentModule: frag, Layout: layout},
		Target{RenderPass: rp, Extent: gpu.Extent2D{Width: 1, Height: 1}},
	)
	require.NoError(t, err)
	require.Contains(t, dev.Pipelines, handle)
	assert.Equal(t, gpu.SampleCount1, dev.Pipelines[handle].Samples)
}
