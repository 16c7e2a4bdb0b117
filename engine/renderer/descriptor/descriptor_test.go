package descriptor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

var texturedBindings = []gpu.DescriptorBinding{
	{Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Count: 1, Stages: gpu.ShaderStageVertex},
	{Binding: 1, Type: gpu.DescriptorTypeCombinedImageSampler, Count: 1, Stages: gpu.ShaderStageFragment},
}

func newLayout(t *testing.T, dev *gputest.Device, bindings []gpu.DescriptorBinding) gpu.DescriptorSetLayout {
	t.Helper()
	layout, err := dev.CreateDescriptorSetLayout(bindings)
	require.NoError(t, err)
	return layout
}

func TestCameraBytesLayout(t *testing.T) {
	c := Camera{View: mgl32.Ident4(), Projection: mgl32.Scale3D(2, 3, 4)}
	b := c.Bytes()
	require.Len(t, b, UniformSize)
	// column-major: Projection[5] is the Y scale, 64 bytes after View
	assert.Equal(t, common.SliceToBytes([]float32{3}), b[64+5*4:64+6*4])
}

func TestNewGroupUntextured(t *testing.T) {
	dev := gputest.NewDevice()
	layout := newLayout(t, dev, texturedBindings[:1])

	g, err := NewGroup(dev, layout, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, g.ImageCount())
	assert.Len(t, g.Buffers(), 3)
	pool := dev.DescriptorPools[g.Pool()]
	require.NotNil(t, pool)
	assert.Equal(t, uint32(3), pool.Desc.MaxSets)
	require.Len(t, pool.Desc.Sizes, 1)
	assert.Equal(t, gpu.DescriptorPoolSize{Type: gpu.DescriptorTypeUniformBuffer, Count: 3}, pool.Desc.Sizes[0])

	for i, set := range g.Sets() {
		w := dev.DescriptorSets[set].Writes[0]
		assert.Equal(t, g.Buffer(uint32(i)), w.Buffer)
		assert.Equal(t, uint64(UniformSize), w.Range)
		assert.NotContains(t, dev.DescriptorSets[set].Writes, uint32(1))
	}
	assert.Empty(t, dev.Violations)
}

func TestNewGroupTextured(t *testing.T) {
	dev := gputest.NewDevice()
	layout := newLayout(t, dev, texturedBindings)
	tex := TextureBinding{View: 77, Sampler: 78}

	g, err := NewGroup(dev, layout, 2, WithTexture(tex), WithLabel("cube"))
	require.NoError(t, err)
	assert.Equal(t, "cube", g.Label())

	sizes := dev.DescriptorPools[g.Pool()].Desc.Sizes
	assert.Contains(t, sizes, gpu.DescriptorPoolSize{Type: gpu.DescriptorTypeCombinedImageSampler, Count: 2})
	for _, set := range g.Sets() {
		w := dev.DescriptorSets[set].Writes[1]
		assert.Equal(t, tex.View, w.ImageView)
		assert.Equal(t, tex.Sampler, w.Sampler)
		assert.Equal(t, gpu.ImageLayoutShaderReadOnlyOptimal, w.Layout)
	}
	assert.Empty(t, dev.Violations)
}

func TestWriteUniform(t *testing.T) {
	dev := gputest.NewDevice()
	g, err := NewGroup(dev, newLayout(t, dev, texturedBindings[:1]), 2)
	require.NoError(t, err)

	c := Camera{View: mgl32.Translate3D(1, 2, 3), Projection: mgl32.Ident4()}
	require.NoError(t, g.Write(1, c.Bytes()))
	assert.Equal(t, c.Bytes(), dev.Buffers[g.Buffer(1)].Data)

	assert.Error(t, g.Write(2, c.Bytes()))
	assert.Error(t, g.Write(0, make([]byte, UniformSize+1)))
}

func TestRebuildIsStructurallyIdempotent(t *testing.T) {
	dev := gputest.NewDevice()
	layout := newLayout(t, dev, texturedBindings)
	tex := TextureBinding{View: 5, Sampler: 6}

	shape := func(g Group) []int {
		out := []int{g.ImageCount(), len(g.Buffers())}
		for _, s := range g.Sets() {
			out = append(out, len(dev.DescriptorSets[s].Writes))
		}
		return out
	}

	g, err := NewGroup(dev, layout, 3, WithTexture(tex))
	require.NoError(t, err)
	g.Destroy()
	once, err := NewGroup(dev, layout, 3, WithTexture(tex))
	require.NoError(t, err)
	first := shape(once)
	baseline := dev.Live()

	once.Destroy()
	twice, err := NewGroup(dev, layout, 3, WithTexture(tex))
	require.NoError(t, err)

	assert.Equal(t, first, shape(twice))
	assert.Equal(t, baseline, dev.Live())
}

func TestNewGroupFailureReleasesEverything(t *testing.T) {
	dev := gputest.NewDevice()
	layout := newLayout(t, dev, texturedBindings[:1])
	baseline := dev.LiveTotal()

	dev.FailNext(gputest.KindBuffer, nil)
	dev.FailNext(gputest.KindBuffer, gpu.ErrOutOfMemory)
	_, err := NewGroup(dev, layout, 3)
	require.Error(t, err)
	var alloc *gpu.AllocationError
	assert.ErrorAs(t, err, &alloc)
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)
	assert.Equal(t, baseline, dev.LiveTotal())

	dev.FailNext("descriptorSet", gpu.ErrOutOfMemory)
	_, err = NewGroup(dev, layout, 3)
	require.Error(t, err)
	assert.ErrorAs(t, err, &alloc)
	assert.Equal(t, baseline, dev.LiveTotal())
	assert.Empty(t, dev.Violations)
}

func TestDestroyOrderAndIdempotence(t *testing.T) {
	dev := gputest.NewDevice()
	layout := newLayout(t, dev, texturedBindings[:1])
	g, err := NewGroup(dev, layout, 2)
	require.NoError(t, err)

	start := len(dev.Calls)
	g.Destroy()
	g.Destroy()
	assert.False(t, g.Allocated())
	pool := dev.CallIndex("DestroyDescriptorPool", start)
	buf := dev.CallIndex("DestroyBuffer", start)
	assert.Less(t, pool, buf)
	assert.Equal(t, 1, dev.CountCalls("DestroyDescriptorPool"))
	assert.Equal(t, 0, dev.LiveCount(gputest.KindBuffer))

	dev.DestroyDescriptorSetLayout(layout)
	assert.Empty(t, dev.Violations)
}
