// Package descriptor owns the swapchain-dependent half of a resource bundle: one uniform buffer
// per swapchain image and a descriptor pool holding one set per image.
package descriptor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Camera is the uniform block at binding 0. Model travels as a push constant instead.
type Camera struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// UniformSize is the byte size of Camera as laid out in the shaders (std140, two mat4).
const UniformSize = 128

// Bytes returns the std140 encoding of c.
func (c *Camera) Bytes() []byte {
	return append([]byte(nil), common.StructToBytes(c)...)
}

// TextureBinding is the combined image sampler written at binding 1 of textured sets.
type TextureBinding struct {
	View    gpu.ImageView
	Sampler gpu.Sampler
}

// group is the implementation of the Group interface.
type group struct {
	// label is a debug label added for convenience.
	label string

	device  gpu.Device
	layout  gpu.DescriptorSetLayout
	texture *TextureBinding

	// The following fields are GPU allocated resources and are released by Destroy.

	// buffers holds one host-visible uniform buffer per swapchain image.
	buffers []gpu.Buffer
	// pool is the descriptor pool every set is allocated from.
	pool gpu.DescriptorPool
	// sets holds one descriptor set per swapchain image, in image order.
	sets []gpu.DescriptorSet
}

// Group is the per-image uniform buffers and descriptor sets of one bundle. It is rebuilt
// wholesale whenever the swapchain image count may have changed.
//
// Usage pattern:
//  1. The bundle creates a Group with its variant's set layout and the swapchain image count
//  2. Each frame the orchestrator writes the acquired image's uniform with Write
//  3. The bundle's secondary command buffer binds Set(image)
//  4. On resize the bundle destroys the Group and creates a new one
type Group interface {
	// Label returns the debug label for this group.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// ImageCount returns the number of swapchain images the group was built for.
	ImageCount() int

	// Set returns the descriptor set of swapchain image index.
	//
	// Parameters:
	//   - image: the swapchain image index
	//
	// Returns:
	//   - gpu.DescriptorSet: the set, or 0 if the index is out of range
	Set(image uint32) gpu.DescriptorSet

	// Sets returns every descriptor set in image order.
	Sets() []gpu.DescriptorSet

	// Buffer returns the uniform buffer of swapchain image index, or 0 if out of range.
	Buffer(image uint32) gpu.Buffer

	// Buffers returns every uniform buffer in image order.
	Buffers() []gpu.Buffer

	// Pool returns the descriptor pool.
	Pool() gpu.DescriptorPool

	// Write copies data into the uniform buffer of one image through a host mapping.
	//
	// Parameters:
	//   - image: the swapchain image index
	//   - data: at most UniformSize bytes
	//
	// Returns:
	//   - error: error if the index is out of range or the mapping fails
	Write(image uint32, data []byte) error

	// Allocated reports whether the group holds GPU resources.
	Allocated() bool

	// Destroy releases the descriptor pool (and with it every set), then the uniform buffers.
	// It is safe to call more than once.
	Destroy()
}

var _ Group = &group{}

// NewGroup allocates imageCount uniform buffers and a pool with exactly imageCount sets of
// layout, and writes each set with its image's buffer and, when configured, the texture.
//
// Parameters:
//   - dev: the logical device
//   - layout: the variant's descriptor-set layout
//   - imageCount: the number of swapchain images
//   - options: functional options
//
// Returns:
//   - Group: the allocated group
//   - error: a *gpu.AllocationError; nothing is left allocated on failure
func NewGroup(dev gpu.Device, layout gpu.DescriptorSetLayout, imageCount int, options ...GroupBuilderOption) (Group, error) {
	g := &group{
		label:  "bundle",
		device: dev,
		layout: layout,
	}
	for _, opt := range options {
		opt(g)
	}
	if imageCount <= 0 {
		return nil, gpu.NewAllocationError(g.label+" descriptor sets", errors.Errorf("invalid image count %d", imageCount))
	}

	var undo gpu.Cleanup
	defer undo.Run()

	g.buffers = make([]gpu.Buffer, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		buf, err := dev.CreateBuffer(gpu.BufferDesc{
			Label:  fmt.Sprintf("%s uniform %d", g.label, i),
			Size:   UniformSize,
			Usage:  gpu.BufferUsageUniform,
			Memory: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent,
		})
		if err != nil {
			return nil, gpu.NewAllocationError(fmt.Sprintf("%s uniform buffer %d", g.label, i), err)
		}
		undo.Add(func() { dev.DestroyBuffer(buf) })
		g.buffers = append(g.buffers, buf)
	}

	count := uint32(imageCount)
	sizes := []gpu.DescriptorPoolSize{{Type: gpu.DescriptorTypeUniformBuffer, Count: count}}
	if g.texture != nil {
		sizes = append(sizes, gpu.DescriptorPoolSize{Type: gpu.DescriptorTypeCombinedImageSampler, Count: count})
	}
	pool, err := dev.CreateDescriptorPool(gpu.DescriptorPoolDesc{MaxSets: count, Sizes: sizes})
	if err != nil {
		return nil, gpu.NewAllocationError(g.label+" descriptor pool", err)
	}
	undo.Add(func() { dev.DestroyDescriptorPool(pool) })
	g.pool = pool

	layouts := make([]gpu.DescriptorSetLayout, imageCount)
	for i := range layouts {
		layouts[i] = layout
	}
	sets, err := dev.AllocateDescriptorSets(pool, layouts)
	if err != nil {
		return nil, gpu.NewAllocationError(g.label+" descriptor sets", err)
	}
	g.sets = sets

	writes := make([]gpu.DescriptorWrite, 0, imageCount*len(sizes))
	for i, set := range sets {
		writes = append(writes, gpu.DescriptorWrite{
			Set:     set,
			Binding: 0,
			Type:    gpu.DescriptorTypeUniformBuffer,
			Buffer:  g.buffers[i],
			Range:   UniformSize,
		})
		if g.texture != nil {
			writes = append(writes, gpu.DescriptorWrite{
				Set:       set,
				Binding:   1,
				Type:      gpu.DescriptorTypeCombinedImageSampler,
				ImageView: g.texture.View,
				Sampler:   g.texture.Sampler,
				Layout:    gpu.ImageLayoutShaderReadOnlyOptimal,
			})
		}
	}
	dev.UpdateDescriptorSets(writes)

	undo.Disarm()
	return g, nil
}

func (g *group) Label() string {
	return g.label
}

func (g *group) ImageCount() int {
	return len(g.sets)
}

func (g *group) Set(image uint32) gpu.DescriptorSet {
	if int(image) >= len(g.sets) {
		return 0
	}
	return g.sets[image]
}

func (g *group) Sets() []gpu.DescriptorSet {
	return g.sets
}

func (g *group) Buffer(image uint32) gpu.Buffer {
	if int(image) >= len(g.buffers) {
		return 0
	}
	return g.buffers[image]
}

func (g *group) Buffers() []gpu.Buffer {
	return g.buffers
}

func (g *group) Pool() gpu.DescriptorPool {
	return g.pool
}

func (g *group) Write(image uint32, data []byte) error {
	buf := g.Buffer(image)
	if buf == 0 {
		return errors.Errorf("%s: no uniform buffer for image %d", g.label, image)
	}
	if len(data) > UniformSize {
		return errors.Errorf("%s: uniform write of %d bytes exceeds %d", g.label, len(data), UniformSize)
	}
	return errors.Wrapf(g.device.WriteBuffer(buf, 0, data), "%s: writing uniform %d", g.label, image)
}

func (g *group) Allocated() bool {
	return g.pool != 0
}

func (g *group) Destroy() {
	g.device.DestroyDescriptorPool(g.pool)
	g.pool = 0
	g.sets = nil
	for _, buf := range g.buffers {
		g.device.DestroyBuffer(buf)
	}
	g.buffers = nil
}
