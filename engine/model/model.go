// Package model turns an object.Object into the GPU resources needed to draw it: vertex and
// index buffers, an optional texture, and the per-image uniforms and descriptor sets.
package model

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/descriptor"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/upload"
)

// BundleContext is what building a bundle needs from the renderer.
type BundleContext struct {
	Device   gpu.Device
	Uploader upload.Uploader
	Shaders  shader.ShaderVariantCache

	// Target is used to build the bundle's shader variant if it is not cached yet.
	Target pipeline.Target

	// ImageCount is the number of swapchain images; one uniform buffer and set is built per image.
	ImageCount int

	// SingleLevelTextures disables mipmap generation.
	SingleLevelTextures bool

	Logger *slog.Logger
}

// model is the implementation of the Model interface.
type model struct {
	name   string
	index  int
	kind   shader.Kind
	object object.Object
	device gpu.Device

	// The following fields are GPU allocated resources and are released by Destroy.

	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
	indexCount   uint32
	texture      *upload.Texture
	descriptors  descriptor.Group
}

// Model is a GPU resource bundle: the buffers, texture and descriptor sets of one drawable.
// It holds the key of its shader variant, never the variant itself. A Model is either fully
// allocated or fully empty.
type Model interface {
	// Name retrieves the bundle's debug name.
	//
	// Returns:
	//   - string: the name, e.g. "cube#2"
	Name() string

	// Index returns the creation number used in the bundle's name.
	Index() int

	// Kind returns the key of the bundle's shader variant.
	Kind() shader.Kind

	// Object returns the object the bundle was built from.
	Object() object.Object

	VertexBuffer() gpu.Buffer
	IndexBuffer() gpu.Buffer
	IndexCount() uint32

	// Texture returns the texture, or nil for untextured bundles.
	Texture() *upload.Texture

	// Descriptors returns the per-image uniform buffers and descriptor sets.
	Descriptors() descriptor.Group

	// Transforms evaluates the object's transform callback.
	//
	// Parameters:
	//   - position: the bundle's current position in the draw list
	//   - elapsed: seconds since the renderer started
	//   - width: the swapchain width
	//   - height: the swapchain height
	//
	// Returns:
	//   - object.Transforms: model, view and projection
	Transforms(position int, elapsed float32, width, height uint32) object.Transforms

	// UpdateUniform writes View and Projection into the uniform buffer of one image.
	//
	// Parameters:
	//   - image: the swapchain image index
	//   - transforms: the evaluated transforms; Model is ignored
	//
	// Returns:
	//   - error: error if the write fails
	UpdateUniform(image uint32, transforms object.Transforms) error

	// RecordDraw records the bundle's draw into a secondary command buffer: pipeline, vertex
	// and index buffers, the image's descriptor set, the model matrix push constant and an
	// indexed draw.
	//
	// Parameters:
	//   - cb: a recording secondary command buffer
	//   - variant: the bundle's resolved shader variant
	//   - image: the swapchain image index
	//   - modelMatrix: the model transform
	RecordDraw(cb gpu.CommandBuffer, variant *shader.Variant, image uint32, modelMatrix mgl32.Mat4)

	// ReloadSwapchain rebuilds the uniform buffers and descriptor pool/sets for a new
	// swapchain generation. Buffers and the texture are kept. The old sets are released only
	// once the new ones are built, so a failed rebuild leaves the bundle as it was.
	//
	// Parameters:
	//   - imageCount: the new number of swapchain images
	//   - layout: the variant's descriptor-set layout
	//
	// Returns:
	//   - error: a *gpu.AllocationError if the new sets cannot be built
	ReloadSwapchain(imageCount int, layout gpu.DescriptorSetLayout) error

	// Allocated reports whether every part of the bundle is allocated.
	Allocated() bool

	// Destroy releases the descriptor pool, uniform buffers, texture, index buffer and vertex
	// buffer in that order. It is safe to call more than once.
	Destroy()
}

var _ Model = &model{}

// FromObject uploads obj and builds its bundle. Objects with a texture use the Textured
// variant, others Untextured.
//
// Parameters:
//   - ctx: device, uploader, shader cache and swapchain parameters
//   - obj: the object
//   - index: the object's position in insertion order
//
// Returns:
//   - Model: the fully allocated bundle
//   - error: a *gpu.AllocationError or upload error; nothing is left allocated on failure
func FromObject(ctx BundleContext, obj object.Object, index int) (Model, error) {
	kind := shader.Untextured
	if obj.Texture() != nil {
		kind = shader.Textured
	}
	name := fmt.Sprintf("%s#%d", obj.Kind(), index)

	variant, err := ctx.Shaders.Get(kind, ctx.Target)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: shader variant", name)
	}

	var undo gpu.Cleanup
	defer undo.Run()

	vertices := obj.Vertices()
	indices := obj.Indices()
	vertexBuffer, err := ctx.Uploader.Buffer(name+" vertices", common.SliceToBytes(vertices), gpu.BufferUsageVertex)
	if err != nil {
		return nil, gpu.NewAllocationError(name+" vertex buffer", err)
	}
	undo.Add(func() { ctx.Device.DestroyBuffer(vertexBuffer) })

	indexBuffer, err := ctx.Uploader.Buffer(name+" indices", common.SliceToBytes(indices), gpu.BufferUsageIndex)
	if err != nil {
		return nil, gpu.NewAllocationError(name+" index buffer", err)
	}
	undo.Add(func() { ctx.Device.DestroyBuffer(indexBuffer) })

	var groupOptions []descriptor.GroupBuilderOption
	var texture *upload.Texture
	if kind == shader.Textured {
		texture, err = ctx.Uploader.Texture(name, upload.TextureSource{
			Pixels:      obj.Texture(),
			SingleLevel: ctx.SingleLevelTextures,
		})
		if err != nil {
			return nil, err
		}
		undo.Add(func() { texture.Destroy(ctx.Device) })
		groupOptions = append(groupOptions, descriptor.WithTexture(descriptor.TextureBinding{
			View:    texture.View,
			Sampler: texture.Sampler,
		}))
	}

	group, err := descriptor.NewGroup(ctx.Device, variant.SetLayout, ctx.ImageCount,
		append(groupOptions, descriptor.WithLabel(name))...)
	if err != nil {
		return nil, err
	}

	m, err := Construct(Parts{
		Device:       ctx.Device,
		Name:         name,
		Index:        index,
		Kind:         kind,
		Object:       obj,
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		IndexCount:   uint32(len(indices)),
		Texture:      texture,
		Descriptors:  group,
	})
	if err != nil {
		group.Destroy()
		return nil, err
	}
	undo.Disarm()

	if ctx.Logger != nil {
		ctx.Logger.Debug("built resource bundle",
			slog.String("component", "model"),
			slog.String("name", name),
			slog.String("kind", kind.String()),
			slog.Int("vertices", len(vertices)),
			slog.Int("indices", len(indices)),
		)
	}
	return m, nil
}

// Parts are the separately built pieces of a bundle.
type Parts struct {
	Device       gpu.Device
	Name         string
	Index        int
	Kind         shader.Kind
	Object       object.Object
	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer
	IndexCount   uint32
	Texture      *upload.Texture
	Descriptors  descriptor.Group
}

// Construct assembles a bundle from parts. Ownership of the parts passes to the bundle only
// on success.
//
// Parameters:
//   - parts: the pieces
//
// Returns:
//   - Model: the bundle
//   - error: gpu.ErrInvalidBundle (wrapped) if any required part is missing or unallocated
func Construct(parts Parts) (Model, error) {
	var missing string
	switch {
	case parts.Device == nil:
		missing = "device"
	case parts.VertexBuffer == 0:
		missing = "vertex buffer"
	case parts.IndexBuffer == 0 || parts.IndexCount == 0:
		missing = "index buffer"
	case parts.Descriptors == nil || !parts.Descriptors.Allocated():
		missing = "descriptor sets"
	case parts.Kind == shader.Textured && (parts.Texture == nil || parts.Texture.Image == 0):
		missing = "texture"
	case parts.Kind == shader.Untextured && parts.Texture != nil:
		return nil, errors.Wrap(gpu.ErrInvalidBundle, "untextured bundle with a texture")
	}
	if missing != "" {
		return nil, errors.Wrapf(gpu.ErrInvalidBundle, "missing %s", missing)
	}
	return &model{
		name:         parts.Name,
		index:        parts.Index,
		kind:         parts.Kind,
		object:       parts.Object,
		device:       parts.Device,
		vertexBuffer: parts.VertexBuffer,
		indexBuffer:  parts.IndexBuffer,
		indexCount:   parts.IndexCount,
		texture:      parts.Texture,
		descriptors:  parts.Descriptors,
	}, nil
}

func (m *model) Name() string                  { return m.name }
func (m *model) Index() int                    { return m.index }
func (m *model) Kind() shader.Kind             { return m.kind }
func (m *model) Object() object.Object         { return m.object }
func (m *model) VertexBuffer() gpu.Buffer      { return m.vertexBuffer }
func (m *model) IndexBuffer() gpu.Buffer       { return m.indexBuffer }
func (m *model) IndexCount() uint32            { return m.indexCount }
func (m *model) Texture() *upload.Texture      { return m.texture }
func (m *model) Descriptors() descriptor.Group { return m.descriptors }

func (m *model) Transforms(position int, elapsed float32, width, height uint32) object.Transforms {
	if m.object == nil {
		return object.IdentityTransforms()
	}
	return object.Evaluate(m.object, position, elapsed, width, height)
}

func (m *model) UpdateUniform(image uint32, transforms object.Transforms) error {
	if m.descriptors == nil {
		return errors.Wrapf(gpu.ErrInvalidBundle, "%s: no descriptor sets", m.name)
	}
	camera := descriptor.Camera{View: transforms.View, Projection: transforms.Projection}
	return m.descriptors.Write(image, camera.Bytes())
}

func (m *model) RecordDraw(cb gpu.CommandBuffer, variant *shader.Variant, image uint32, modelMatrix mgl32.Mat4) {
	m.device.CmdBindPipeline(cb, variant.Pipeline)
	m.device.CmdBindVertexBuffer(cb, m.vertexBuffer)
	m.device.CmdBindIndexBuffer(cb, m.indexBuffer)
	m.device.CmdBindDescriptorSet(cb, variant.PipelineLayout, m.descriptors.Set(image))
	m.device.CmdPushConstants(cb, variant.PipelineLayout, gpu.ShaderStageVertex, 0, common.StructToBytes(&modelMatrix))
	m.device.CmdDrawIndexed(cb, m.indexCount)
}

func (m *model) ReloadSwapchain(imageCount int, layout gpu.DescriptorSetLayout) error {
	var options []descriptor.GroupBuilderOption
	if m.texture != nil {
		options = append(options, descriptor.WithTexture(descriptor.TextureBinding{
			View:    m.texture.View,
			Sampler: m.texture.Sampler,
		}))
	}
	group, err := descriptor.NewGroup(m.device, layout, imageCount, append(options, descriptor.WithLabel(m.name))...)
	if err != nil {
		return err
	}
	if m.descriptors != nil {
		m.descriptors.Destroy()
	}
	m.descriptors = group
	return nil
}

func (m *model) Allocated() bool {
	return m.vertexBuffer != 0 && m.indexBuffer != 0 && m.descriptors != nil && m.descriptors.Allocated()
}

func (m *model) Destroy() {
	if m.descriptors != nil {
		m.descriptors.Destroy()
		m.descriptors = nil
	}
	if m.texture != nil {
		m.texture.Destroy(m.device)
		m.texture = nil
	}
	m.device.DestroyBuffer(m.indexBuffer)
	m.indexBuffer = 0
	m.device.DestroyBuffer(m.vertexBuffer)
	m.vertexBuffer = 0
	m.indexCount = 0
}
