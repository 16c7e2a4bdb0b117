package shader

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
)

// DefaultDir is the directory the cache loads SPIR-V from when no ModuleSource is configured.
const DefaultDir = "assets/shaders"

// Variant is the GPU state shared by every bundle of one Kind. The cache owns it; bundles
// refer to it by Kind and resolve it at record time, so Pipeline may change between frames.
type Variant struct {
	Kind           Kind
	SetLayout      gpu.DescriptorSetLayout
	PipelineLayout gpu.PipelineLayout
	Pipeline       gpu.Pipeline
}

// ShaderVariantCache lazily builds one Variant per Kind and rebuilds their pipelines when
// the render target changes. It is not safe for concurrent use.
type ShaderVariantCache interface {
	// Get returns the cached variant of kind, building it against target on first use.
	//
	// Parameters:
	//   - kind: the variant
	//   - target: render pass, extent and samples for a new pipeline
	//
	// Returns:
	//   - *Variant: the variant
	//   - error: error if loading SPIR-V or creating any object fails; nothing is cached then
	Get(kind Kind, target pipeline.Target) (*Variant, error)

	// Lookup returns the variant of kind if it has been built.
	Lookup(kind Kind) (*Variant, bool)

	// ReloadSwapchain rebuilds the pipeline of every cached variant against target. Set and
	// pipeline layouts are kept. On error the previous pipelines stay in place.
	//
	// Parameters:
	//   - target: the new render pass, extent and samples
	//
	// Returns:
	//   - error: error if any pipeline could not be rebuilt
	ReloadSwapchain(target pipeline.Target) error

	// Reload re-reads the SPIR-V of every cached variant and rebuilds its pipeline against
	// the last target. On error the previous pipelines stay in place.
	Reload() error

	// Len returns the number of cached variants.
	Len() int

	// Destroy releases pipelines, then pipeline layouts, then set layouts. Bundles using the
	// set layouts must already be destroyed.
	Destroy()
}

// shaderVariantCache is the implementation of the ShaderVariantCache interface.
type shaderVariantCache struct {
	device gpu.Device
	source ModuleSource
	logger *slog.Logger

	// pipelineOptions are applied after the vertex layout and push constant range.
	pipelineOptions []pipeline.PipelineBuilderOption

	variants map[Kind]*Variant
	order    []Kind
	target   pipeline.Target
}

var _ ShaderVariantCache = &shaderVariantCache{}

// NewShaderVariantCache creates an empty cache on the context's device.
//
// Parameters:
//   - ctx: the device context
//   - options: functional options
//
// Returns:
//   - ShaderVariantCache: the cache
func NewShaderVariantCache(ctx device.DeviceContext, options ...ShaderVariantCacheBuilderOption) ShaderVariantCache {
	c := &shaderVariantCache{
		device:   ctx.Device(),
		logger:   ctx.Logger(),
		variants: make(map[Kind]*Variant, len(Kinds)),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.source == nil {
		c.source = NewDirSource(DefaultDir)
	}
	c.logger = c.logger.With(slog.String("component", "shader"))
	return c
}

// describe returns the fixed-function description of kind's pipeline.
func (c *shaderVariantCache) describe(kind Kind) pipeline.Pipeline {
	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexLayout(object.VertexLayout()),
		pipeline.WithPushConstant(gpu.ShaderStageVertex, 0, ModelPushConstantSize),
	}
	return pipeline.NewPipeline(kind.String(), append(opts, c.pipelineOptions...)...)
}

func (c *shaderVariantCache) Get(kind Kind, target pipeline.Target) (*Variant, error) {
	if v, ok := c.variants[kind]; ok {
		return v, nil
	}

	var undo gpu.Cleanup
	defer undo.Run()

	setLayout, err := c.device.CreateDescriptorSetLayout(Bindings(kind))
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s descriptor set layout", kind)
	}
	undo.Add(func() { c.device.DestroyDescriptorSetLayout(setLayout) })

	pipelineLayout, err := c.device.CreatePipelineLayout(gpu.PipelineLayoutDesc{
		SetLayouts:    []gpu.DescriptorSetLayout{setLayout},
		PushConstants: c.describe(kind).PushConstants(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s pipeline layout", kind)
	}
	undo.Add(func() { c.device.DestroyPipelineLayout(pipelineLayout) })

	handle, err := c.build(kind, pipelineLayout, target)
	if err != nil {
		return nil, err
	}
	undo.Disarm()

	v := &Variant{Kind: kind, SetLayout: setLayout, PipelineLayout: pipelineLayout, Pipeline: handle}
	c.variants[kind] = v
	c.order = append(c.order, kind)
	c.target = target
	c.logger.Debug("built shader variant", slog.String("kind", kind.String()))
	return v, nil
}

// build loads both stages of kind, wraps them in modules for the lifetime of one pipeline
// creation and builds the pipeline.
func (c *shaderVariantCache) build(kind Kind, layout gpu.PipelineLayout, target pipeline.Target) (gpu.Pipeline, error) {
	vert, err := c.source.Load(kind, ShaderTypeVertex)
	if err != nil {
		return 0, err
	}
	frag, err := c.source.Load(kind, ShaderTypeFragment)
	if err != nil {
		return 0, err
	}

	vertModule, err := c.device.CreateShaderModule(vert.Code())
	if err != nil {
		return 0, errors.Wrapf(err, "creating module %s", vert.Key())
	}
	defer c.device.DestroyShaderModule(vertModule)
	fragModule, err := c.device.CreateShaderModule(frag.Code())
	if err != nil {
		return 0, errors.Wrapf(err, "creating module %s", frag.Key())
	}
	defer c.device.DestroyShaderModule(fragModule)

	return c.describe(kind).Build(c.device, pipeline.Stages{
		VertexModule:   vertModule,
		FragmentModule: fragModule,
		Layout:         layout,
	}, target)
}

func (c *shaderVariantCache) Lookup(kind Kind) (*Variant, bool) {
	v, ok := c.variants[kind]
	return v, ok
}

func (c *shaderVariantCache) ReloadSwapchain(target pipeline.Target) error {
	rebuilt := make([]gpu.Pipeline, 0, len(c.order))
	for _, kind := range c.order {
		handle, err := c.build(kind, c.variants[kind].PipelineLayout, target)
		if err != nil {
			for _, p := range rebuilt {
				c.device.DestroyPipeline(p)
			}
			return errors.Wrapf(err, "rebuilding %s pipeline", kind)
		}
		rebuilt = append(rebuilt, handle)
	}
	for i, kind := range c.order {
		v := c.variants[kind]
		c.device.DestroyPipeline(v.Pipeline)
		v.Pipeline = rebuilt[i]
	}
	c.target = target
	c.logger.Debug("rebuilt pipelines",
		slog.Int("variants", len(c.order)),
		slog.Any("extent", target.Extent),
	)
	return nil
}

func (c *shaderVariantCache) Reload() error {
	if len(c.order) == 0 {
		return nil
	}
	if err := c.ReloadSwapchain(c.target); err != nil {
		return errors.Wrap(err, "reloading shaders")
	}
	c.logger.Info("shaders reloaded", slog.Int("variants", len(c.order)))
	return nil
}

func (c *shaderVariantCache) Len() int {
	return len(c.variants)
}

func (c *shaderVariantCache) Destroy() {
	for _, kind := range c.order {
		c.device.DestroyPipeline(c.variants[kind].Pipeline)
	}
	for _, kind := range c.order {
		c.device.DestroyPipelineLayout(c.variants[kind].PipelineLayout)
	}
	for _, kind := range c.order {
		c.device.DestroyDescriptorSetLayout(c.variants[kind].SetLayout)
	}
	c.variants = make(map[Kind]*Variant, len(Kinds))
	c.order = nil
}
