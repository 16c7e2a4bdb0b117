package shader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
)

// ShaderVariantCacheBuilderOption is a functional option for configuring shaderVariantCache.
type ShaderVariantCacheBuilderOption func(c *shaderVariantCache)

// WithModuleSource sets where SPIR-V is read from.
//
// Parameters:
//   - source: the module source
//
// Returns:
//   - ShaderVariantCacheBuilderOption: option function to apply
func WithModuleSource(source ModuleSource) ShaderVariantCacheBuilderOption {
	return func(c *shaderVariantCache) {
		c.source = source
	}
}

// WithDir reads SPIR-V from dir on disk.
func WithDir(dir string) ShaderVariantCacheBuilderOption {
	return WithModuleSource(NewDirSource(dir))
}

// WithLogger overrides the logger inherited from the device context.
func WithLogger(logger *slog.Logger) ShaderVariantCacheBuilderOption {
	return func(c *shaderVariantCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPipelineOptions appends fixed-function options applied to every variant's pipeline,
// e.g. pipeline.WithCullMode(gpu.CullModeNone) for double-sided geometry.
//
// Parameters:
//   - opts: pipeline builder options
//
// Returns:
//   - ShaderVariantCacheBuilderOption: option function to apply
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) ShaderVariantCacheBuilderOption {
	return func(c *shaderVariantCache) {
		c.pipelineOptions = append(c.pipelineOptions, opts...)
	}
}
