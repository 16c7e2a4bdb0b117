// Package config loads the YAML file that drives the oxyvk bootstrap and converts it into
// builder options for the renderer and the asset loader.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/loader"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/swapchain"
)

// Present mode names accepted by renderer.present_mode.
const (
	PresentModeLowLatency = "low_latency"
	PresentModeVSync      = "vsync"
	PresentModeImmediate  = "immediate"
)

// Config is the root of the configuration file.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
	Assets   AssetsConfig   `yaml:"assets"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type RendererConfig struct {
	Validation bool `yaml:"validation"`
	// VSync forces FIFO presentation and overrides PresentMode.
	VSync        bool       `yaml:"vsync"`
	PresentMode  string     `yaml:"present_mode"`
	MaxMSAA      int        `yaml:"max_msaa"`
	ClearColor   [4]float32 `yaml:"clear_color"`
	ShaderDir    string     `yaml:"shader_dir"`
	MipLevels    bool       `yaml:"mip_levels"`
	WatchShaders bool       `yaml:"watch_shaders"`
}

type EngineConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
	Profiler      bool          `yaml:"profiler"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AssetsConfig struct {
	Textures []string `yaml:"textures"`
	Meshes   []string `yaml:"meshes"`
	Workers  int      `yaml:"workers"`
	// MaxTextureSize downscales decoded textures whose larger side exceeds it. Zero keeps
	// the source size.
	MaxTextureSize uint32 `yaml:"max_texture_size"`
}

// Default returns the configuration used when no file is given. Load starts from it, so
// keys missing from a file keep these values.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxyvk",
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			PresentMode: PresentModeLowLatency,
			MaxMSAA:     64,
			ClearColor:  renderer.DefaultClearColor,
			MipLevels:   true,
		},
		Engine: EngineConfig{
			FrameInterval: 16 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and validates the configuration file at path.
//
// Parameters:
//   - path: the YAML file to read
//
// Returns:
//   - Config: the defaults overlaid with the file's values
//   - error: error if the file cannot be read, parsed or fails validation
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys are rejected
// so typos do not silently fall back to a default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every value that would otherwise fail later inside the renderer.
func (c Config) Validate() error {
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return errors.Errorf("window size %dx%d must not be negative", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MaxMSAA < 1 || c.Renderer.MaxMSAA > 64 || bits.OnesCount(uint(c.Renderer.MaxMSAA)) != 1 {
		return errors.Errorf("max_msaa %d must be a power of two between 1 and 64", c.Renderer.MaxMSAA)
	}
	switch c.Renderer.PresentMode {
	case PresentModeLowLatency, PresentModeVSync, PresentModeImmediate:
	default:
		return errors.Errorf("unknown present_mode %q", c.Renderer.PresentMode)
	}
	for i, ch := range c.Renderer.ClearColor {
		if ch < 0 || ch > 1 {
			return errors.Errorf("clear_color[%d] = %g is outside [0, 1]", i, ch)
		}
	}
	if c.Renderer.WatchShaders && c.Renderer.ShaderDir == "" {
		return errors.New("watch_shaders requires shader_dir")
	}
	if c.Engine.FrameInterval <= 0 {
		return errors.Errorf("frame_interval %s must be positive", c.Engine.FrameInterval)
	}
	if c.Assets.Workers < 0 {
		return errors.Errorf("assets.workers %d must not be negative", c.Assets.Workers)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name (debug, info, warn, error, case-insensitive) to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, errors.Wrapf(err, "log level %q", name)
	}
	return level, nil
}

// Level returns the configured log level. Validate has already rejected unknown names.
func (c Config) Level() slog.Level {
	level, _ := ParseLevel(c.Log.Level)
	return level
}

// PresentPreference resolves vsync and present_mode into a swapchain preference.
func (c Config) PresentPreference() swapchain.PresentPreference {
	if c.Renderer.VSync {
		return swapchain.PresentVSync
	}
	switch c.Renderer.PresentMode {
	case PresentModeVSync:
		return swapchain.PresentVSync
	case PresentModeImmediate:
		return swapchain.PresentImmediate
	default:
		return swapchain.PresentLowLatency
	}
}

// RendererOptions converts the renderer section into renderer builder options.
//
// Parameters:
//   - logger: the base logger handed to the renderer
//
// Returns:
//   - []renderer.RendererBuilderOption: options for renderer.NewRenderer
func (c Config) RendererOptions(logger *slog.Logger) []renderer.RendererBuilderOption {
	opts := []renderer.RendererBuilderOption{
		renderer.WithLogger(logger),
		renderer.WithValidation(c.Renderer.Validation),
		renderer.WithMaxSamples(gpu.SampleCount(c.Renderer.MaxMSAA)),
		renderer.WithPresentPreference(c.PresentPreference()),
		renderer.WithClearColor(gpu.ClearColor(c.Renderer.ClearColor)),
		renderer.WithSingleLevelTextures(!c.Renderer.MipLevels),
	}
	if c.Renderer.ShaderDir != "" {
		opts = append(opts, renderer.WithShaderDir(c.Renderer.ShaderDir))
		if c.Renderer.WatchShaders {
			opts = append(opts, renderer.WithShaderWatch(c.Renderer.ShaderDir))
		}
	}
	return opts
}

// LoaderOptions converts the assets section into loader builder options.
func (c Config) LoaderOptions(logger *slog.Logger) []loader.LoaderBuilderOption {
	opts := []loader.LoaderBuilderOption{loader.WithLogger(logger)}
	if c.Assets.Workers > 0 {
		opts = append(opts, loader.WithWorkers(c.Assets.Workers))
	}
	if c.Assets.MaxTextureSize > 0 {
		opts = append(opts, loader.WithMaxDimension(c.Assets.MaxTextureSize))
	}
	return opts
}
