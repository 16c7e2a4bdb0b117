// Command oxyvk opens a window and renders a small demo scene with the Vulkan renderer.
//
// Usage:
//
//	oxyvk [-config oxyvk.yaml] [-validation] [-log-level debug]
//
// Arrow keys and mouse drag orbit the camera, the scroll wheel and -/= zoom, F5 reloads
// shaders from the configured shader directory, Space resets the camera and Escape quits.
package main

import (
	"flag"
	"log/slog"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/config"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/vulkan"
	"github.com/Carmen-Shannon/oxy-vk/engine/loader"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vk/engine/scene"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// Starting orbit of the demo camera; Space returns to it.
const (
	startRadius    = 8
	startElevation = 0.4
	startAzimuth   = 0.6
)

func main() {
	if err := run(); err != nil {
		slog.Error("oxyvk failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	validation := flag.Bool("validation", false, "enable the Vulkan validation layer")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "validation":
			cfg.Renderer.Validation = *validation
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := win.Close(); err != nil {
			logger.Warn("closing window", slog.Any("error", err))
		}
	}()

	inst, err := vulkan.NewInstance(window.InstanceProcAddr(),
		vulkan.WithExtensions(win.RequiredInstanceExtensions()...),
		vulkan.WithValidation(cfg.Renderer.Validation),
		vulkan.WithApplicationName(cfg.Window.Title),
		vulkan.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer inst.Destroy()

	surface, err := inst.CreateSurface(win.CreateSurface)
	if err != nil {
		return err
	}
	defer inst.DestroySurface(surface)

	r, err := renderer.NewRenderer(inst, surface, win.Width(), win.Height(), cfg.RendererOptions(logger)...)
	if err != nil {
		return err
	}
	defer r.Destroy()

	ld := loader.NewLoader(cfg.LoaderOptions(logger)...)
	defer ld.Close()
	textures, err := loadTextures(ld, cfg.Assets.Textures)
	if err != nil {
		return err
	}

	cam := camera.NewCamera(
		camera.WithFov(float32(45*math.Pi/180)),
		camera.WithClipPlanes(0.1, 100),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(startRadius),
			camera.WithTarget(mgl32.Vec3{0, 0.5, 0}),
			camera.WithElevation(startElevation),
			camera.WithAzimuth(startAzimuth),
			camera.WithRadiusBounds(2, 40),
		)),
	)

	objects, err := demoScene(cam, textures)
	if err != nil {
		return err
	}
	var meshTexture *common.DecodedTexture
	if len(textures) > 1 {
		meshTexture = textures[1]
	}
	meshes, err := meshObjects(ld, cam, cfg.Assets.Meshes, meshTexture)
	if err != nil {
		return err
	}
	demo, err := scene.NewScene("demo", cam, r,
		scene.WithObjects(append(objects, meshes...)...),
		scene.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := demo.Clear(); err != nil {
			logger.Warn("clearing scene", slog.Any("error", err))
		}
	}()
	logger.Info("scene ready", slog.Int("objects", demo.Count()))

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithFrameInterval(cfg.Engine.FrameInterval),
		engine.WithProfiling(cfg.Engine.Profiler),
		engine.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	bindInput(win, cam.Controller(), r)
	return eng.Run()
}

// loadTextures decodes the configured textures on the loader's worker pool with a progress bar.
func loadTextures(ld loader.Loader, paths []string) ([]*common.DecodedTexture, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	bar := progressbar.Default(int64(len(paths)), "loading textures")
	defer bar.Close()
	textures, err := ld.Textures(paths, func(string, error) {
		_ = bar.Add(1)
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading textures")
	}
	return textures, nil
}

func bindInput(win window.Window, ctrl camera.CameraController, r renderer.Renderer) {
	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyLeft, common.KeyA:
			ctrl.OrbitLeft()
		case common.KeyRight, common.KeyD:
			ctrl.OrbitRight()
		case common.KeyUp, common.KeyW:
			ctrl.OrbitUp()
		case common.KeyDown, common.KeyS:
			ctrl.OrbitDown()
		case common.KeyEqual:
			ctrl.Zoom(1)
		case common.KeyMinus:
			ctrl.Zoom(-1)
		case common.KeyF5, common.KeyR:
			r.RequestShaderReload()
		case common.KeySpace:
			ctrl.SetAzimuth(startAzimuth)
			ctrl.SetElevation(startElevation)
			ctrl.SetRadius(startRadius)
		}
	})
	win.SetDragCallback(ctrl.Drag)
	win.SetScrollCallback(ctrl.Zoom)
}
