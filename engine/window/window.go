package window

import (
	"log/slog"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
)

// Window provides platform windowing, input event handling and the hooks Vulkan needs to
// present into the window.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized. Minimizing
	// the window reports 0x0.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key code (see common.Key*)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetDragCallback sets the callback for cursor movement while the left or middle mouse
	// button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels since the last event
	SetDragCallback(callback func(dx, dy float32))

	// RequiredInstanceExtensions lists the instance extensions the platform needs to create
	// a presentable surface for this window.
	RequiredInstanceExtensions() []string

	// CreateSurface creates a Vulkan surface for the window.
	//
	// Parameters:
	//   - instance: the vk.Instance the surface belongs to
	//
	// Returns:
	//   - uintptr: the raw VkSurfaceKHR handle
	//   - error: error if the platform cannot create the surface
	CreateSurface(instance any) (uintptr, error)

	// IsRunning returns true if the window is still active.
	IsRunning() bool

	// Quit asks the message loop to stop after the current iteration.
	Quit()

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// ProcessMessages runs the window message loop on the calling goroutine until the window
	// closes, calling the update callback each iteration. While minimized it blocks for
	// events instead of spinning and skips the update callback.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int

	// Minimized reports whether the framebuffer currently has zero area.
	Minimized() bool
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// minWidth and minHeight bound interactive resizing. Zero leaves the bound unset.
	minWidth, minHeight int

	// maxWidth and maxHeight bound interactive resizing. Zero leaves the bound unset.
	maxWidth, maxHeight int

	// width is the current framebuffer width in pixels.
	width int

	// height is the current framebuffer height in pixels.
	height int

	// resizable controls whether the user may resize the window.
	resizable bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow *glfwWindow

	onUpdate func()
	onResize func(width, height int)
	onScroll func(delta float32)

	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)

	// onDrag receives cursor deltas while a drag button is held.
	onDrag func(dx, dy float32)

	logger *slog.Logger
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window. It must be called from the main goroutine,
// which then has to run ProcessMessages; the OS thread is locked for GLFW.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: error if GLFW cannot initialize, lacks Vulkan support or cannot create the window
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxyvk",
		width:     800,
		height:    600,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With(slog.String("component", "window"))

	runtime.LockOSThread()
	if err := newPlatformWindow(w); err != nil {
		return nil, errors.Wrap(err, "creating platform window")
	}
	w.logger.Debug("window created", slog.Int("width", w.width), slog.Int("height", w.height))
	return w, nil
}

// InstanceProcAddr returns the vkGetInstanceProcAddr entry point resolved by the platform
// layer. It is valid once a window has been created.
func InstanceProcAddr() unsafe.Pointer {
	return platformInstanceProcAddr()
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) RequiredInstanceExtensions() []string {
	return platformRequiredExtensions(w)
}

func (w *engineWindow) CreateSurface(instance any) (uintptr, error) {
	return platformCreateSurface(w, instance)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Quit() {
	platformQuit(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}
		if w.Minimized() {
			continue
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) Minimized() bool {
	return w.width == 0 || w.height == 0
}

// resized records a framebuffer size change and forwards it.
func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width, w.height = width, height
	w.logger.Debug("framebuffer resized", slog.Int("width", width), slog.Int("height", height))
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
