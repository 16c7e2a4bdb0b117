package common

// Virtual key codes for input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace  = 32  // Space bar (ASCII)
	KeyMinus  = 45  // Minus (ASCII)
	KeyEqual  = 61  // Equal / plus (ASCII)
	KeyA      = 65  // A key (ASCII)
	KeyD      = 68  // D key (ASCII)
	KeyR      = 82  // R key (ASCII)
	KeyS      = 83  // S key (ASCII)
	KeyW      = 87  // W key (ASCII)
	KeyEscape = 256 // Escape key
	KeyRight  = 262 // Right arrow
	KeyLeft   = 263 // Left arrow
	KeyDown   = 264 // Down arrow
	KeyUp     = 265 // Up arrow
	KeyF5     = 294 // F5 function key
)
