package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController owns the camera's positional state as spherical coordinates around a
// target in a Z-up world: radius, azimuth in the XY plane measured from +X, and elevation
// above that plane.
type CameraController interface {
	// Position returns the world-space camera position.
	Position() mgl32.Vec3

	// Target returns the look-at point.
	Target() mgl32.Vec3

	// SetTarget moves the pivot point; the position follows at the same offset.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Zoom moves the camera toward the target. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: zoom amount scaled by the zoom speed
	Zoom(delta float32)

	// OrbitLeft rotates the camera left around the target by one orbit step.
	OrbitLeft()

	// OrbitRight rotates the camera right around the target by one orbit step.
	OrbitRight()

	// OrbitUp tilts the camera upward by one orbit step, clamped to the elevation bounds.
	OrbitUp()

	// OrbitDown tilts the camera downward by one orbit step, clamped to the elevation bounds.
	OrbitDown()

	// Drag orbits by a mouse movement in pixels scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx: horizontal movement, positive to the right
	//   - dy: vertical movement, positive downward
	Drag(dx, dy float32)

	// Radius returns the distance from the target.
	Radius() float32

	// SetRadius sets the distance from the target, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle in radians.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle in radians.
	Elevation() float32

	// SetElevation sets the vertical angle in radians, clamped to the elevation bounds.
	SetElevation(elevation float32)
}
