// Package camera produces view and projection matrices for object transform callbacks.
package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-vk/engine/object"
)

// ModelFunc returns the model matrix of the object at its draw-list index, elapsed seconds
// after the renderer started.
type ModelFunc func(index int, elapsed float32) mgl32.Mat4

type cameraImpl struct {
	mu sync.Mutex

	eye    mgl32.Vec3
	center mgl32.Vec3
	up     mgl32.Vec3

	fov  float32
	near float32
	far  float32

	controller CameraController
}

// Camera is a perspective camera for a right-handed, Z-up world. The projection maps depth
// to [0, 1] and flips Y for Vulkan clip space.
//
// When a CameraController is attached, the eye and center come from it; otherwise the
// values set with WithEye and WithCenter are used.
type Camera interface {
	// Eye returns the camera position.
	Eye() mgl32.Vec3

	// Center returns the look-at point.
	Center() mgl32.Vec3

	// Up returns the up vector.
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// View returns the current view matrix.
	View() mgl32.Mat4

	// Projection returns the projection matrix for a width x height target. A zero height
	// is treated as an aspect ratio of one.
	//
	// Parameters:
	//   - width, height: the swapchain extent in pixels
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection(width, height uint32) mgl32.Mat4

	// Transforms combines model with the current view and projection.
	//
	// Parameters:
	//   - model: the model matrix
	//   - width, height: the swapchain extent in pixels
	//
	// Returns:
	//   - object.Transforms: the matrices for one frame
	Transforms(model mgl32.Mat4, width, height uint32) object.Transforms

	// TransformFunc adapts the camera into an object transform callback. A nil model
	// function yields the identity model matrix.
	//
	// Parameters:
	//   - model: computes the per-object model matrix
	//
	// Returns:
	//   - object.TransformFunc: the callback to pass to object.WithTransform
	TransformFunc(model ModelFunc) object.TransformFunc

	// Controller returns the attached controller or nil.
	Controller() CameraController

	// SetController attaches a controller. Nil detaches it.
	SetController(ctrl CameraController)

	// SetEye sets the camera position used when no controller is attached.
	SetEye(eye mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at (6, 0, 2) looking at the origin with Z up, a 45 degree
// field of view and clip planes at 0.1 and 10.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		eye:    mgl32.Vec3{6, 0, 2},
		center: mgl32.Vec3{0, 0, 0},
		up:     mgl32.Vec3{0, 0, 1},
		fov:    mgl32.DegToRad(45),
		near:   0.1,
		far:    10,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	eye, _ := c.lookAt()
	return eye
}

func (c *cameraImpl) Center() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, center := c.lookAt()
	return center
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	eye, center := c.lookAt()
	return mgl32.LookAtV(eye, center, c.up)
}

func (c *cameraImpl) Projection(width, height uint32) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	return Perspective(c.fov, aspect, c.near, c.far)
}

func (c *cameraImpl) Transforms(model mgl32.Mat4, width, height uint32) object.Transforms {
	return object.Transforms{
		Model:      model,
		View:       c.View(),
		Projection: c.Projection(width, height),
	}
}

func (c *cameraImpl) TransformFunc(model ModelFunc) object.TransformFunc {
	return func(index int, elapsed float32, width, height uint32) object.Transforms {
		m := mgl32.Ident4()
		if model != nil {
			m = model(index, elapsed)
		}
		return c.Transforms(m, width, height)
	}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) SetEye(eye mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = eye
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

// lookAt returns the eye and center, read from the controller when one is attached.
// Caller must hold the mutex.
func (c *cameraImpl) lookAt() (mgl32.Vec3, mgl32.Vec3) {
	if c.controller == nil {
		return c.eye, c.center
	}
	return c.controller.Position(), c.controller.Target()
}

// Perspective builds a right-handed perspective projection with depth mapped to [0, 1] and
// the Y axis flipped, the clip space Vulkan expects.
//
// Parameters:
//   - fovy: the vertical field of view in radians
//   - aspect: width / height
//   - near, far: the clip plane distances
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	f := 1 / math32.Tan(fovy/2)
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = -f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = near * far / (near - far)
	return m
}
