package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const eps = 1e-5

func TestPerspectiveDepthRangeAndFlip(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(90), 2, 1, 10)

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), eps)
	assert.InDelta(t, 1, far.Z()/far.W(), eps)

	// +Y in view space lands at -Y in clip space
	up := proj.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	assert.InDelta(t, -1, up.Y()/up.W(), eps)
	right := proj.Mul4x1(mgl32.Vec4{1, 0, -1, 1})
	assert.InDelta(t, 0.5, right.X()/right.W(), eps)
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()

	assert.Equal(t, mgl32.Vec3{6, 0, 2}, c.Eye())
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, c.Up())
	assert.InDelta(t, mgl32.DegToRad(45), c.Fov(), eps)
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(10), c.Far())

	origin := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, origin.X(), eps)
	assert.InDelta(t, 0, origin.Y(), eps)
	assert.InDelta(t, -math32.Sqrt(40), origin.Z(), eps)
}

func TestProjectionAspect(t *testing.T) {
	c := NewCamera()

	wide := c.Projection(1600, 800)
	square := c.Projection(800, 800)
	assert.InDelta(t, square[0]/2, wide[0], eps)
	assert.Equal(t, square, c.Projection(0, 0))
}

func TestTransformFunc(t *testing.T) {
	c := NewCamera()
	spin := func(index int, elapsed float32) mgl32.Mat4 {
		return mgl32.Translate3D(0, 2*float32(index), 0).Mul4(mgl32.HomogRotate3DZ(math32.Pi * elapsed))
	}
	fn := c.TransformFunc(spin)

	tr := fn(1, 0.5, 800, 600)
	assert.Equal(t, c.View(), tr.View)
	assert.Equal(t, c.Projection(800, 600), tr.Projection)
	moved := tr.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0, moved.X(), eps)
	assert.InDelta(t, 3, moved.Y(), eps)

	identity := c.TransformFunc(nil)(0, 1, 800, 600)
	assert.Equal(t, mgl32.Ident4(), identity.Model)
}

func TestControllerDrivesCamera(t *testing.T) {
	ctrl := NewCameraController()
	c := NewCamera(WithController(ctrl))

	// the default controller reproduces the fixed eye
	assert.True(t, c.Eye().ApproxEqualThreshold(mgl32.Vec3{6, 0, 2}, eps))

	ctrl.SetAzimuth(math32.Pi / 2)
	assert.InDelta(t, 0, c.Eye().X(), 1e-4)
	assert.InDelta(t, 6, c.Eye().Y(), 1e-4)

	ctrl.SetTarget(mgl32.Vec3{1, 1, 1})
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, c.Center())
	assert.InDelta(t, ctrl.Radius(), c.Eye().Sub(c.Center()).Len(), 1e-4)
}

func TestControllerClamps(t *testing.T) {
	ctrl := NewCameraController(WithRadiusBounds(1, 5), WithElevationBounds(0, 1), WithOrbitSpeed(0.75))

	assert.Equal(t, float32(5), ctrl.Radius())
	ctrl.Zoom(100)
	assert.Equal(t, float32(1), ctrl.Radius())
	ctrl.SetRadius(20)
	assert.Equal(t, float32(5), ctrl.Radius())

	ctrl.OrbitUp()
	ctrl.OrbitUp()
	assert.Equal(t, float32(1), ctrl.Elevation())
	ctrl.OrbitDown()
	ctrl.OrbitDown()
	assert.Equal(t, float32(0), ctrl.Elevation())

	before := ctrl.Azimuth()
	ctrl.OrbitRight()
	assert.InDelta(t, before+0.75, ctrl.Azimuth(), eps)
	ctrl.OrbitLeft()
	assert.InDelta(t, before, ctrl.Azimuth(), eps)

	ctrl.Drag(0, 1e6)
	assert.Equal(t, float32(1), ctrl.Elevation())
}
