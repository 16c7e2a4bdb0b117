package main

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/loader"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
)

// spin rotates an object about the Y axis at speed radians per second, after moving it to offset.
func spin(offset mgl32.Vec3, speed float32) camera.ModelFunc {
	return func(_ int, elapsed float32) mgl32.Mat4 {
		return mgl32.Translate3D(offset.X(), offset.Y(), offset.Z()).Mul4(mgl32.HomogRotate3DY(elapsed * speed))
	}
}

func still(offset mgl32.Vec3) camera.ModelFunc {
	return func(int, float32) mgl32.Mat4 {
		return mgl32.Translate3D(offset.X(), offset.Y(), offset.Z())
	}
}

// demoScene builds the generated shapes shown at startup. The first texture, when one was
// loaded, goes on the cube and the floor.
func demoScene(cam camera.Camera, textures []*common.DecodedTexture) ([]object.Object, error) {
	var tex *common.DecodedTexture
	if len(textures) > 0 {
		tex = textures[0]
	}
	textured := func(model camera.ModelFunc) []object.ObjectBuilderOption {
		opts := []object.ObjectBuilderOption{object.WithTransform(cam.TransformFunc(model))}
		if tex != nil {
			opts = append(opts, object.WithTexture(tex))
		}
		return opts
	}
	white := mgl32.Vec3{1, 1, 1}

	objects := []object.Object{
		object.CubeFrom(
			object.NewVertex(mgl32.Vec3{-0.5, -0.5, -0.5}, white, mgl32.Vec2{0, 0}),
			1, 1, 1,
			textured(spin(mgl32.Vec3{0, 0.5, 0}, 0.8))...,
		),
		object.RectangleFrom(
			object.NewVertex(mgl32.Vec3{-4, 0, -4}, mgl32.Vec3{0.4, 0.4, 0.45}, mgl32.Vec2{0, 0}),
			8, 8,
			textured(still(mgl32.Vec3{}))...,
		),
		object.TriangleFrom(
			object.NewVertex(mgl32.Vec3{-0.5, 0, 0}, mgl32.Vec3{1, 0.3, 0.2}, mgl32.Vec2{0, 0}),
			1, 1,
			object.WithTransform(cam.TransformFunc(spin(mgl32.Vec3{-2.5, 0.5, 0}, -1.2))),
		),
	}

	sphere, err := object.Sphere(
		object.NewVertex(mgl32.Vec3{}, mgl32.Vec3{0.2, 0.6, 1}, mgl32.Vec2{}),
		16, 32,
		object.WithTransform(cam.TransformFunc(spin(mgl32.Vec3{2.5, 0.5, 0}, 0.5))),
	)
	if err != nil {
		return nil, errors.Wrap(err, "building sphere")
	}
	circle, err := object.Circle(
		object.NewVertex(mgl32.Vec3{}, mgl32.Vec3{1, 0.85, 0.2}, mgl32.Vec2{}),
		0.6, 48,
		object.WithTransform(cam.TransformFunc(spin(mgl32.Vec3{0, 1.5, -2.5}, 1.5))),
	)
	if err != nil {
		return nil, errors.Wrap(err, "building circle")
	}
	return append(objects, sphere, circle), nil
}

// meshObjects loads every configured OBJ file, spacing them along the X axis behind the demo shapes.
func meshObjects(ld loader.Loader, cam camera.Camera, paths []string, tex *common.DecodedTexture) ([]object.Object, error) {
	out := make([]object.Object, 0, len(paths))
	for i, path := range paths {
		offset := mgl32.Vec3{float32(i)*2 - float32(len(paths)-1), 0.5, -4}
		opts := []object.ObjectBuilderOption{object.WithTransform(cam.TransformFunc(spin(offset, 0.3)))}
		if tex != nil {
			opts = append(opts, object.WithTexture(tex))
		}
		obj, err := ld.Mesh(path, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "loading mesh %s", path)
		}
		out = append(out, obj)
	}
	return out, nil
}
