package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
)

func TestDemoSceneShapes(t *testing.T) {
	cam := camera.NewCamera()
	objects, err := demoScene(cam, nil)
	require.NoError(t, err)

	kinds := make([]object.Kind, 0, len(objects))
	for _, obj := range objects {
		kinds = append(kinds, obj.Kind())
		assert.Nil(t, obj.Texture())
		assert.NotNil(t, obj.Transform())
	}
	assert.Equal(t, []object.Kind{
		object.KindCube, object.KindRectangle, object.KindTriangle, object.KindSphere, object.KindCircle,
	}, kinds)
}

func TestDemoSceneTexturesCubeAndFloor(t *testing.T) {
	tex := &common.DecodedTexture{Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}}
	objects, err := demoScene(camera.NewCamera(), []*common.DecodedTexture{tex})
	require.NoError(t, err)

	assert.Same(t, tex, objects[0].Texture())
	assert.Same(t, tex, objects[1].Texture())
	assert.Nil(t, objects[2].Texture())
}

func TestSpinTranslatesThenRotates(t *testing.T) {
	m := spin(mgl32.Vec3{1, 2, 3}, 1)(0, 0)
	assert.True(t, m.ApproxEqual(mgl32.Translate3D(1, 2, 3)))
}
