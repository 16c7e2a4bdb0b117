package renderer

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/object"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
)

func spirvFS() fstest.MapFS {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	fsys := fstest.MapFS{}
	for _, k := range shader.Kinds {
		fsys[shader.FileName(k, shader.ShaderTypeVertex)] = &fstest.MapFile{Data: code}
		fsys[shader.FileName(k, shader.ShaderTypeFragment)] = &fstest.MapFile{Data: code}
	}
	return fsys
}

func newTestRenderer(t *testing.T, width, height int) (Renderer, *gputest.Device) {
	t.Helper()
	inst := gputest.NewInstance()
	epoch := time.Unix(0, 0)
	r, err := NewRenderer(inst, 1, width, height,
		WithShaderSource(shader.NewFSSource(spirvFS())),
		WithClock(func() time.Time { return epoch }),
	)
	require.NoError(t, err)
	return r, inst.LastDevice
}

func triangle() object.Object {
	return object.TriangleFrom(object.NewVertex(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec2{}), 1, 1)
}

func texturedCube() object.Object {
	tex := &common.DecodedTexture{Pixels: make([]byte, 8*8*4), Width: 8, Height: 8}
	return object.CubeFrom(object.NewVertex(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, mgl32.Vec2{}), 1, 1, 1,
		object.WithTexture(tex))
}

func TestNewRendererBuildsFirstGeneration(t *testing.T) {
	r, dev := newTestRenderer(t, 800, 600)

	assert.Equal(t, gpu.Extent2D{Width: 800, Height: 600}, r.Extent())
	assert.False(t, r.Paused())
	assert.Equal(t, 1, dev.LiveCount(gputest.KindSwapchain))
	assert.Equal(t, 1, dev.LiveCount(gputest.KindRenderPass))
	// one transient pool per swapchain image plus the uploader's
	assert.Equal(t, 3+1, dev.LiveCount(gputest.KindCommandPool))
	assert.Equal(t, 2*MaxFramesInFlight, dev.LiveCount(gputest.KindSemaphore))
	assert.Equal(t, MaxFramesInFlight, dev.LiveCount(gputest.KindFence))
	assert.Empty(t, dev.Violations)
}

func TestRenderFrameWithFramesInFlight(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	dev.DeferCompletion = true

	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	_, err = r.AddObject(texturedCube())
	require.NoError(t, err)
	// uploads submit one-shot commands of their own
	uploads := len(dev.Submits)

	for i := 0; i < 12; i++ {
		require.NoError(t, r.RenderFrame())
	}

	assert.Empty(t, dev.Violations)
	assert.Len(t, dev.Presents, 12)
	frames := dev.Submits[uploads:]
	require.Len(t, frames, 12)
	for _, s := range frames {
		require.Len(t, s.Info.CommandBuffers, 1)
		assert.Len(t, s.Info.Wait, 1)
		assert.Equal(t, []gpu.PipelineStage{gpu.PipelineStageColorAttachmentOutput}, s.Info.WaitStages)
		assert.Len(t, s.Info.Signal, 1)
		assert.NotZero(t, s.Fence)
	}
	assert.Equal(t, 1, dev.CountCalls("CreateSwapchain"))
}

func TestRenderFrameRecordsOneSecondaryPerBundleInOrder(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	for _, obj := range []object.Object{triangle(), texturedCube(), triangle()} {
		_, err := r.AddObject(obj)
		require.NoError(t, err)
	}

	require.NoError(t, r.RenderFrame())

	submit, ok := dev.LastSubmit()
	require.True(t, ok)
	primary := submit.Info.CommandBuffers[0]
	assert.Equal(t, []string{"BeginRenderPass", "ExecuteCommands", "EndRenderPass"}, dev.Ops(primary))

	begin, ok := dev.Find(primary, "BeginRenderPass")
	require.True(t, ok)
	pass := begin.Args.(gpu.RenderPassBegin)
	assert.Equal(t, gpu.SubpassContentsSecondaryCommandBuffers, pass.Contents)
	assert.Equal(t, DefaultClearColor, pass.ClearColor)
	assert.Equal(t, float32(1), pass.ClearDepth)

	secondaries := dev.Secondaries(primary)
	bundles := r.Bundles()
	require.Len(t, secondaries, len(bundles))
	for i, cb := range secondaries {
		st := dev.CommandBuffers[cb]
		assert.Equal(t, gpu.CommandBufferLevelSecondary, st.Level)
		require.NotNil(t, st.Begin.Inheritance)
		assert.Equal(t, pass.Framebuffer, st.Begin.Inheritance.Framebuffer)
		assert.NotZero(t, st.Begin.Usage&gpu.CommandBufferUsageRenderPassContinue)

		vb, ok := dev.Find(cb, "BindVertexBuffer")
		require.True(t, ok)
		assert.Equal(t, bundles[i].VertexBuffer(), vb.Args)
	}
	assert.Empty(t, dev.Violations)
}

func TestZeroSizePausesWithoutGPUWork(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())

	r.Resize(0, 0)
	calls := len(dev.Calls)
	submits := len(dev.Submits)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.RenderFrame())
	}
	assert.True(t, r.Paused())
	assert.Len(t, dev.Calls, calls)
	assert.Len(t, dev.Submits, submits)

	r.Resize(1024, 768)
	require.NoError(t, r.RenderFrame())
	assert.False(t, r.Paused())
	assert.Equal(t, gpu.Extent2D{Width: 1024, Height: 768}, r.Extent())
	assert.Len(t, dev.Submits, submits+1)
	assert.Equal(t, 1, dev.LiveCount(gputest.KindSwapchain))
	assert.Empty(t, dev.Violations)
}

func TestStartMinimized(t *testing.T) {
	r, dev := newTestRenderer(t, 0, 0)

	assert.True(t, r.Paused())
	assert.Equal(t, gpu.Extent2D{}, r.Extent())
	assert.Zero(t, dev.LiveCount(gputest.KindSwapchain))
	_, err := r.AddObject(triangle())
	assert.Error(t, err)

	r.Resize(320, 240)
	require.NoError(t, r.RenderFrame())
	assert.Equal(t, gpu.Extent2D{Width: 320, Height: 240}, r.Extent())
	assert.Len(t, dev.Presents, 1)

	_, err = r.AddObject(triangle())
	assert.NoError(t, err)
}

func TestResizeStormRebuildsOnce(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	_, err := r.AddObject(texturedCube())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())
	before := dev.CountCalls("CreateSwapchain")

	for w := 641; w <= 700; w++ {
		r.Resize(w, 480)
	}
	require.NoError(t, r.RenderFrame())

	assert.Equal(t, before+1, dev.CountCalls("CreateSwapchain"))
	assert.Equal(t, gpu.Extent2D{Width: 700, Height: 480}, r.Extent())
	assert.Equal(t, 1, dev.LiveCount(gputest.KindSwapchain))
	assert.Equal(t, 1, dev.LiveCount(gputest.KindRenderPass))
	assert.Equal(t, 3+1, dev.LiveCount(gputest.KindCommandPool))

	require.NoError(t, r.RenderFrame())
	assert.Equal(t, before+1, dev.CountCalls("CreateSwapchain"))
	assert.Empty(t, dev.Violations)
}

func TestStaleAcquireRebuilds(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	before := dev.CountCalls("CreateSwapchain")
	layouts := dev.LiveCount(gputest.KindPipelineLayout)

	dev.AcquireErrors = []error{gpu.ErrSwapchainStale}
	require.NoError(t, r.RenderFrame())
	assert.Equal(t, before+1, dev.CountCalls("CreateSwapchain"))
	assert.Empty(t, dev.Presents)

	require.NoError(t, r.RenderFrame())
	assert.Len(t, dev.Presents, 1)
	assert.Equal(t, layouts, dev.LiveCount(gputest.KindPipelineLayout))
	assert.Empty(t, dev.Violations)
}

func TestPresentResultsRebuild(t *testing.T) {
	tests := []struct {
		name   string
		result gputest.PresentResult
	}{
		{name: "out of date", result: gputest.PresentResult{Err: gpu.ErrSwapchainStale}},
		{name: "suboptimal", result: gputest.PresentResult{Suboptimal: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev := newTestRenderer(t, 640, 480)
			dev.DeferCompletion = true
			_, err := r.AddObject(triangle())
			require.NoError(t, err)
			before := dev.CountCalls("CreateSwapchain")

			dev.PresentResults = []gputest.PresentResult{tt.result}
			require.NoError(t, r.RenderFrame())
			assert.Equal(t, before+1, dev.CountCalls("CreateSwapchain"))

			for i := 0; i < 4; i++ {
				require.NoError(t, r.RenderFrame())
			}
			assert.Equal(t, before+1, dev.CountCalls("CreateSwapchain"))
			assert.Empty(t, dev.Violations)
		})
	}
}

func TestDeviceLostIsFatal(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)

	dev.PresentResults = []gputest.PresentResult{{Err: gpu.ErrDeviceLost}}
	err := r.RenderFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)

	dev.AcquireErrors = []error{gpu.ErrDeviceLost}
	err = r.RenderFrame()
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)
}

func TestAddObjectFailureLeavesOthersDrawing(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	_, err = r.AddObject(texturedCube())
	require.NoError(t, err)
	live := dev.LiveTotal()

	dev.FailNext(gputest.KindBuffer, gpu.ErrOutOfMemory)
	_, err = r.AddObject(texturedCube())
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)
	assert.Len(t, r.Bundles(), 2)
	assert.Equal(t, live, dev.LiveTotal())

	require.NoError(t, r.RenderFrame())
	assert.Empty(t, dev.Violations)
}

func TestRemoveObjectReleasesBundle(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	keep, err := r.AddObject(triangle())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())
	buffers := dev.LiveCount(gputest.KindBuffer)
	pools := dev.LiveCount(gputest.KindDescriptorPool)

	id, err := r.AddObject(texturedCube())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())

	require.NoError(t, r.RemoveObject(id))
	assert.Equal(t, buffers, dev.LiveCount(gputest.KindBuffer))
	assert.Equal(t, pools, dev.LiveCount(gputest.KindDescriptorPool))
	assert.Zero(t, dev.LiveCount(gputest.KindSampler))
	assert.Error(t, r.RemoveObject(id))

	require.Len(t, r.Bundles(), 1)
	require.NoError(t, r.RenderFrame())
	require.NoError(t, r.RemoveObject(keep))
	assert.Empty(t, r.Bundles())
	require.NoError(t, r.RenderFrame())
	assert.Empty(t, dev.Violations)
}

func TestRequestShaderReloadRebuildsPipelines(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())
	created := dev.CountCalls("CreateGraphicsPipeline")

	r.RequestShaderReload()
	require.NoError(t, r.RenderFrame())

	assert.Equal(t, created+1, dev.CountCalls("CreateGraphicsPipeline"))
	assert.Equal(t, 1, dev.LiveCount(gputest.KindPipeline))
	assert.Empty(t, dev.Violations)
}

func TestDestroyReleasesEverything(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	dev.DeferCompletion = true
	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	_, err = r.AddObject(texturedCube())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.RenderFrame())
	}

	r.Destroy()
	r.Destroy()

	assert.Zero(t, dev.LiveTotal())
	assert.Equal(t, 1, dev.CountCalls("DestroyDevice"))
	assert.Empty(t, dev.Violations)
	assert.Error(t, r.RenderFrame())
}

func TestFailedRebuildKeepsBundlesAndStaysFatal(t *testing.T) {
	r, dev := newTestRenderer(t, 640, 480)
	_, err := r.AddObject(triangle())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())

	dev.FailNext(gputest.KindDescriptorPool, gpu.ErrOutOfMemory)
	r.Resize(800, 600)
	err = r.RenderFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)

	require.Len(t, r.Bundles(), 1)
	assert.True(t, r.Bundles()[0].Allocated())

	assert.NotPanics(t, func() { err = r.RenderFrame() })
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)
	_, err = r.AddObject(triangle())
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)

	r.Destroy()
	assert.Zero(t, dev.LiveTotal())
	assert.Empty(t, dev.Violations)
}

func TestTransformsReceiveDrawPosition(t *testing.T) {
	r, _ := newTestRenderer(t, 640, 480)
	var positions []int
	record := object.WithTransform(func(index int, _ float32, _, _ uint32) object.Transforms {
		positions = append(positions, index)
		return object.IdentityTransforms()
	})
	one := object.NewVertex(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec2{})
	var ids []BundleID
	for i := 0; i < 3; i++ {
		id, err := r.AddObject(object.TriangleFrom(one, 1, 1, record))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, r.RenderFrame())
	assert.Equal(t, []int{0, 1, 2}, positions)

	require.NoError(t, r.RemoveObject(ids[0]))
	positions = nil
	require.NoError(t, r.RenderFrame())
	assert.Equal(t, []int{0, 1}, positions)
}

func TestFailedShaderReloadIsLoggedAndKeepsPipelines(t *testing.T) {
	var logs bytes.Buffer
	inst := gputest.NewInstance()
	r, err := NewRenderer(inst, 1, 640, 480,
		WithShaderSource(shader.NewFSSource(spirvFS())),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)
	dev := inst.LastDevice
	_, err = r.AddObject(triangle())
	require.NoError(t, err)
	require.NoError(t, r.RenderFrame())
	pipelines := dev.LiveCount(gputest.KindPipeline)

	dev.FailNext(gputest.KindPipeline, gpu.ErrOutOfMemory)
	r.RequestShaderReload()
	require.NoError(t, r.RenderFrame())

	assert.Contains(t, logs.String(), "shader reload failed")
	assert.Contains(t, logs.String(), "out of memory")
	assert.Equal(t, pipelines, dev.LiveCount(gputest.KindPipeline))
	assert.Empty(t, dev.Violations)
}
