package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/swapchain"
)

type fixture struct {
	inst  *gputest.Instance
	dev   *gputest.Device
	ctx   device.DeviceContext
	chain swapchain.SwapchainManager
}

func newFixture(t *testing.T, inst *gputest.Instance) *fixture {
	t.Helper()
	ctx, err := device.NewDeviceContext(inst, 1)
	require.NoError(t, err)
	return &fixture{inst: inst, dev: inst.LastDevice, ctx: ctx, chain: swapchain.NewSwapchainManager(ctx)}
}

func TestFindDepthFormatOnlyD24(t *testing.T) {
	inst := gputest.NewInstance()
	inst.OnlyOptimalFeatures(gpu.FormatFeatureDepthStencilAttachment,
		[]gpu.Format{gpu.FormatD24UnormS8Uint}, DepthCandidates...)
	f := newFixture(t, inst)

	format, err := FindDepthFormat(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, gpu.FormatD24UnormS8Uint, format)
}

func TestFindDepthFormatPriority(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	format, err := FindDepthFormat(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, gpu.FormatD32Sfloat, format)
}

func TestNewRenderTargetsNoDepthFormat(t *testing.T) {
	inst := gputest.NewInstance()
	inst.OnlyOptimalFeatures(gpu.FormatFeatureDepthStencilAttachment, nil, DepthCandidates...)
	f := newFixture(t, inst)

	_, err := NewRenderTargets(f.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrNoSupportedFormat)
	var setup *gpu.SetupError
	assert.ErrorAs(t, err, &setup)
}

func TestRenderPassAttachmentOrder(t *testing.T) {
	desc := RenderPassDesc(gpu.FormatB8G8R8A8Srgb, gpu.FormatD32Sfloat, gpu.SampleCount4)
	require.Len(t, desc.Attachments, 3)

	assert.Equal(t, gpu.SampleCount4, desc.Attachments[0].Samples)
	assert.Equal(t, gpu.FormatB8G8R8A8Srgb, desc.Attachments[0].Format)
	assert.Equal(t, gpu.FormatD32Sfloat, desc.Attachments[1].Format)
	assert.Equal(t, gpu.SampleCount1, desc.Attachments[2].Samples)
	assert.Equal(t, gpu.ImageLayoutPresentSrc, desc.Attachments[2].FinalLayout)
	assert.True(t, desc.Attachments[2].Store)
	assert.Equal(t, 0, desc.Color)
	assert.Equal(t, 1, desc.DepthStencil)
	assert.Equal(t, 2, desc.Resolve)
	require.Len(t, desc.Dependencies, 1)
	assert.Equal(t, gpu.SubpassExternal, desc.Dependencies[0].SrcSubpass)
}

func TestCreateFramebuffersFollowPassOrder(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	state, err := f.chain.Create(800, 600)
	require.NoError(t, err)
	rt, err := NewRenderTargets(f.ctx)
	require.NoError(t, err)

	require.NoError(t, rt.Create(state))
	assert.Len(t, rt.Framebuffers(), state.ImageCount())
	assert.Equal(t, gpu.SampleCount8, rt.Samples())
	assert.Equal(t, state.Extent, rt.Extent())

	for i, fb := range rt.Framebuffers() {
		desc := f.dev.Framebuffers[fb]
		require.Len(t, desc.Attachments, 3)
		assert.Equal(t, state.Views[i], desc.Attachments[AttachmentResolve])
		colorImg := f.dev.Images[f.dev.Views[desc.Attachments[AttachmentColor]].Image]
		assert.Equal(t, gpu.SampleCount8, colorImg.Desc.Samples)
		depthImg := f.dev.Images[f.dev.Views[desc.Attachments[AttachmentDepth]].Image]
		assert.Equal(t, gpu.FormatD32Sfloat, depthImg.Desc.Format)
	}
	assert.Empty(t, f.dev.Violations)

	rt.Destroy()
	f.chain.Destroy(state)
	assert.Zero(t, f.dev.LiveTotal())
	assert.Empty(t, f.dev.Violations)
}

func TestDestroyOrder(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	state, err := f.chain.Create(800, 600)
	require.NoError(t, err)
	rt, err := NewRenderTargets(f.ctx)
	require.NoError(t, err)
	require.NoError(t, rt.Create(state))

	mark := len(f.dev.Calls)
	rt.Destroy()
	lastImage := -1
	for i := mark; i < len(f.dev.Calls); i++ {
		if f.dev.Calls[i] == "DestroyImage" {
			lastImage = i
		}
	}
	firstFramebuffer := f.dev.CallIndex("DestroyFramebuffer", mark)
	renderPass := f.dev.CallIndex("DestroyRenderPass", mark)
	assert.Less(t, lastImage, firstFramebuffer, "attachments go before framebuffers")
	assert.Less(t, firstFramebuffer, renderPass, "framebuffers go before the render pass")

	// destroying twice is harmless
	rt.Destroy()
	assert.Empty(t, f.dev.Violations)
	f.chain.Destroy(state)
}

func TestRecreatedAttachmentsAreNew(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	state, err := f.chain.Create(800, 600)
	require.NoError(t, err)
	rt, err := NewRenderTargets(f.ctx)
	require.NoError(t, err)
	require.NoError(t, rt.Create(state))
	oldFramebuffer := rt.Framebuffer(0)
	oldImages := f.dev.LiveCount(gputest.KindImage)

	rt.Destroy()
	state, err = f.chain.Recreate(state, 1024, 768)
	require.NoError(t, err)
	require.NoError(t, rt.Create(state))

	assert.NotEqual(t, oldFramebuffer, rt.Framebuffer(0))
	assert.Equal(t, oldImages, f.dev.LiveCount(gputest.KindImage), "old attachments must not leak")
	for _, img := range f.dev.Images {
		if img.Swapchain == 0 {
			assert.Equal(t, gpu.Extent2D{Width: 1024, Height: 768}, img.Desc.Extent)
		}
	}
	rt.Destroy()
	f.chain.Destroy(state)
	assert.Empty(t, f.dev.Violations)
}

func TestCreateReleasesOnFramebufferFailure(t *testing.T) {
	f := newFixture(t, gputest.NewInstance())
	state, err := f.chain.Create(800, 600)
	require.NoError(t, err)
	rt, err := NewRenderTargets(f.ctx)
	require.NoError(t, err)

	f.dev.FailNext(gputest.KindFramebuffer, nil)
	f.dev.FailNext(gputest.KindFramebuffer, gpu.ErrOutOfMemory)
	err = rt.Create(state)
	require.Error(t, err)
	var alloc *gpu.AllocationError
	assert.ErrorAs(t, err, &alloc)

	f.chain.Destroy(state)
	assert.Zero(t, f.dev.LiveTotal())
	assert.Empty(t, f.dev.Violations)
}
