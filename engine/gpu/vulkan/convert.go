package vulkan

import (
	"encoding/binary"
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// cstr returns s NUL-terminated, as vulkan-go expects for every name it passes to C.
func cstr(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func cstrs(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = cstr(n)
	}
	return out
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func extentFromVk(e vk.Extent2D) gpu.Extent2D {
	return gpu.Extent2D{Width: e.Width, Height: e.Height}
}

func extentToVk(e gpu.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

// spirvWords decodes little-endian SPIR-V bytes into words. The copy keeps the words
// aligned regardless of how the byte slice was allocated.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

// sharing returns the sharing mode and family list for a resource used by families.
// Duplicates collapse, and a single distinct family means exclusive ownership.
func sharing(families []uint32) (vk.SharingMode, []uint32) {
	var distinct []uint32
	for _, f := range families {
		seen := false
		for _, d := range distinct {
			if d == f {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, f)
		}
	}
	if len(distinct) < 2 {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, distinct
}

// memoryTypeIndex picks the first memory type allowed by typeBits that has every flag in want.
func memoryTypeIndex(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && props.MemoryTypes[i].PropertyFlags&want == want {
			return i, true
		}
	}
	return 0, false
}

func subresourceRange(aspect gpu.ImageAspect, baseLevel, levels uint32) vk.ImageSubresourceRange {
	if levels == 0 {
		levels = 1
	}
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(aspect),
		BaseMipLevel:   baseLevel,
		LevelCount:     levels,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}
