package vulkan

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// counter hands out handles that are unique across every registry sharing it, so a stale
// handle of one kind can never alias a live object of another.
type counter struct {
	next gpu.Handle
}

func (c *counter) take() gpu.Handle {
	c.next++
	return c.next
}

// registry maps the opaque handles of the gpu package to native Vulkan objects of one kind.
type registry[T any] struct {
	ids   *counter
	items map[gpu.Handle]T
}

func newRegistry[T any](ids *counter) registry[T] {
	return registry[T]{ids: ids, items: make(map[gpu.Handle]T)}
}

func (r *registry[T]) add(v T) gpu.Handle {
	h := r.ids.take()
	r.items[h] = v
	return h
}

func (r *registry[T]) get(h gpu.Handle) (T, bool) {
	v, ok := r.items[h]
	return v, ok
}

// must returns the object for h or the zero value, which Vulkan treats as VK_NULL_HANDLE.
func (r *registry[T]) must(h gpu.Handle) T {
	return r.items[h]
}

func (r *registry[T]) remove(h gpu.Handle) (T, bool) {
	v, ok := r.items[h]
	if ok {
		delete(r.items, h)
	}
	return v, ok
}

func (r *registry[T]) len() int {
	return len(r.items)
}
