package gpu

// Cleanup collects release functions while a multi-part resource is being built and runs
// them in reverse order if construction fails part way.
//
//	var undo gpu.Cleanup
//	defer undo.Run()
//	buf, err := dev.CreateBuffer(...)
//	if err != nil {
//		return nil, err
//	}
//	undo.Add(func() { dev.DestroyBuffer(buf) })
//	...
//	undo.Disarm()
type Cleanup struct {
	fns []func()
}

// Add registers fn to run on Run.
func (c *Cleanup) Add(fn func()) {
	c.fns = append(c.fns, fn)
}

// Run invokes the registered functions last-in first-out and forgets them.
func (c *Cleanup) Run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}

// Disarm forgets the registered functions without running them. Call it once ownership of
// the built resources has passed to the caller.
func (c *Cleanup) Disarm() {
	c.fns = nil
}

// Len returns the number of pending release functions.
func (c *Cleanup) Len() int {
	return len(c.fns)
}
