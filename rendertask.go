package arbor

// RefreshRate controls how often a render task produces an instruction.
type RefreshRate uint8

const (
	// RefreshAlways renders the task every frame.
	RefreshAlways RefreshRate = iota
	// RefreshOnce renders the task in the next frame only.
	RefreshOnce
)

// RenderTask describes one pass drawing some layers through a camera into a
// viewport of a target. Tasks are prepared in the order they were added.
type RenderTask struct {
	id         uint32
	camera     *Camera
	source     *Node
	viewport   Rect
	clearColor Color
	clear      bool
	culling    bool
	refresh    RefreshRate
	pending    bool
	target     ResourceHandle
}

// NewRenderTask creates a task drawing everything below source through
// camera. A nil source draws every layer of the scene. A source inside a
// layer draws the part of that layer below the source and every layer
// nested under it. Culling is enabled and
// the task refreshes every frame.
func NewRenderTask(camera *Camera, source *Node) *RenderTask {
	if camera == nil {
		panic("arbor: render task needs a camera")
	}
	return &RenderTask{
		id:         nextOwnerID(),
		camera:     camera,
		source:     source,
		clearColor: Color{0, 0, 0, 1},
		culling:    true,
	}
}

// ID returns the task identifier.
func (t *RenderTask) ID() uint32 { return t.id }

// Camera returns the camera the task draws through.
func (t *RenderTask) Camera() *Camera { return t.camera }

// Source returns the node drawn by the task, or nil for the whole scene.
func (t *RenderTask) Source() *Node { return t.source }

// Viewport returns the target area in pixels.
func (t *RenderTask) Viewport() Rect { return t.viewport }

// ClearColor returns the color the viewport is cleared to.
func (t *RenderTask) ClearColor() Color { return t.clearColor }

// ClearEnabled reports whether the viewport is cleared before drawing.
func (t *RenderTask) ClearEnabled() bool { return t.clear }

// CullingEnabled reports whether items outside the frustum are skipped.
func (t *RenderTask) CullingEnabled() bool { return t.culling }

// RefreshRate returns the refresh rate.
func (t *RenderTask) RefreshRate() RefreshRate { return t.refresh }

// Target returns the offscreen target, or nil for the screen.
func (t *RenderTask) Target() ResourceHandle { return t.target }

// SetViewport sets the target area in pixels. An empty viewport covers the
// whole target. Update stage only once the task is added.
func (t *RenderTask) SetViewport(r Rect) { t.viewport = r }

// SetClearColor enables clearing the viewport to c before drawing.
func (t *RenderTask) SetClearColor(c Color) {
	t.clearColor = c
	t.clear = true
}

// SetClearEnabled toggles clearing.
func (t *RenderTask) SetClearEnabled(v bool) { t.clear = v }

// SetCullingEnabled toggles frustum culling.
func (t *RenderTask) SetCullingEnabled(v bool) { t.culling = v }

// SetRefreshRate selects continuous or one-shot rendering. RefreshOnce
// re-arms the task for one more frame.
func (t *RenderTask) SetRefreshRate(r RefreshRate) {
	t.refresh = r
	t.pending = r == RefreshOnce
}

// SetTarget directs the task into an offscreen target. Nil draws to the
// screen.
func (t *RenderTask) SetTarget(h ResourceHandle) { t.target = h }

// shouldRender reports whether the task produces an instruction this frame
// and consumes a one-shot refresh.
func (t *RenderTask) shouldRender() bool {
	if t.refresh == RefreshAlways {
		return true
	}
	if t.pending {
		t.pending = false
		return true
	}
	return false
}

// includes reports whether layer l is drawn by the task. When the source is
// an ordinary node, its enclosing layer is drawn but limited to the
// renderables below the source, which is returned as subtree.
func (t *RenderTask) includes(l *Layer) (ok bool, subtree *Node) {
	if t.source == nil || isAncestor(t.source, &l.Node) {
		return true, nil
	}
	if enclosingLayer(t.source) == l {
		return true, t.source
	}
	return false, nil
}

// enclosingLayer returns the nearest layer at or above n.
func enclosingLayer(n *Node) *Layer {
	for p := n; p != nil; p = p.parent {
		if p.layer != nil {
			return p.layer
		}
	}
	return nil
}
