package arbor

// Layer is a node that starts a render layer. Every renderer below it, down to
// the next nested layer, is drawn in one render list per render task, sorted
// by the layer's behavior.
type Layer struct {
	Node

	behavior          LayerBehavior
	clipping          bool
	clippingBox       Rect
	depthTestDisabled bool

	// Filled during node update, consumed by instruction preparation in the
	// same frame.
	renderables     []renderable
	hasClipping     bool
	transformsDirty bool

	// transformsClean[buf] is true when nothing under the layer moved in the
	// frame that wrote buf.
	transformsClean DoubleBuffered[bool]
}

// NewLayer creates a detached 2D layer.
func NewLayer(name string) *Layer {
	l := &Layer{}
	initNode(&l.Node, name)
	l.Node.layer = l
	return l
}

// AsNode returns the layer's node for tree operations.
func (l *Layer) AsNode() *Node { return &l.Node }

// SetBehavior selects 2D or 3D sorting. Update stage only.
func (l *Layer) SetBehavior(b LayerBehavior) {
	if l.behavior != b {
		l.behavior = b
		l.markDirty(SortModifierFlag)
	}
}

// Behavior returns whether the layer sorts as 2D or 3D.
func (l *Layer) Behavior() LayerBehavior { return l.behavior }

// SetClippingBox restricts drawing of the layer to box in window coordinates.
// An empty box disables layer clipping.
func (l *Layer) SetClippingBox(box Rect) {
	l.clippingBox = box
	l.clipping = !box.Empty()
}

// ClippingBox returns the clipping box and whether it is enabled.
func (l *Layer) ClippingBox() (Rect, bool) { return l.clippingBox, l.clipping }

// SetDepthTestDisabled stops the layer from using the depth buffer.
func (l *Layer) SetDepthTestDisabled(v bool) { l.depthTestDisabled = v }

// DepthTestDisabled reports whether the layer skips the depth buffer.
func (l *Layer) DepthTestDisabled() bool { return l.depthTestDisabled }

// beginFrame clears the per-frame collections.
func (l *Layer) beginFrame() {
	clear(l.renderables)
	l.renderables = l.renderables[:0]
	l.hasClipping = false
	l.transformsDirty = false
}

// endFrame records whether anything below the layer changed in buf.
func (l *Layer) endFrame(buf BufferIndex) {
	l.transformsClean.Set(buf, !l.transformsDirty)
}

// canReuseRenderers reports whether the layer's content was static over both
// generations, so last frame's sorted list is still valid.
func (l *Layer) canReuseRenderers(buf BufferIndex) bool {
	return l.transformsClean.Get(buf) && l.transformsClean.Get(buf.Other())
}
