package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// NodeFlags is the per-frame dirty mask of a node.
type NodeFlags uint16

const (
	NothingFlag      NodeFlags = 0
	TransformFlag    NodeFlags = 1 << 0
	VisibleFlag      NodeFlags = 1 << 1
	ColorFlag        NodeFlags = 1 << 2
	SizeFlag         NodeFlags = 1 << 3
	OverlayFlag      NodeFlags = 1 << 4
	SortModifierFlag NodeFlags = 1 << 5
	ChildDeletedFlag NodeFlags = 1 << 6

	AllFlags = ChildDeletedFlag<<1 - 1

	// inheritedFlags propagate from a node to all of its descendants.
	inheritedFlags = TransformFlag | VisibleFlag | ColorFlag | OverlayFlag
)

// Default property indices of a node.
const (
	NodeParentOrigin PropertyIndex = iota
	NodeAnchorPoint
	NodeSize
	NodePosition
	NodeOrientation
	NodeScale
	NodeVisible
	NodeColor
)

var (
	// ParentOriginCenter places a child's origin at the center of its parent.
	ParentOriginCenter = mgl32.Vec3{0.5, 0.5, 0.5}
	// ParentOriginTopLeft places a child's origin at the top-left of its parent.
	ParentOriginTopLeft = mgl32.Vec3{0, 0, 0.5}
	// AnchorPointCenter anchors a node at its center.
	AnchorPointCenter = mgl32.Vec3{0.5, 0.5, 0.5}
	// AnchorPointTopLeft anchors a node at its top-left corner.
	AnchorPointTopLeft = mgl32.Vec3{0, 0, 0.5}
)

// renderable pairs a node with one of its renderers, collected per frame into
// the node's layer.
type renderable struct {
	node     *Node
	renderer *Renderer
}

// Node is an element of the scene graph. Its local transform, size, color and
// visibility are animatable properties; the world values derived from them
// are double-buffered so the render stage can read the previous frame while
// the update stage writes the next.
//
// A node is created by the producer with NewNode and handed to the update
// stage in a message. From then on only the update stage touches it.
type Node struct {
	PropertyOwner

	parentOrigin *Property
	anchorPoint  *Property
	size         *Property
	position     *Property
	orientation  *Property
	scale        *Property
	visible      *Property
	color        *Property

	worldPosition    DoubleBuffered[mgl32.Vec3]
	worldOrientation DoubleBuffered[mgl32.Quat]
	worldScale       DoubleBuffered[mgl32.Vec3]
	worldMatrix      DoubleBuffered[mgl32.Mat4]
	worldColor       DoubleBuffered[Color]
	worldVisible     DoubleBuffered[bool]

	parent    *Node
	children  []*Node
	renderers []*Renderer
	layer     *Layer
	depth     int
	isRoot    bool

	inheritPosition    bool
	inheritOrientation bool
	inheritScale       bool
	colorMode          ColorMode
	clippingMode       ClippingMode
	clippingID         uint32

	dirtyFlags NodeFlags
	nextFlags  NodeFlags

	relayout relayoutData

	worldInputs map[PropertyIndex]*worldInput
}

// NewNode creates a detached node with default properties.
func NewNode(name string) *Node {
	n := &Node{}
	initNode(n, name)
	return n
}

// NewNodeOfType creates a detached node carrying the properties declared by t
// at stable registration indices.
func NewNodeOfType(name string, t *TypeInfo) *Node {
	n := NewNode(name)
	if t != nil {
		n.setTypeInfo(t)
	}
	return n
}

func initNode(n *Node, name string) {
	n.initOwner(name)
	n.isNode = true
	n.parentOrigin = n.addDefault("parentOrigin", Vector3Value(ParentOriginTopLeft))
	n.anchorPoint = n.addDefault("anchorPoint", Vector3Value(AnchorPointCenter))
	n.size = n.addDefault("size", Vector3Value(mgl32.Vec3{}))
	n.position = n.addDefault("position", Vector3Value(mgl32.Vec3{}))
	n.orientation = n.addDefault("orientation", QuaternionValue(mgl32.QuatIdent()))
	n.scale = n.addDefault("scale", Vector3Value(mgl32.Vec3{1, 1, 1}))
	n.visible = n.addDefault("visible", BoolValue(true))
	n.color = n.addDefault("color", Vector4Value(ColorWhite))

	n.worldOrientation.SetBoth(mgl32.QuatIdent())
	n.worldScale.SetBoth(mgl32.Vec3{1, 1, 1})
	n.worldMatrix.SetBoth(mgl32.Ident4())
	n.worldColor.SetBoth(ColorWhite)
	n.worldVisible.SetBoth(true)

	n.inheritPosition = true
	n.inheritOrientation = true
	n.inheritScale = true
	n.relayout = newRelayoutData()
	n.markDirty(AllFlags)
}

// --- Properties ---

// ParentOrigin returns the point of the parent, in unit size coordinates,
// the node is positioned from.
func (n *Node) ParentOrigin() *Property { return n.parentOrigin }

// AnchorPoint returns the point of the node, in unit size coordinates,
// placed at its position.
func (n *Node) AnchorPoint() *Property { return n.anchorPoint }

// Size returns the size property. Size is not inherited.
func (n *Node) Size() *Property { return n.size }

// Position returns the local position property.
func (n *Node) Position() *Property { return n.position }

// Orientation returns the local rotation property.
func (n *Node) Orientation() *Property { return n.orientation }

// Scale returns the local scale property.
func (n *Node) Scale() *Property { return n.scale }

// Visible returns the visibility flag. A node is hidden when any ancestor is.
func (n *Node) Visible() *Property { return n.visible }

// Color returns the local color property.
func (n *Node) Color() *Property { return n.color }

// --- World values ---

// WorldPosition returns the world position of the node center in
// generation buf.
func (n *Node) WorldPosition(buf BufferIndex) mgl32.Vec3 { return n.worldPosition.Get(buf) }

// WorldOrientation returns the world rotation in generation buf.
func (n *Node) WorldOrientation(buf BufferIndex) mgl32.Quat { return n.worldOrientation.Get(buf) }

// WorldScale returns the world scale in generation buf.
func (n *Node) WorldScale(buf BufferIndex) mgl32.Vec3 { return n.worldScale.Get(buf) }

// WorldColor returns the inherited color in generation buf.
func (n *Node) WorldColor(buf BufferIndex) Color { return n.worldColor.Get(buf) }

// WorldMatrix returns the world matrix of generation buf. It is only kept up
// to date while the node has renderers.
func (n *Node) WorldMatrix(buf BufferIndex) mgl32.Mat4 { return n.worldMatrix.Get(buf) }

// IsVisible reports the inherited visibility of generation buf.
func (n *Node) IsVisible(buf BufferIndex) bool { return n.worldVisible.Get(buf) }

// WorldPositionInput exposes the world position as a constraint input.
func (n *Node) WorldPositionInput() PropertyInput {
	return n.worldInput(-1, KindVector3, func(n *Node, buf BufferIndex) Value {
		return Vector3Value(n.worldPosition.Get(buf))
	})
}

// WorldOrientationInput exposes the world orientation as a constraint input.
func (n *Node) WorldOrientationInput() PropertyInput {
	return n.worldInput(-2, KindQuaternion, func(n *Node, buf BufferIndex) Value {
		return QuaternionValue(n.worldOrientation.Get(buf))
	})
}

// WorldScaleInput exposes the world scale as a constraint input.
func (n *Node) WorldScaleInput() PropertyInput {
	return n.worldInput(-3, KindVector3, func(n *Node, buf BufferIndex) Value {
		return Vector3Value(n.worldScale.Get(buf))
	})
}

// WorldColorInput exposes the world color as a constraint input.
func (n *Node) WorldColorInput() PropertyInput {
	return n.worldInput(-4, KindVector4, func(n *Node, buf BufferIndex) Value {
		return Vector4Value(n.worldColor.Get(buf))
	})
}

// WorldMatrixInput exposes the world matrix as a constraint input.
func (n *Node) WorldMatrixInput() PropertyInput {
	return n.worldInput(-5, KindMatrix, func(n *Node, buf BufferIndex) Value {
		return MatrixValue(n.worldMatrix.Get(buf))
	})
}

func (n *Node) worldInput(key PropertyIndex, kind Kind, get func(*Node, BufferIndex) Value) PropertyInput {
	if w, ok := n.worldInputs[key]; ok {
		return w
	}
	if n.worldInputs == nil {
		n.worldInputs = make(map[PropertyIndex]*worldInput)
	}
	w := &worldInput{node: n, kind: kind, get: get}
	n.worldInputs[key] = w
	return w
}

// --- Inheritance and modes ---

// SetInheritPosition controls whether the parent's world transform moves
// this node. Update stage only.
func (n *Node) SetInheritPosition(v bool) {
	if n.inheritPosition != v {
		n.inheritPosition = v
		n.markDirty(TransformFlag)
	}
}

// SetInheritOrientation controls whether the parent's rotation applies.
func (n *Node) SetInheritOrientation(v bool) {
	if n.inheritOrientation != v {
		n.inheritOrientation = v
		n.markDirty(TransformFlag)
	}
}

// SetInheritScale controls whether the parent's scale applies.
func (n *Node) SetInheritScale(v bool) {
	if n.inheritScale != v {
		n.inheritScale = v
		n.markDirty(TransformFlag)
	}
}

// InheritPosition reports whether the parent transform moves the node.
func (n *Node) InheritPosition() bool { return n.inheritPosition }

// InheritOrientation reports whether the parent rotation applies.
func (n *Node) InheritOrientation() bool { return n.inheritOrientation }

// InheritScale reports whether the parent scale applies.
func (n *Node) InheritScale() bool { return n.inheritScale }

// SetColorMode selects how the world color is derived from the parent.
func (n *Node) SetColorMode(m ColorMode) {
	if n.colorMode != m {
		n.colorMode = m
		n.markDirty(ColorFlag)
	}
}

// ColorMode returns how the world color combines with the parent's.
func (n *Node) ColorMode() ColorMode { return n.colorMode }

// SetClippingMode enables or disables clipping of descendants.
func (n *Node) SetClippingMode(m ClippingMode) {
	if n.clippingMode != m {
		n.clippingMode = m
		n.markDirty(TransformFlag)
	}
}

// ClippingMode returns whether the node clips its children.
func (n *Node) ClippingMode() ClippingMode { return n.clippingMode }

// --- Hierarchy ---

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node { return n.children }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node { return n.children[index] }

// Depth returns the distance to the root. The root has depth 0.
func (n *Node) Depth() int { return n.depth }

// IsRoot reports whether n is the root of a scene.
func (n *Node) IsRoot() bool { return n.isRoot }

// IsLayer reports whether n starts a render layer.
func (n *Node) IsLayer() bool { return n.layer != nil }

// Layer returns the layer n starts, or nil.
func (n *Node) Layer() *Layer { return n.layer }

// DirtyFlags returns the flags of the current frame.
func (n *Node) DirtyFlags() NodeFlags { return n.dirtyFlags }

// AddChild appends child to this node's children. Update stage only.
// Panics if child is nil, the root, already parented or an ancestor of this
// node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("arbor: cannot add nil child")
	}
	if child.isRoot {
		panic("arbor: cannot add the root as a child")
	}
	if child.parent != nil {
		panic("arbor: child already has a parent")
	}
	if isAncestor(child, n) {
		panic("arbor: adding child would create a cycle")
	}
	child.parent = n
	n.children = append(n.children, child)
	child.setDepth(n.depth + 1)
	child.markSubtreeDirty(AllFlags)
	if n.connected {
		child.connectSubtree()
	}
}

// RemoveChild detaches child from this node and disconnects its subtree from
// the scene. Update stage only. Panics if child.Parent() != n.
func (n *Node) RemoveChild(buf BufferIndex, child *Node) {
	if child == nil || child.parent != n {
		panic("arbor: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.parent = nil
	child.disconnectSubtree(buf)
	n.markDirty(ChildDeletedFlag)
}

// AddRenderer attaches r. The first renderer forces a world matrix update.
func (n *Node) AddRenderer(r *Renderer) {
	for _, x := range n.renderers {
		if x == r {
			return
		}
	}
	if len(n.renderers) == 0 {
		n.markDirty(TransformFlag)
	}
	n.renderers = append(n.renderers, r)
	n.markDirty(SortModifierFlag)
}

// RemoveRenderer detaches r.
func (n *Node) RemoveRenderer(r *Renderer) {
	for i, x := range n.renderers {
		if x == r {
			copy(n.renderers[i:], n.renderers[i+1:])
			n.renderers[len(n.renderers)-1] = nil
			n.renderers = n.renderers[:len(n.renderers)-1]
			n.markDirty(SortModifierFlag)
			return
		}
	}
}

// Renderers returns the attached renderers. The slice must not be modified.
func (n *Node) Renderers() []*Renderer { return n.renderers }

// --- Helpers ---

// isAncestor reports whether candidate is node or one of its ancestors.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.parent.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

func (n *Node) setDepth(d int) {
	n.depth = d
	for _, c := range n.children {
		c.setDepth(d + 1)
	}
}

// markDirty sets flags for this frame and the next so both generations of
// the derived values are recomputed.
func (n *Node) markDirty(f NodeFlags) {
	n.dirtyFlags |= f
	n.nextFlags |= f
}

// markSubtreeDirty marks node and all its descendants.
func (n *Node) markSubtreeDirty(f NodeFlags) {
	n.markDirty(f)
	for _, c := range n.children {
		c.markSubtreeDirty(f)
	}
}

// resetFlags starts a new frame: flags marked last frame carry over once.
func (n *Node) resetFlags() {
	n.dirtyFlags = n.nextFlags
	n.nextFlags = NothingFlag
}

func (n *Node) connectSubtree() {
	n.connectToScene()
	for _, r := range n.renderers {
		r.connectToScene()
	}
	for _, c := range n.children {
		c.connectSubtree()
	}
}

func (n *Node) disconnectSubtree(buf BufferIndex) {
	n.disconnectFromScene(buf)
	for _, c := range n.children {
		c.disconnectSubtree(buf)
	}
}

// destroySubtree releases the node and its descendants. Renderers are shared
// and survive their nodes.
func (n *Node) destroySubtree() {
	for _, c := range n.children {
		c.parent = nil
		c.destroySubtree()
	}
	n.children = nil
	n.renderers = nil
	n.parent = nil
	n.worldInputs = nil
	n.destroy()
}
