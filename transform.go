package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

var half = mgl32.Vec3{0.5, 0.5, 0.5}

// mulVec3 multiplies two vectors component-wise.
func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func clampColor(c Color) Color {
	for i := range c {
		c[i] = mgl32.Clamp(c[i], 0, 1)
	}
	return c
}

// composeMatrix builds translate * rotate * scale.
func composeMatrix(pos mgl32.Vec3, orient mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	m := orient.Mat4()
	m = m.Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
	m.SetCol(3, mgl32.Vec4{pos[0], pos[1], pos[2], 1})
	return m
}

// propertyFlags derives dirty flags from properties changed in the last two
// frames.
func propertyFlags(n *Node) NodeFlags {
	var f NodeFlags
	if !n.position.IsClean() || !n.orientation.IsClean() || !n.scale.IsClean() ||
		!n.parentOrigin.IsClean() || !n.anchorPoint.IsClean() {
		f |= TransformFlag
	}
	if !n.size.IsClean() {
		f |= SizeFlag | TransformFlag
	}
	if !n.color.IsClean() {
		f |= ColorFlag
	}
	if !n.visible.IsClean() {
		f |= VisibleFlag
	}
	return f
}

// updateWorldTransform recomputes the world position, orientation and scale of
// n for generation buf. The world matrix is only composed when the node has
// renderers.
func updateWorldTransform(n, parent *Node, buf BufferIndex) {
	scale := n.scale.Get(buf).Vector3()
	orient := n.orientation.Get(buf).Quaternion()
	localPos := n.position.Get(buf).Vector3()
	size := n.size.Get(buf).Vector3()

	var worldPos mgl32.Vec3
	worldScale := scale
	worldOrient := orient

	if parent == nil {
		worldPos = localPos
	} else {
		parentSize := parent.size.Get(buf).Vector3()
		parentPos := parent.worldPosition.Get(buf)
		parentOrient := parent.worldOrientation.Get(buf)
		parentScale := parent.worldScale.Get(buf)

		localPos = localPos.Add(mulVec3(n.parentOrigin.Get(buf).Vector3().Sub(half), parentSize))

		if n.inheritScale {
			worldScale = mulVec3(parentScale, scale)
		}
		if n.inheritOrientation {
			worldOrient = parentOrient.Mul(orient).Normalize()
		}
		if n.inheritPosition {
			worldPos = parentPos.Add(parentOrient.Rotate(mulVec3(parentScale, localPos)))
		} else {
			worldPos = localPos
		}
	}

	anchorOffset := mulVec3(mulVec3(half.Sub(n.anchorPoint.Get(buf).Vector3()), size), worldScale)
	worldPos = worldPos.Add(worldOrient.Rotate(anchorOffset))

	n.worldPosition.Set(buf, worldPos)
	n.worldOrientation.Set(buf, worldOrient)
	n.worldScale.Set(buf, worldScale)
	if len(n.renderers) > 0 {
		n.worldMatrix.Set(buf, composeMatrix(worldPos, worldOrient, worldScale))
	} else {
		n.worldMatrix.CopyPrevious(buf)
	}
}

// inheritWorldColor derives the world color of n for generation buf.
func inheritWorldColor(n, parent *Node, buf BufferIndex) {
	own := n.color.Get(buf).Vector4()
	parentColor := ColorWhite
	if parent != nil {
		parentColor = parent.worldColor.Get(buf)
	}
	var c Color
	switch n.colorMode {
	case UseOwnColor:
		c = own
	case UseParentColor:
		c = parentColor
	case UseOwnMultiplyParentAlpha:
		c = Color{own[0], own[1], own[2], own[3] * parentColor[3]}
	default:
		c = Color{own[0] * parentColor[0], own[1] * parentColor[1], own[2] * parentColor[2], own[3] * parentColor[3]}
	}
	n.worldColor.Set(buf, clampColor(c))
}

// nodeUpdate carries traversal state for one frame.
type nodeUpdate struct {
	buf    BufferIndex
	layers []*Layer
	count  int
}

// updateNodes walks the tree depth-first from root, propagating dirty flags,
// recomputing or carrying forward world values and collecting each visible
// renderer into its layer. Layers are returned in depth-first order.
func updateNodes(root *Node, buf BufferIndex, layers []*Layer) ([]*Layer, int) {
	u := nodeUpdate{buf: buf, layers: layers[:0]}
	rootLayer := root.layer
	updateNode(&u, root, nil, rootLayer, NothingFlag, 0)
	return u.layers, u.count
}

func updateNode(u *nodeUpdate, n, parent *Node, layer *Layer, inherited NodeFlags, clipID uint32) {
	buf := u.buf
	u.count++

	flags := n.dirtyFlags | inherited | propertyFlags(n)
	n.dirtyFlags = flags

	if n.layer != nil {
		layer = n.layer
		layer.beginFrame()
		u.layers = append(u.layers, layer)
	}

	if flags&TransformFlag != 0 {
		updateWorldTransform(n, parent, buf)
	} else {
		n.worldPosition.CopyPrevious(buf)
		n.worldOrientation.CopyPrevious(buf)
		n.worldScale.CopyPrevious(buf)
		n.worldMatrix.CopyPrevious(buf)
	}

	if flags&ColorFlag != 0 {
		inheritWorldColor(n, parent, buf)
	} else {
		n.worldColor.CopyPrevious(buf)
	}

	if flags&VisibleFlag != 0 {
		visible := n.visible.Get(buf).Bool()
		if parent != nil {
			visible = visible && parent.worldVisible.Get(buf)
		}
		n.worldVisible.Set(buf, visible)
	} else {
		n.worldVisible.CopyPrevious(buf)
	}

	if n.clippingMode == ClipChildren {
		clipID = n.id
	}
	n.clippingID = clipID

	if layer != nil {
		if n.clippingMode == ClipChildren {
			layer.hasClipping = true
		}
		if flags&(TransformFlag|VisibleFlag|ColorFlag|SizeFlag|SortModifierFlag|ChildDeletedFlag) != 0 {
			layer.transformsDirty = true
		}
		if n.worldVisible.Get(buf) {
			for _, r := range n.renderers {
				layer.renderables = append(layer.renderables, renderable{node: n, renderer: r})
			}
		}
	}

	childFlags := flags & inheritedFlags
	for _, c := range n.children {
		updateNode(u, c, n, layer, childFlags, clipID)
	}

	if n.layer != nil {
		n.layer.endFrame(buf)
	}
}
