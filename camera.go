package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionMode selects the camera projection.
type ProjectionMode uint8

const (
	PerspectiveProjection ProjectionMode = iota
	OrthographicProjection
)

// Camera turns world coordinates into clip space for a render task. Its view
// follows an optional node in the tree; without one the camera sits at the
// origin looking down -Z.
type Camera struct {
	PropertyOwner

	node *Node
	mode ProjectionMode

	fieldOfView float32
	aspect      float32
	near, far   float32
	left, right float32
	bottom, top float32

	view           DoubleBuffered[mgl32.Mat4]
	projection     DoubleBuffered[mgl32.Mat4]
	viewProjection DoubleBuffered[mgl32.Mat4]
	frustum        DoubleBuffered[Frustum]

	// projection changes must reach both generations
	dirty uint8
}

// NewPerspectiveCamera creates a perspective camera. fieldOfView is the
// vertical angle in radians.
func NewPerspectiveCamera(name string, fieldOfView, aspect, near, far float32) *Camera {
	c := &Camera{
		mode:        PerspectiveProjection,
		fieldOfView: fieldOfView,
		aspect:      aspect,
		near:        near,
		far:         far,
	}
	c.init(name)
	return c
}

// NewOrthographicCamera creates an orthographic camera over the given box.
func NewOrthographicCamera(name string, left, right, bottom, top, near, far float32) *Camera {
	c := &Camera{
		mode:   OrthographicProjection,
		left:   left,
		right:  right,
		bottom: bottom,
		top:    top,
		near:   near,
		far:    far,
	}
	c.init(name)
	return c
}

// NewCamera2D creates an orthographic camera mapping window pixels with the
// origin at the top-left and Y increasing downward.
func NewCamera2D(name string, width, height float32) *Camera {
	return NewOrthographicCamera(name, 0, width, height, 0, -1000, 1000)
}

func (c *Camera) init(name string) {
	c.initOwner(name)
	c.view.SetBoth(mgl32.Ident4())
	c.projection.SetBoth(mgl32.Ident4())
	c.viewProjection.SetBoth(mgl32.Ident4())
	c.dirty = 2
}

// Mode returns the projection mode.
func (c *Camera) Mode() ProjectionMode { return c.mode }

// Node returns the node the camera follows, or nil.
func (c *Camera) Node() *Node { return c.node }

// SetNode attaches the camera to a node whose world position and
// orientation define the view. Update stage only.
func (c *Camera) SetNode(n *Node) { c.node = n }

// SetAspectRatio changes the perspective aspect ratio. Update stage only.
func (c *Camera) SetAspectRatio(aspect float32) {
	c.aspect = aspect
	c.dirty = 2
}

// SetClipping changes the near and far planes. Update stage only.
func (c *Camera) SetClipping(near, far float32) {
	c.near, c.far = near, far
	c.dirty = 2
}

// ViewMatrix returns the view matrix of generation buf.
func (c *Camera) ViewMatrix(buf BufferIndex) mgl32.Mat4 { return c.view.Get(buf) }

// ProjectionMatrix returns the projection matrix of generation buf.
func (c *Camera) ProjectionMatrix(buf BufferIndex) mgl32.Mat4 { return c.projection.Get(buf) }

// ViewProjectionMatrix returns projection times view for generation buf.
func (c *Camera) ViewProjectionMatrix(buf BufferIndex) mgl32.Mat4 { return c.viewProjection.Get(buf) }

// Frustum returns the culling volume of generation buf.
func (c *Camera) Frustum(buf BufferIndex) *Frustum { return c.frustum.Ref(buf) }

// computeProjection rebuilds the projection matrix from its parameters.
func (c *Camera) computeProjection() mgl32.Mat4 {
	if c.mode == OrthographicProjection {
		return mgl32.Ortho(c.left, c.right, c.bottom, c.top, c.near, c.far)
	}
	return mgl32.Perspective(c.fieldOfView, c.aspect, c.near, c.far)
}

// update recomputes the matrices and frustum for generation buf. Called after
// node update so the camera node's world values are current.
func (c *Camera) update(buf BufferIndex) {
	view := mgl32.Ident4()
	if c.node != nil {
		pos := c.node.WorldPosition(buf)
		orient := c.node.WorldOrientation(buf)
		view = orient.Inverse().Mat4().Mul4(mgl32.Translate3D(-pos[0], -pos[1], -pos[2]))
	}
	if c.dirty > 0 {
		c.projection.Set(buf, c.computeProjection())
		c.dirty--
	} else {
		c.projection.CopyPrevious(buf)
	}
	proj := c.projection.Get(buf)
	vp := proj.Mul4(view)
	c.view.Set(buf, view)
	c.viewProjection.Set(buf, vp)
	c.frustum.Set(buf, ExtractFrustum(vp))
}
