package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// The constructors below build the messages the producer posts to mutate the
// scene. Each message performs exactly one mutation when the update stage
// processes it.

// --- Nodes ---

type connectNodeMsg struct{ parent, child *Node }

func (m connectNodeMsg) Process(ctx *UpdateContext) { ctx.um.ConnectNode(m.parent, m.child) }

// ConnectNodeMessage adds child below parent.
func ConnectNodeMessage(parent, child *Node) Message { return connectNodeMsg{parent, child} }

type disconnectNodeMsg struct{ node *Node }

func (m disconnectNodeMsg) Process(ctx *UpdateContext) { ctx.um.DisconnectNode(ctx.Buffer, m.node) }

// DisconnectNodeMessage removes node from its parent.
func DisconnectNodeMessage(node *Node) Message { return disconnectNodeMsg{node} }

type destroyNodeMsg struct{ node *Node }

func (m destroyNodeMsg) Process(ctx *UpdateContext) { ctx.um.DestroyNode(ctx.Buffer, m.node) }

// DestroyNodeMessage disconnects node and destroys its subtree once the
// render stage can no longer see it.
func DestroyNodeMessage(node *Node) Message { return destroyNodeMsg{node} }

// --- Properties ---

type propertyOp uint8

const (
	opSet propertyOp = iota
	opBake
	opSetRelative
	opBakeRelative
)

type propertyMsg struct {
	prop  *Property
	value Value
	op    propertyOp
}

func (m propertyMsg) Process(ctx *UpdateContext) {
	um := ctx.um
	if m.prop == nil {
		violation(um.debug, um.logger, "property message: nil property")
		return
	}
	if m.prop.Kind() != m.value.kind {
		violation(um.debug, um.logger, "property %q is %v, got %v", m.prop.name, m.prop.Kind(), m.value.kind)
		return
	}
	if o := m.prop.owner; o != nil && o.destroyed {
		return
	}
	switch m.op {
	case opSet:
		m.prop.Set(ctx.Buffer, m.value)
	case opBake:
		m.prop.Bake(ctx.Buffer, m.value)
	case opSetRelative:
		m.prop.SetRelative(ctx.Buffer, m.value)
	case opBakeRelative:
		m.prop.BakeRelative(ctx.Buffer, m.value)
	}
}

// SetPropertyMessage sets p for the next frame only; it returns to its base
// value afterwards.
func SetPropertyMessage(p *Property, v Value) Message { return propertyMsg{p, v, opSet} }

// BakePropertyMessage sets p and its base value.
func BakePropertyMessage(p *Property, v Value) Message { return propertyMsg{p, v, opBake} }

// SetPropertyRelativeMessage adds delta to p for the next frame only.
func SetPropertyRelativeMessage(p *Property, delta Value) Message {
	return propertyMsg{p, delta, opSetRelative}
}

// BakePropertyRelativeMessage adds delta to p and its base value.
func BakePropertyRelativeMessage(p *Property, delta Value) Message {
	return propertyMsg{p, delta, opBakeRelative}
}

// RegisterPropertyMessage adds a custom property to an owner already handed
// to the update stage.
func RegisterPropertyMessage(o *PropertyOwner, name string, v Value) Message {
	return MessageFunc(func(*UpdateContext) { o.RegisterProperty(name, v) })
}

// --- Node state ---

// SetColorModeMessage selects how node derives its world color.
func SetColorModeMessage(node *Node, mode ColorMode) Message {
	return MessageFunc(func(*UpdateContext) { node.SetColorMode(mode) })
}

// SetInheritMessage selects which parts of the parent transform node follows.
func SetInheritMessage(node *Node, position, orientation, scale bool) Message {
	return MessageFunc(func(*UpdateContext) {
		node.SetInheritPosition(position)
		node.SetInheritOrientation(orientation)
		node.SetInheritScale(scale)
	})
}

// SetClippingModeMessage makes node clip its descendants.
func SetClippingModeMessage(node *Node, mode ClippingMode) Message {
	return MessageFunc(func(*UpdateContext) { node.SetClippingMode(mode) })
}

// SetLayerBehaviorMessage selects 2D or 3D sorting for layer.
func SetLayerBehaviorMessage(layer *Layer, b LayerBehavior) Message {
	return MessageFunc(func(*UpdateContext) { layer.SetBehavior(b) })
}

// SetLayerClippingBoxMessage restricts layer to box.
func SetLayerClippingBoxMessage(layer *Layer, box Rect) Message {
	return MessageFunc(func(*UpdateContext) { layer.SetClippingBox(box) })
}

// SetDepthTestDisabledMessage turns depth testing of layer on or off.
func SetDepthTestDisabledMessage(layer *Layer, disabled bool) Message {
	return MessageFunc(func(*UpdateContext) { layer.SetDepthTestDisabled(disabled) })
}

// --- Relayout ---

type relayoutMsg struct {
	node *Node
	dims Dimension
}

func (m relayoutMsg) Process(ctx *UpdateContext) { ctx.um.relayout.RequestRelayout(m.node, m.dims) }

// RequestRelayoutMessage renegotiates dims of node in the next frame.
func RequestRelayoutMessage(node *Node, dims Dimension) Message { return relayoutMsg{node, dims} }

// SetResizePolicyMessage changes the policy of dims and requests a relayout.
func SetResizePolicyMessage(node *Node, policy ResizePolicy, dims Dimension) Message {
	return MessageFunc(func(ctx *UpdateContext) {
		node.SetResizePolicy(policy, dims)
		ctx.um.relayout.RequestRelayout(node, dims)
	})
}

// SetSizeModeFactorMessage changes the factor used by relative policies.
func SetSizeModeFactorMessage(node *Node, factor mgl32.Vec3) Message {
	return MessageFunc(func(ctx *UpdateContext) {
		node.SetSizeModeFactor(factor)
		ctx.um.relayout.RequestRelayout(node, AllDimensions)
	})
}

// SetNaturalSizeMessage changes the size used by UseNaturalSize.
func SetNaturalSizeMessage(node *Node, size mgl32.Vec3) Message {
	return MessageFunc(func(ctx *UpdateContext) {
		node.SetNaturalSize(size)
		ctx.um.relayout.RequestRelayout(node, AllDimensions)
	})
}

// --- Renderers ---

type rendererMsg struct {
	node     *Node
	renderer *Renderer
	add      bool
}

func (m rendererMsg) Process(ctx *UpdateContext) {
	if m.add {
		ctx.um.AddRenderer(m.node, m.renderer)
		return
	}
	if m.node != nil {
		m.node.RemoveRenderer(m.renderer)
	}
}

// AddRendererMessage attaches renderer to node.
func AddRendererMessage(node *Node, r *Renderer) Message { return rendererMsg{node, r, true} }

// RemoveRendererMessage detaches renderer from node.
func RemoveRendererMessage(node *Node, r *Renderer) Message { return rendererMsg{node, r, false} }

// renderStateMessage wraps a render object mutation so cached render lists
// are rebuilt.
func renderStateMessage(f func(ctx *UpdateContext)) Message {
	return MessageFunc(func(ctx *UpdateContext) {
		f(ctx)
		ctx.um.TouchRenderState()
	})
}

// SetDepthIndexMessage moves r within its layer.
func SetDepthIndexMessage(r *Renderer, depth int32) Message {
	return renderStateMessage(func(*UpdateContext) { r.SetDepthIndex(depth) })
}

// SetBlendingModeMessage forces or disables blending for r.
func SetBlendingModeMessage(r *Renderer, mode BlendingMode) Message {
	return renderStateMessage(func(*UpdateContext) { r.SetBlendingMode(mode) })
}

// SetDepthWriteModeMessage controls depth writes of r.
func SetDepthWriteModeMessage(r *Renderer, mode DepthWriteMode) Message {
	return renderStateMessage(func(*UpdateContext) { r.SetDepthWriteMode(mode) })
}

// SetGeometryMessage swaps the geometry drawn by r.
func SetGeometryMessage(r *Renderer, g *Geometry) Message {
	return renderStateMessage(func(ctx *UpdateContext) {
		r.SetGeometry(g)
		if r.connected {
			ctx.um.registerRenderer(r)
		}
	})
}

// SetMaterialMessage swaps the material of r.
func SetMaterialMessage(r *Renderer, m *Material) Message {
	return renderStateMessage(func(ctx *UpdateContext) {
		r.SetMaterial(m)
		if r.connected {
			ctx.um.registerRenderer(r)
		}
	})
}

// SetShaderMessage swaps the shader of a material shared by any number of
// renderers. The change shows from the next frame.
func SetShaderMessage(m *Material, s *Shader) Message {
	return renderStateMessage(func(ctx *UpdateContext) {
		m.SetShader(s)
		if m.connected && s != nil {
			ctx.um.RegisterOwner(&s.PropertyOwner)
		}
	})
}

// SetShaderProgramMessage replaces the program and hints of s.
func SetShaderProgramMessage(s *Shader, hints ShaderHint, program ResourceHandle) Message {
	return renderStateMessage(func(*UpdateContext) {
		s.setHints(hints)
		s.setProgram(program)
	})
}

// SetTextureSetMessage binds textures to m.
func SetTextureSetMessage(m *Material, ts *TextureSet) Message {
	return renderStateMessage(func(*UpdateContext) { m.SetTextureSet(ts) })
}

// SetBlendEquationMessage selects how m composites.
func SetBlendEquationMessage(m *Material, b BlendEquation) Message {
	return renderStateMessage(func(*UpdateContext) { m.SetBlendEquation(b) })
}

// AddUniformMessage maps a uniform name to input on owner.
func AddUniformMessage(owner *PropertyOwner, name string, input PropertyInput) Message {
	return MessageFunc(func(*UpdateContext) { owner.uniforms.Add(name, input) })
}

// RemoveUniformMessage removes a uniform mapping from owner.
func RemoveUniformMessage(owner *PropertyOwner, name string) Message {
	return MessageFunc(func(*UpdateContext) { owner.uniforms.Remove(name) })
}

// DiscardOwnerMessage destroys a render object two frames later.
func DiscardOwnerMessage(o *PropertyOwner) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.DiscardOwner(ctx.Buffer, o) })
}

// RegisterOwnerMessage adds a non-node owner, such as a material driven only
// by constraints, to the scene.
func RegisterOwnerMessage(o *PropertyOwner) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.RegisterOwner(o) })
}

// --- Constraints ---

type constraintMsg struct {
	c         *Constraint
	apply     bool
	immediate bool
}

func (m constraintMsg) Process(ctx *UpdateContext) {
	if m.apply {
		ctx.um.ApplyConstraint(m.c)
		return
	}
	ctx.um.RemoveConstraint(ctx.Buffer, m.c, m.immediate)
}

// ApplyConstraintMessage starts c.
func ApplyConstraintMessage(c *Constraint) Message { return constraintMsg{c: c, apply: true} }

// RemoveConstraintMessage stops c. Immediate removal skips the remove window.
func RemoveConstraintMessage(c *Constraint, immediate bool) Message {
	return constraintMsg{c: c, immediate: immediate}
}

type removeTagMsg struct {
	owner     *PropertyOwner
	tag       uint32
	immediate bool
}

func (m removeTagMsg) Process(ctx *UpdateContext) {
	ctx.um.RemoveConstraintsByTag(ctx.Buffer, m.owner, m.tag, m.immediate)
}

// RemoveConstraintsByTagMessage stops every constraint of owner tagged tag.
func RemoveConstraintsByTagMessage(owner *PropertyOwner, tag uint32, immediate bool) Message {
	return removeTagMsg{owner, tag, immediate}
}

// --- Animations ---

type animationOp uint8

const (
	animationPlay animationOp = iota
	animationPause
	animationStop
)

type animationMsg struct {
	a  *Animation
	op animationOp
}

func (m animationMsg) Process(ctx *UpdateContext) {
	switch m.op {
	case animationPlay:
		ctx.um.PlayAnimation(m.a)
	case animationPause:
		ctx.um.PauseAnimation(m.a)
	case animationStop:
		ctx.um.StopAnimation(ctx.Buffer, m.a)
	}
}

// PlayAnimationMessage starts or resumes a.
func PlayAnimationMessage(a *Animation) Message { return animationMsg{a, animationPlay} }

// PauseAnimationMessage pauses a.
func PauseAnimationMessage(a *Animation) Message { return animationMsg{a, animationPause} }

// StopAnimationMessage stops a and applies its end action.
func StopAnimationMessage(a *Animation) Message { return animationMsg{a, animationStop} }

// --- Property notifications ---

// AddPropertyNotificationMessage starts checking pn every frame.
func AddPropertyNotificationMessage(pn *PropertyNotification) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.AddPropertyNotification(pn) })
}

// RemovePropertyNotificationMessage stops checking pn.
func RemovePropertyNotificationMessage(pn *PropertyNotification) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.RemovePropertyNotification(pn) })
}

// --- Render tasks and cameras ---

// AddRenderTaskMessage appends t to the prepared tasks.
func AddRenderTaskMessage(t *RenderTask) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.AddRenderTask(t) })
}

// RemoveRenderTaskMessage stops preparing t.
func RemoveRenderTaskMessage(t *RenderTask) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.RemoveRenderTask(t) })
}

// SetCameraNodeMessage makes c follow node.
func SetCameraNodeMessage(c *Camera, node *Node) Message {
	return MessageFunc(func(*UpdateContext) { c.SetNode(node) })
}

// SetAspectRatioMessage changes the perspective aspect ratio of c.
func SetAspectRatioMessage(c *Camera, aspect float32) Message {
	return MessageFunc(func(*UpdateContext) { c.SetAspectRatio(aspect) })
}

// --- Resources ---

// revisionBinding forwards a load outcome and invalidates cached render lists,
// since texture alpha and geometry bounds may have changed.
type revisionBinding struct {
	target resourceBinding
	um     *UpdateManager
}

func (b revisionBinding) resourceLoaded(h ResourceHandle) {
	b.target.resourceLoaded(h)
	b.um.TouchRenderState()
}

func (b revisionBinding) resourceFailed(err error) {
	b.target.resourceFailed(err)
}

type requestResourceMsg struct {
	ticket *Ticket
	target resourceBinding
}

func (m requestResourceMsg) Process(ctx *UpdateContext) {
	var b resourceBinding
	if m.target != nil {
		b = revisionBinding{target: m.target, um: ctx.um}
	}
	ctx.um.RequestResource(m.ticket, b)
}

// RequestResourceMessage starts loading t without binding the result.
func RequestResourceMessage(t *Ticket) Message { return requestResourceMsg{ticket: t} }

// RequestTextureMessage loads t into tex.
func RequestTextureMessage(t *Ticket, tex *Texture) Message {
	return requestResourceMsg{ticket: t, target: tex}
}

// RequestGeometryMessage loads t into g.
func RequestGeometryMessage(t *Ticket, g *Geometry) Message {
	return requestResourceMsg{ticket: t, target: g}
}

// DiscardResourceMessage drops ticket id.
func DiscardResourceMessage(id TicketID) Message {
	return MessageFunc(func(ctx *UpdateContext) { ctx.um.DiscardResource(ctx.Buffer, id) })
}
