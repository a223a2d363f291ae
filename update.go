package arbor

import (
	"log/slog"
	"slices"
	"time"
)

// UpdateManager is the update stage. Each call to Update runs one frame:
// it drains the producer's messages, advances animations and constraints,
// propagates transforms and prepares the render instructions of the frame,
// then publishes the frame by swapping buffers.
//
// Apart from Update, every method is meant to be called from messages, that
// is on the update stage while a frame runs.
type UpdateManager struct {
	debug  bool
	logger *slog.Logger

	buffers       *SceneBuffers
	messages      *MessageQueue
	root          *Layer
	relayout      *RelayoutController
	resources     *ResourceManager
	discard       DiscardQueue
	renderQueue   *RenderQueue
	notifications *notificationQueue

	owners     []*PropertyOwner // non-node owners in construction order
	cameras    []*Camera
	tasks      []*RenderTask
	animations []*Animation
	watchers   []*PropertyNotification

	constraintCount int
	constraintBuf   []*Constraint
	layers          []*Layer

	builder        *instructionBuilder
	instructions   RenderInstructionContainer
	renderRevision uint64

	ctx   UpdateContext
	frame uint64
	stats frameStats
}

type updateManagerConfig struct {
	debug         bool
	logger        *slog.Logger
	buffers       *SceneBuffers
	messages      *MessageQueue
	root          *Layer
	resources     *ResourceManager
	renderQueue   *RenderQueue
	notifications *notificationQueue
}

func newUpdateManager(c updateManagerConfig) *UpdateManager {
	um := &UpdateManager{
		debug:         c.debug,
		logger:        c.logger,
		buffers:       c.buffers,
		messages:      c.messages,
		root:          c.root,
		relayout:      NewRelayoutController(c.logger),
		resources:     c.resources,
		renderQueue:   c.renderQueue,
		notifications: c.notifications,
		builder:       newInstructionBuilder(),
	}
	c.root.isRoot = true
	c.root.connectSubtree()
	return um
}

// Manager returns the update manager running the frame.
func (ctx *UpdateContext) Manager() *UpdateManager { return ctx.um }

// Root returns the root layer.
func (um *UpdateManager) Root() *Layer { return um.root }

// Frame returns the number of frames run so far.
func (um *UpdateManager) Frame() uint64 { return um.frame }

// Logger returns the core logger.
func (um *UpdateManager) Logger() *slog.Logger { return um.logger }

// Relayout returns the size negotiation controller.
func (um *UpdateManager) Relayout() *RelayoutController { return um.relayout }

// Resources returns the resource manager.
func (um *UpdateManager) Resources() *ResourceManager { return um.resources }

// DiscardQueue returns the deferred destruction queue.
func (um *UpdateManager) DiscardQueue() *DiscardQueue { return &um.discard }

// RenderQueue returns the queue of work for the render stage.
func (um *UpdateManager) RenderQueue() *RenderQueue { return um.renderQueue }

// RenderTasks returns the tasks in preparation order.
func (um *UpdateManager) RenderTasks() []*RenderTask { return um.tasks }

// Animations returns the animations that have not stopped.
func (um *UpdateManager) Animations() []*Animation { return um.animations }

// ConstraintCount returns the number of attached constraints.
func (um *UpdateManager) ConstraintCount() int { return um.constraintCount }

// Instructions returns the prepared instructions of both generations.
func (um *UpdateManager) Instructions() *RenderInstructionContainer { return &um.instructions }

// Update runs one frame advancing time by elapsed seconds.
func (um *UpdateManager) Update(elapsed float32) {
	buf := um.buffers.UpdateBufferIndex()
	ctx := &um.ctx
	*ctx = UpdateContext{Buffer: buf, Frame: um.frame, Elapsed: elapsed, Logger: um.logger, um: um}
	stats := &um.stats
	*stats = frameStats{}

	um.discard.clear(buf, um.releaseHandle, um.forgetOwner)
	um.resources.UpdateCache(um.releaseHandle)
	um.resetProperties(buf)

	mark := um.timer()
	stats.messageCount = um.messages.ProcessMessages(ctx)
	um.relayout.Relayout(buf)
	stats.messageTime = mark()

	um.animate(ctx)
	stats.animateTime = mark()

	stats.constraintCount = um.applyConstraints(ctx)
	stats.constraintTime = mark()

	um.layers, stats.nodeCount = updateNodes(&um.root.Node, buf, um.layers)
	for _, c := range um.cameras {
		c.update(buf)
	}
	um.processPropertyNotifications(buf)
	stats.nodeTime = mark()

	um.builder.prepare(ctx, um.tasks, um.layers, &um.instructions, um.renderRevision, stats)
	stats.prepareTime = mark()

	um.resources.NotifyTickets(um.notifications.push)
	um.notifications.publish()

	if um.debug {
		logStats(um.logger, um.frame, *stats)
	}
	um.buffers.Swap()
	um.frame++
}

// timer returns a function reporting the time since its previous call. Only
// measures in debug mode.
func (um *UpdateManager) timer() func() time.Duration {
	if !um.debug {
		return func() time.Duration { return 0 }
	}
	last := time.Now()
	return func() time.Duration {
		now := time.Now()
		d := now.Sub(last)
		last = now
		return d
	}
}

// KeepUpdating reports whether another frame would change anything even
// without new messages.
func (um *UpdateManager) KeepUpdating() bool {
	for _, a := range um.animations {
		if a.state == AnimationPlaying {
			return true
		}
	}
	return um.constraintCount > 0 || um.relayout.IsRelayoutRequired() || um.resources.ResourcesToProcess()
}

// --- Properties ---

// resetProperties returns every property of the scene to its base value for
// buf and rolls the node flags over to the new frame.
func (um *UpdateManager) resetProperties(buf BufferIndex) {
	resetNode(&um.root.Node, buf)
	for _, o := range um.owners {
		o.ResetToBaseValues(buf)
	}
}

func resetNode(n *Node, buf BufferIndex) {
	n.ResetToBaseValues(buf)
	n.resetFlags()
	for _, c := range n.children {
		resetNode(c, buf)
	}
}

// --- Owners ---

// RegisterOwner adds a non-node owner to the scene so its properties are reset
// and its constraints applied every frame. Owners are kept in construction
// order.
func (um *UpdateManager) RegisterOwner(o *PropertyOwner) {
	if o == nil || o.isNode || o.tracked || o.destroyed {
		return
	}
	o.tracked = true
	i, _ := slices.BinarySearchFunc(um.owners, o.id, func(x *PropertyOwner, id uint32) int {
		return int(x.id) - int(id)
	})
	um.owners = slices.Insert(um.owners, i, o)
	o.connectToScene()
}

// forgetOwner drops a destroyed owner from the registry.
func (um *UpdateManager) forgetOwner(o *PropertyOwner) {
	if !o.tracked {
		return
	}
	o.tracked = false
	if i := slices.Index(um.owners, o); i >= 0 {
		um.owners = slices.Delete(um.owners, i, i+1)
	}
	um.cameras = slices.DeleteFunc(um.cameras, func(c *Camera) bool { return &c.PropertyOwner == o })
}

// registerRenderer registers r and the objects it draws with.
func (um *UpdateManager) registerRenderer(r *Renderer) {
	um.RegisterOwner(&r.PropertyOwner)
	if m := r.material; m != nil {
		um.RegisterOwner(&m.PropertyOwner)
		if m.shader != nil {
			um.RegisterOwner(&m.shader.PropertyOwner)
		}
	}
	if r.geometry != nil {
		um.RegisterOwner(&r.geometry.PropertyOwner)
	}
}

// DiscardOwner disconnects a render object and destroys it two frames later.
func (um *UpdateManager) DiscardOwner(buf BufferIndex, o *PropertyOwner) {
	if o == nil || o.destroyed {
		return
	}
	o.disconnectFromScene(buf)
	um.discard.AddOwner(buf, o)
	um.TouchRenderState()
}

// TouchRenderState invalidates cached render lists. Called whenever a render
// object changes in a way node dirty flags do not show.
func (um *UpdateManager) TouchRenderState() { um.renderRevision++ }

func (um *UpdateManager) releaseHandle(h ResourceHandle) {
	buf := um.buffers.UpdateBufferIndex()
	um.renderQueue.Post(buf, func(b Backend) { b.Release(h) })
}

// --- Nodes ---

// ConnectNode adds child below parent. Contract violations panic in debug
// mode and are logged and ignored otherwise.
func (um *UpdateManager) ConnectNode(parent, child *Node) {
	switch {
	case parent == nil || child == nil:
		violation(um.debug, um.logger, "connect: nil node")
		return
	case child.isRoot:
		violation(um.debug, um.logger, "connect: %q is the root", child.name)
		return
	case child.parent != nil:
		violation(um.debug, um.logger, "connect: %q already has a parent", child.name)
		return
	case isAncestor(child, parent):
		violation(um.debug, um.logger, "connect: %q would create a cycle", child.name)
		return
	case parent.destroyed || child.destroyed:
		violation(um.debug, um.logger, "connect: destroyed node")
		return
	}
	parent.AddChild(child)
	um.registerSubtree(child)
	if needsRelayout(child) {
		um.relayout.RequestRelayout(child, AllDimensions)
	}
	if parent.RelayoutDependentOnChildren(Width) || parent.RelayoutDependentOnChildren(Height) {
		um.relayout.RequestRelayout(parent, AllDimensions)
	}
	if um.debug {
		debugCheckTreeDepth(um.logger, child)
		debugCheckChildCount(um.logger, parent)
	}
}

func (um *UpdateManager) registerSubtree(n *Node) {
	for _, r := range n.renderers {
		um.registerRenderer(r)
	}
	for _, c := range n.children {
		um.registerSubtree(c)
	}
}

// needsRelayout reports whether any dimension of n is negotiated.
func needsRelayout(n *Node) bool {
	for _, p := range n.relayout.policy {
		if p != Fixed {
			return true
		}
	}
	return false
}

// DisconnectNode removes n from its parent. The node can be connected again.
func (um *UpdateManager) DisconnectNode(buf BufferIndex, n *Node) {
	if n == nil || n.parent == nil {
		violation(um.debug, um.logger, "disconnect: node has no parent")
		return
	}
	p := n.parent
	p.RemoveChild(buf, n)
	if p.RelayoutDependentOnChildren(Width) || p.RelayoutDependentOnChildren(Height) {
		um.relayout.RequestRelayout(p, AllDimensions)
	}
}

// DestroyNode disconnects n if needed and destroys it two frames later.
func (um *UpdateManager) DestroyNode(buf BufferIndex, n *Node) {
	if n == nil || n.destroyed {
		return
	}
	if n.isRoot {
		violation(um.debug, um.logger, "destroy: cannot destroy the root")
		return
	}
	if n.parent != nil {
		um.DisconnectNode(buf, n)
	}
	um.discard.AddNode(buf, n)
}

// AddRenderer attaches r to n and registers its render objects.
func (um *UpdateManager) AddRenderer(n *Node, r *Renderer) {
	if n == nil || r == nil {
		violation(um.debug, um.logger, "add renderer: nil argument")
		return
	}
	n.AddRenderer(r)
	if n.connected {
		um.registerRenderer(r)
		r.connectToScene()
	}
}

// --- Constraints ---

// ApplyConstraint starts c. Non-node targets are registered with the scene.
func (um *UpdateManager) ApplyConstraint(c *Constraint) {
	if c == nil {
		violation(um.debug, um.logger, "apply constraint: nil constraint")
		return
	}
	owner := c.target.owner
	if !owner.isNode {
		um.RegisterOwner(owner)
	}
	if c.attach(um) {
		um.constraintCount++
	}
}

// RemoveConstraint stops c. Immediate removal skips the remove window.
func (um *UpdateManager) RemoveConstraint(buf BufferIndex, c *Constraint, immediate bool) {
	if c == nil {
		return
	}
	c.remove(buf, immediate)
}

// RemoveConstraintsByTag stops every constraint of owner with tag.
func (um *UpdateManager) RemoveConstraintsByTag(buf BufferIndex, owner *PropertyOwner, tag uint32, immediate bool) {
	if owner == nil {
		return
	}
	um.constraintBuf = append(um.constraintBuf[:0], owner.constraints...)
	for _, c := range um.constraintBuf {
		if c.tag == tag {
			c.remove(buf, immediate)
		}
	}
	clear(um.constraintBuf)
}

// constraintRemoved is called by a constraint as it detaches.
func (um *UpdateManager) constraintRemoved(*Constraint) {
	um.constraintCount--
}

// applyConstraints runs node constraints in depth-first scene order, then
// the constraints of other owners in construction order.
func (um *UpdateManager) applyConstraints(ctx *UpdateContext) int {
	n := um.applyNodeConstraints(ctx, &um.root.Node)
	for _, o := range um.owners {
		n += um.applyOwnerConstraints(ctx, o)
	}
	return n
}

func (um *UpdateManager) applyNodeConstraints(ctx *UpdateContext, node *Node) int {
	n := um.applyOwnerConstraints(ctx, &node.PropertyOwner)
	for _, c := range node.children {
		n += um.applyNodeConstraints(ctx, c)
	}
	return n
}

func (um *UpdateManager) applyOwnerConstraints(ctx *UpdateContext, o *PropertyOwner) int {
	if len(o.constraints) == 0 {
		return 0
	}
	// constraints may detach while applying
	start := len(um.constraintBuf)
	um.constraintBuf = append(um.constraintBuf, o.constraints...)
	n := 0
	for _, c := range um.constraintBuf[start:] {
		if c.Apply(ctx) {
			n++
		}
	}
	clear(um.constraintBuf[start:])
	um.constraintBuf = um.constraintBuf[:start]
	return n
}

// --- Animations ---

// PlayAnimation starts or resumes a.
func (um *UpdateManager) PlayAnimation(a *Animation) {
	if a == nil {
		return
	}
	if !slices.Contains(um.animations, a) {
		um.animations = append(um.animations, a)
	}
	a.play(um)
}

// PauseAnimation freezes a at its current time.
func (um *UpdateManager) PauseAnimation(a *Animation) {
	if a != nil {
		a.pause()
	}
}

// StopAnimation ends a early, applying its end action.
func (um *UpdateManager) StopAnimation(buf BufferIndex, a *Animation) {
	if a == nil {
		return
	}
	a.stop(buf)
	um.animations = slices.DeleteFunc(um.animations, func(x *Animation) bool { return x == a })
}

// animate advances every playing animation and notifies the finished ones.
func (um *UpdateManager) animate(ctx *UpdateContext) {
	kept := um.animations[:0]
	for _, a := range um.animations {
		if a.update(ctx) {
			um.notifications.push(Notification{Type: AnimationFinished, Animation: a})
		}
		if a.state != AnimationStopped {
			kept = append(kept, a)
		}
	}
	clear(um.animations[len(kept):])
	um.animations = kept
}

// --- Property notifications ---

// AddPropertyNotification starts checking pn every frame.
func (um *UpdateManager) AddPropertyNotification(pn *PropertyNotification) {
	if pn == nil {
		violation(um.debug, um.logger, "add property notification: nil notification")
		return
	}
	if pn.attached {
		return
	}
	pn.attached = true
	pn.valid = false
	pn.step = 0
	um.watchers = append(um.watchers, pn)
}

// RemovePropertyNotification stops checking pn.
func (um *UpdateManager) RemovePropertyNotification(pn *PropertyNotification) {
	if pn == nil || !pn.attached {
		return
	}
	pn.attached = false
	um.watchers = slices.DeleteFunc(um.watchers, func(x *PropertyNotification) bool { return x == pn })
}

// PropertyNotifications returns the notifications checked every frame.
func (um *UpdateManager) PropertyNotifications() []*PropertyNotification { return um.watchers }

// processPropertyNotifications checks every watcher in the order added.
// Watchers of destroyed owners are dropped.
func (um *UpdateManager) processPropertyNotifications(buf BufferIndex) {
	kept := um.watchers[:0]
	for _, pn := range um.watchers {
		if o := pn.input.InputOwner(); o != nil && o.destroyed {
			pn.attached = false
			continue
		}
		if pn.check(buf) {
			um.notifications.push(Notification{Type: PropertyNotified, Watcher: pn, Valid: pn.valid})
		}
		kept = append(kept, pn)
	}
	clear(um.watchers[len(kept):])
	um.watchers = kept
}

// --- Render tasks ---

// AddRenderTask appends t to the tasks prepared every frame.
func (um *UpdateManager) AddRenderTask(t *RenderTask) {
	if t == nil || slices.Contains(um.tasks, t) {
		return
	}
	um.tasks = append(um.tasks, t)
	um.AddCamera(t.camera)
}

// RemoveRenderTask stops preparing t.
func (um *UpdateManager) RemoveRenderTask(t *RenderTask) {
	um.tasks = slices.DeleteFunc(um.tasks, func(x *RenderTask) bool { return x == t })
}

// AddCamera registers c so its matrices are updated every frame.
func (um *UpdateManager) AddCamera(c *Camera) {
	if c == nil || slices.Contains(um.cameras, c) {
		return
	}
	um.cameras = append(um.cameras, c)
	um.RegisterOwner(&c.PropertyOwner)
}

// --- Resources ---

// RequestResource starts loading t; the outcome is bound to b when it
// arrives and notified to the producer.
func (um *UpdateManager) RequestResource(t *Ticket, b resourceBinding) {
	if t == nil {
		return
	}
	um.resources.request(t, b)
}

// DiscardResource drops a ticket, cancelling a load in flight. A loaded handle
// is released two frames later.
func (um *UpdateManager) DiscardResource(buf BufferIndex, id TicketID) {
	err := um.resources.Discard(id, func(h ResourceHandle) { um.discard.AddHandle(buf, h) })
	if err != nil {
		um.logger.Warn("Resource discard failed.", "ticket", id, "error", err)
	}
}
