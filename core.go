package arbor

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// Core ties the three stages together. The producer builds objects, posts
// messages and calls Flush and ProcessNotifications; the update stage calls
// Update; the render stage calls Render. Each role may run on its own
// goroutine as long as every method is called from its role only and Update
// never runs more than one frame ahead of Render (see SceneBuffers).
type Core struct {
	cfg    Config
	logger *slog.Logger

	buffers       SceneBuffers
	messages      *MessageQueue
	resources     *ResourceManager
	renderQueue   RenderQueue
	notifications *notificationQueue

	um *UpdateManager
	rm *RenderManager

	root   *Layer
	camera *Camera
	task   *RenderTask
}

// New creates a core with a root layer the size of the stage and a default
// render task drawing it through a pixel-aligned 2D camera. provider may be
// nil when no resources are loaded.
func New(cfg Config, provider ResourceProvider) *Core {
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.MessageQueue.Capacity <= 0 {
		cfg.MessageQueue.Capacity = DefaultMessageCapacity
	}
	logger := cfg.Logger

	c := &Core{
		cfg:           cfg,
		logger:        logger,
		messages:      NewMessageQueue(cfg.MessageQueue.Capacity, cfg.MessageQueue.Strict, logger),
		resources:     NewResourceManager(provider, logger),
		notifications: newNotificationQueue(),
	}

	root := NewLayer("root")
	stage := Vector3Value(mgl32.Vec3{cfg.Stage.Width, cfg.Stage.Height, 0})
	topLeft := Vector3Value(AnchorPointTopLeft)
	for _, buf := range []BufferIndex{0, 1} {
		root.size.Bake(buf, stage)
		root.anchorPoint.Bake(buf, topLeft)
	}
	c.root = root

	c.um = newUpdateManager(updateManagerConfig{
		debug:         cfg.Debug,
		logger:        logger,
		buffers:       &c.buffers,
		messages:      c.messages,
		root:          root,
		resources:     c.resources,
		renderQueue:   &c.renderQueue,
		notifications: c.notifications,
	})
	c.rm = newRenderManager(&c.buffers, &c.um.instructions, &c.renderQueue, logger, cfg.Debug)

	c.camera = NewCamera2D("default", cfg.Stage.Width, cfg.Stage.Height)
	c.task = NewRenderTask(c.camera, nil)
	c.task.SetViewport(Rect{Width: cfg.Stage.Width, Height: cfg.Stage.Height})
	c.task.SetClearColor(cfg.Stage.ClearColor)
	c.task.SetCullingEnabled(cfg.Culling)
	c.um.AddRenderTask(c.task)

	logger.Debug("Core created.", "width", cfg.Stage.Width, "height", cfg.Stage.Height, "debug", cfg.Debug)
	return c
}

// Config returns the configuration the core was created with.
func (c *Core) Config() Config { return c.cfg }

// Logger returns the core logger.
func (c *Core) Logger() *slog.Logger { return c.logger }

// Root returns the root layer. It is always connected.
func (c *Core) Root() *Layer { return c.root }

// DefaultCamera returns the camera of the default render task.
func (c *Core) DefaultCamera() *Camera { return c.camera }

// DefaultRenderTask returns the render task created with the core.
func (c *Core) DefaultRenderTask() *RenderTask { return c.task }

// Buffers returns the generation counter shared by the stages.
func (c *Core) Buffers() *SceneBuffers { return &c.buffers }

// UpdateManager returns the update stage.
func (c *Core) UpdateManager() *UpdateManager { return c.um }

// RenderManager returns the render stage.
func (c *Core) RenderManager() *RenderManager { return c.rm }

// --- Stages ---

// Post queues m for the update stage. Producer only.
func (c *Core) Post(m Message) { c.messages.Post(m) }

// PostFunc queues a closure for the update stage. Producer only.
func (c *Core) PostFunc(f func(ctx *UpdateContext)) { c.messages.PostFunc(f) }

// Flush makes every message posted so far visible to the next update frame.
// Producer only.
func (c *Core) Flush() bool { return c.messages.Flush() }

// Update runs one update frame. Update stage only.
func (c *Core) Update(elapsed float32) { c.um.Update(elapsed) }

// KeepUpdating reports whether frames still change the scene without new
// messages. Update stage only.
func (c *Core) KeepUpdating() bool { return c.um.KeepUpdating() }

// Render draws the most recently published frame. Render stage only.
func (c *Core) Render(b Backend) int { return c.rm.Render(b) }

// ProcessNotifications delivers the notifications of finished update frames
// to sink. Producer only.
func (c *Core) ProcessNotifications(sink NotificationSink) int {
	return c.notifications.drain(sink)
}

// NotifyLoadSucceeded reports a finished load. Safe from any goroutine.
func (c *Core) NotifyLoadSucceeded(id TicketID, h ResourceHandle) {
	c.resources.NotifyLoadSucceeded(id, h)
}

// NotifyLoadFailed reports a failed load. Safe from any goroutine.
func (c *Core) NotifyLoadFailed(id TicketID, err error) {
	c.resources.NotifyLoadFailed(id, err)
}

// --- Producer helpers ---

// Add connects child below the root layer.
func (c *Core) Add(child *Node) { c.Post(ConnectNodeMessage(&c.root.Node, child)) }

// ConnectNode adds child below parent in the next update frame.
func (c *Core) ConnectNode(parent, child *Node) { c.Post(ConnectNodeMessage(parent, child)) }

// DisconnectNode removes n from its parent. It can be connected again.
func (c *Core) DisconnectNode(n *Node) { c.Post(DisconnectNodeMessage(n)) }

// DestroyNode disconnects n and destroys its subtree once the render stage
// can no longer see it.
func (c *Core) DestroyNode(n *Node) { c.Post(DestroyNodeMessage(n)) }

// SetProperty sets p to v for one frame.
func (c *Core) SetProperty(p *Property, v Value) { c.Post(SetPropertyMessage(p, v)) }

// BakeProperty sets p and its base value to v.
func (c *Core) BakeProperty(p *Property, v Value) { c.Post(BakePropertyMessage(p, v)) }

// SetPropertyRelative adds delta to p for one frame.
func (c *Core) SetPropertyRelative(p *Property, delta Value) {
	c.Post(SetPropertyRelativeMessage(p, delta))
}

// BakePropertyRelative adds delta to p and its base value.
func (c *Core) BakePropertyRelative(p *Property, delta Value) {
	c.Post(BakePropertyRelativeMessage(p, delta))
}

// AddRenderer attaches r to n.
func (c *Core) AddRenderer(n *Node, r *Renderer) { c.Post(AddRendererMessage(n, r)) }

// RemoveRenderer detaches r from n.
func (c *Core) RemoveRenderer(n *Node, r *Renderer) { c.Post(RemoveRendererMessage(n, r)) }

// ApplyConstraint starts con.
func (c *Core) ApplyConstraint(con *Constraint) { c.Post(ApplyConstraintMessage(con)) }

// RemoveConstraint stops con. With immediate set the remove window is
// skipped and the remove action applies at once.
func (c *Core) RemoveConstraint(con *Constraint, immediate bool) {
	c.Post(RemoveConstraintMessage(con, immediate))
}

// RemoveConstraintsByTag stops every constraint of owner tagged tag.
func (c *Core) RemoveConstraintsByTag(owner *PropertyOwner, tag uint32, immediate bool) {
	c.Post(RemoveConstraintsByTagMessage(owner, tag, immediate))
}

// PlayAnimation starts or resumes a.
func (c *Core) PlayAnimation(a *Animation) { c.Post(PlayAnimationMessage(a)) }

// PauseAnimation freezes a at its current time.
func (c *Core) PauseAnimation(a *Animation) { c.Post(PauseAnimationMessage(a)) }

// StopAnimation ends a early and applies its end action.
func (c *Core) StopAnimation(a *Animation) { c.Post(StopAnimationMessage(a)) }

// AddPropertyNotification watches a property. Results arrive as
// PropertyNotified notifications.
func (c *Core) AddPropertyNotification(pn *PropertyNotification) {
	c.Post(AddPropertyNotificationMessage(pn))
}

// RemovePropertyNotification stops watching a property.
func (c *Core) RemovePropertyNotification(pn *PropertyNotification) {
	c.Post(RemovePropertyNotificationMessage(pn))
}

// AddRenderTask appends t after the existing render tasks.
func (c *Core) AddRenderTask(t *RenderTask) { c.Post(AddRenderTaskMessage(t)) }

// RemoveRenderTask stops preparing t.
func (c *Core) RemoveRenderTask(t *RenderTask) { c.Post(RemoveRenderTaskMessage(t)) }

// RequestRelayout marks dims of n for size negotiation in the next frame.
func (c *Core) RequestRelayout(n *Node, dims Dimension) { c.Post(RequestRelayoutMessage(n, dims)) }

// RequestTexture loads path into tex and returns the ticket tracking it.
func (c *Core) RequestTexture(path string, tex *Texture) *Ticket {
	t := NewTicket(path)
	c.Post(RequestTextureMessage(t, tex))
	return t
}

// RequestGeometry loads path into g and returns the ticket tracking it.
func (c *Core) RequestGeometry(path string, g *Geometry) *Ticket {
	t := NewTicket(path)
	c.Post(RequestGeometryMessage(t, g))
	return t
}

// DiscardResource drops t, cancelling its load if still in flight.
func (c *Core) DiscardResource(t *Ticket) { c.Post(DiscardResourceMessage(t.id)) }
