package arbor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
)

// --- Test helpers ---

func newTestCore(t *testing.T, provider ResourceProvider) *Core {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Debug = true
	return New(cfg, provider)
}

// frame flushes the producer's messages, runs one update and returns the
// generation it published.
func frame(c *Core, dt float32) BufferIndex {
	c.Flush()
	c.Update(dt)
	return c.Buffers().RenderBufferIndex()
}

// addSprite connects a node with one renderer below the root layer.
func addSprite(c *Core, name string, pos mgl32.Vec3) (*Node, *Renderer) {
	n := NewNode(name)
	r := NewRenderer(name, nil, nil)
	c.Add(n)
	c.BakeProperty(n.Position(), Vector3Value(pos))
	c.BakeProperty(n.Size(), Vector3Value(mgl32.Vec3{10, 10, 0}))
	c.AddRenderer(n, r)
	return n, r
}

type recordingBackend struct {
	begun    int
	ended    int
	lists    [][]string // node names per list in draw order
	released []ResourceHandle
}

func (b *recordingBackend) BeginInstruction(*RenderInstruction) { b.begun++ }
func (b *recordingBackend) EndInstruction(*RenderInstruction)   { b.ended++ }

func (b *recordingBackend) DrawList(_ *RenderInstruction, l *RenderList) {
	var names []string
	for _, it := range l.Items() {
		names = append(names, it.Node.Name())
	}
	b.lists = append(b.lists, names)
}

func (b *recordingBackend) Release(h ResourceHandle) { b.released = append(b.released, h) }

// --- Tests ---

func TestNewCore(t *testing.T) {
	c := newTestCore(t, nil)

	root := c.Root()
	if !root.IsRoot() || !root.IsConnected() {
		t.Error("root should be connected and marked as root")
	}
	if got := root.Size().Get(0).Vector3(); got != (mgl32.Vec3{800, 600, 0}) {
		t.Errorf("root size = %v, want stage size", got)
	}
	if tasks := c.UpdateManager().RenderTasks(); len(tasks) != 1 || tasks[0] != c.DefaultRenderTask() {
		t.Errorf("RenderTasks = %v, want the default task", tasks)
	}
	if got := c.DefaultRenderTask().Viewport(); got != (Rect{Width: 800, Height: 600}) {
		t.Errorf("Viewport = %v", got)
	}
}

func TestRenderBeforeFirstUpdateDrawsNothing(t *testing.T) {
	c := newTestCore(t, nil)
	addSprite(c, "a", mgl32.Vec3{100, 100, 0})
	c.Flush()

	var b recordingBackend
	if n := c.Render(&b); n != 0 {
		t.Errorf("Render = %d lists, want 0", n)
	}
}

func TestCoreEndToEnd(t *testing.T) {
	c := newTestCore(t, nil)
	_, ra := addSprite(c, "a", mgl32.Vec3{100, 100, 0})
	_, rb := addSprite(c, "b", mgl32.Vec3{200, 100, 0})
	c.Post(SetDepthIndexMessage(ra, 5))
	c.Post(SetDepthIndexMessage(rb, 1))
	frame(c, 1.0/60)

	var b recordingBackend
	if n := c.Render(&b); n != 1 {
		t.Fatalf("Render = %d lists, want 1", n)
	}
	if b.begun != 1 || b.ended != 1 {
		t.Errorf("instructions begun %d ended %d, want 1 and 1", b.begun, b.ended)
	}
	if diff := cmp.Diff([][]string{{"b", "a"}}, b.lists); diff != "" {
		t.Errorf("draw order mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderReadsPublishedFrame(t *testing.T) {
	c := newTestCore(t, nil)
	n, _ := addSprite(c, "a", mgl32.Vec3{100, 100, 0})
	frame(c, 1.0/60)

	// Posted but not flushed: the next frame does not see the move.
	c.SetProperty(n.Position(), Vector3Value(mgl32.Vec3{300, 300, 0}))
	c.Update(1.0 / 60)
	buf := c.Buffers().RenderBufferIndex()
	if got := n.WorldPosition(buf); !vec3Near(got, mgl32.Vec3{100, 100, 0}) {
		t.Errorf("WorldPosition = %v, want [100 100 0]", got)
	}

	buf = frame(c, 1.0/60)
	if got := n.WorldPosition(buf); !vec3Near(got, mgl32.Vec3{300, 300, 0}) {
		t.Errorf("WorldPosition after flush = %v, want [300 300 0]", got)
	}

	// Set lasts one frame.
	buf = frame(c, 1.0/60)
	if got := n.WorldPosition(buf); !vec3Near(got, mgl32.Vec3{100, 100, 0}) {
		t.Errorf("WorldPosition a frame later = %v, want [100 100 0]", got)
	}
}

func TestDestroyNodeDeferred(t *testing.T) {
	c := newTestCore(t, nil)
	n, _ := addSprite(c, "a", mgl32.Vec3{100, 100, 0})
	frame(c, 1.0/60)

	c.DestroyNode(n)
	frame(c, 1.0/60)
	if n.IsDestroyed() {
		t.Fatal("node destroyed while the render stage may still read it")
	}
	if n.Parent() != nil {
		t.Error("node should be disconnected at once")
	}
	frame(c, 1.0/60)
	if n.IsDestroyed() {
		t.Fatal("node destroyed one frame early")
	}
	frame(c, 1.0/60)
	if !n.IsDestroyed() {
		t.Error("node not destroyed two frames after the request")
	}
}

func TestKeepUpdating(t *testing.T) {
	c := newTestCore(t, nil)
	n := NewNode("n")
	c.Add(n)
	frame(c, 1.0/60)
	if c.KeepUpdating() {
		t.Error("KeepUpdating = true for a static scene")
	}

	a := NewAnimation(1).AnimateTo(n.Position(), Vector3Value(mgl32.Vec3{10, 0, 0}), nil)
	c.PlayAnimation(a)
	frame(c, 0.5)
	if !c.KeepUpdating() {
		t.Error("KeepUpdating = false while an animation plays")
	}
}

func TestContractViolationPanicsInDebug(t *testing.T) {
	c := newTestCore(t, nil)
	n := NewNode("n")
	c.Add(n)
	c.Add(n)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for double connect in debug mode")
		}
	}()
	frame(c, 1.0/60)
}

func TestContractViolationLoggedInRelease(t *testing.T) {
	c := New(DefaultConfig(), nil)
	n := NewNode("n")
	c.Add(n)
	c.Add(n)
	frame(c, 1.0/60)
	if c.Root().NumChildren() != 1 {
		t.Errorf("NumChildren = %d, want 1", c.Root().NumChildren())
	}
}

func TestRemoveRenderTask(t *testing.T) {
	c := newTestCore(t, nil)
	addSprite(c, "a", mgl32.Vec3{100, 100, 0})
	c.RemoveRenderTask(c.DefaultRenderTask())
	frame(c, 1.0/60)

	var b recordingBackend
	c.Render(&b)
	if b.begun != 0 {
		t.Errorf("instructions = %d, want 0", b.begun)
	}
}

func TestRefreshOnce(t *testing.T) {
	c := newTestCore(t, nil)
	addSprite(c, "a", mgl32.Vec3{100, 100, 0})
	c.PostFunc(func(*UpdateContext) { c.DefaultRenderTask().SetRefreshRate(RefreshOnce) })

	var b recordingBackend
	frame(c, 1.0/60)
	c.Render(&b)
	frame(c, 1.0/60)
	c.Render(&b)
	if b.begun != 1 {
		t.Errorf("instructions = %d, want 1", b.begun)
	}
}
