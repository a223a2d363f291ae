package arbor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const tol = 1e-4

func vec3Near(a, b mgl32.Vec3) bool { return a.ApproxEqualThreshold(b, tol) }

// bake sets the base value of p in both generations.
func bake(p *Property, v Value) {
	p.Bake(0, v)
	p.Bake(1, v)
}

func bakeVec3(p *Property, v mgl32.Vec3) { bake(p, Vector3Value(v)) }

func parentAndChild() (parent, child *Node) {
	parent = NewNode("parent")
	child = NewNode("child")
	parent.AddChild(child)
	bakeVec3(parent.Position(), mgl32.Vec3{10, 20, 0})
	bakeVec3(child.Position(), mgl32.Vec3{5, 0, 0})
	return parent, child
}

func TestWorldPositionTranslation(t *testing.T) {
	parent, child := parentAndChild()
	updateNodes(parent, 0, nil)

	if got := child.WorldPosition(0); !vec3Near(got, mgl32.Vec3{15, 20, 0}) {
		t.Errorf("WorldPosition = %v, want [15 20 0]", got)
	}
}

func TestWorldPositionParentScale(t *testing.T) {
	parent, child := parentAndChild()
	bakeVec3(parent.Scale(), mgl32.Vec3{2, 2, 2})
	updateNodes(parent, 0, nil)

	if got := child.WorldPosition(0); !vec3Near(got, mgl32.Vec3{20, 20, 0}) {
		t.Errorf("WorldPosition = %v, want [20 20 0]", got)
	}
	if got := child.WorldScale(0); !vec3Near(got, mgl32.Vec3{2, 2, 2}) {
		t.Errorf("WorldScale = %v, want [2 2 2]", got)
	}
}

func TestWorldPositionParentRotation(t *testing.T) {
	parent, child := parentAndChild()
	bake(parent.Orientation(), QuaternionValue(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})))
	updateNodes(parent, 0, nil)

	if got := child.WorldPosition(0); !vec3Near(got, mgl32.Vec3{10, 25, 0}) {
		t.Errorf("WorldPosition = %v, want [10 25 0]", got)
	}
}

func TestWorldPositionInheritanceOff(t *testing.T) {
	parent, child := parentAndChild()
	bakeVec3(parent.Scale(), mgl32.Vec3{2, 2, 2})
	child.SetInheritPosition(false)
	child.SetInheritScale(false)
	updateNodes(parent, 0, nil)

	if got := child.WorldPosition(0); !vec3Near(got, mgl32.Vec3{5, 0, 0}) {
		t.Errorf("WorldPosition = %v, want [5 0 0]", got)
	}
	if got := child.WorldScale(0); !vec3Near(got, mgl32.Vec3{1, 1, 1}) {
		t.Errorf("WorldScale = %v, want [1 1 1]", got)
	}
}

func TestAnchorAndParentOrigin(t *testing.T) {
	n := NewNode("n")
	bakeVec3(n.Size(), mgl32.Vec3{10, 10, 0})
	bakeVec3(n.AnchorPoint(), AnchorPointTopLeft)
	updateNodes(n, 0, nil)

	if got := n.WorldPosition(0); !vec3Near(got, mgl32.Vec3{5, 5, 0}) {
		t.Errorf("top-left anchored WorldPosition = %v, want [5 5 0]", got)
	}

	parent := NewNode("parent")
	child := NewNode("child")
	parent.AddChild(child)
	bakeVec3(parent.Size(), mgl32.Vec3{100, 50, 0})
	bakeVec3(parent.AnchorPoint(), AnchorPointTopLeft)
	bakeVec3(child.ParentOrigin(), ParentOriginCenter)
	updateNodes(parent, 0, nil)

	if got := child.WorldPosition(0); !vec3Near(got, mgl32.Vec3{50, 25, 0}) {
		t.Errorf("centered child WorldPosition = %v, want [50 25 0]", got)
	}
}

func TestWorldMatrixOnlyWithRenderers(t *testing.T) {
	n := NewNode("n")
	bakeVec3(n.Position(), mgl32.Vec3{3, 4, 0})
	updateNodes(n, 0, nil)
	if got := n.WorldMatrix(0); got != mgl32.Ident4() {
		t.Errorf("WorldMatrix without renderers = %v, want identity", got)
	}

	n.AddRenderer(NewRenderer("r", nil, nil))
	updateNodes(n, 0, nil)
	want := mgl32.Translate3D(3, 4, 0)
	if got := n.WorldMatrix(0); !got.ApproxEqualThreshold(want, tol) {
		t.Errorf("WorldMatrix = %v, want %v", got, want)
	}
}

func TestWorldColorModes(t *testing.T) {
	tests := []struct {
		mode ColorMode
		want Color
	}{
		{UseOwnMultiplyParentColor, Color{0.5, 0.5, 1, 0.5}},
		{UseOwnColor, Color{0.5, 1, 1, 1}},
		{UseParentColor, Color{1, 0.5, 1, 0.5}},
		{UseOwnMultiplyParentAlpha, Color{0.5, 1, 1, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			parent := NewNode("parent")
			child := NewNode("child")
			parent.AddChild(child)
			bake(parent.Color(), Vector4Value(Color{1, 0.5, 1, 0.5}))
			bake(child.Color(), Vector4Value(Color{0.5, 1, 1, 1}))
			child.SetColorMode(tt.mode)
			updateNodes(parent, 0, nil)

			if got := child.WorldColor(0); !got.ApproxEqualThreshold(tt.want, tol) {
				t.Errorf("WorldColor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorldColorClamped(t *testing.T) {
	n := NewNode("n")
	bake(n.Color(), Vector4Value(Color{2, -1, 0.5, 1}))
	updateNodes(n, 0, nil)
	if got := n.WorldColor(0); got != (Color{1, 0, 0.5, 1}) {
		t.Errorf("WorldColor = %v, want [1 0 0.5 1]", got)
	}
}

func TestInvisibleParentHidesChild(t *testing.T) {
	parent, child := parentAndChild()
	bake(parent.Visible(), BoolValue(false))
	updateNodes(parent, 0, nil)

	if child.IsVisible(0) {
		t.Error("child visible under an invisible parent")
	}
}

func TestCleanNodeCarriesWorldValues(t *testing.T) {
	parent, child := parentAndChild()
	// The construction flags and baked values are exhausted after two
	// frames; the third copies the previous generation.
	for _, buf := range []BufferIndex{0, 1, 0} {
		for _, n := range []*Node{parent, child} {
			n.ResetToBaseValues(buf)
			n.resetFlags()
		}
		updateNodes(parent, buf, nil)
	}
	if child.DirtyFlags() != NothingFlag {
		t.Fatalf("DirtyFlags = %b, want none", child.DirtyFlags())
	}
	if got := child.WorldPosition(0); !vec3Near(got, mgl32.Vec3{15, 20, 0}) {
		t.Errorf("WorldPosition = %v, want [15 20 0]", got)
	}
}

func TestUpdateNodesCollectsLayers(t *testing.T) {
	root := NewLayer("root")
	visible := NewNode("visible")
	hidden := NewNode("hidden")
	hiddenChild := NewNode("hiddenChild")
	root.AddChild(visible)
	root.AddChild(hidden)
	hidden.AddChild(hiddenChild)
	visible.AddRenderer(NewRenderer("a", nil, nil))
	hiddenChild.AddRenderer(NewRenderer("b", nil, nil))
	bake(hidden.Visible(), BoolValue(false))

	nested := NewLayer("nested")
	root.AddChild(&nested.Node)
	inner := NewNode("inner")
	nested.AddChild(inner)
	inner.AddRenderer(NewRenderer("c", nil, nil))

	layers, count := updateNodes(&root.Node, 0, nil)
	if count != 6 {
		t.Errorf("count = %d, want 6", count)
	}
	if len(layers) != 2 || layers[0] != root || layers[1] != nested {
		t.Fatalf("layers = %v, want [root nested]", layers)
	}
	if len(root.renderables) != 1 || root.renderables[0].node != visible {
		t.Errorf("root renderables = %v, want only the visible node", root.renderables)
	}
	if len(nested.renderables) != 1 || nested.renderables[0].node != inner {
		t.Errorf("nested renderables = %v, want the inner node", nested.renderables)
	}
}

func TestClippingIDInherited(t *testing.T) {
	root := NewLayer("root")
	clip := NewNode("clip")
	child := NewNode("child")
	root.AddChild(clip)
	clip.AddChild(child)
	clip.SetClippingMode(ClipChildren)

	updateNodes(&root.Node, 0, nil)
	if child.clippingID != clip.ID() {
		t.Errorf("clippingID = %d, want %d", child.clippingID, clip.ID())
	}
	if !root.hasClipping {
		t.Error("layer should record clipping")
	}
}
