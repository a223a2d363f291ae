package arbor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func layoutNode(name string, policy ResizePolicy) *Node {
	n := NewNode(name)
	n.SetResizePolicy(policy, AllDimensions)
	bakeVec3(n.AnchorPoint(), AnchorPointTopLeft)
	return n
}

func TestRequestRelayoutPropagatesUp(t *testing.T) {
	a := layoutNode("a", FitToChildren)
	b := layoutNode("b", FitToChildren)
	c := layoutNode("c", Fixed)
	sibling := layoutNode("sibling", Fixed)
	cousin := layoutNode("cousin", Fixed)
	a.AddChild(b)
	a.AddChild(sibling)
	b.AddChild(c)
	b.AddChild(cousin)

	rc := NewRelayoutController(nil)
	rc.RequestRelayout(c, AllDimensions)

	tests := []struct {
		node *Node
		want Dimension
	}{
		{a, AllDimensions},
		{b, AllDimensions},
		{c, AllDimensions},
		{sibling, 0},
		{cousin, 0},
	}
	for _, tt := range tests {
		if got := tt.node.relayout.dirty; got != tt.want {
			t.Errorf("%s dirty = %b, want %b", tt.node.Name(), got, tt.want)
		}
	}
	if len(rc.roots) != 1 || rc.roots[0] != a {
		t.Errorf("roots = %v, want [a]", rc.roots)
	}
	if !rc.IsRelayoutRequired() {
		t.Error("IsRelayoutRequired = false, want true")
	}
}

func TestRequestRelayoutSingleDimension(t *testing.T) {
	a := layoutNode("a", FitToChildren)
	b := layoutNode("b", Fixed)
	a.AddChild(b)
	b.SetResizePolicy(DimensionDependency, Height)
	b.SetDimensionDependency(Height, Width)

	rc := NewRelayoutController(nil)
	rc.RequestRelayout(b, Width)

	if got := b.relayout.dirty; got != AllDimensions {
		t.Errorf("b dirty = %b, want width and its dependent height", got)
	}
	if got := a.relayout.dirty; got != AllDimensions {
		t.Errorf("a dirty = %b, want %b", got, AllDimensions)
	}
}

func TestRelayoutFitToChildren(t *testing.T) {
	a := layoutNode("a", FitToChildren)
	b := layoutNode("b", FitToChildren)
	c := layoutNode("c", Fixed)
	a.AddChild(b)
	b.AddChild(c)
	bakeVec3(c.Size(), mgl32.Vec3{10, 20, 0})
	bakeVec3(b.Position(), mgl32.Vec3{5, 0, 0})

	rc := NewRelayoutController(nil)
	rc.RequestRelayout(c, AllDimensions)
	if n := rc.Relayout(0); n != 3 {
		t.Errorf("Relayout negotiated %d nodes, want 3", n)
	}

	if got := b.Size().Get(0).Vector3(); got != (mgl32.Vec3{10, 20, 0}) {
		t.Errorf("b size = %v, want [10 20 0]", got)
	}
	if got := a.Size().Get(0).Vector3(); got != (mgl32.Vec3{15, 20, 0}) {
		t.Errorf("a size = %v, want [15 20 0]", got)
	}
	if a.IsLayoutDirty(AllDimensions) || c.IsLayoutDirty(AllDimensions) {
		t.Error("dirty flags not cleared")
	}
	if rc.IsRelayoutRequired() {
		t.Error("roots not cleared")
	}
}

func TestRelayoutFromParent(t *testing.T) {
	parent := layoutNode("parent", Fixed)
	child := layoutNode("child", FillToParent)
	child.SetResizePolicy(SizeRelativeToParent, Height)
	child.SetSizeModeFactor(mgl32.Vec3{1, 0.5, 1})
	parent.AddChild(child)
	bakeVec3(parent.Size(), mgl32.Vec3{100, 50, 0})

	rc := NewRelayoutController(nil)
	rc.RequestRelayout(parent, AllDimensions)
	if !child.IsLayoutDirty(AllDimensions) {
		t.Fatal("child following its parent should be dirty")
	}
	rc.Relayout(0)

	if got := child.Size().Get(0).Vector3(); got != (mgl32.Vec3{100, 25, 0}) {
		t.Errorf("child size = %v, want [100 25 0]", got)
	}
}

func TestRelayoutNaturalSizeAndDependency(t *testing.T) {
	n := layoutNode("n", UseNaturalSize)
	n.SetNaturalSize(mgl32.Vec3{40, 10, 0})
	n.SetResizePolicy(DimensionDependency, Height)
	n.SetDimensionDependency(Height, Width)

	rc := NewRelayoutController(nil)
	rc.RequestRelayout(n, AllDimensions)
	rc.Relayout(0)

	if got := n.Size().Get(0).Vector3(); got != (mgl32.Vec3{40, 40, 0}) {
		t.Errorf("size = %v, want [40 40 0]", got)
	}
}

func TestRelayoutSkipsDestroyedRoots(t *testing.T) {
	n := layoutNode("n", UseNaturalSize)
	n.SetNaturalSize(mgl32.Vec3{1, 1, 0})
	rc := NewRelayoutController(nil)
	rc.RequestRelayout(n, AllDimensions)
	n.destroySubtree()

	if got := rc.Relayout(0); got != 0 {
		t.Errorf("Relayout = %d, want 0", got)
	}
}

func TestAddRootCollapsesDescendants(t *testing.T) {
	a := layoutNode("a", Fixed)
	b := layoutNode("b", Fixed)
	a.AddChild(b)

	rc := NewRelayoutController(nil)
	rc.RequestRelayout(b, Width)
	rc.RequestRelayout(a, Width)
	if len(rc.roots) != 1 || rc.roots[0] != a {
		t.Errorf("roots = %v, want [a]", rc.roots)
	}
}
