package arbor

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPropertySetLastsOneFrame(t *testing.T) {
	p := NewProperty("x", FloatValue(1))
	p.Set(0, FloatValue(5))
	if got := p.Get(0).Float(); got != 5 {
		t.Fatalf("Get(0) = %v, want 5", got)
	}
	if got := p.Get(1).Float(); got != 1 {
		t.Errorf("Get(1) = %v, want untouched 1", got)
	}

	// next frame writes buffer 1
	p.ResetToBaseValue(1)
	if got := p.Get(1).Float(); got != 1 {
		t.Errorf("after reset Get(1) = %v, want 1", got)
	}
	if p.IsClean() {
		t.Error("property should stay dirty until both generations reset")
	}
	p.ResetToBaseValue(0)
	if got := p.Get(0).Float(); got != 1 {
		t.Errorf("after reset Get(0) = %v, want base 1", got)
	}
	if !p.IsClean() {
		t.Error("property should be clean after two resets")
	}
}

func TestPropertyBakePersists(t *testing.T) {
	p := NewProperty("x", FloatValue(1))
	p.Bake(0, FloatValue(7))
	if got := p.Base().Float(); got != 7 {
		t.Errorf("Base() = %v, want 7", got)
	}
	p.ResetToBaseValue(1)
	p.ResetToBaseValue(0)
	if p.Get(0).Float() != 7 || p.Get(1).Float() != 7 {
		t.Errorf("baked value lost: %v / %v", p.Get(0), p.Get(1))
	}
}

func TestPropertyRelative(t *testing.T) {
	p := NewProperty("pos", Vector3Value(mgl32.Vec3{1, 1, 1}))
	p.SetRelative(0, Vector3Value(mgl32.Vec3{1, 2, 3}))
	if got := p.Get(0).Vector3(); got != (mgl32.Vec3{2, 3, 4}) {
		t.Errorf("SetRelative = %v, want [2 3 4]", got)
	}
	if got := p.Base().Vector3(); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("SetRelative changed base to %v", got)
	}
	p.BakeRelative(0, Vector3Value(mgl32.Vec3{1, 0, 0}))
	if got := p.Base().Vector3(); got != (mgl32.Vec3{3, 3, 4}) {
		t.Errorf("BakeRelative base = %v, want [3 3 4]", got)
	}
}

func TestPropertyKindMismatchPanics(t *testing.T) {
	p := NewProperty("x", FloatValue(1))
	defer func() {
		if recover() == nil {
			t.Error("Set with a different kind should panic")
		}
	}()
	p.Set(0, IntValue(2))
}

func TestPropertyCopyPrevious(t *testing.T) {
	p := NewProperty("x", FloatValue(0))
	p.Set(0, FloatValue(3))
	p.CopyPrevious(1)
	if got := p.Get(1).Float(); got != 3 {
		t.Errorf("CopyPrevious = %v, want 3", got)
	}
}

// A reader of generation N never observes writes to generation N+1.
func TestPropertyConcurrentReadWrite(t *testing.T) {
	p := NewProperty("v", Vector4Value(mgl32.Vec4{1, 2, 3, 4}))
	want := p.Get(0)

	var wg sync.WaitGroup
	wg.Add(2)
	torn := make(chan Value, 1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			f := float32(i)
			p.Set(1, Vector4Value(mgl32.Vec4{f, f, f, f}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			if got := p.Get(0); got != want {
				select {
				case torn <- got:
				default:
				}
				return
			}
		}
	}()
	wg.Wait()
	close(torn)
	if got, ok := <-torn; ok {
		t.Errorf("reader saw %v, want %v", got, want)
	}
}

func TestDoubleBuffered(t *testing.T) {
	d := NewDoubleBuffered(3)
	d.Set(1, 9)
	if d.Get(0) != 3 || d.Get(1) != 9 {
		t.Errorf("Get = %d/%d, want 3/9", d.Get(0), d.Get(1))
	}
	*d.Ref(0) = 4
	d.CopyPrevious(1)
	if d.Get(1) != 4 {
		t.Errorf("CopyPrevious = %d, want 4", d.Get(1))
	}
	d.SetBoth(8)
	if d.Get(0) != 8 || d.Get(1) != 8 {
		t.Errorf("SetBoth = %d/%d, want 8/8", d.Get(0), d.Get(1))
	}
}

func TestSceneBuffersSwap(t *testing.T) {
	var s SceneBuffers
	if s.UpdateBufferIndex() != 0 || s.RenderBufferIndex() != 1 {
		t.Fatalf("initial = %d/%d, want 0/1", s.UpdateBufferIndex(), s.RenderBufferIndex())
	}
	s.Swap()
	if s.UpdateBufferIndex() != 1 || s.RenderBufferIndex() != 0 {
		t.Errorf("after swap = %d/%d, want 1/0", s.UpdateBufferIndex(), s.RenderBufferIndex())
	}
}

func TestPropertyOwnerIndexRanges(t *testing.T) {
	typ := NewTypeInfo("Slider")
	valueIdx := typ.AddProperty("value", FloatValue(0.5))
	if valueIdx != PropertyRegistrationStartIndex {
		t.Errorf("first registered index = %d, want %d", valueIdx, PropertyRegistrationStartIndex)
	}

	n := NewNodeOfType("slider", typ)
	custom := n.RegisterProperty("glow", FloatValue(0))
	if custom != PropertyCustomStartIndex {
		t.Errorf("first custom index = %d, want %d", custom, PropertyCustomStartIndex)
	}
	if again := n.RegisterProperty("glow", FloatValue(1)); again != custom {
		t.Errorf("re-registering returned %d, want %d", again, custom)
	}

	if p := n.Property(valueIdx); p == nil || p.Get(0).Float() != 0.5 {
		t.Errorf("registered property = %v", p)
	}
	if p := n.Property(NodeSize); p != n.Size() {
		t.Error("default index does not resolve to Size()")
	}
	if got := n.PropertyIndex("glow"); got != custom {
		t.Errorf("PropertyIndex(glow) = %d, want %d", got, custom)
	}
	if got := n.PropertyIndex("nope"); got != InvalidPropertyIndex {
		t.Errorf("PropertyIndex(nope) = %d, want invalid", got)
	}
	if n.Property(PropertyRegistrationStartIndex+5) != nil {
		t.Error("out-of-range registered index should be nil")
	}
}

func TestTypeInfoDuplicatePanics(t *testing.T) {
	typ := NewTypeInfo("T")
	typ.AddProperty("a", FloatValue(0))
	defer func() {
		if recover() == nil {
			t.Error("duplicate property name should panic")
		}
	}()
	typ.AddProperty("a", FloatValue(1))
}

func TestOwnerIDsIncrease(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	if b.ID() <= a.ID() {
		t.Errorf("IDs %d then %d, want increasing", a.ID(), b.ID())
	}
}
