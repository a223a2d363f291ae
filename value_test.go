package arbor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestValueRoundTrip(t *testing.T) {
	if got := BoolValue(true).Bool(); !got {
		t.Error("Bool() = false, want true")
	}
	if got := FloatValue(1.5).Float(); got != 1.5 {
		t.Errorf("Float() = %v, want 1.5", got)
	}
	if got := IntValue(-7).Int(); got != -7 {
		t.Errorf("Int() = %v, want -7", got)
	}
	if got := Vector3Value(mgl32.Vec3{1, 2, 3}).Vector3(); got != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("Vector3() = %v", got)
	}
	q := mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})
	if got := QuaternionValue(q).Quaternion(); got != q {
		t.Errorf("Quaternion() = %v, want %v", got, q)
	}
}

func TestValueWrongKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("reading a float as a vector should panic")
		}
	}()
	FloatValue(1).Vector3()
}

func TestZeroValue(t *testing.T) {
	if got := ZeroValue(KindQuaternion).Quaternion(); got != mgl32.QuatIdent() {
		t.Errorf("zero quaternion = %v, want identity", got)
	}
	if got := ZeroValue(KindMatrix).Matrix(); got != mgl32.Ident4() {
		t.Errorf("zero matrix = %v, want identity", got)
	}
	if got := ZeroValue(KindFloat).Float(); got != 0 {
		t.Errorf("zero float = %v", got)
	}
}

func TestLerp(t *testing.T) {
	got := Lerp(Vector2Value(mgl32.Vec2{0, 10}), Vector2Value(mgl32.Vec2{10, 20}), 0.25).Vector2()
	if got != (mgl32.Vec2{2.5, 12.5}) {
		t.Errorf("Lerp vector2 = %v, want [2.5 12.5]", got)
	}
	if got := Lerp(IntValue(0), IntValue(3), 0.5).Int(); got != 2 {
		t.Errorf("Lerp int = %d, want 2 (round half up)", got)
	}
	if got := Lerp(BoolValue(false), BoolValue(true), 0.99).Bool(); got {
		t.Error("Lerp bool switched before progress 1")
	}
	if got := Lerp(BoolValue(false), BoolValue(true), 1).Bool(); !got {
		t.Error("Lerp bool did not switch at progress 1")
	}

	a := mgl32.QuatIdent()
	b := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	mid := Lerp(QuaternionValue(a), QuaternionValue(b), 0.5).Quaternion()
	want := mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1})
	if !mid.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("Lerp quaternion = %v, want %v", mid, want)
	}
}

func TestLerpKindMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Lerp of different kinds should panic")
		}
	}()
	Lerp(FloatValue(0), IntValue(1), 0.5)
}

func TestAdd(t *testing.T) {
	if got := Add(FloatValue(1), FloatValue(2)).Float(); got != 3 {
		t.Errorf("Add float = %v, want 3", got)
	}
	if got := Add(BoolValue(false), BoolValue(true)).Bool(); !got {
		t.Error("Add bool should OR")
	}
	quarter := mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1})
	got := Add(QuaternionValue(quarter), QuaternionValue(quarter)).Quaternion()
	want := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	if !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("Add quaternion = %v, want %v", got, want)
	}
}

func TestValueApproxEqual(t *testing.T) {
	a := Vector3Value(mgl32.Vec3{1, 2, 3})
	b := Vector3Value(mgl32.Vec3{1, 2, 3.0000001})
	if !a.ApproxEqual(b) {
		t.Error("ApproxEqual should tolerate float noise")
	}
	if a.ApproxEqual(Vector2Value(mgl32.Vec2{1, 2})) {
		t.Error("ApproxEqual across kinds should be false")
	}
}

func TestKindString(t *testing.T) {
	if got := KindVector4.String(); got != "Vector4" {
		t.Errorf("String() = %q, want Vector4", got)
	}
	if got := Kind(200).String(); got != "Kind(200)" {
		t.Errorf("String() = %q, want Kind(200)", got)
	}
}
