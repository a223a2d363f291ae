package arbor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies the type held by a Value. The set is closed: every
// animatable property, constraint output and uniform is one of these kinds.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindFloat
	KindInt
	KindVector2
	KindVector3
	KindVector4
	KindMatrix3
	KindMatrix
	KindQuaternion
)

var kindNames = [...]string{
	KindNone:       "None",
	KindBool:       "Bool",
	KindFloat:      "Float",
	KindInt:        "Int",
	KindVector2:    "Vector2",
	KindVector3:    "Vector3",
	KindVector4:    "Vector4",
	KindMatrix3:    "Matrix3",
	KindMatrix:     "Matrix",
	KindQuaternion: "Quaternion",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// components returns how many float slots a kind occupies.
func (k Kind) components() int {
	switch k {
	case KindBool, KindFloat, KindInt:
		return 1
	case KindVector2:
		return 2
	case KindVector3:
		return 3
	case KindVector4, KindQuaternion:
		return 4
	case KindMatrix3:
		return 9
	case KindMatrix:
		return 16
	default:
		return 0
	}
}

// Value is a tagged variant over the property kinds. It is a plain value type
// so it can be stored in double-buffered slots and copied across generations
// without allocation.
type Value struct {
	kind Kind
	data [16]float32
}

// BoolValue wraps a bool.
func BoolValue(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.data[0] = 1
	}
	return v
}

// FloatValue wraps a float.
func FloatValue(f float32) Value {
	v := Value{kind: KindFloat}
	v.data[0] = f
	return v
}

// IntValue wraps an int.
func IntValue(i int32) Value {
	v := Value{kind: KindInt}
	v.data[0] = math.Float32frombits(uint32(i))
	return v
}

// Vector2Value wraps a 2D vector.
func Vector2Value(x mgl32.Vec2) Value {
	v := Value{kind: KindVector2}
	copy(v.data[:], x[:])
	return v
}

// Vector3Value wraps a 3D vector.
func Vector3Value(x mgl32.Vec3) Value {
	v := Value{kind: KindVector3}
	copy(v.data[:], x[:])
	return v
}

// Vector4Value wraps a 4D vector, also used for colors.
func Vector4Value(x mgl32.Vec4) Value {
	v := Value{kind: KindVector4}
	copy(v.data[:], x[:])
	return v
}

// Matrix3Value wraps a 3x3 matrix.
func Matrix3Value(m mgl32.Mat3) Value {
	v := Value{kind: KindMatrix3}
	copy(v.data[:], m[:])
	return v
}

// MatrixValue wraps a 4x4 matrix.
func MatrixValue(m mgl32.Mat4) Value {
	v := Value{kind: KindMatrix}
	copy(v.data[:], m[:])
	return v
}

// QuaternionValue wraps a rotation.
func QuaternionValue(q mgl32.Quat) Value {
	v := Value{kind: KindQuaternion}
	v.data[0] = q.W
	v.data[1], v.data[2], v.data[3] = q.V[0], q.V[1], q.V[2]
	return v
}

// ZeroValue returns the zero of a kind. Matrices and quaternions are identity.
func ZeroValue(k Kind) Value {
	switch k {
	case KindMatrix3:
		return Matrix3Value(mgl32.Ident3())
	case KindMatrix:
		return MatrixValue(mgl32.Ident4())
	case KindQuaternion:
		return QuaternionValue(mgl32.QuatIdent())
	default:
		return Value{kind: k}
	}
}

// Kind returns the type held by v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("arbor: value is %s, not %s", v.kind, k))
	}
}

// Bool returns the value as a bool. It panics for any other kind.
func (v Value) Bool() bool {
	v.mustBe(KindBool)
	return v.data[0] != 0
}

// Float returns the value as a float.
func (v Value) Float() float32 {
	v.mustBe(KindFloat)
	return v.data[0]
}

// Int returns the value as an int.
func (v Value) Int() int32 {
	v.mustBe(KindInt)
	return int32(math.Float32bits(v.data[0]))
}

// Vector2 returns the value as a 2D vector.
func (v Value) Vector2() mgl32.Vec2 {
	v.mustBe(KindVector2)
	return mgl32.Vec2{v.data[0], v.data[1]}
}

// Vector3 returns the value as a 3D vector.
func (v Value) Vector3() mgl32.Vec3 {
	v.mustBe(KindVector3)
	return mgl32.Vec3{v.data[0], v.data[1], v.data[2]}
}

// Vector4 returns the value as a 4D vector.
func (v Value) Vector4() mgl32.Vec4 {
	v.mustBe(KindVector4)
	return mgl32.Vec4{v.data[0], v.data[1], v.data[2], v.data[3]}
}

// Matrix3 returns the value as a 3x3 matrix.
func (v Value) Matrix3() mgl32.Mat3 {
	v.mustBe(KindMatrix3)
	var m mgl32.Mat3
	copy(m[:], v.data[:9])
	return m
}

// Matrix returns the value as a 4x4 matrix.
func (v Value) Matrix() mgl32.Mat4 {
	v.mustBe(KindMatrix)
	var m mgl32.Mat4
	copy(m[:], v.data[:])
	return m
}

// Quaternion returns the value as a rotation.
func (v Value) Quaternion() mgl32.Quat {
	v.mustBe(KindQuaternion)
	return mgl32.Quat{W: v.data[0], V: mgl32.Vec3{v.data[1], v.data[2], v.data[3]}}
}

// Equal reports whether a and b hold the same kind and identical components.
func (v Value) Equal(o Value) bool {
	return v == o
}

// ApproxEqual compares component-wise within mgl32's epsilon.
func (v Value) ApproxEqual(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindInt || v.kind == KindBool {
		return v.data[0] == o.data[0]
	}
	for i := 0; i < v.kind.components(); i++ {
		if !mgl32.FloatEqual(v.data[i], o.data[i]) {
			return false
		}
	}
	return true
}

// String formats the value for logs.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.Bool())
	case KindInt:
		return fmt.Sprintf("Int(%d)", v.Int())
	case KindQuaternion:
		q := v.Quaternion()
		return fmt.Sprintf("Quaternion(%g, %v)", q.W, q.V)
	default:
		return fmt.Sprintf("%s%v", v.kind, v.data[:v.kind.components()])
	}
}

// Lerp interpolates between a and b. Booleans switch to b once progress
// reaches 1, integers round to nearest, quaternions use spherical
// interpolation and every other kind interpolates component-wise.
func Lerp(a, b Value, progress float32) Value {
	if a.kind != b.kind {
		panic(fmt.Sprintf("arbor: cannot interpolate %s with %s", a.kind, b.kind))
	}
	switch a.kind {
	case KindNone:
		return a
	case KindBool:
		if progress >= 1 {
			return b
		}
		return a
	case KindInt:
		ai, bi := float32(a.Int()), float32(b.Int())
		return IntValue(int32(math.Floor(float64(ai + (bi-ai)*progress + 0.5))))
	case KindQuaternion:
		return QuaternionValue(mgl32.QuatSlerp(a.Quaternion(), b.Quaternion(), progress))
	}
	out := Value{kind: a.kind}
	for i := 0; i < a.kind.components(); i++ {
		out.data[i] = a.data[i] + (b.data[i]-a.data[i])*progress
	}
	return out
}

// Add combines a relative value with a base value. Rotations compose, matrices
// multiply, booleans OR and everything else adds component-wise.
func Add(base, relative Value) Value {
	if base.kind != relative.kind {
		panic(fmt.Sprintf("arbor: cannot add %s to %s", relative.kind, base.kind))
	}
	switch base.kind {
	case KindBool:
		return BoolValue(base.Bool() || relative.Bool())
	case KindInt:
		return IntValue(base.Int() + relative.Int())
	case KindQuaternion:
		return QuaternionValue(relative.Quaternion().Mul(base.Quaternion()).Normalize())
	case KindMatrix3:
		return Matrix3Value(relative.Matrix3().Mul3(base.Matrix3()))
	case KindMatrix:
		return MatrixValue(relative.Matrix().Mul4(base.Matrix()))
	}
	out := Value{kind: base.kind}
	for i := 0; i < base.kind.components(); i++ {
		out.data[i] = base.data[i] + relative.data[i]
	}
	return out
}
