package arbor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// ConstraintState is the lifecycle of a constraint.
type ConstraintState uint8

const (
	ConstraintPending ConstraintState = iota
	ConstraintApplying
	ConstraintApplied
	ConstraintRemoving
	ConstraintRemoved
)

// String returns the state name.
func (s ConstraintState) String() string {
	switch s {
	case ConstraintPending:
		return "Pending"
	case ConstraintApplying:
		return "Applying"
	case ConstraintApplied:
		return "Applied"
	case ConstraintRemoving:
		return "Removing"
	case ConstraintRemoved:
		return "Removed"
	default:
		return fmt.Sprintf("ConstraintState(%d)", uint8(s))
	}
}

// EndAction decides what happens to a value written by a constraint or an
// animation once it stops.
type EndAction uint8

const (
	Bake      EndAction = iota // keep the current value
	Discard                    // revert to the value before
	BakeFinal                  // keep the final target value (animations only)
)

// TimePeriod is a window on a timeline, in seconds.
type TimePeriod struct {
	Delay    float32
	Duration float32
}

// End returns the time the window closes.
func (p TimePeriod) End() float32 { return p.Delay + p.Duration }

// Inputs gives a constraint function typed access to its input values for
// the current frame.
type Inputs struct {
	buf    BufferIndex
	inputs []PropertyInput
}

// Len returns the number of inputs.
func (in Inputs) Len() int { return len(in.inputs) }

// Value returns input i as read in the frame being updated.
func (in Inputs) Value(i int) Value { return in.inputs[i].Input(in.buf) }

// Bool returns input i as a bool. It panics if the input is of another kind.
func (in Inputs) Bool(i int) bool { return in.Value(i).Bool() }

// Float returns input i as a float.
func (in Inputs) Float(i int) float32 { return in.Value(i).Float() }

// Int returns input i as an int.
func (in Inputs) Int(i int) int32 { return in.Value(i).Int() }

// Vector2 returns input i as a 2D vector.
func (in Inputs) Vector2(i int) mgl32.Vec2 { return in.Value(i).Vector2() }

// Vector3 returns input i as a 3D vector.
func (in Inputs) Vector3(i int) mgl32.Vec3 { return in.Value(i).Vector3() }

// Vector4 returns input i as a 4D vector.
func (in Inputs) Vector4(i int) mgl32.Vec4 { return in.Value(i).Vector4() }

// Matrix3 returns input i as a 3x3 matrix.
func (in Inputs) Matrix3(i int) mgl32.Mat3 { return in.Value(i).Matrix3() }

// Matrix returns input i as a 4x4 matrix.
func (in Inputs) Matrix(i int) mgl32.Mat4 { return in.Value(i).Matrix() }

// Quaternion returns input i as a rotation.
func (in Inputs) Quaternion(i int) mgl32.Quat { return in.Value(i).Quaternion() }

// ConstraintFunc computes the new value of a constrained property from its
// current value and the inputs. It must not retain in.
type ConstraintFunc func(current Value, in Inputs) Value

// Typed constructors for the closed set of kinds.

// BoolFunc adapts a typed function to a constraint on a bool property.
func BoolFunc(f func(current bool, in Inputs) bool) ConstraintFunc {
	return func(current Value, in Inputs) Value { return BoolValue(f(current.Bool(), in)) }
}

// FloatFunc adapts a typed function to a constraint on a float property.
func FloatFunc(f func(current float32, in Inputs) float32) ConstraintFunc {
	return func(current Value, in Inputs) Value { return FloatValue(f(current.Float(), in)) }
}

// IntFunc adapts a typed function to a constraint on an int property.
func IntFunc(f func(current int32, in Inputs) int32) ConstraintFunc {
	return func(current Value, in Inputs) Value { return IntValue(f(current.Int(), in)) }
}

// Vector2Func adapts a typed function to a constraint on a 2D vector property.
func Vector2Func(f func(current mgl32.Vec2, in Inputs) mgl32.Vec2) ConstraintFunc {
	return func(current Value, in Inputs) Value { return Vector2Value(f(current.Vector2(), in)) }
}

// Vector3Func adapts a typed function to a constraint on a 3D vector property.
// current is the value the target holds before the constraint runs this
// frame, after earlier constraints on the same property.
func Vector3Func(f func(current mgl32.Vec3, in Inputs) mgl32.Vec3) ConstraintFunc {
	return func(current Value, in Inputs) Value { return Vector3Value(f(current.Vector3(), in)) }
}

// Vector4Func adapts a typed function to a constraint on a 4D vector property.
func Vector4Func(f func(current mgl32.Vec4, in Inputs) mgl32.Vec4) ConstraintFunc {
	return func(current Value, in Inputs) Value { return Vector4Value(f(current.Vector4(), in)) }
}

// Matrix3Func adapts a typed function to a constraint on a 3x3 matrix property.
func Matrix3Func(f func(current mgl32.Mat3, in Inputs) mgl32.Mat3) ConstraintFunc {
	return func(current Value, in Inputs) Value { return Matrix3Value(f(current.Matrix3(), in)) }
}

// MatrixFunc adapts a typed function to a constraint on a 4x4 matrix property.
func MatrixFunc(f func(current mgl32.Mat4, in Inputs) mgl32.Mat4) ConstraintFunc {
	return func(current Value, in Inputs) Value { return MatrixValue(f(current.Matrix(), in)) }
}

// QuaternionFunc adapts a typed function to a constraint on a rotation property.
func QuaternionFunc(f func(current mgl32.Quat, in Inputs) mgl32.Quat) ConstraintFunc {
	return func(current Value, in Inputs) Value { return QuaternionValue(f(current.Quaternion(), in)) }
}

// EqualTo copies input 0 unchanged.
func EqualTo() ConstraintFunc {
	return func(_ Value, in Inputs) Value { return in.Value(0) }
}

// Constraint drives a target property from a function of input properties.
// Its output is blended in over the apply window and, when removed
// gracefully with Discard, blended out over the remove window.
type Constraint struct {
	target *Property
	inputs []PropertyInput
	fn     ConstraintFunc
	tag    uint32

	applyPeriod  TimePeriod
	applyEase    ease.TweenFunc
	removePeriod TimePeriod
	removeEase   ease.TweenFunc
	removeAction EndAction

	state       ConstraintState
	elapsed     float32
	weight      float32
	startWeight float32
	tween       *gween.Tween
	lastValue   Value
	hasValue    bool

	observed []*PropertyOwner
	um       *UpdateManager
}

// NewConstraint creates a constraint on target. The target must belong to an
// owner. Panics if the target has no owner.
func NewConstraint(target *Property, fn ConstraintFunc, inputs ...PropertyInput) *Constraint {
	if target == nil || target.owner == nil {
		panic("arbor: constraint target must belong to an owner")
	}
	if fn == nil {
		panic("arbor: constraint function is nil")
	}
	return &Constraint{
		target:       target,
		inputs:       inputs,
		fn:           fn,
		applyEase:    ease.Linear,
		removeEase:   ease.Linear,
		removeAction: Bake,
	}
}

// SetApplyTime sets the window over which the constraint blends in.
func (c *Constraint) SetApplyTime(p TimePeriod, fn ease.TweenFunc) *Constraint {
	c.applyPeriod = p
	if fn != nil {
		c.applyEase = fn
	}
	return c
}

// SetRemoveTime sets the window over which a graceful removal blends out.
func (c *Constraint) SetRemoveTime(p TimePeriod, fn ease.TweenFunc) *Constraint {
	c.removePeriod = p
	if fn != nil {
		c.removeEase = fn
	}
	return c
}

// SetRemoveAction selects Bake or Discard. BakeFinal behaves like Bake.
func (c *Constraint) SetRemoveAction(a EndAction) *Constraint {
	c.removeAction = a
	return c
}

// SetTag labels the constraint for removal by tag.
func (c *Constraint) SetTag(tag uint32) *Constraint {
	c.tag = tag
	return c
}

// Tag returns the tag used by RemoveConstraintsByTag.
func (c *Constraint) Tag() uint32 { return c.tag }

// Target returns the property the constraint writes.
func (c *Constraint) Target() *Property { return c.target }

// State returns where the constraint is in its lifecycle.
func (c *Constraint) State() ConstraintState { return c.state }

// Weight returns the blend weight of the last applied frame, from 0 to 1.
func (c *Constraint) Weight() float32 { return c.weight }

// RemoveAction returns what happens to the target when the constraint is
// removed.
func (c *Constraint) RemoveAction() EndAction { return c.removeAction }

// TargetOwner returns the owner of the target property.
func (c *Constraint) TargetOwner() *PropertyOwner { return c.target.owner }

// attach registers the constraint on its target owner and observes every
// owner it touches. Update stage only.
func (c *Constraint) attach(um *UpdateManager) bool {
	if c.state != ConstraintPending || c.um != nil {
		return false
	}
	owner := c.target.owner
	if owner.destroyed {
		c.state = ConstraintRemoved
		return false
	}
	for i, in := range c.inputs {
		if in.Kind() == KindNone {
			panic(fmt.Sprintf("arbor: constraint input %d has no kind", i))
		}
		if o := in.InputOwner(); o != nil && o.destroyed {
			c.state = ConstraintRemoved
			return false
		}
	}
	c.um = um
	c.observe(owner)
	for _, in := range c.inputs {
		if o := in.InputOwner(); o != nil {
			c.observe(o)
		}
	}
	owner.addConstraint(c)
	return true
}

func (c *Constraint) observe(o *PropertyOwner) {
	for _, x := range c.observed {
		if x == o {
			return
		}
	}
	c.observed = append(c.observed, o)
	o.AddObserver(c)
}

// detach undoes attach.
func (c *Constraint) detach() {
	for _, o := range c.observed {
		o.RemoveObserver(c)
	}
	c.observed = nil
	c.target.owner.removeConstraint(c)
	if c.um != nil {
		c.um.constraintRemoved(c)
		c.um = nil
	}
}

// PropertyOwnerConnected implements PropertyOwnerObserver.
func (c *Constraint) PropertyOwnerConnected(*PropertyOwner) {}

// PropertyOwnerDisconnected implements PropertyOwnerObserver. A
// disconnected owner only pauses the constraint.
func (c *Constraint) PropertyOwnerDisconnected(BufferIndex, *PropertyOwner) {}

// PropertyOwnerDestroyed invalidates the constraint without blending.
func (c *Constraint) PropertyOwnerDestroyed(o *PropertyOwner) {
	if c.state == ConstraintRemoved {
		return
	}
	c.state = ConstraintRemoved
	c.weight = 0
	c.detach()
}

// ready reports whether every owner involved is part of the scene.
func (c *Constraint) ready() bool {
	for _, o := range c.observed {
		if !o.connected {
			return false
		}
	}
	return true
}

// progress advances the window by dt and returns the eased progress in [0,1]
// and whether the window has closed.
func (c *Constraint) progress(dt float32, p TimePeriod, fn ease.TweenFunc) (float32, bool) {
	c.elapsed += dt
	local := c.elapsed - p.Delay
	if local < 0 {
		return 0, false
	}
	if p.Duration <= 0 || local >= p.Duration {
		return 1, true
	}
	if c.tween == nil {
		c.tween = gween.New(0, 1, p.Duration, fn)
	}
	v, done := c.tween.Set(local)
	return v, done
}

// Apply runs one frame of the constraint. Returns false when it was skipped.
func (c *Constraint) Apply(ctx *UpdateContext) bool {
	switch c.state {
	case ConstraintRemoved:
		return false
	case ConstraintPending:
		c.state = ConstraintApplying
		c.elapsed = 0
		c.tween = nil
	}
	if !c.ready() {
		return false
	}

	switch c.state {
	case ConstraintApplying:
		p, done := c.progress(ctx.Elapsed, c.applyPeriod, c.applyEase)
		c.weight = p
		if done {
			c.weight = 1
			c.state = ConstraintApplied
			c.tween = nil
		}
	case ConstraintApplied:
		c.weight = 1
	case ConstraintRemoving:
		p, done := c.progress(ctx.Elapsed, c.removePeriod, c.removeEase)
		c.weight = c.startWeight * (1 - p)
		if done {
			c.weight = 0
			c.state = ConstraintRemoved
			c.detach()
			return true
		}
	}

	if c.weight <= 0 {
		return true
	}

	buf := ctx.Buffer
	current := c.target.Get(buf)
	out, ok := c.evaluate(ctx, current)
	if !ok {
		c.state = ConstraintRemoved
		c.weight = 0
		c.detach()
		return false
	}
	blended := out
	if c.weight < 1 {
		blended = Lerp(current, out, c.weight)
	}
	c.target.Set(buf, blended)
	c.lastValue = blended
	c.hasValue = true
	return true
}

// evaluate calls the user function, containing any panic so it never leaves
// the update stage.
func (c *Constraint) evaluate(ctx *UpdateContext, current Value) (out Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger.Error("Constraint function failed, removing constraint.",
				"target", c.target.name, "owner", c.target.owner.name, "panic", r)
			ok = false
		}
	}()
	out = c.fn(current, Inputs{buf: ctx.Buffer, inputs: c.inputs})
	if out.kind != current.kind {
		ctx.Logger.Error("Constraint function returned wrong kind, removing constraint.",
			"target", c.target.name, "want", current.kind, "got", out.kind)
		return out, false
	}
	return out, true
}

// remove stops the constraint. Immediate removal or the Bake action finish at
// once; otherwise the output blends out over the remove window.
func (c *Constraint) remove(buf BufferIndex, immediate bool) {
	switch c.state {
	case ConstraintRemoved:
		return
	case ConstraintPending:
		c.state = ConstraintRemoved
		c.detach()
		return
	}
	if c.removeAction != Discard {
		if c.hasValue {
			c.target.Bake(buf, c.lastValue)
		}
		c.state = ConstraintRemoved
		c.detach()
		return
	}
	if immediate {
		c.state = ConstraintRemoved
		c.weight = 0
		c.detach()
		return
	}
	if c.state == ConstraintRemoving {
		return
	}
	c.state = ConstraintRemoving
	c.startWeight = c.weight
	c.elapsed = 0
	c.tween = nil
}
