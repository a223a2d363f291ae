package arbor

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ConditionKind selects how a PropertyCondition tests a value.
type ConditionKind uint8

const (
	ConditionLessThan ConditionKind = iota
	ConditionGreaterThan
	ConditionInside
	ConditionOutside
	ConditionStep
)

// String returns the condition name.
func (k ConditionKind) String() string {
	switch k {
	case ConditionLessThan:
		return "LessThan"
	case ConditionGreaterThan:
		return "GreaterThan"
	case ConditionInside:
		return "Inside"
	case ConditionOutside:
		return "Outside"
	case ConditionStep:
		return "Step"
	default:
		return fmt.Sprintf("ConditionKind(%d)", k)
	}
}

// PropertyCondition tests the value of a property. Booleans count as 0 or 1,
// integers and floats as themselves and vectors by their length. Other kinds
// never satisfy a condition.
type PropertyCondition struct {
	Kind ConditionKind
	// LessThan and GreaterThan use A. Inside and Outside use the open range
	// (A, B). Step uses A as the step size and B as the reference value.
	A, B float32
}

// LessThanCondition holds while the value is below limit.
func LessThanCondition(limit float32) PropertyCondition {
	return PropertyCondition{Kind: ConditionLessThan, A: limit}
}

// GreaterThanCondition holds while the value is above limit.
func GreaterThanCondition(limit float32) PropertyCondition {
	return PropertyCondition{Kind: ConditionGreaterThan, A: limit}
}

// InsideCondition holds while the value is strictly between lo and hi.
func InsideCondition(lo, hi float32) PropertyCondition {
	return PropertyCondition{Kind: ConditionInside, A: lo, B: hi}
}

// OutsideCondition holds while the value is below lo or above hi.
func OutsideCondition(lo, hi float32) PropertyCondition {
	return PropertyCondition{Kind: ConditionOutside, A: lo, B: hi}
}

// StepCondition holds in the frame the value enters a new step of size step
// counted from reference.
func StepCondition(step, reference float32) PropertyCondition {
	if step == 0 {
		panic("arbor: step condition needs a non-zero step")
	}
	return PropertyCondition{Kind: ConditionStep, A: step, B: reference}
}

// NotifyMode selects which condition changes produce a notification.
type NotifyMode uint8

const (
	// NotifyOnTrue notifies when the condition becomes true. Step conditions
	// notify on every new step.
	NotifyOnTrue NotifyMode = iota
	// NotifyOnFalse notifies when the condition becomes false.
	NotifyOnFalse
	// NotifyOnChanged notifies on every change.
	NotifyOnChanged
)

var notificationIDCounter atomic.Uint32

// PropertyNotification watches one property input and reports through a
// PropertyNotified notification whenever its condition changes as selected
// by its notify mode. Conditions are checked once per frame after
// constraints and node update, on the values of the frame being prepared.
// Inputs whose owner is off the scene are not checked.
type PropertyNotification struct {
	id    uint32
	input PropertyInput
	cond  PropertyCondition
	mode  NotifyMode

	// update stage state
	valid    bool
	step     int64
	attached bool
}

// NewPropertyNotification creates a notification for input. Add it with
// Core.AddPropertyNotification.
func NewPropertyNotification(input PropertyInput, cond PropertyCondition, mode NotifyMode) *PropertyNotification {
	if input == nil {
		panic("arbor: property notification needs an input")
	}
	return &PropertyNotification{
		id:    notificationIDCounter.Add(1),
		input: input,
		cond:  cond,
		mode:  mode,
	}
}

// ID returns the notification identifier.
func (pn *PropertyNotification) ID() uint32 { return pn.id }

// Input returns the watched input.
func (pn *PropertyNotification) Input() PropertyInput { return pn.input }

// Condition returns the tested condition.
func (pn *PropertyNotification) Condition() PropertyCondition { return pn.cond }

// NotifyMode returns which changes are reported.
func (pn *PropertyNotification) NotifyMode() NotifyMode { return pn.mode }

// Valid returns the last result of the condition. Update stage only; the
// producer reads it from the notification.
func (pn *PropertyNotification) Valid() bool { return pn.valid }

// check evaluates the condition against generation buf and reports whether
// a notification is due.
func (pn *PropertyNotification) check(buf BufferIndex) bool {
	if o := pn.input.InputOwner(); o != nil && !o.IsConnected() {
		return false
	}
	x, ok := conditionScalar(pn.input.Input(buf))
	result := ok && pn.eval(x)
	changed := result != pn.valid
	pn.valid = result

	if pn.cond.Kind == ConditionStep && result {
		return pn.mode != NotifyOnFalse
	}
	switch pn.mode {
	case NotifyOnTrue:
		return changed && result
	case NotifyOnFalse:
		return changed && !result
	default:
		return changed
	}
}

func (pn *PropertyNotification) eval(x float32) bool {
	c := pn.cond
	switch c.Kind {
	case ConditionLessThan:
		return x < c.A
	case ConditionGreaterThan:
		return x > c.A
	case ConditionInside:
		return x > c.A && x < c.B
	case ConditionOutside:
		return x < c.A || x > c.B
	case ConditionStep:
		s := int64(math.Floor(float64((x - c.B) / c.A)))
		if s == pn.step {
			return false
		}
		pn.step = s
		return true
	default:
		return false
	}
}

// conditionScalar reduces v to the number conditions compare.
func conditionScalar(v Value) (float32, bool) {
	switch v.Kind() {
	case KindBool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case KindInt:
		return float32(v.Int()), true
	case KindFloat:
		return v.Float(), true
	case KindVector2:
		return v.Vector2().Len(), true
	case KindVector3:
		return v.Vector3().Len(), true
	case KindVector4:
		return v.Vector4().Len(), true
	default:
		return 0, false
	}
}
