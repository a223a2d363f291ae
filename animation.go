package arbor

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// AnimationState is the playback state of an animation.
type AnimationState uint8

const (
	AnimationStopped AnimationState = iota
	AnimationPlaying
	AnimationPaused
)

// KeyFrame is a value at a normalized progress in [0,1] of an animator window.
type KeyFrame struct {
	Progress float32
	Value    Value
}

type animatorKind uint8

const (
	animateTo animatorKind = iota
	animateBy
	animateBetween
)

// animator drives one property over a window of its animation's timeline.
type animator struct {
	target *Property
	kind   animatorKind
	to     Value
	frames []KeyFrame
	period TimePeriod
	ease   ease.TweenFunc
	tween  *gween.Tween

	start   Value
	started bool
	current Value
}

// eased returns the eased progress of the animator at timeline time t, and
// false while t is before the window.
func (a *animator) eased(t float32) (float32, bool) {
	local := t - a.period.Delay
	if local < 0 {
		return 0, false
	}
	if a.period.Duration <= 0 || local >= a.period.Duration {
		return 1, true
	}
	v, _ := a.tween.Set(local)
	return v, true
}

// valueAt computes the animated value at eased progress p.
func (a *animator) valueAt(p float32) Value {
	switch a.kind {
	case animateBy:
		return Lerp(a.start, Add(a.start, a.to), p)
	case animateBetween:
		return keyFrameValue(a.frames, p)
	default:
		return Lerp(a.start, a.to, p)
	}
}

// final returns the value at the end of the window.
func (a *animator) final() Value {
	return a.valueAt(1)
}

func keyFrameValue(frames []KeyFrame, p float32) Value {
	if p <= frames[0].Progress {
		return frames[0].Value
	}
	for i := 1; i < len(frames); i++ {
		if p <= frames[i].Progress {
			prev := frames[i-1]
			span := frames[i].Progress - prev.Progress
			if span <= 0 {
				return frames[i].Value
			}
			return Lerp(prev.Value, frames[i].Value, (p-prev.Progress)/span)
		}
	}
	return frames[len(frames)-1].Value
}

// update writes the animated value for timeline time t into buf.
func (a *animator) update(buf BufferIndex, t float32) {
	if !a.started {
		a.start = a.target.Get(buf)
		a.started = true
	}
	p, active := a.eased(t)
	if !active {
		return
	}
	a.current = a.valueAt(p)
	a.target.Set(buf, a.current)
}

// Animation animates properties along a shared timeline. It is created by
// the producer, configured, then played through the core; from then on only
// the update stage advances it.
type Animation struct {
	id        uint32
	duration  float32
	loopCount int
	speed     float32
	endAction EndAction

	state       AnimationState
	elapsed     float32
	currentLoop int
	animators   []*animator
	um          *UpdateManager
}

// NewAnimation creates a stopped animation of the given duration in seconds.
// It plays once, at normal speed, and bakes its values when it ends.
func NewAnimation(duration float32) *Animation {
	return &Animation{
		id:        nextOwnerID(),
		duration:  duration,
		loopCount: 1,
		speed:     1,
		endAction: Bake,
	}
}

// ID returns the animation identifier.
func (a *Animation) ID() uint32 { return a.id }

// Duration returns the length of one loop in seconds.
func (a *Animation) Duration() float32 { return a.duration }

// State returns whether the animation is stopped, playing or paused.
func (a *Animation) State() AnimationState { return a.state }

// CurrentLoop returns the number of loops completed so far.
func (a *Animation) CurrentLoop() int { return a.currentLoop }

// EndAction returns what happens to animated properties when the
// animation finishes or is stopped.
func (a *Animation) EndAction() EndAction { return a.endAction }

// SetEndAction selects the end action. Set it before playing.
func (a *Animation) SetEndAction(e EndAction) { a.endAction = e }

// SetLoopCount sets how many times the timeline runs. Zero loops forever.
func (a *Animation) SetLoopCount(n int) { a.loopCount = n }

// SetSpeed scales the rate at which time advances.
func (a *Animation) SetSpeed(s float32) { a.speed = s }

func (a *Animation) add(target *Property, kind animatorKind, to Value, frames []KeyFrame, fn ease.TweenFunc, p TimePeriod) *Animation {
	if target == nil {
		panic("arbor: animation target is nil")
	}
	if kind != animateBetween && to.kind != target.Kind() {
		panic("arbor: animation value kind does not match its target")
	}
	if fn == nil {
		fn = ease.Linear
	}
	an := &animator{target: target, kind: kind, to: to, frames: frames, period: p, ease: fn}
	if p.Duration > 0 {
		an.tween = gween.New(0, 1, p.Duration, fn)
	}
	a.animators = append(a.animators, an)
	return a
}

// AnimateTo moves target to value over the whole animation.
func (a *Animation) AnimateTo(target *Property, value Value, fn ease.TweenFunc) *Animation {
	return a.add(target, animateTo, value, nil, fn, TimePeriod{Duration: a.duration})
}

// AnimateToDuring moves target to value within window p.
func (a *Animation) AnimateToDuring(target *Property, value Value, fn ease.TweenFunc, p TimePeriod) *Animation {
	return a.add(target, animateTo, value, nil, fn, p)
}

// AnimateBy moves target by a relative amount over the whole animation.
func (a *Animation) AnimateBy(target *Property, relative Value, fn ease.TweenFunc) *Animation {
	return a.add(target, animateBy, relative, nil, fn, TimePeriod{Duration: a.duration})
}

// AnimateBetween moves target through key frames over the whole animation.
// Key frames must be sorted by progress and share the target's kind.
func (a *Animation) AnimateBetween(target *Property, frames []KeyFrame, fn ease.TweenFunc) *Animation {
	if len(frames) == 0 {
		panic("arbor: AnimateBetween needs at least one key frame")
	}
	for _, f := range frames {
		if f.Value.kind != target.Kind() {
			panic("arbor: key frame kind does not match its target")
		}
	}
	return a.add(target, animateBetween, Value{}, frames, fn, TimePeriod{Duration: a.duration})
}

// play starts or resumes the animation. Update stage only.
func (a *Animation) play(um *UpdateManager) {
	if a.state == AnimationPlaying {
		return
	}
	if a.state == AnimationStopped {
		a.elapsed = 0
		a.currentLoop = 0
		for _, an := range a.animators {
			an.started = false
		}
	}
	a.state = AnimationPlaying
	a.um = um
}

func (a *Animation) pause() {
	if a.state == AnimationPlaying {
		a.state = AnimationPaused
	}
}

// stop ends the animation early, applying the end action to every animator.
func (a *Animation) stop(buf BufferIndex) {
	if a.state == AnimationStopped {
		return
	}
	a.state = AnimationStopped
	a.finish(buf)
}

// finish applies the end action.
func (a *Animation) finish(buf BufferIndex) {
	for _, an := range a.animators {
		if !an.started || an.target.owner != nil && an.target.owner.destroyed {
			continue
		}
		switch a.endAction {
		case Bake:
			if an.current.kind != KindNone {
				an.target.Bake(buf, an.current)
			}
		case BakeFinal:
			an.target.Bake(buf, an.final())
		}
	}
}

// update advances the timeline by ctx.Elapsed and writes every animator.
// Returns true on the frame the animation finishes.
func (a *Animation) update(ctx *UpdateContext) bool {
	if a.state != AnimationPlaying {
		return false
	}
	a.elapsed += ctx.Elapsed * a.speed
	done := a.elapsed >= a.duration
	t := a.elapsed
	if done {
		t = a.duration
	}
	a.apply(ctx.Buffer, t)
	if !done {
		return false
	}
	a.currentLoop++
	if a.loopCount == 0 || a.currentLoop < a.loopCount {
		a.elapsed -= a.duration
		if a.duration <= 0 {
			a.elapsed = 0
		}
		return false
	}
	a.state = AnimationStopped
	a.finish(ctx.Buffer)
	return true
}

func (a *Animation) apply(buf BufferIndex, t float32) {
	for _, an := range a.animators {
		if o := an.target.owner; o != nil && (o.destroyed || !o.connected) {
			continue
		}
		an.update(buf, t)
	}
}
