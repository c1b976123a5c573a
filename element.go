package transformer

import (
	"errors"
	"time"

	"github.com/saarnold/drivers-transformer/aligner"
)

// errNoSample and errInterpolationImpossible are soft failures internal to
// the element/handle boundary: the handle translates them into counter
// increments (FailedNoSample, FailedInterpolationImpossible) rather than
// propagating them as Go errors to the caller of Transformation.Get.
var (
	errNoSample               = errors.New("element: no sample available")
	errInterpolationImpossible = errors.New("element: interpolation impossible")
)

// TransformationElement is a polymorphic edge in the frame graph: it
// answers "give me the transform at time t, with or without
// interpolation". The three variants (static, dynamic, inverse) share only
// this contract.
type TransformationElement interface {
	SourceFrame() Frame
	TargetFrame() Frame

	// GetTransformation returns the transform at atTime. A non-nil error is
	// either ErrTimeBelowLastSample (hard, propagated to the caller) or one
	// of the unexported soft sentinels (errNoSample,
	// errInterpolationImpossible), which the caller translates into a
	// counter increment.
	GetTransformation(atTime time.Time, interpolate bool) (TransformType, error)

	// AddChangeCallback registers cb to be invoked whenever this element's
	// underlying value changes (dynamic elements only; static and inverse
	// forward or no-op).
	AddChangeCallback(cb func(ts time.Time))

	// ClearChangeCallbacks removes every registered change callback.
	ClearChangeCallbacks()
}

// staticElement is a time-independent edge: queries return value with the
// query time stamped in.
type staticElement struct {
	source, target Frame
	value           TransformType
}

func newStaticElement(source, target Frame, value TransformType) *staticElement {
	return &staticElement{source: source, target: target, value: value}
}

func (s *staticElement) SourceFrame() Frame { return s.source }
func (s *staticElement) TargetFrame() Frame { return s.target }

func (s *staticElement) GetTransformation(atTime time.Time, _ bool) (TransformType, error) {
	v := s.value
	v.Time = atTime
	return v, nil
}

func (s *staticElement) AddChangeCallback(func(time.Time)) {}
func (s *staticElement) ClearChangeCallbacks()              {}

// dynamicElement owns a registration on the StreamAligner; lastValue is the
// most recent observation released by the aligner. Interpolation peeks the
// aligner's next buffered sample on that stream.
type dynamicElement struct {
	source, target Frame

	align    *aligner.Aligner
	streamID aligner.StreamID

	hasLast   bool
	lastTime  time.Time
	lastValue TransformType

	callbacks []func(time.Time)
}

// newDynamicElement registers a period-0 stream on align (block until next
// sample — the original Rock transformer library's convention for
// transformation observation streams) and returns an element that updates
// lastValue/lastTime and fires change callbacks on every release.
func newDynamicElement(align *aligner.Aligner, source, target Frame, priority, bufferCap int) *dynamicElement {
	d := &dynamicElement{source: source, target: target, align: align}
	d.streamID = aligner.RegisterStream(align, func(t time.Time, v TransformType) {
		d.hasLast = true
		d.lastTime = t
		d.lastValue = v
		for _, cb := range d.callbacks {
			cb(t)
		}
	}, bufferCap, 0, priority, string(source)+"2"+string(target))
	return d
}

func (d *dynamicElement) SourceFrame() Frame { return d.source }
func (d *dynamicElement) TargetFrame() Frame { return d.target }

func (d *dynamicElement) GetTransformation(atTime time.Time, interpolate bool) (TransformType, error) {
	if !d.hasLast {
		return TransformType{}, errNoSample
	}
	if !interpolate {
		v := d.lastValue
		v.Time = atTime
		return v, nil
	}

	t0, v0 := d.lastTime, d.lastValue
	if atTime.Before(t0) {
		return TransformType{}, ErrTimeBelowLastSample
	}
	if atTime.Equal(t0) {
		v := v0
		v.Time = atTime
		return v, nil
	}

	t1, payload, ok := d.align.GetNextSample(d.streamID)
	if !ok {
		return TransformType{}, errInterpolationImpossible
	}
	v1, ok := payload.(TransformType)
	if !ok {
		return TransformType{}, errInterpolationImpossible
	}

	alpha := atTime.Sub(t0).Seconds() / t1.Sub(t0).Seconds()

	// Non-conventional weighting preserved bit-for-bit from the reference:
	// p = alpha*p0 + (1-alpha)*p1, the opposite of conventional LERP.
	pos := v0.Position.Scale(alpha).Add(v1.Position.Scale(1 - alpha))
	orient := slerp(v0.Orientation, v1.Orientation, alpha)
	covPos := blendMat3(v0.CovPosition, v1.CovPosition, alpha)
	covOrient := blendMat3(v0.CovOrientation, v1.CovOrientation, alpha)

	return TransformType{
		Time:           atTime,
		Source:         d.source,
		Target:         d.target,
		Position:       pos,
		Orientation:    orient,
		CovPosition:    covPos,
		CovOrientation: covOrient,
	}, nil
}

func (d *dynamicElement) AddChangeCallback(cb func(time.Time)) {
	d.callbacks = append(d.callbacks, cb)
}

func (d *dynamicElement) ClearChangeCallbacks() {
	d.callbacks = nil
}

// inverseElement is a non-owning view that returns the inverse of inner's
// transform and swaps source/target. Change callbacks attach to inner.
type inverseElement struct {
	inner TransformationElement
}

func newInverseElement(inner TransformationElement) *inverseElement {
	return &inverseElement{inner: inner}
}

func (e *inverseElement) SourceFrame() Frame { return e.inner.TargetFrame() }
func (e *inverseElement) TargetFrame() Frame { return e.inner.SourceFrame() }

func (e *inverseElement) GetTransformation(atTime time.Time, interpolate bool) (TransformType, error) {
	tr, err := e.inner.GetTransformation(atTime, interpolate)
	if err != nil {
		return TransformType{}, err
	}
	return tr.Inverse(), nil
}

func (e *inverseElement) AddChangeCallback(cb func(time.Time)) { e.inner.AddChangeCallback(cb) }
func (e *inverseElement) ClearChangeCallbacks()                 { e.inner.ClearChangeCallbacks() }

// Element returns the wrapped element, mirroring the reference's
// InverseTransformationElement::getElement, used by tree diagnostics to
// report (inv,dyn)/(inv,static) pairs without a type switch at every call
// site.
func (e *inverseElement) Element() TransformationElement { return e.inner }
