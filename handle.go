package transformer

import (
	"errors"
	"time"
)

// Transformation is a client-visible composed transform: a handle that owns
// a chain of edges from its (possibly frame-mapped) source to its target,
// composes that chain at query time, tracks status counters, and fires
// callbacks when any edge in its chain receives a new value.
//
// Handles are non-owning references into the Tree's element list; they are
// created and destroyed by a Transformer and never hold elements directly.
type Transformation struct {
	originalSource, originalTarget Frame
	mappedSource, mappedTarget     Frame

	chain []TransformationElement
	valid bool

	lastGeneratedTime time.Time

	generated                      uint64
	failedNoChain                  uint64
	failedNoSample                 uint64
	failedInterpolationImpossible uint64

	updateCallbacks []func(time.Time)
}

// NewTransformation creates a handle for (source, target). The chain is
// populated lazily as matching edges appear; callers should check Valid
// after the owning Transformer attempts a chain build.
func NewTransformation(source, target Frame) *Transformation {
	return &Transformation{
		originalSource: source,
		originalTarget: target,
		mappedSource:   source,
		mappedTarget:   target,
	}
}

// SourceFrame returns the (possibly mapped) source frame used for chain
// lookups.
func (tr *Transformation) SourceFrame() Frame { return tr.mappedSource }

// TargetFrame returns the (possibly mapped) target frame used for chain
// lookups.
func (tr *Transformation) TargetFrame() Frame { return tr.mappedTarget }

// Valid reports whether this handle currently has a usable chain.
func (tr *Transformation) Valid() bool { return tr.valid }

// ChainLength returns the number of edges in the current chain, 0 if
// invalid.
func (tr *Transformation) ChainLength() int { return len(tr.chain) }

// LastGeneratedTime returns the timestamp of the last successful Get.
func (tr *Transformation) LastGeneratedTime() time.Time { return tr.lastGeneratedTime }

// Generated, FailedNoChain, FailedNoSample and FailedInterpolationImpossible
// expose the handle's status counters (see TransformationStatus).
func (tr *Transformation) Generated() uint64                      { return tr.generated }
func (tr *Transformation) FailedNoChain() uint64                  { return tr.failedNoChain }
func (tr *Transformation) FailedNoSample() uint64                 { return tr.failedNoSample }
func (tr *Transformation) FailedInterpolationImpossible() uint64 {
	return tr.failedInterpolationImpossible
}

// SetFrameMapping assigns newName as this handle's frame to use for lookups
// wherever its *original* (non-mapped) source or target equals name. This
// supports client-side late binding of logical frame names to physical
// ones: calling it repeatedly with different aliases for the same original
// name always rebases off the original, not the previous mapping.
func (tr *Transformation) SetFrameMapping(name, newName Frame) {
	if tr.originalSource == name {
		tr.mappedSource = newName
	}
	if tr.originalTarget == name {
		tr.mappedTarget = newName
	}
}

// SetTransformationChain installs a freshly-found chain, marks the handle
// valid, and re-attaches every registered update callback to each edge in
// the new chain so upstream dynamic changes keep firing it.
func (tr *Transformation) SetTransformationChain(chain []TransformationElement) {
	tr.chain = chain
	tr.valid = true
	for _, edge := range chain {
		for _, cb := range tr.updateCallbacks {
			edge.AddChangeCallback(cb)
		}
	}
}

// RegisterUpdateCallback stores cb and immediately attaches it to every
// edge already in the chain.
func (tr *Transformation) RegisterUpdateCallback(cb func(ts time.Time)) {
	tr.updateCallbacks = append(tr.updateCallbacks, cb)
	for _, edge := range tr.chain {
		edge.AddChangeCallback(cb)
	}
}

// Reset clears the chain, invalidates the handle, and zeros its counters.
func (tr *Transformation) Reset() {
	tr.chain = nil
	tr.valid = false
	tr.generated = 0
	tr.failedNoChain = 0
	tr.failedNoSample = 0
	tr.failedInterpolationImpossible = 0
}

// Get composes the chain at atTime. The first return value is only
// meaningful when the second is true. A non-nil error is a hard
// ErrTimeBelowLastSample from an interpolating dynamic edge; anything else
// is a soft failure (no chain / no sample / interpolation impossible),
// reflected only in the handle's counters and the false return.
func (tr *Transformation) Get(atTime time.Time, interpolate bool) (TransformType, bool, error) {
	if !tr.valid {
		tr.failedNoChain++
		return TransformType{}, false, nil
	}

	result := Identity(tr.mappedSource, tr.mappedTarget, atTime)
	for _, edge := range tr.chain {
		val, err := edge.GetTransformation(atTime, interpolate)
		if err != nil {
			if errors.Is(err, ErrTimeBelowLastSample) {
				return TransformType{}, false, err
			}
			if errors.Is(err, errInterpolationImpossible) {
				tr.failedInterpolationImpossible++
			} else {
				tr.failedNoSample++
			}
			return TransformType{}, false, nil
		}
		result = compose(result, val)
	}

	tr.lastGeneratedTime = atTime
	tr.generated++
	return result, true, nil
}

// GetChain returns the per-edge transforms making up the chain at atTime,
// without composing them — used for diagnostics. Ported from the reference
// library's Transformation::getChain.
func (tr *Transformation) GetChain(atTime time.Time, interpolate bool) ([]TransformType, bool, error) {
	if !tr.valid {
		tr.failedNoChain++
		return nil, false, nil
	}

	out := make([]TransformType, 0, len(tr.chain))
	for _, edge := range tr.chain {
		val, err := edge.GetTransformation(atTime, interpolate)
		if err != nil {
			if errors.Is(err, ErrTimeBelowLastSample) {
				return nil, false, err
			}
			if errors.Is(err, errInterpolationImpossible) {
				tr.failedInterpolationImpossible++
			} else {
				tr.failedNoSample++
			}
			return nil, false, nil
		}
		out = append(out, val)
	}
	return out, true, nil
}
