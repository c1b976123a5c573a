package transformer

import (
	"time"

	"github.com/saarnold/drivers-transformer/aligner"
	"github.com/saarnold/drivers-transformer/internal/config"
	"github.com/saarnold/drivers-transformer/internal/timeutil"
)

type frameEdgeKey struct {
	source, target Frame
}

// Transformer is the façade wiring a StreamAligner, a frame-graph Tree, and
// the Transformation handles created against them: ingress for dynamic and
// static transformation pushes and data streams, chain recomputation on
// graph changes, and frame-name remapping.
type Transformer struct {
	align *aligner.Aligner
	tree  *Tree
	clock timeutil.Clock

	handles []*Transformation

	dynamicEdges map[frameEdgeKey]*dynamicElement

	frameMappings map[Frame]Frame

	priority  int
	bufferCap int
}

// New wires a Transformer from cfg and clock. clock is only consulted for
// the aligner's period-0 stream timeout escape; it plays no role in sample
// timestamps, which always come from the caller's pushed TransformType/data
// values.
func New(cfg *config.TuningConfig, clock timeutil.Clock) *Transformer {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	align := aligner.New(clock)
	align.SetTimeout(cfg.GetTimeout())

	return &Transformer{
		align:         align,
		tree:          NewTree(cfg.GetMaxSeekDepth()),
		clock:         clock,
		dynamicEdges:  make(map[frameEdgeKey]*dynamicElement),
		frameMappings: make(map[Frame]Frame),
		priority:      cfg.GetPriority(),
		bufferCap:     cfg.GetDefaultBufferCap(),
	}
}

// RegisterTransformation creates a handle for (source, target) and
// immediately attempts to build its chain; the handle may come back
// invalid if no path exists yet. Always returned to the caller regardless.
func (t *Transformer) RegisterTransformation(source, target Frame) *Transformation {
	h := NewTransformation(source, target)
	for name, alias := range t.frameMappings {
		h.SetFrameMapping(name, alias)
	}
	t.handles = append(t.handles, h)
	t.recomputeOne(h)
	return h
}

// UnregisterTransformation removes h. Returns ErrUnknownHandle if h was not
// created by this Transformer (or was already unregistered).
func (t *Transformer) UnregisterTransformation(h *Transformation) error {
	for i, candidate := range t.handles {
		if candidate == h {
			t.handles = append(t.handles[:i], t.handles[i+1:]...)
			return nil
		}
	}
	return ErrUnknownHandle
}

// RegisterDataStream registers a stream on the aligner that is not bound to
// any transformation handle. A free function: Go does not support generic
// methods on a non-generic receiver.
func RegisterDataStream[T any](t *Transformer, period time.Duration, priority int, name string, callback func(ts time.Time, value T)) aligner.StreamID {
	return aligner.RegisterStream(t.align, callback, t.bufferCap, period, priority, name)
}

// RegisterDataStreamWithTransform registers a stream whose callback also
// receives the handle, so it can call handle.Get(ts, interpolate) itself.
func RegisterDataStreamWithTransform[T any](t *Transformer, handle *Transformation, period time.Duration, priority int, name string, callback func(ts time.Time, value T, handle *Transformation)) aligner.StreamID {
	return aligner.RegisterStream(t.align, func(ts time.Time, v T) {
		callback(ts, v, handle)
	}, t.bufferCap, period, priority, name)
}

// RegisterTransformCallback adds an update callback to handle, invoked
// whenever any edge in its chain receives a new value.
func (t *Transformer) RegisterTransformCallback(handle *Transformation, cb func(ts time.Time)) {
	handle.RegisterUpdateCallback(cb)
}

// PushDynamicTransformation rejects empty frame names and null timestamps.
// If (source, target) is unseen, it creates a Dynamic element (which
// registers a stream on the aligner), adds it to the tree, and recomputes
// every handle's chain; the sample is then pushed onto the aligner
// regardless.
func (t *Transformer) PushDynamicTransformation(tr TransformType) error {
	if tr.Source == "" || tr.Target == "" {
		return ErrEmptyFrameName
	}
	if tr.Time.IsZero() {
		return ErrNullTimestamp
	}

	key := frameEdgeKey{tr.Source, tr.Target}
	elem, ok := t.dynamicEdges[key]
	if !ok {
		elem = newDynamicElement(t.align, tr.Source, tr.Target, t.priority, t.bufferCap)
		t.dynamicEdges[key] = elem
		t.tree.AddTransformation(elem)
		diagf("new dynamic edge %s -> %s", tr.Source, tr.Target)
		t.RecomputeAvailableTransformations()
	}

	return t.align.Push(elem.streamID, tr.Time, tr)
}

// PushStaticTransformation rejects empty frame names, adds a Static
// element, and recomputes every handle's chain.
func (t *Transformer) PushStaticTransformation(tr TransformType) error {
	if tr.Source == "" || tr.Target == "" {
		return ErrEmptyFrameName
	}

	elem := newStaticElement(tr.Source, tr.Target, tr)
	t.tree.AddTransformation(elem)
	diagf("new static edge %s -> %s", tr.Source, tr.Target)
	t.RecomputeAvailableTransformations()
	return nil
}

// SetFrameMapping applies the (name, alias) mapping to every existing
// handle and remembers it so handles registered afterward pick it up too,
// then recomputes every handle's chain.
func (t *Transformer) SetFrameMapping(frame, alias Frame) {
	t.frameMappings[frame] = alias
	for _, h := range t.handles {
		h.SetFrameMapping(frame, alias)
	}
	diagf("frame mapping: %s -> %s", frame, alias)
	t.RecomputeAvailableTransformations()
}

// PushData pushes a data sample onto an existing stream, identified by the
// id RegisterDataStream/RegisterDataStreamWithTransform returned.
func (t *Transformer) PushData(id aligner.StreamID, at time.Time, value interface{}) error {
	return t.align.Push(id, at, value)
}

// RequestTransformationAtTime pushes a zero-value dummy sample onto a
// transform-callback stream to force it to fire at time at.
func (t *Transformer) RequestTransformationAtTime(id aligner.StreamID, at time.Time) error {
	return t.align.Push(id, at, struct{}{})
}

// Step releases at most one sample via the aligner and runs its callback.
// Returns true if a release happened.
func (t *Transformer) Step() bool {
	return t.align.Step()
}

// SetTimeout bounds how long the aligner waits on period-0 streams.
func (t *Transformer) SetTimeout(d time.Duration) {
	t.align.SetTimeout(d)
}

// Clear resets every handle, drops every tree edge, and clears the
// aligner's streams. Handles remain usable (and invalid) after Clear;
// callers that want them gone must UnregisterTransformation them.
func (t *Transformer) Clear() {
	for _, h := range t.handles {
		h.Reset()
	}
	t.tree.Clear()
	t.align.Clear()
	t.dynamicEdges = make(map[frameEdgeKey]*dynamicElement)
	t.frameMappings = make(map[Frame]Frame)
}

// RecomputeAvailableTransformations re-runs the tree's BFS for every
// handle's (possibly mapped) source and target; a found chain is installed
// via SetTransformationChain. Handles for which no chain is found are left
// as they were (this mirrors the reference: a handle is never invalidated
// just because a later recompute fails to find a path it previously had).
func (t *Transformer) RecomputeAvailableTransformations() {
	for _, h := range t.handles {
		t.recomputeOne(h)
	}
}

func (t *Transformer) recomputeOne(h *Transformation) {
	chain, ok := t.tree.GetTransformationChain(h.SourceFrame(), h.TargetFrame())
	if !ok {
		return
	}
	h.SetTransformationChain(chain)
	diagf("handle %s->%s: chain installed (%d edges)", h.SourceFrame(), h.TargetFrame(), len(chain))
}

// Tree exposes the frame graph for diagnostics (ElementCounts, DumpTree).
func (t *Transformer) Tree() *Tree { return t.tree }

// AlignerStatus reports the StreamAligner's per-stream status.
func (t *Transformer) AlignerStatus() aligner.Status {
	return t.align.Status()
}

// Status returns a read-only snapshot of every registered handle.
func (t *Transformer) Status() TransformerStatus {
	out := TransformerStatus{Time: t.clock.Now(), Transformations: make([]TransformationStatus, 0, len(t.handles))}
	for _, h := range t.handles {
		out.Transformations = append(out.Transformations, h.status())
	}
	return out
}
