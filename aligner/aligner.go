// Package aligner implements a time-ordered multiplexer over N heterogeneous
// sample streams. Each stream carries samples tagged with a timestamp; Step
// releases the globally oldest buffered sample across all streams, subject
// to per-stream period/priority and a timeout-based escape for streams that
// block on "next sample unknown" (period 0).
package aligner

import (
	"fmt"
	"time"

	"github.com/saarnold/drivers-transformer/internal/timeutil"
)

// StreamID identifies a registered stream. Stable for the lifetime of the
// Aligner between Clear calls.
type StreamID int

type sample struct {
	t       time.Time
	payload interface{}
}

type stream struct {
	id        StreamID
	name      string
	period    time.Duration
	priority  int
	bufferCap int
	enabled   bool

	buffer []sample

	hasLastEnqueued bool
	lastEnqueued    time.Time

	hasLastReleased bool
	lastReleased    time.Time

	callback func(time.Time, interface{})
}

// Aligner is a time-ordered multiplexer. It is not safe for concurrent use:
// callers drive it with sequential Push/Step calls from a single goroutine,
// and Step invokes the chosen stream's callback synchronously before
// returning.
type Aligner struct {
	clock   timeutil.Clock
	timeout time.Duration

	streams []*stream
	nextID  StreamID

	lastReleaseWall time.Time
}

// New creates an Aligner backed by clock for wall-time timeout tracking.
func New(clock timeutil.Clock) *Aligner {
	a := &Aligner{clock: clock}
	a.lastReleaseWall = clock.Now()
	return a
}

// RegisterStream reserves a new stream and returns its stable id. Go does
// not allow generic methods on non-generic receivers, so this is a free
// function taking the Aligner explicitly.
func RegisterStream[T any](a *Aligner, callback func(t time.Time, value T), bufferCap int, period time.Duration, priority int, name string) StreamID {
	wrapped := func(t time.Time, v interface{}) {
		typed, _ := v.(T)
		callback(t, typed)
	}
	id := a.nextID
	a.nextID++
	s := &stream{
		id:        id,
		name:      name,
		period:    period,
		priority:  priority,
		bufferCap: bufferCap,
		enabled:   true,
		callback:  wrapped,
	}
	a.streams = append(a.streams, s)
	diagf("registered stream %d (%s) period=%v priority=%d bufferCap=%d", id, name, period, priority, bufferCap)
	return id
}

func (a *Aligner) find(id StreamID) *stream {
	for _, s := range a.streams {
		if s.id == id {
			return s
		}
	}
	return nil
}

// Push enqueues a sample into the stream's buffer. It fails with
// ErrOutOfOrderPush if t precedes the last enqueued time on that stream.
// If the buffer is at its cap, the oldest buffered sample is dropped.
func (a *Aligner) Push(id StreamID, t time.Time, payload interface{}) error {
	s := a.find(id)
	if s == nil {
		return fmt.Errorf("push stream %d: %w", id, ErrUnknownStream)
	}
	if s.hasLastEnqueued && t.Before(s.lastEnqueued) {
		opsf("stream %d (%s): out-of-order push at %v, last enqueued %v", id, s.name, t, s.lastEnqueued)
		return fmt.Errorf("stream %d (%s): %w", id, s.name, ErrOutOfOrderPush)
	}
	s.buffer = append(s.buffer, sample{t: t, payload: payload})
	s.hasLastEnqueued = true
	s.lastEnqueued = t

	if s.bufferCap > 0 && len(s.buffer) > s.bufferCap {
		dropped := s.buffer[0]
		s.buffer = s.buffer[1:]
		opsf("stream %d (%s): buffer at cap %d, dropped sample at %v", id, s.name, s.bufferCap, dropped.t)
	}
	return nil
}

// GetNextSample peeks the oldest buffered sample of a stream without
// releasing it. Used by the dynamic interpolator to find the bracketing
// "next" sample.
func (a *Aligner) GetNextSample(id StreamID) (t time.Time, payload interface{}, ok bool) {
	s := a.find(id)
	if s == nil || len(s.buffer) == 0 {
		return time.Time{}, nil, false
	}
	head := s.buffer[0]
	return head.t, head.payload, true
}

// UnregisterStream removes a stream, draining any buffered samples without
// invoking callbacks. Idempotent: unregistering an unknown id is a no-op.
func (a *Aligner) UnregisterStream(id StreamID) {
	for i, s := range a.streams {
		if s.id == id {
			diagf("unregistered stream %d (%s), drained %d buffered samples", id, s.name, len(s.buffer))
			a.streams = append(a.streams[:i], a.streams[i+1:]...)
			return
		}
	}
}

// EnableStream makes a disabled stream eligible for release again.
func (a *Aligner) EnableStream(id StreamID) error {
	s := a.find(id)
	if s == nil {
		return fmt.Errorf("enable stream %d: %w", id, ErrUnknownStream)
	}
	s.enabled = true
	diagf("enabled stream %d (%s)", id, s.name)
	return nil
}

// DisableStream excludes a stream from Step's release consideration. Its
// buffer is preserved.
func (a *Aligner) DisableStream(id StreamID) error {
	s := a.find(id)
	if s == nil {
		return fmt.Errorf("disable stream %d: %w", id, ErrUnknownStream)
	}
	s.enabled = false
	diagf("disabled stream %d (%s)", id, s.name)
	return nil
}

// IsStreamActive reports whether id names an enabled stream.
func (a *Aligner) IsStreamActive(id StreamID) bool {
	s := a.find(id)
	return s != nil && s.enabled
}

// SetTimeout bounds how long Step will treat a period-0 stream with an
// empty buffer as blocking before skipping it from the release horizon.
// Zero means no timeout: such streams block indefinitely.
func (a *Aligner) SetTimeout(d time.Duration) {
	a.timeout = d
}

// Clear removes every stream and resets id allocation.
func (a *Aligner) Clear() {
	a.streams = nil
	a.nextID = 0
	a.lastReleaseWall = a.clock.Now()
}

// Step releases at most one sample across all enabled streams and invokes
// its callback synchronously. It returns true if a release happened.
//
// The release horizon for a stream with a non-empty buffer is its head
// timestamp. For an empty, period>0 stream that has released before, the
// horizon is lastReleased+period; if that is the earliest horizon, Step
// releases nothing and returns false. An empty, period>0 stream that has never
// released has no computable horizon and is treated as non-blocking: it
// simply isn't a release candidate until it receives its first sample. An
// empty, period==0 stream has no horizon either, but unlike the period>0
// case it blocks all progress (back-pressure) until a sample arrives or the
// configured timeout elapses since the last release.
func (a *Aligner) Step() bool {
	if len(a.streams) == 0 {
		return false
	}

	expired := a.timeout > 0 && a.clock.Since(a.lastReleaseWall) > a.timeout

	var bestStream *stream
	var bestTime time.Time
	blocked := false

	for _, s := range a.streams {
		if !s.enabled {
			continue
		}

		if len(s.buffer) > 0 {
			considerCandidate(&bestStream, &bestTime, s, s.buffer[0].t)
			continue
		}

		if s.period > 0 {
			if s.hasLastReleased {
				considerCandidate(&bestStream, &bestTime, s, s.lastReleased.Add(s.period))
			}
			continue
		}

		// period == 0, empty buffer: unknown horizon, blocks unless expired.
		if !expired {
			blocked = true
		} else {
			opsf("stream %d (%s): timeout exceeded, skipping empty period-0 stream", s.id, s.name)
		}
	}

	if blocked {
		tracef("step: blocked waiting on a period-0 stream with an empty buffer")
		return false
	}
	if bestStream == nil {
		return false
	}
	if len(bestStream.buffer) == 0 {
		// The earliest horizon belongs to an empty period>0 stream whose next
		// sample is still expected: nothing may be released ahead of it yet.
		tracef("step: waiting on stream %d (%s), next sample expected by %v", bestStream.id, bestStream.name, bestTime)
		return false
	}

	head := bestStream.buffer[0]
	bestStream.buffer = bestStream.buffer[1:]
	bestStream.hasLastReleased = true
	bestStream.lastReleased = head.t
	a.lastReleaseWall = a.clock.Now()

	tracef("step: released stream %d (%s) at %v", bestStream.id, bestStream.name, head.t)
	bestStream.callback(head.t, head.payload)
	return true
}

// considerCandidate replaces *bestStream/*bestTime with s/t if t is an
// earlier horizon, or ties on priority descending then id ascending.
func considerCandidate(bestStream **stream, bestTime *time.Time, s *stream, t time.Time) {
	if *bestStream == nil {
		*bestStream = s
		*bestTime = t
		return
	}
	switch {
	case t.Before(*bestTime):
		*bestStream = s
		*bestTime = t
	case t.After(*bestTime):
		// not better
	case s.priority > (*bestStream).priority:
		*bestStream = s
		*bestTime = t
	case s.priority == (*bestStream).priority && s.id < (*bestStream).id:
		*bestStream = s
		*bestTime = t
	}
}
