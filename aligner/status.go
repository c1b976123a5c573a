package aligner

import "time"

// StreamStatus is a read-only snapshot of one stream's release health.
type StreamStatus struct {
	ID         StreamID
	Name       string
	Enabled    bool
	Priority   int
	BufferFill int
	Latency    time.Duration
}

// Status is a read-only snapshot of the aligner, returned by Status().
type Status struct {
	Time    time.Time
	Streams []StreamStatus
}

// Status reports current latency (wall time since the head sample's
// timestamp, or since the last released sample if the buffer is empty),
// buffer fill, enabled flag, priority and name, for every registered
// stream.
func (a *Aligner) Status() Status {
	st := Status{Time: a.clock.Now(), Streams: make([]StreamStatus, 0, len(a.streams))}
	now := a.clock.Now()
	for _, s := range a.streams {
		var latency time.Duration
		switch {
		case len(s.buffer) > 0:
			latency = now.Sub(s.buffer[0].t)
		case s.hasLastReleased:
			latency = now.Sub(s.lastReleased)
		}
		st.Streams = append(st.Streams, StreamStatus{
			ID:         s.id,
			Name:       s.name,
			Enabled:    s.enabled,
			Priority:   s.priority,
			BufferFill: len(s.buffer),
			Latency:    latency,
		})
	}
	return st
}
