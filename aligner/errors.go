package aligner

import "errors"

// ErrOutOfOrderPush is returned by Push when the given time is less than the
// last enqueued time on that stream. The aligner requires each stream's
// pushes to already be in non-decreasing timestamp order.
var ErrOutOfOrderPush = errors.New("aligner: push time precedes last enqueued time on stream")

// ErrUnknownStream is returned when a stream id does not correspond to any
// currently registered stream.
var ErrUnknownStream = errors.New("aligner: unknown stream id")
