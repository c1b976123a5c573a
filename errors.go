package transformer

import "errors"

// Hard errors: surfaced to the caller of the offending operation, never
// counted or swallowed.
var (
	// ErrEmptyFrameName is returned when a pushed transformation names an
	// empty source or target frame.
	ErrEmptyFrameName = errors.New("transformer: empty frame name")

	// ErrNullTimestamp is returned when a pushed dynamic transformation
	// carries a zero timestamp.
	ErrNullTimestamp = errors.New("transformer: null timestamp")

	// ErrUnknownHandle is returned by UnregisterTransformation for a handle
	// the Transformer did not create.
	ErrUnknownHandle = errors.New("transformer: unknown handle")

	// ErrTimeBelowLastSample is returned by a dynamic element's interpolated
	// query when atTime precedes the last released sample on that edge.
	ErrTimeBelowLastSample = errors.New("transformer: query time precedes last sample")
)

// Soft failures are never returned as errors; they are counted on the
// Transformation handle (NoChain -> FailedNoChain, NoSample ->
// FailedNoSample, InterpolationImpossible -> FailedInterpolationImpossible)
// and signalled to the caller of Get via a boolean, per §7 of the design.
