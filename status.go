package transformer

import "time"

// TransformationStatus is a read-only snapshot of one handle's health.
type TransformationStatus struct {
	SourceLocal, TargetLocal   Frame
	SourceGlobal, TargetGlobal Frame

	Valid               bool
	LastGeneratedValue  time.Time
	ChainLength         int

	GeneratedTransformations      uint64
	FailedNoChain                 uint64
	FailedNoSample                 uint64
	FailedInterpolationImpossible uint64
}

// TransformerStatus is the read-only snapshot returned by
// Transformer.Status: the engine's wall-clock time of observation plus a
// TransformationStatus for every registered handle.
type TransformerStatus struct {
	Time            time.Time
	Transformations []TransformationStatus
}

func (tr *Transformation) status() TransformationStatus {
	return TransformationStatus{
		SourceLocal:                    tr.originalSource,
		TargetLocal:                    tr.originalTarget,
		SourceGlobal:                   tr.mappedSource,
		TargetGlobal:                   tr.mappedTarget,
		Valid:                          tr.valid,
		LastGeneratedValue:             tr.lastGeneratedTime,
		ChainLength:                    tr.ChainLength(),
		GeneratedTransformations:       tr.generated,
		FailedNoChain:                  tr.failedNoChain,
		FailedNoSample:                 tr.failedNoSample,
		FailedInterpolationImpossible: tr.failedInterpolationImpossible,
	}
}
