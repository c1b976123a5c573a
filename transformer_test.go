package transformer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"

	"github.com/saarnold/drivers-transformer/aligner"
	"github.com/saarnold/drivers-transformer/internal/config"
	"github.com/saarnold/drivers-transformer/internal/timeutil"
)

func newTestTransformer() *Transformer {
	return New(config.EmptyTuningConfig(), timeutil.NewMockClock(time.Unix(0, 0)))
}

func quatYawDegrees(q quat.Number) float64 {
	q = quatNormalize(q)
	return 2 * math.Atan2(q.Kmag, q.Real) * 180 / math.Pi
}

// Scenario 1: a handle with no matching edge never becomes valid; a query
// against it counts as a no-chain failure and still runs the callback.
func TestScenario_NoChain(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("laser", "robot")
	require.False(t, h.Valid())

	var fired int
	id := RegisterDataStreamWithTransform(tr, h, 0, 0, "laser_data", func(ts time.Time, _ struct{}, handle *Transformation) {
		fired++
		_, ok, err := handle.Get(ts, false)
		require.NoError(t, err)
		assert.False(t, ok)
	})
	require.NoError(t, tr.PushData(id, time.Unix(10, 0), struct{}{}))
	require.True(t, tr.Step())

	assert.Equal(t, 1, fired)
	assert.Equal(t, uint64(1), h.FailedNoChain())
}

// Scenario 2: a direct chain through one inverse edge. robot->laser carries
// translation (10,0,0); the handle queries laser->robot, so the composed
// result is the mathematically-inverted (-10,0,0), not the same-signed
// (10,0,0) a naive reading of the inverse might expect.
func TestScenario_DirectChainWithInverse(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("laser", "robot")

	for _, sec := range []int64{1, 2, 9, 10, 11} {
		require.NoError(t, tr.PushDynamicTransformation(TransformType{
			Source: "robot", Target: "laser",
			Time:        time.Unix(sec, 0),
			Position:    Vec3{X: 10},
			Orientation: quat.Number{Real: 1},
		}))
	}
	require.True(t, h.Valid())

	var captured TransformType
	var gotOK bool
	id := RegisterDataStreamWithTransform(tr, h, 0, -20, "laser_data", func(ts time.Time, _ struct{}, handle *Transformation) {
		captured, gotOK, _ = handle.Get(ts, false)
	})
	require.NoError(t, tr.PushData(id, time.Unix(10, 0), struct{}{}))

	for tr.Step() {
	}

	require.True(t, gotOK)
	assert.InDelta(t, -10, captured.Position.X, 1e-9)
}

// Scenario 3: a 3-edge composite chain found via BFS: robot->body (static),
// head->body and head->laser (dynamic, both identity). robot->laser composes
// to identity.
func pushScenario3Edges(t *testing.T, tr *Transformer) {
	t.Helper()
	require.NoError(t, tr.PushStaticTransformation(TransformType{
		Source: "robot", Target: "body", Orientation: quat.Number{Real: 1},
	}))
	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "head", Target: "body", Time: time.Unix(10, 0), Orientation: quat.Number{Real: 1},
	}))
	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "head", Target: "laser", Time: time.Unix(10, 0), Orientation: quat.Number{Real: 1},
	}))
	for tr.Step() {
	}
}

func TestScenario_CompositeChainViaBFS(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("robot", "laser")
	pushScenario3Edges(t, tr)

	require.True(t, h.Valid())
	assert.Equal(t, 3, h.ChainLength())

	got, ok, err := h.Get(time.Unix(20, 0), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, got.Position.X, 1e-9)
	assert.InDelta(t, 0, got.Position.Y, 1e-9)
	assert.InDelta(t, 0, got.Position.Z, 1e-9)
}

// Scenario 4: interpolation uses the non-conventional weighting end to end
// through a handle, including a dedicated off-centre alpha check.
func TestScenario_Interpolation(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("robot", "laser")

	rot90Z := quat.Number{Real: math.Cos(math.Pi / 4), Kmag: math.Sin(math.Pi / 4)}
	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "robot", Target: "laser",
		Time: time.UnixMilli(5), Orientation: quat.Number{Real: 1},
	}))
	require.True(t, tr.Step())
	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "robot", Target: "laser",
		Time: time.UnixMilli(15), Position: Vec3{X: 10}, Orientation: rot90Z,
	}))
	// Deliberately not stepped again: kept buffered for interpolation peek.

	got, ok, err := h.Get(time.UnixMilli(10), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 5.0, got.Position.X, 1e-9)
	assert.InDelta(t, 45.0, quatYawDegrees(got.Orientation), 1e-6)
}

func TestScenario_Interpolation_OffCenterAlphaWeighting(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("a", "b")

	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "a", Target: "b",
		Time: time.UnixMilli(0), Position: Vec3{X: 0}, Orientation: quat.Number{Real: 1},
	}))
	require.True(t, tr.Step())
	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "a", Target: "b",
		Time: time.UnixMilli(10), Position: Vec3{X: 100}, Orientation: quat.Number{Real: 1},
	}))

	// alpha = 0.25. Conventional LERP would give 25; the reference
	// weighting p = alpha*p0 + (1-alpha)*p1 gives 75.
	got, ok, err := h.Get(time.Unix(0, 0).Add(2500*time.Microsecond), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 75.0, got.Position.X, 1e-9)
}

// Scenario 5: remapping a handle's frame name after the fact turns an
// invalid handle valid once the alias resolves into an existing chain.
func TestScenario_FrameMappingRemap(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("robot", "horst")
	require.False(t, h.Valid())

	pushScenario3Edges(t, tr)
	require.False(t, h.Valid(), "horst does not match any known frame yet")

	tr.SetFrameMapping("horst", "laser")
	require.True(t, h.Valid())

	got, ok, err := h.Get(time.Unix(20, 0), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, got.Position.X, 1e-9)
}

// Scenario 6: pushing an out-of-order sample on an existing stream is
// rejected without disturbing the earlier, correctly-ordered sample.
func TestScenario_OutOfOrderPushRejected(t *testing.T) {
	tr := newTestTransformer()

	require.NoError(t, tr.PushDynamicTransformation(TransformType{
		Source: "robot", Target: "laser",
		Time: time.Unix(10, 0), Position: Vec3{X: 1}, Orientation: quat.Number{Real: 1},
	}))

	err := tr.PushDynamicTransformation(TransformType{
		Source: "robot", Target: "laser",
		Time: time.Unix(5, 0), Position: Vec3{X: 2}, Orientation: quat.Number{Real: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, aligner.ErrOutOfOrderPush))

	var released time.Time
	tr.RegisterTransformCallback(tr.RegisterTransformation("robot", "laser"), func(ts time.Time) {
		released = ts
	})
	require.True(t, tr.Step())
	assert.Equal(t, time.Unix(10, 0), released)
}

// Validates the empty-frame-name and null-timestamp hard-error guards on
// PushDynamicTransformation/PushStaticTransformation.
func TestPush_RejectsEmptyFrameAndNullTime(t *testing.T) {
	tr := newTestTransformer()

	err := tr.PushDynamicTransformation(TransformType{Source: "", Target: "b", Time: time.Unix(1, 0)})
	assert.ErrorIs(t, err, ErrEmptyFrameName)

	err = tr.PushDynamicTransformation(TransformType{Source: "a", Target: "b"})
	assert.ErrorIs(t, err, ErrNullTimestamp)

	err = tr.PushStaticTransformation(TransformType{Source: "a", Target: ""})
	assert.ErrorIs(t, err, ErrEmptyFrameName)
}

func TestUnregisterTransformation_UnknownHandleErrors(t *testing.T) {
	tr := newTestTransformer()
	foreign := NewTransformation("a", "b")
	err := tr.UnregisterTransformation(foreign)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestTransformer_ClearInvalidatesHandlesAndStreams(t *testing.T) {
	tr := newTestTransformer()
	h := tr.RegisterTransformation("robot", "laser")
	pushScenario3Edges(t, tr)
	require.True(t, h.Valid())

	tr.Clear()
	assert.False(t, h.Valid())

	// The tree and aligner were cleared too: re-adding the same edges and
	// recomputing should still produce a valid chain from scratch.
	pushScenario3Edges(t, tr)
	tr.RecomputeAvailableTransformations()
	assert.True(t, h.Valid())
}
