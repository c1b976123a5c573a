package statushistory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	transformer "github.com/saarnold/drivers-transformer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndLatestRoundTrip(t *testing.T) {
	s := openTestStore(t)

	snapshot := transformer.TransformerStatus{
		Time: time.Unix(100, 0),
		Transformations: []transformer.TransformationStatus{
			{
				SourceLocal: "robot", TargetLocal: "horst",
				SourceGlobal: "robot", TargetGlobal: "laser",
				Valid: true, ChainLength: 2,
				LastGeneratedValue:       time.Unix(99, 0),
				GeneratedTransformations: 5,
			},
		},
	}
	require.NoError(t, s.Record(snapshot))

	got, err := s.Latest("robot", "laser", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := Record{
		SourceLocal: "robot", TargetLocal: "horst",
		SourceGlobal: "robot", TargetGlobal: "laser",
		Valid: true, ChainLength: 2,
		LastGeneratedValue: time.Unix(99, 0),
		Generated:          5,
	}
	diff := cmp.Diff(want, got[0],
		cmpopts.IgnoreFields(Record{}, "ID", "RecordedAt"),
		cmpopts.EquateApproxTime(time.Second))
	if diff != "" {
		t.Errorf("Latest() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LatestOrdersNewestFirstAndRespectsLimit(t *testing.T) {
	s := openTestStore(t)

	for _, sec := range []int64{1, 2, 3} {
		require.NoError(t, s.Record(transformer.TransformerStatus{
			Time: time.Unix(sec, 0),
			Transformations: []transformer.TransformationStatus{
				{SourceGlobal: "a", TargetGlobal: "b", Valid: true, ChainLength: 1},
			},
		}))
	}

	got, err := s.Latest("a", "b", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].RecordedAt.After(got[1].RecordedAt))
}

func TestStore_LatestFiltersByPair(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Record(transformer.TransformerStatus{
		Time: time.Unix(1, 0),
		Transformations: []transformer.TransformationStatus{
			{SourceGlobal: "a", TargetGlobal: "b", Valid: true},
			{SourceGlobal: "x", TargetGlobal: "y", Valid: false},
		},
	}))

	got, err := s.Latest("x", "y", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.False(t, got[0].Valid)
}
