package testutil

import (
	"errors"
	"testing"
	"time"

	"gonum.org/v1/gonum/num/quat"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertNoError_FailurePath(t *testing.T) {
	t.Parallel()

	ok := t.Run("unexpected error", func(t *testing.T) {
		AssertNoError(t, errors.New("boom"))
	})
	if ok {
		t.Fatal("expected subtest to fail when error is non-nil")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("test error"))
}

func TestAssertError_FailurePath(t *testing.T) {
	t.Parallel()

	ok := t.Run("missing expected error", func(t *testing.T) {
		AssertError(t, nil)
	})
	if ok {
		t.Fatal("expected subtest to fail when error is nil")
	}
}

func TestAssertTimeEqual_FailurePath(t *testing.T) {
	t.Parallel()
	now := time.Now()

	ok := t.Run("mismatch", func(t *testing.T) {
		AssertTimeEqual(t, now, now.Add(time.Second))
	})
	if ok {
		t.Fatal("expected subtest to fail for differing times")
	}
}

func TestAssertFloatNear(t *testing.T) {
	t.Parallel()
	AssertFloatNear(t, 1.0000001, 1.0, 1e-3)

	ok := t.Run("out of tolerance", func(t *testing.T) {
		AssertFloatNear(t, 1.1, 1.0, 1e-3)
	})
	if ok {
		t.Fatal("expected subtest to fail outside tolerance")
	}
}

func TestAssertQuatNear_DoubleCover(t *testing.T) {
	t.Parallel()
	q := quat.Number{Real: 0.7071, Imag: 0, Jmag: 0.7071, Kmag: 0}
	AssertQuatNear(t, q, quat.Scale(-1, q), 1e-3)
}
