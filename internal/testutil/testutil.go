// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce duplication across
// the transformer test suite.
package testutil

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/num/quat"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertTimeEqual fails the test if got and want differ.
func AssertTimeEqual(t *testing.T, got, want time.Time) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("time = %v, want %v", got, want)
	}
}

// AssertFloatNear fails the test if got and want differ by more than eps.
func AssertFloatNear(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("value = %v, want %v (±%v)", got, want, eps)
	}
}

// AssertQuatNear fails the test if got and want are not within eps component-wise,
// allowing for the q/-q double-cover ambiguity of unit quaternions.
func AssertQuatNear(t *testing.T, got, want quat.Number, eps float64) {
	t.Helper()
	if quatClose(got, want, eps) || quatClose(got, quat.Scale(-1, want), eps) {
		return
	}
	t.Errorf("quaternion = %v, want %v (±%v)", got, want, eps)
}

func quatClose(a, b quat.Number, eps float64) bool {
	return math.Abs(a.Real-b.Real) <= eps &&
		math.Abs(a.Imag-b.Imag) <= eps &&
		math.Abs(a.Jmag-b.Jmag) <= eps &&
		math.Abs(a.Kmag-b.Kmag) <= eps
}
