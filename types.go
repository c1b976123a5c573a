// Package transformer implements a time-aware coordinate-frame transformer
// for sensor pipelines: a frame graph of static and dynamic transformation
// edges, a stream aligner that releases samples in timestamp order, and
// transformation handles that compose a chain at query time.
package transformer

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Frame is a named 3D coordinate system.
type Frame string

// Vec3 is a 3D vector, used for translation.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Mat3 is a 3x3 matrix used for position/orientation covariances. Backed by
// gonum's mat.Dense so blending operations (interpolation, chain
// accumulation) reuse gonum's BLAS-backed arithmetic instead of hand-rolled
// 3x3 math.
type Mat3 struct {
	m *mat.Dense
}

// ZeroMat3 returns the 3x3 zero matrix.
func ZeroMat3() Mat3 { return Mat3{m: mat.NewDense(3, 3, nil)} }

// At returns the value at row i, column j.
func (m Mat3) At(i, j int) float64 {
	if m.m == nil {
		return 0
	}
	return m.m.At(i, j)
}

func (m Mat3) dense() *mat.Dense {
	if m.m == nil {
		return mat.NewDense(3, 3, nil)
	}
	return m.m
}

// addMat3 returns a+b.
func addMat3(a, b Mat3) Mat3 {
	var out mat.Dense
	out.Add(a.dense(), b.dense())
	return Mat3{m: &out}
}

// blendMat3 returns alpha*a + (1-alpha)*b, the same convex blend used for
// position interpolation (see dynamicElement.GetTransformation on the
// non-conventional weighting).
func blendMat3(a, b Mat3, alpha float64) Mat3 {
	var scaledA, scaledB, out mat.Dense
	scaledA.Scale(alpha, a.dense())
	scaledB.Scale(1-alpha, b.dense())
	out.Add(&scaledA, &scaledB)
	return Mat3{m: &out}
}

// TransformType is the value record this engine operates on: a timestamped
// rigid-body pose mapping Source frame coordinates into Target frame
// coordinates, with position/orientation covariances.
//
// Invariant: Orientation is unit-norm; CovPosition/CovOrientation are
// symmetric positive semidefinite. The zero value is not a valid identity
// transform on its own — use Identity.
type TransformType struct {
	Time           time.Time
	Source         Frame
	Target         Frame
	Position       Vec3
	Orientation    quat.Number
	CovPosition    Mat3
	CovOrientation Mat3
}

// Identity returns the identity transform from source to target, stamped at
// t, with zero covariances.
func Identity(source, target Frame, t time.Time) TransformType {
	return TransformType{
		Time:           t,
		Source:         source,
		Target:         target,
		Position:       Vec3{},
		Orientation:    quat.Number{Real: 1},
		CovPosition:    ZeroMat3(),
		CovOrientation: ZeroMat3(),
	}
}

// ToAffine converts the geometric part (position, orientation) of tr into a
// 4x4 homogeneous affine matrix, with the rotation in the upper-left 3x3
// block and the translation in the rightmost column.
func (tr TransformType) ToAffine() *mat.Dense {
	r := quatToRotMat(quatNormalize(tr.Orientation))
	out := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, r[i][j])
		}
	}
	out.Set(0, 3, tr.Position.X)
	out.Set(1, 3, tr.Position.Y)
	out.Set(2, 3, tr.Position.Z)
	out.Set(3, 3, 1)
	return out
}

// FromAffine builds a TransformType's geometric part from a 4x4 homogeneous
// affine matrix, stamping the given frames and time. Covariances are zero;
// callers that need covariance propagation should set those fields
// afterward.
func FromAffine(m *mat.Dense, source, target Frame, t time.Time) TransformType {
	pos, orient := affineToPoseGeom(m)
	return TransformType{
		Time:           t,
		Source:         source,
		Target:         target,
		Position:       pos,
		Orientation:    orient,
		CovPosition:    ZeroMat3(),
		CovOrientation: ZeroMat3(),
	}
}

func affineToPoseGeom(m *mat.Dense) (Vec3, quat.Number) {
	var r [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m.At(i, j)
		}
	}
	pos := Vec3{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
	return pos, rotMatToQuat(r)
}

// Inverse returns the inverse of tr: a transform mapping Target coordinates
// back into Source coordinates. Computed via a full 4x4 affine inversion to
// match the reference implementation's Eigen::Affine3d::inverse() exactly,
// including for non-identity rotations.
func (tr TransformType) Inverse() TransformType {
	m := tr.ToAffine()
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		// A valid rigid-body affine (orthonormal rotation, w row [0 0 0 1])
		// is always invertible; this would indicate a corrupted orientation.
		pos, orient := affineToPoseGeom(m)
		return TransformType{
			Time:           tr.Time,
			Source:         tr.Target,
			Target:         tr.Source,
			Position:       pos.Scale(-1),
			Orientation:    quat.Conj(quatNormalize(orient)),
			CovPosition:    tr.CovPosition,
			CovOrientation: tr.CovOrientation,
		}
	}
	pos, orient := affineToPoseGeom(&inv)
	return TransformType{
		Time:           tr.Time,
		Source:         tr.Target,
		Target:         tr.Source,
		Position:       pos,
		Orientation:    orient,
		CovPosition:    tr.CovPosition,
		CovOrientation: tr.CovOrientation,
	}
}

// compose returns the geometric composition result∘edge: applying edge
// first, then result, matching the reference's literal
// `result = result * trans` over Eigen::Affine3d. Source/Target/Time on the
// returned value are carried from result unchanged — chain composition
// never renames the handle's overall (source, target) pair, it only
// accumulates geometry.
func compose(result, edge TransformType) TransformType {
	rm := result.ToAffine()
	em := edge.ToAffine()
	var out mat.Dense
	out.Mul(rm, em)
	pos, orient := affineToPoseGeom(&out)
	return TransformType{
		Time:           result.Time,
		Source:         result.Source,
		Target:         result.Target,
		Position:       pos,
		Orientation:    orient,
		CovPosition:    addMat3(result.CovPosition, edge.CovPosition),
		CovOrientation: addMat3(result.CovOrientation, edge.CovOrientation),
	}
}

func quatNormalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

func quatSub(a, b quat.Number) quat.Number {
	return quat.Add(a, quat.Scale(-1, b))
}

// slerp interpolates between two unit quaternions along the shortest
// great-circle arc, at parameter alpha in [0,1].
func slerp(q0, q1 quat.Number, alpha float64) quat.Number {
	q0 = quatNormalize(q0)
	q1 = quatNormalize(q1)

	dot := quatDot(q0, q1)
	if dot < 0 {
		q1 = quat.Scale(-1, q1)
		dot = -dot
	}

	const closeThreshold = 0.9995
	if dot > closeThreshold {
		lerped := quat.Add(q0, quat.Scale(alpha, quatSub(q1, q0)))
		return quatNormalize(lerped)
	}

	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	theta0 := math.Acos(dot)
	theta := theta0 * alpha

	orthogonal := quatNormalize(quatSub(q1, quat.Scale(dot, q0)))
	return quat.Add(quat.Scale(math.Cos(theta), q0), quat.Scale(math.Sin(theta), orthogonal))
}

func quatToRotMat(q quat.Number) [3][3]float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// rotMatToQuat recovers a unit quaternion from an orthonormal rotation
// matrix via Shepperd's method.
func rotMatToQuat(r [3][3]float64) quat.Number {
	trace := r[0][0] + r[1][1] + r[2][2]

	var w, x, y, z float64
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1.0) * 2
		w = 0.25 * s
		x = (r[2][1] - r[1][2]) / s
		y = (r[0][2] - r[2][0]) / s
		z = (r[1][0] - r[0][1]) / s
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := math.Sqrt(1.0+r[0][0]-r[1][1]-r[2][2]) * 2
		w = (r[2][1] - r[1][2]) / s
		x = 0.25 * s
		y = (r[0][1] + r[1][0]) / s
		z = (r[0][2] + r[2][0]) / s
	case r[1][1] > r[2][2]:
		s := math.Sqrt(1.0+r[1][1]-r[0][0]-r[2][2]) * 2
		w = (r[0][2] - r[2][0]) / s
		x = (r[0][1] + r[1][0]) / s
		y = 0.25 * s
		z = (r[1][2] + r[2][1]) / s
	default:
		s := math.Sqrt(1.0+r[2][2]-r[0][0]-r[1][1]) * 2
		w = (r[1][0] - r[0][1]) / s
		x = (r[0][2] + r[2][0]) / s
		y = (r[1][2] + r[2][1]) / s
		z = 0.25 * s
	}
	return quatNormalize(quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z})
}
