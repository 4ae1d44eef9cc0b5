package framing

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// parallelEpsilon is the smallest |forward x up| accepted as non-parallel.
const parallelEpsilon = 1e-6

// Quaternion is a unit rotation quaternion, W >= 0.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func quaternionFrom(q mgl64.Quat) Quaternion {
	return Quaternion{W: q.W, X: q.V[0], Y: q.V[1], Z: q.V[2]}
}

// Quat returns q as an mgl64 quaternion.
func (q Quaternion) Quat() mgl64.Quat {
	return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
}

// Rotate applies the rotation to v.
func (q Quaternion) Rotate(v v3.Vec) v3.Vec {
	return fromMgl(q.Quat().Rotate(toMgl(v)))
}

func toMgl(v v3.Vec) mgl64.Vec3   { return mgl64.Vec3{v.X, v.Y, v.Z} }
func fromMgl(v mgl64.Vec3) v3.Vec { return v3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// Orientation is the result of a look-at: the world-space directions of the
// oriented object's forward, up and right axes, and the rotation that carries
// the axis convention's local forward and up onto them.
type Orientation struct {
	Forward  v3.Vec     `json:"forward"`
	Up       v3.Vec     `json:"up"`
	Right    v3.Vec     `json:"right"`
	Rotation Quaternion `json:"rotation"`
}

// Orient returns the orientation at position whose forward axis points at
// center. Roll is resolved with axes.WorldUp; near the poles, where the view
// direction is parallel to WorldUp, axes.FallbackUp is used instead.
func Orient(position, center v3.Vec, axes AxisConvention) (Orientation, error) {
	dir := center.Sub(position)
	if !finite(dir.X, dir.Y, dir.Z) || dir.Length() < parallelEpsilon {
		return Orientation{}, fmt.Errorf("%w: position coincides with target", ErrSingularOrientation)
	}
	forward := dir.Normalize()

	right, ok := sideAxis(forward, axes.WorldUp)
	if !ok {
		right, ok = sideAxis(forward, axes.FallbackUp)
	}
	if !ok {
		return Orientation{}, fmt.Errorf("%w: view direction %v parallel to every up vector",
			ErrSingularOrientation, forward)
	}
	up := right.Cross(forward)

	rot, err := basisRotation(axes, forward, up, right)
	if err != nil {
		return Orientation{}, err
	}
	return Orientation{Forward: forward, Up: up, Right: right, Rotation: rot}, nil
}

// sideAxis returns normalize(forward x hint), or false when hint is zero or
// parallel to forward.
func sideAxis(forward, hint v3.Vec) (v3.Vec, bool) {
	if hint.Length() < parallelEpsilon {
		return v3.Vec{}, false
	}
	side := forward.Cross(hint.Normalize())
	if side.Length() < parallelEpsilon {
		return v3.Vec{}, false
	}
	return side.Normalize(), true
}

// basisRotation builds the rotation mapping the local convention axes onto
// the given world axes: R = W * L^T, with W and L holding forward, up and
// side as columns.
func basisRotation(axes AxisConvention, forward, up, right v3.Vec) (Quaternion, error) {
	if axes.Forward.Length() < parallelEpsilon || axes.Up.Length() < parallelEpsilon {
		return Quaternion{}, fmt.Errorf("%w: zero axis in convention", ErrSingularOrientation)
	}
	lf := axes.Forward.Normalize()
	lu := axes.Up.Normalize()
	if math.Abs(lf.Dot(lu)) > parallelEpsilon {
		return Quaternion{}, fmt.Errorf("%w: convention forward %v and up %v are not orthogonal",
			ErrSingularOrientation, axes.Forward, axes.Up)
	}

	world := mgl64.Mat3FromCols(toMgl(forward), toMgl(up), toMgl(right))
	local := mgl64.Mat3FromCols(toMgl(lf), toMgl(lu), toMgl(lf.Cross(lu)))
	q := mgl64.Mat4ToQuat(world.Mul3(local.Transpose()).Mat4()).Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	return quaternionFrom(q), nil
}
