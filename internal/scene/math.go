package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gearxr/gear/pkg/core"
)

func toMgl(v core.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromMgl(v mgl64.Vec3) core.Vec3 {
	return core.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// quatFromEuler builds the orientation for an XYZ-ordered Euler rotation.
func quatFromEuler(e core.Euler) mgl64.Quat {
	c1, s1 := math.Cos(e.X/2), math.Sin(e.X/2)
	c2, s2 := math.Cos(e.Y/2), math.Sin(e.Y/2)
	c3, s3 := math.Cos(e.Z/2), math.Sin(e.Z/2)
	return mgl64.Quat{
		W: c1*c2*c3 - s1*s2*s3,
		V: mgl64.Vec3{
			s1*c2*c3 + c1*s2*s3,
			c1*s2*c3 - s1*c2*s3,
			c1*c2*s3 + s1*s2*c3,
		},
	}
}

// eulerFromQuat extracts XYZ-ordered Euler angles from an orientation.
func eulerFromQuat(q mgl64.Quat) core.Euler {
	m := q.Normalize().Mat4()
	m13 := clamp(m.At(0, 2), -1, 1)

	e := core.Euler{Y: math.Asin(m13)}
	if math.Abs(m13) < 0.9999999 {
		e.X = math.Atan2(-m.At(1, 2), m.At(2, 2))
		e.Z = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		e.X = math.Atan2(m.At(2, 1), m.At(1, 1))
	}
	return e
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func transformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

func transformDir(m mgl64.Mat4, d mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// EulerFromQuaternion converts a quaternion given as (x, y, z, w) to XYZ
// Euler angles.
func EulerFromQuaternion(x, y, z, w float64) core.Euler {
	q := mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
	if q.Len() == 0 {
		return core.Euler{}
	}
	return eulerFromQuat(q)
}
