// Package geom collects the vector and attitude helpers shared by the
// providers. Vectors are gonum r3.Vec in a Y-up world frame; attitudes are
// unit quaternions (quat.Number) that rotate body-frame vectors into the world
// frame with q·p·q*.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Body and world axes.
var (
	UnitX = r3.Vec{X: 1}
	UnitY = r3.Vec{Y: 1}
	UnitZ = r3.Vec{Z: 1}
)

// Identity is the no-rotation attitude.
var Identity = quat.Number{Real: 1}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(q).Rotate(v)
}

// Inverse returns the inverse rotation of the unit quaternion q.
func Inverse(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// AxisAngle builds the rotation of angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, axis))
}

// FromYawPitchRoll composes yaw about +Y, pitch about +X and roll about +Z.
// Roll is applied first and yaw last.
func FromYawPitchRoll(yaw, pitch, roll float64) quat.Number {
	q := quat.Mul(AxisAngle(UnitY, yaw), AxisAngle(UnitX, pitch))
	return quat.Mul(q, AxisAngle(UnitZ, roll))
}

// Normalize scales q to unit length. The zero quaternion maps to Identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// UnitOr returns v normalized, or fallback when v has (near) zero length.
func UnitOr(v, fallback r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < 1e-12 {
		return fallback
	}
	return r3.Scale(1/n, v)
}

// AngleBetween returns the angle in radians between a and b. Zero-length
// inputs yield 0. atan2 of |a×b| and a·b stays accurate near 0 and π, where
// acos of the dot product loses half its digits.
func AngleBetween(a, b r3.Vec) float64 {
	if r3.Norm(a) == 0 || r3.Norm(b) == 0 {
		return 0
	}
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}

// FromSpherical converts a magnitude with azimuth (from +Z toward +X) and
// elevation (above the XZ plane) into a world vector.
func FromSpherical(magnitude, azimuth, elevation float64) r3.Vec {
	h := magnitude * math.Cos(elevation)
	return r3.Vec{
		X: h * math.Sin(azimuth),
		Y: magnitude * math.Sin(elevation),
		Z: h * math.Cos(azimuth),
	}
}

// LookAlong returns the attitude whose body +X axis points along dir with body
// +Y as close to world up as possible. A vertical dir falls back to world +Z
// as the up reference. A zero dir yields Identity.
func LookAlong(dir r3.Vec) quat.Number {
	n := r3.Norm(dir)
	if n == 0 {
		return Identity
	}
	ex := r3.Scale(1/n, dir)
	side := r3.Cross(ex, UnitY)
	if r3.Norm(side) < 1e-9 {
		side = r3.Cross(ex, UnitZ)
	}
	ez := r3.Unit(side)
	ey := r3.Cross(ez, ex)
	return fromBasis(ex, ey, ez)
}

// fromBasis converts the rotation matrix with columns ex, ey, ez into a unit
// quaternion.
func fromBasis(ex, ey, ez r3.Vec) quat.Number {
	m00, m01, m02 := ex.X, ey.X, ez.X
	m10, m11, m12 := ex.Y, ey.Y, ez.Y
	m20, m21, m22 := ex.Z, ey.Z, ez.Z

	var q quat.Number
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = quat.Number{Real: 0.25 / s, Imag: (m21 - m12) * s, Jmag: (m02 - m20) * s, Kmag: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return Normalize(q)
}
