// Package geo converts scene-local positions to and from simplefeatures
// points. Positions are persisted as XYZ points in WKB, which both SQLite and
// Postgres store as plain bytes.
package geo

import (
	"errors"
	"math"

	"github.com/gearxr/gear/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when a point carries no usable XYZ value.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromVec3 returns v as an XYZ point.
func PointFromVec3(v core.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Z:    v.Z,
		Type: geom.DimXYZ,
	})
}

// Vec3FromPoint reads a point back. An empty point or a non-finite axis is
// ErrInvalidCoordinates; a 2D point yields Z = 0.
func Vec3FromPoint(p geom.Point) (core.Vec3, error) {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	v := core.Vec3{X: c.X, Y: c.Y}
	if c.Type.Is3D() {
		v.Z = c.Z
	}
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return core.Vec3{}, ErrInvalidCoordinates
		}
	}
	return v, nil
}
