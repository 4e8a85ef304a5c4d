package geo

import (
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/pkg/core"
)

func TestPointFromVec3(t *testing.T) {
	p := PointFromVec3(core.Vec3{X: 1.5, Y: -2, Z: 0.25})

	c, ok := p.Coordinates()
	require.True(t, ok)
	assert.Equal(t, geom.DimXYZ, c.Type)
	assert.Equal(t, 1.5, c.X)
	assert.Equal(t, -2.0, c.Y)
	assert.Equal(t, 0.25, c.Z)
}

func TestVec3FromPoint_RoundTrip(t *testing.T) {
	in := core.Vec3{X: 0, Y: 0.8, Z: 1.5}
	out, err := Vec3FromPoint(PointFromVec3(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVec3FromPoint_WKBRoundTrip(t *testing.T) {
	in := core.Vec3{X: 3, Y: 2, Z: 1}
	raw, err := PointFromVec3(in).Value()
	require.NoError(t, err)

	var p geom.Point
	require.NoError(t, p.Scan(raw))
	out, err := Vec3FromPoint(p)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVec3FromPoint_Invalid(t *testing.T) {
	_, err := Vec3FromPoint(geom.NewEmptyPoint(geom.DimXYZ))
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = Vec3FromPoint(PointFromVec3(core.Vec3{X: math.NaN()}))
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestVec3FromPoint_2D(t *testing.T) {
	p := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: 1, Y: 2}, Type: geom.DimXY})
	out, err := Vec3FromPoint(p)
	require.NoError(t, err)
	assert.Equal(t, core.Vec3{X: 1, Y: 2}, out)
}
