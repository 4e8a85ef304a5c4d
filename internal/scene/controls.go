package scene

import (
	"math"

	"github.com/gearxr/gear/pkg/core"
)

// Orbit control defaults.
const (
	DefaultDampingFactor = 0.05
	DefaultMinDistance   = 0.5
	DefaultMaxDistance   = 50.0
)

// OrbitControls keeps a camera on a sphere around a target.
type OrbitControls struct {
	Camera *PerspectiveCamera
	Target core.Vec3

	EnableDamping bool
	DampingFactor float64
	MinDistance   float64
	MaxDistance   float64
	MinPolarAngle float64
	MaxPolarAngle float64

	deltaTheta float64
	deltaPhi   float64
	scale      float64
}

// NewOrbitControls creates damped controls bound to cam.
func NewOrbitControls(cam *PerspectiveCamera) *OrbitControls {
	return &OrbitControls{
		Camera:        cam,
		EnableDamping: true,
		DampingFactor: DefaultDampingFactor,
		MinDistance:   DefaultMinDistance,
		MaxDistance:   DefaultMaxDistance,
		MinPolarAngle: 0,
		MaxPolarAngle: math.Pi,
		scale:         1,
	}
}

// Rotate queues an azimuth and polar rotation in radians.
func (c *OrbitControls) Rotate(theta, phi float64) {
	c.deltaTheta += theta
	c.deltaPhi += phi
}

// Dolly queues a distance change; factor > 1 moves away.
func (c *OrbitControls) Dolly(factor float64) {
	if factor > 0 {
		c.scale *= factor
	}
}

// Update applies pending input and repositions the camera. It reports
// whether the camera moved.
func (c *OrbitControls) Update() bool {
	cam := c.Camera
	if cam == nil {
		return false
	}

	offset := cam.Position.Sub(c.Target)
	radius := math.Sqrt(offset.X*offset.X + offset.Y*offset.Y + offset.Z*offset.Z)
	if radius == 0 {
		return false
	}
	theta := math.Atan2(offset.X, offset.Z)
	phi := math.Acos(clamp(offset.Y/radius, -1, 1))

	if c.EnableDamping {
		theta += c.deltaTheta * c.DampingFactor
		phi += c.deltaPhi * c.DampingFactor
	} else {
		theta += c.deltaTheta
		phi += c.deltaPhi
	}

	const eps = 1e-6
	phi = clamp(phi, c.MinPolarAngle, c.MaxPolarAngle)
	phi = clamp(phi, eps, math.Pi-eps)
	radius = clamp(radius*c.scale, c.MinDistance, c.MaxDistance)

	next := core.Vec3{
		X: radius * math.Sin(phi) * math.Sin(theta),
		Y: radius * math.Cos(phi),
		Z: radius * math.Sin(phi) * math.Cos(theta),
	}
	prev := cam.Position
	cam.Position = c.Target.Add(next)
	cam.LookAt(c.Target)

	if c.EnableDamping {
		c.deltaTheta *= 1 - c.DampingFactor
		c.deltaPhi *= 1 - c.DampingFactor
	} else {
		c.deltaTheta, c.deltaPhi = 0, 0
	}
	c.scale = 1

	moved := cam.Position.Sub(prev)
	return math.Abs(moved.X)+math.Abs(moved.Y)+math.Abs(moved.Z) > 1e-9
}
