package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gearxr/gear/pkg/core"
)

// Camera defaults.
const (
	DefaultFOV  = 75.0
	DefaultNear = 0.1
	DefaultFar  = 1000.0
)

// Rect is a surface area in client pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

// NDC converts client coordinates over rect to normalized device coordinates,
// x rightwards and y upwards in [-1, 1].
func NDC(clientX, clientY float64, rect Rect) (float64, float64) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return 0, 0
	}
	x := (clientX-rect.Left)/rect.Width*2 - 1
	y := -(clientY-rect.Top)/rect.Height*2 + 1
	return x, y
}

// PerspectiveCamera looks down its local -Z axis.
type PerspectiveCamera struct {
	FOV    float64 // vertical, degrees
	Aspect float64
	Near   float64
	Far    float64

	Position    core.Vec3
	orientation mgl64.Quat
}

// NewPerspectiveCamera creates a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float64) *PerspectiveCamera {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	return &PerspectiveCamera{
		FOV:         fov,
		Aspect:      aspect,
		Near:        near,
		Far:         far,
		orientation: mgl64.QuatIdent(),
	}
}

// SetSize updates the aspect ratio from surface dimensions.
func (c *PerspectiveCamera) SetSize(width, height float64) {
	if width > 0 && height > 0 {
		c.Aspect = width / height
	}
}

// LookAt turns the camera towards target with +Y up.
func (c *PerspectiveCamera) LookAt(target core.Vec3) {
	eye := toMgl(c.Position)
	z := eye.Sub(toMgl(target))
	if z.Len() == 0 {
		return
	}
	z = z.Normalize()
	up := mgl64.Vec3{0, 1, 0}
	x := up.Cross(z)
	if x.Len() < 1e-9 {
		// looking straight up or down
		up = mgl64.Vec3{0, 0, 1}
		x = up.Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)

	m := mgl64.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	c.orientation = mgl64.Mat4ToQuat(m).Normalize()
}

// Rotation returns the camera orientation as XYZ Euler angles.
func (c *PerspectiveCamera) Rotation() core.Euler {
	return eulerFromQuat(c.orientation)
}

// SetRotation sets the camera orientation from XYZ Euler angles.
func (c *PerspectiveCamera) SetRotation(e core.Euler) {
	c.orientation = quatFromEuler(e)
}

// Pose returns the camera's position and rotation.
func (c *PerspectiveCamera) Pose() core.Pose {
	return core.Pose{Position: c.Position, Rotation: c.Rotation()}
}

// Forward is the unit view direction in world space.
func (c *PerspectiveCamera) Forward() core.Vec3 {
	return fromMgl(c.orientation.Rotate(mgl64.Vec3{0, 0, -1}))
}

// ProjectionMatrix returns the perspective projection.
func (c *PerspectiveCamera) ProjectionMatrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Ray returns the world-space ray through the given NDC point.
func (c *PerspectiveCamera) Ray(ndcX, ndcY float64) Ray {
	tanHalf := math.Tan(mgl64.DegToRad(c.FOV) / 2)
	local := mgl64.Vec3{ndcX * tanHalf * c.Aspect, ndcY * tanHalf, -1}
	return Ray{
		Origin:    toMgl(c.Position),
		Direction: c.orientation.Rotate(local).Normalize(),
	}
}

// FitDistance is how far back the camera must stand for an object of the
// given largest dimension to fill the view, with 50% padding.
func (c *PerspectiveCamera) FitDistance(maxDim float64) float64 {
	fov := mgl64.DegToRad(c.FOV)
	return math.Abs(maxDim/2/math.Tan(fov/2)) * 1.5
}
