package bake

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// goldenAngle spaces successive spiral samples so the cone footprint
// fills evenly at any sample count.
const goldenAngle = 2.39996323

// orthonormalBasis returns two unit vectors spanning the plane
// perpendicular to w (unit).
func orthonormalBasis(w mgl32.Vec3) (u, v mgl32.Vec3) {
	var a mgl32.Vec3
	if math.Abs(float64(w.X())) > 0.1 {
		a = mgl32.Vec3{0, 1, 0}
	} else {
		a = mgl32.Vec3{1, 0, 0}
	}
	u = a.Cross(w).Normalize()
	v = w.Cross(u)
	return u, v
}

// coneDirection returns the i-th of n golden-angle spiral directions
// inside a cone of halfAngle radians around base (unit). n <= 1 or a
// degenerate cone returns base unchanged.
func coneDirection(base mgl32.Vec3, halfAngle float32, i, n int) mgl32.Vec3 {
	if n <= 1 || halfAngle <= 0 {
		return base
	}
	u, v := orthonormalBasis(base)
	phi := float64(i) * goldenAngle
	r := math.Sqrt((float64(i) + 0.5) / float64(n))
	spread := float32(math.Tan(float64(halfAngle)))
	x := float32(math.Cos(phi)*r) * spread
	y := float32(math.Sin(phi)*r) * spread
	return base.Add(u.Mul(x)).Add(v.Mul(y)).Normalize()
}
