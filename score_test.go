package volumetrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func pointProxy(pos mgl32.Vec3, rng, intensity, scattering float32) LightProxy {
	return LightProxy{
		Id:         "p",
		Kind:       LightKindPoint,
		Position:   pos,
		Range:      rng,
		Color:      mgl32.Vec3{intensity, intensity, intensity},
		Intensity:  intensity,
		Scattering: scattering,
	}
}

func TestScoreLight_ExampleScenario(t *testing.T) {
	cfg := DefaultFogSettings()
	cfg.MaxDistance = 64
	cfg.BaseHeight = 0
	cfg.MaxHeight = 50

	p := pointProxy(mgl32.Vec3{0, 10, 0}, 20, 5, 1)
	observer := mgl32.Vec3{}

	cand, ok := ScoreLight(&p, 0, observer, &cfg)
	if !ok {
		t.Fatal("light should be a candidate")
	}
	distSq := float32(100)
	want := 1 * 5 * (400 / distSq) * 1
	if math.Abs(float64(cand.Score-want)) > 1e-5 {
		t.Errorf("expected score %v, got %v", want, cand.Score)
	}
	if cand.Bounds.Center != p.Position || cand.Bounds.Radius != 20 {
		t.Errorf("point light bounds must be position/range, got %+v", cand.Bounds)
	}
}

func TestScoreLight_Rejections(t *testing.T) {
	cfg := DefaultFogSettings()
	cfg.MaxDistance = 64
	cfg.BaseHeight = 0
	cfg.MaxHeight = 50
	observer := mgl32.Vec3{}

	tests := []struct {
		name  string
		proxy LightProxy
	}{
		{"below height band", pointProxy(mgl32.Vec3{0, -30, 0}, 10, 5, 1)},
		{"above height band", pointProxy(mgl32.Vec3{0, 80, 0}, 10, 5, 1)},
		{"beyond fog reach", pointProxy(mgl32.Vec3{200, 10, 0}, 10, 5, 1)},
		{"zero scattering", pointProxy(mgl32.Vec3{0, 10, 0}, 10, 5, 0)},
		{"too dim", pointProxy(mgl32.Vec3{0, 10, 0}, 10, 0, 1)},
		{"directional", LightProxy{Id: "d", Kind: LightKindDirectional, Intensity: 5, Scattering: 1}},
	}
	for _, tt := range tests {
		if _, ok := ScoreLight(&tt.proxy, 0, observer, &cfg); ok {
			t.Errorf("%s: expected rejection", tt.name)
		}
	}
}

func TestScoreLight_SpotFactorFloor(t *testing.T) {
	cfg := DefaultFogSettings()
	p := pointProxy(mgl32.Vec3{0, 10, 0}, 20, 5, 1)
	p.Kind = LightKindSpot
	p.Forward = mgl32.Vec3{0, -1, 0}
	p.SpotOuterCos = 0.1 // very wide cone, below the 0.25 floor

	cand, ok := ScoreLight(&p, 0, mgl32.Vec3{}, &cfg)
	if !ok {
		t.Fatal("spot should be a candidate")
	}
	want := float32(1 * 5 * (400.0 / 100.0) * 0.25)
	if math.Abs(float64(cand.Score-want)) > 1e-5 {
		t.Errorf("expected floored spot score %v, got %v", want, cand.Score)
	}
}

func TestBoundingSphere_SpotNarrowCone(t *testing.T) {
	halfAngle := float32(math.Pi / 6) // 30 degrees
	p := LightProxy{
		Kind:         LightKindSpot,
		Position:     mgl32.Vec3{1, 2, 3},
		Forward:      mgl32.Vec3{0, 0, -1},
		Range:        10,
		SpotOuterCos: float32(math.Cos(float64(halfAngle))),
	}
	b := boundingSphere(&p)

	// Circumscribed sphere: every cone point, including the apex and
	// the cap rim, must be inside.
	apex := p.Position
	capCenter := p.Position.Add(p.Forward.Mul(p.Range * p.SpotOuterCos))
	rim := capCenter.Add(mgl32.Vec3{1, 0, 0}.Mul(p.Range * float32(math.Sin(float64(halfAngle)))))

	for _, pt := range []mgl32.Vec3{apex, capCenter, rim} {
		if d := pt.Sub(b.Center).Len(); d > b.Radius+1e-4 {
			t.Errorf("cone point %v outside bounding sphere (d=%v r=%v)", pt, d, b.Radius)
		}
	}
}
