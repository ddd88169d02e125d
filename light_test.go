package volumetrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func sceneLight(id LightId) SceneLight {
	return SceneLight{
		Id:          id,
		Kind:        LightKindPoint,
		Position:    mgl32.Vec3{0, 5, 0},
		Range:       10,
		ColorLinear: mgl32.Vec3{1, 1, 1},
		Intensity:   2,
		Enabled:     true,
		Volumetric:  true,
	}
}

func TestExtractProxies_DefaultsCounted(t *testing.T) {
	var diag Diagnostics
	lights := []SceneLight{sceneLight("a"), sceneLight("b")}
	fog := map[LightId]LightFogSettings{
		"b": {Scattering: 0.5, Anisotropy: 0.1, SmoothingRadius: 0.3},
	}

	proxies := ExtractProxies(lights, fog, &diag)
	if len(proxies) != 2 {
		t.Fatalf("expected 2 proxies, got %d", len(proxies))
	}
	if diag.DefaultedLights != 1 {
		t.Errorf("expected 1 defaulted light, got %d", diag.DefaultedLights)
	}

	a := proxies[0]
	if a.Scattering != DefaultScattering || a.Anisotropy != DefaultAnisotropy || a.SmoothingRadius != DefaultSmoothingRadius {
		t.Errorf("light a should use defaults, got %+v", a)
	}
	b := proxies[1]
	if b.Scattering != 0.5 || b.SmoothingRadius != 0.3 {
		t.Errorf("light b should use its companion record, got %+v", b)
	}
}

func TestExtractProxies_Filtering(t *testing.T) {
	disabled := sceneLight("off")
	disabled.Enabled = false

	zeroRange := sceneLight("zero")
	zeroRange.Range = 0

	notFog := sceneLight("plain")
	notFog.Volumetric = false

	dup := sceneLight("dup")

	var diag Diagnostics
	proxies := ExtractProxies([]SceneLight{disabled, zeroRange, notFog, dup, dup}, nil, &diag)
	if len(proxies) != 1 {
		t.Fatalf("expected only the one valid light, got %d", len(proxies))
	}
	if proxies[0].Id != "dup" {
		t.Errorf("unexpected survivor %q", proxies[0].Id)
	}
}

func TestExtractProxies_Normalization(t *testing.T) {
	l := sceneLight("s")
	l.Kind = LightKindSpot
	l.Forward = mgl32.Vec3{0, 0, -2} // not unit
	l.SpotOuterAngle = 90
	l.SpotInnerAngle = 60
	l.ShadowMode = ShadowModeSoft
	l.ShadowStrength = 2 // out of range

	fog := map[LightId]LightFogSettings{
		"s": {Scattering: 1, Anisotropy: 5, SmoothingRadius: 0.2}, // anisotropy out of range
	}

	proxies := ExtractProxies([]SceneLight{l}, fog, nil)
	p := proxies[0]

	if math.Abs(float64(p.Forward.Len()-1)) > 1e-5 {
		t.Errorf("forward must be normalized, got %v", p.Forward)
	}
	wantOuter := float32(math.Cos(math.Pi / 4))
	if math.Abs(float64(p.SpotOuterCos-wantOuter)) > 1e-5 {
		t.Errorf("expected outer cos %v, got %v", wantOuter, p.SpotOuterCos)
	}
	if p.SpotInnerCos < p.SpotOuterCos {
		t.Error("inner cos must not be below outer cos")
	}
	if p.Anisotropy != 0.99 {
		t.Errorf("anisotropy must clamp to 0.99, got %v", p.Anisotropy)
	}
	if p.ShadowStrength != 1 {
		t.Errorf("shadow strength must clamp to 1, got %v", p.ShadowStrength)
	}
	if !p.CastsShadows || !p.SoftShadows {
		t.Error("soft shadow mode must set both shadow flags")
	}
	if p.Color != l.ColorLinear.Mul(l.Intensity) {
		t.Errorf("color must be premultiplied by intensity, got %v", p.Color)
	}
}

func TestExtractProxies_FreshGeneration(t *testing.T) {
	lights := []SceneLight{sceneLight("a")}
	g1 := ExtractProxies(lights, nil, nil)
	g2 := ExtractProxies(lights, nil, nil)
	if &g1[0] == &g2[0] {
		t.Error("each extract must produce a fresh generation")
	}
}
