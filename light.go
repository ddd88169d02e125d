package volumetrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type LightKind uint32

const (
	LightKindPoint       LightKind = 0
	LightKindDirectional LightKind = 1
	LightKindSpot        LightKind = 2
)

// LightId is the stable identity of a scene light across frames.
type LightId string

func NewLightId() LightId {
	return LightId(uuid.NewString())
}

type ShadowMode uint32

const (
	ShadowModeNone ShadowMode = 0
	ShadowModeHard ShadowMode = 1
	ShadowModeSoft ShadowMode = 2
)

// SceneLight is the raw light record handed in by the host engine each
// frame. The extractor never mutates it.
type SceneLight struct {
	Id          LightId
	Kind        LightKind
	Position    mgl32.Vec3
	Forward     mgl32.Vec3
	Range       float32
	ColorLinear mgl32.Vec3
	Intensity   float32

	SpotOuterAngle float32 // full cone angle in degrees (spot)
	SpotInnerAngle float32

	ShadowMode     ShadowMode
	ShadowStrength float32

	Enabled bool
	Static  bool

	// Volumetric marks the light as a fog contributor even without a
	// companion LightFogSettings record.
	Volumetric bool
}

// LightProxy is the normalized per-frame record all selection, clustering
// and baking operate on. A fresh generation is produced on every extract;
// proxies are never mutated in place.
type LightProxy struct {
	Id      LightId
	Kind    LightKind
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Range    float32

	Color     mgl32.Vec3 // linear color premultiplied by intensity
	Intensity float32

	Scattering      float32
	Anisotropy      float32 // clamped to [-0.99, 0.99]
	SmoothingRadius float32

	SpotOuterCos float32
	SpotInnerCos float32

	CastsShadows   bool
	SoftShadows    bool
	ShadowStrength float32

	Static bool
}

// ExtractProxies converts the scene light list into a fresh proxy
// generation. Lights without a companion record use the documented
// defaults and are counted in diag.DefaultedLights. No light appears
// twice; disabled lights, non-contributors and degenerate ranges are
// skipped.
func ExtractProxies(lights []SceneLight, fog map[LightId]LightFogSettings, diag *Diagnostics) []LightProxy {
	out := make([]LightProxy, 0, len(lights))
	seen := make(map[LightId]struct{}, len(lights))

	for i := range lights {
		l := &lights[i]
		if !l.Enabled {
			continue
		}
		if l.Kind != LightKindDirectional && l.Range <= 0 {
			continue
		}
		if _, dup := seen[l.Id]; dup {
			continue
		}

		cfg, hasCfg := fog[l.Id]
		if !l.Volumetric && !hasCfg {
			continue
		}
		if !hasCfg {
			cfg = LightFogSettings{
				Scattering:      DefaultScattering,
				Anisotropy:      DefaultAnisotropy,
				SmoothingRadius: DefaultSmoothingRadius,
			}
			if diag != nil {
				diag.DefaultedLights++
			}
		}
		seen[l.Id] = struct{}{}

		p := LightProxy{
			Id:              l.Id,
			Kind:            l.Kind,
			Position:        l.Position,
			Forward:         safeNormalize(l.Forward),
			Range:           l.Range,
			Color:           l.ColorLinear.Mul(l.Intensity),
			Intensity:       l.Intensity,
			Scattering:      cfg.Scattering,
			Anisotropy:      mgl32.Clamp(cfg.Anisotropy, -0.99, 0.99),
			SmoothingRadius: cfg.SmoothingRadius,
			CastsShadows:    l.ShadowMode != ShadowModeNone,
			SoftShadows:     l.ShadowMode == ShadowModeSoft,
			ShadowStrength:  mgl32.Clamp(l.ShadowStrength, 0, 1),
			Static:          l.Static && cfg.Bake,
		}
		if !hasCfg {
			// Without a companion record, static lights still bake.
			p.Static = l.Static
		}
		if l.Kind == LightKindSpot {
			outer := mgl32.DegToRad(l.SpotOuterAngle) * 0.5
			inner := mgl32.DegToRad(l.SpotInnerAngle) * 0.5
			if inner > outer {
				inner = outer
			}
			p.SpotOuterCos = float32(math.Cos(float64(outer)))
			p.SpotInnerCos = float32(math.Cos(float64(inner)))
		}
		out = append(out, p)
	}
	return out
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.LenSqr() < 1e-12 {
		return mgl32.Vec3{0, 0, -1}
	}
	return v.Normalize()
}
