// Package bake precomputes volumetric lighting for static lights: a
// dense voxel volume of radiance, dominant direction and anisotropy,
// and per-light local visibility grids that replace runtime shadow
// rays. Bakes are explicit, long-running, cancellable operations; the
// per-frame path never calls into this package.
package bake

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/volumetrics"
)

const (
	MinResolution = 4
	MaxResolution = 256

	// StaticLightBudget bounds a single bake; excess lights are cut,
	// highest scattering*intensity first.
	StaticLightBudget = 64
)

var ErrBakeCancelled = errors.New("volumetrics: bake cancelled")

// RayOccluder answers bake-time shadow queries. Callers supply an
// occluder already filtered to static collision geometry; this package
// never sees layer masks.
type RayOccluder interface {
	RayOccluded(origin, dir mgl32.Vec3, maxDist float32) bool
}

type VolumeSettings struct {
	BoundsMin  mgl32.Vec3
	BoundsMax  mgl32.Vec3
	Resolution [3]int

	BakeShadows                  bool
	RayBias                      float32
	MaxDirectionalShadowDistance float32
	SoftShadowSamples            int
	ConeHalfAngle                float32 // radians
}

func DefaultVolumeSettings(boundsMin, boundsMax mgl32.Vec3) VolumeSettings {
	return VolumeSettings{
		BoundsMin:                    boundsMin,
		BoundsMax:                    boundsMax,
		Resolution:                   [3]int{32, 32, 32},
		BakeShadows:                  true,
		RayBias:                      0.05,
		MaxDirectionalShadowDistance: 200,
		SoftShadowSamples:            8,
		ConeHalfAngle:                mgl32.DegToRad(2),
	}
}

// clamp corrects invalid settings in place; the bake always produces a
// structurally valid volume.
func (s *VolumeSettings) clamp() {
	for i := 0; i < 3; i++ {
		if s.Resolution[i] < MinResolution {
			s.Resolution[i] = MinResolution
		}
		if s.Resolution[i] > MaxResolution {
			s.Resolution[i] = MaxResolution
		}
		if s.BoundsMax[i] <= s.BoundsMin[i] {
			s.BoundsMax[i] = s.BoundsMin[i] + 1e-3
		}
	}
	if s.SoftShadowSamples < 1 {
		s.SoftShadowSamples = 1
	}
	if s.RayBias < 0 {
		s.RayBias = 0
	}
	if s.MaxDirectionalShadowDistance <= 0 {
		s.MaxDirectionalShadowDistance = 200
	}
}

// VolumeResult is one immutable bake revision. Lighting holds linear
// radiance in RGB with anisotropy encoded to [0,1] in A; Direction
// holds the dominant light direction encoded to [0,1] in RGB.
type VolumeResult struct {
	Lighting  *Texture3D
	Direction *Texture3D

	BoundsMin  mgl32.Vec3
	BoundsMax  mgl32.Vec3
	Resolution [3]int
	LightCount int
	Revision   uuid.UUID
}

// BakeVolume marches the voxel grid and accumulates every qualifying
// static light. cancel, polled between z-slices, aborts the bake and
// discards partial results. Zero qualifying lights is not an error:
// the result is a valid all-black volume and diag records the notice.
func BakeVolume(proxies []volumetrics.LightProxy, occluder RayOccluder, settings VolumeSettings,
	cancel func() bool, log volumetrics.Logger, diag *volumetrics.Diagnostics) (*VolumeResult, error) {

	if log == nil {
		log = volumetrics.NewNopLogger()
	}
	settings.clamp()

	lights := qualifyStaticLights(proxies, log, diag)

	w, h, d := settings.Resolution[0], settings.Resolution[1], settings.Resolution[2]
	lighting := NewTexture3D(w, h, d)
	direction := NewTexture3D(w, h, d)
	direction.Fill([4]float32{0.5, 0.5, 0.5, 1})

	if len(lights) == 0 {
		if diag != nil {
			diag.ZeroLightsBaked = true
		}
		log.Warnf("volumetrics: volume bake found no qualifying static lights, producing black volume")
		return &VolumeResult{
			Lighting:   lighting,
			Direction:  direction,
			BoundsMin:  settings.BoundsMin,
			BoundsMax:  settings.BoundsMax,
			Resolution: settings.Resolution,
			Revision:   uuid.New(),
		}, nil
	}

	size := settings.BoundsMax.Sub(settings.BoundsMin)
	cell := mgl32.Vec3{
		size.X() / float32(w),
		size.Y() / float32(h),
		size.Z() / float32(d),
	}

	for z := 0; z < d; z++ {
		if cancel != nil && cancel() {
			if diag != nil {
				diag.BakeCancelled = true
			}
			log.Infof("volumetrics: volume bake cancelled at slice %d/%d", z, d)
			return nil, ErrBakeCancelled
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := mgl32.Vec3{
					settings.BoundsMin.X() + (float32(x)+0.5)*cell.X(),
					settings.BoundsMin.Y() + (float32(y)+0.5)*cell.Y(),
					settings.BoundsMin.Z() + (float32(z)+0.5)*cell.Z(),
				}
				li, di := bakeVoxel(p, lights, occluder, &settings)
				lighting.Set(x, y, z, li)
				direction.Set(x, y, z, di)
			}
		}
	}

	return &VolumeResult{
		Lighting:   lighting,
		Direction:  direction,
		BoundsMin:  settings.BoundsMin,
		BoundsMax:  settings.BoundsMax,
		Resolution: settings.Resolution,
		LightCount: len(lights),
		Revision:   uuid.New(),
	}, nil
}

// bakeVoxel accumulates all lights into one voxel. Overlapping lights
// collapse into a single luminance-weighted dominant direction and
// anisotropy; this is the inherited approximation and its exact
// weighting is kept for compatibility.
func bakeVoxel(p mgl32.Vec3, lights []volumetrics.LightProxy, occluder RayOccluder, settings *VolumeSettings) (lighting, direction [4]float32) {
	var radiance mgl32.Vec3
	var dirAccum mgl32.Vec3
	var anisoAccum, lumSum float32

	for i := range lights {
		l := &lights[i]
		att, toLight, dist := lightAttenuation(l, p)
		if att <= 0 {
			continue
		}
		vis := shadowVisibility(l, p, toLight, dist, occluder, settings)
		if vis <= 0 {
			continue
		}
		contrib := l.Color.Mul(att * l.Scattering * vis)
		radiance = radiance.Add(contrib)

		lum := luminance(contrib)
		dirAccum = dirAccum.Add(toLight.Mul(lum))
		anisoAccum += l.Anisotropy * lum
		lumSum += lum
	}

	aniso := float32(0)
	dir := mgl32.Vec3{}
	if lumSum > 0 {
		aniso = anisoAccum / lumSum
		if dirAccum.LenSqr() > 1e-12 {
			dir = dirAccum.Normalize()
		}
	}

	lighting = [4]float32{radiance.X(), radiance.Y(), radiance.Z(), encodeSignedUnit(aniso)}
	enc := encodeDirection(dir)
	direction = [4]float32{enc[0], enc[1], enc[2], 1}
	return lighting, direction
}

// lightAttenuation returns the unoccluded attenuation at p, the unit
// direction from p toward the light, and the distance to it. att <= 0
// means no contribution. Intensity is already folded into the proxy
// color, so attenuation is purely geometric.
func lightAttenuation(l *volumetrics.LightProxy, p mgl32.Vec3) (att float32, toLight mgl32.Vec3, dist float32) {
	if l.Kind == volumetrics.LightKindDirectional {
		return 1, l.Forward.Mul(-1), float32(math.Inf(1))
	}

	delta := l.Position.Sub(p)
	distSq := delta.LenSqr()
	rangeSq := l.Range * l.Range
	if distSq > rangeSq {
		return 0, mgl32.Vec3{}, 0
	}
	dist = float32(math.Sqrt(float64(distSq)))
	if dist < 1e-6 {
		toLight = mgl32.Vec3{0, 1, 0}
	} else {
		toLight = delta.Mul(1 / dist)
	}

	// Inverse square with a smooth range window.
	att = 1 / maxf(distSq, 1e-4)
	win := 1 - (distSq/rangeSq)*(distSq/rangeSq)
	if win < 0 {
		win = 0
	}
	att *= win * win

	// Near-origin smoothstep fade keeps the singularity out of the fog.
	if l.SmoothingRadius > 0 {
		t := mgl32.Clamp(dist/l.SmoothingRadius, 0, 1)
		att *= t * t * (3 - 2*t)
	}

	if l.Kind == volumetrics.LightKindSpot {
		cosAng := l.Forward.Dot(toLight.Mul(-1))
		if cosAng < l.SpotOuterCos {
			return 0, toLight, dist
		}
		if l.SpotInnerCos > l.SpotOuterCos {
			t := mgl32.Clamp((cosAng-l.SpotOuterCos)/(l.SpotInnerCos-l.SpotOuterCos), 0, 1)
			att *= t * t * (3 - 2*t)
		}
	}
	return att, toLight, dist
}

// shadowVisibility casts cone-distributed rays toward the light and
// returns the unoccluded fraction, blended toward 1 by shadow strength.
func shadowVisibility(l *volumetrics.LightProxy, p, toLight mgl32.Vec3, dist float32,
	occluder RayOccluder, settings *VolumeSettings) float32 {

	if !settings.BakeShadows || !l.CastsShadows || occluder == nil {
		return 1
	}

	maxDist := dist - settings.RayBias
	if l.Kind == volumetrics.LightKindDirectional {
		maxDist = settings.MaxDirectionalShadowDistance
	}
	if maxDist <= 0 {
		return 1
	}

	n := 1
	if l.SoftShadows && settings.SoftShadowSamples > 1 {
		n = settings.SoftShadowSamples
	}

	unoccluded := 0
	for i := 0; i < n; i++ {
		dir := coneDirection(toLight, settings.ConeHalfAngle, i, n)
		origin := p.Add(dir.Mul(settings.RayBias))
		if !occluder.RayOccluded(origin, dir, maxDist) {
			unoccluded++
		}
	}
	vis := float32(unoccluded) / float32(n)
	return 1 - l.ShadowStrength*(1-vis)
}

// qualifyStaticLights filters to bake-eligible lights and applies the
// static budget, keeping the strongest contributors.
func qualifyStaticLights(proxies []volumetrics.LightProxy, log volumetrics.Logger, diag *volumetrics.Diagnostics) []volumetrics.LightProxy {
	lights := make([]volumetrics.LightProxy, 0, len(proxies))
	for i := range proxies {
		p := &proxies[i]
		if !p.Static || p.Scattering <= 0 {
			continue
		}
		if p.Kind != volumetrics.LightKindDirectional && p.Range <= 0 {
			continue
		}
		lights = append(lights, *p)
	}
	if len(lights) > StaticLightBudget {
		sort.SliceStable(lights, func(a, b int) bool {
			return lights[a].Scattering*lights[a].Intensity > lights[b].Scattering*lights[b].Intensity
		})
		lights = lights[:StaticLightBudget]
		if diag != nil {
			diag.TruncatedStaticLights = StaticLightBudget
		}
		log.Warnf("volumetrics: static light budget exceeded, baking strongest %d", StaticLightBudget)
	}
	return lights
}

func luminance(c mgl32.Vec3) float32 {
	return 0.2126*c.X() + 0.7152*c.Y() + 0.0722*c.Z()
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
