package volumetrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Candidate references a proxy by index into the current generation,
// with its relevance score and froxel-facing bounding sphere.
type Candidate struct {
	Index  int
	Score  float32
	Bounds BoundingSphere
}

// ScoreLight evaluates one proxy against the fog volume and observer.
// Returns false when the light cannot contribute: out of the height
// band, beyond fog reach, too dim, or directional (directional lights
// bypass the bounded selector entirely).
func ScoreLight(p *LightProxy, index int, observer mgl32.Vec3, cfg *FogSettings) (Candidate, bool) {
	if p.Kind == LightKindDirectional {
		return Candidate{}, false
	}
	if p.Scattering <= 0 || p.Intensity <= cfg.MinIntensity {
		return Candidate{}, false
	}

	minY, maxY := cfg.HeightBand()
	if p.Position.Y()+p.Range < minY || p.Position.Y()-p.Range > maxY {
		return Candidate{}, false
	}

	toLight := p.Position.Sub(observer)
	distSq := toLight.LenSqr()
	reach := cfg.MaxDistance + p.Range
	if distSq > reach*reach {
		return Candidate{}, false
	}

	distanceWeight := p.Range * p.Range / max32(distSq, 1)
	spotFactor := float32(1)
	if p.Kind == LightKindSpot {
		spotFactor = max32(0.25, p.SpotOuterCos)
	}
	score := p.Scattering * p.Intensity * distanceWeight * spotFactor
	if score <= 0 {
		return Candidate{}, false
	}

	return Candidate{
		Index:  index,
		Score:  score,
		Bounds: boundingSphere(p),
	}, true
}

// boundingSphere returns a sphere enclosing the light's influence
// volume. Point lights use their range directly. Spot cones tighter
// than 90 degrees use the circumscribed sphere on the cone axis;
// wider cones fall back to the cap-based sphere.
func boundingSphere(p *LightProxy) BoundingSphere {
	if p.Kind != LightKindSpot {
		return BoundingSphere{Center: p.Position, Radius: p.Range}
	}
	cosHalf := p.SpotOuterCos
	sinHalf := float32(math.Sqrt(float64(max32(0, 1-cosHalf*cosHalf))))
	if cosHalf >= 0.70710678 {
		r := p.Range / (2 * cosHalf)
		return BoundingSphere{
			Center: p.Position.Add(p.Forward.Mul(r)),
			Radius: r,
		}
	}
	return BoundingSphere{
		Center: p.Position.Add(p.Forward.Mul(p.Range * cosHalf)),
		Radius: p.Range * sinHalf,
	}
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
