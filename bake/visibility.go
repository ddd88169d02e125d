package bake

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/volumetrics"
)

// DefaultVisibilityResolution is the per-axis cell count of a light's
// local visibility grid.
const DefaultVisibilityResolution = 10

type VisibilitySettings struct {
	Resolution int
	RayBias    float32

	// SoftSampleBudget rays are cast per cell for soft-shadow lights;
	// hard-shadow lights always use a single ray.
	SoftSampleBudget int
	ConeHalfAngle    float32 // radians
}

func DefaultVisibilitySettings() VisibilitySettings {
	return VisibilitySettings{
		Resolution:       DefaultVisibilityResolution,
		RayBias:          0.05,
		SoftSampleBudget: 4,
		ConeHalfAngle:    mgl32.DegToRad(2),
	}
}

func (s *VisibilitySettings) clamp() {
	if s.Resolution < 2 {
		s.Resolution = DefaultVisibilityResolution
	}
	if s.Resolution > 64 {
		s.Resolution = 64
	}
	if s.RayBias < 0 {
		s.RayBias = 0
	}
	if s.SoftSampleBudget < 1 {
		s.SoftSampleBudget = 1
	}
}

// VisibilityGrid is one static light's baked occlusion, defined over
// the light's local normalized cube [-1,1]³ scaled by its range. It is
// immutable once published; a new bake revision replaces it wholesale.
type VisibilityGrid struct {
	LightId    volumetrics.LightId
	SlotIndex  int
	Resolution int
	Range      float32
	Values     []float32 // res³ visibility scalars in [0,1]
	Revision   uuid.UUID
}

func (g *VisibilityGrid) index(x, y, z int) int {
	return (z*g.Resolution+y)*g.Resolution + x
}

func (g *VisibilityGrid) At(x, y, z int) float32 {
	return g.Values[g.index(x, y, z)]
}

// Sample returns the visibility at a local-cube coordinate in [-1,1]³,
// nearest cell.
func (g *VisibilityGrid) Sample(local mgl32.Vec3) float32 {
	res := g.Resolution
	toCell := func(f float32) int {
		c := int((mgl32.Clamp(f, -1, 1) + 1) * 0.5 * float32(res))
		if c >= res {
			c = res - 1
		}
		return c
	}
	return g.At(toCell(local.X()), toCell(local.Y()), toCell(local.Z()))
}

// BakeVisibilityGrids produces one grid per bake-eligible static point
// or spot light, indexed by position in the returned slice (the light
// slot index). Directional lights have no local cube and are skipped.
// cancel is polled between lights.
func BakeVisibilityGrids(proxies []volumetrics.LightProxy, occluder RayOccluder, settings VisibilitySettings,
	cancel func() bool, log volumetrics.Logger, diag *volumetrics.Diagnostics) ([]*VisibilityGrid, error) {

	if log == nil {
		log = volumetrics.NewNopLogger()
	}
	settings.clamp()
	revision := uuid.New()

	grids := make([]*VisibilityGrid, 0)
	for i := range proxies {
		p := &proxies[i]
		if !p.Static || p.Kind == volumetrics.LightKindDirectional || p.Range <= 0 {
			continue
		}
		if cancel != nil && cancel() {
			if diag != nil {
				diag.BakeCancelled = true
			}
			log.Infof("volumetrics: visibility bake cancelled after %d grid(s)", len(grids))
			return nil, ErrBakeCancelled
		}
		grids = append(grids, bakeVisibilityGrid(p, len(grids), occluder, &settings, revision))
	}

	if len(grids) == 0 && diag != nil {
		diag.ZeroLightsBaked = true
	}
	return grids, nil
}

func bakeVisibilityGrid(l *volumetrics.LightProxy, slot int, occluder RayOccluder,
	settings *VisibilitySettings, revision uuid.UUID) *VisibilityGrid {

	res := settings.Resolution
	g := &VisibilityGrid{
		LightId:    l.Id,
		SlotIndex:  slot,
		Resolution: res,
		Range:      l.Range,
		Values:     make([]float32, res*res*res),
		Revision:   revision,
	}

	for z := 0; z < res; z++ {
		for y := 0; y < res; y++ {
			for x := 0; x < res; x++ {
				local := mgl32.Vec3{
					(-1 + (float32(x)+0.5)*2/float32(res)) * l.Range,
					(-1 + (float32(y)+0.5)*2/float32(res)) * l.Range,
					(-1 + (float32(z)+0.5)*2/float32(res)) * l.Range,
				}
				g.Values[g.index(x, y, z)] = sampleVisibility(l, local, occluder, settings)
			}
		}
	}
	return g
}

// sampleVisibility casts from the light toward the sample point,
// against static geometry only.
func sampleVisibility(l *volumetrics.LightProxy, local mgl32.Vec3, occluder RayOccluder, settings *VisibilitySettings) float32 {
	dist := local.Len()
	if dist <= settings.RayBias || occluder == nil {
		return 1
	}
	dir := local.Mul(1 / dist)
	maxDist := dist - settings.RayBias

	n := 1
	if l.SoftShadows && settings.SoftSampleBudget > 1 {
		n = settings.SoftSampleBudget
	}
	unoccluded := 0
	for i := 0; i < n; i++ {
		d := coneDirection(dir, settings.ConeHalfAngle, i, n)
		origin := l.Position.Add(d.Mul(settings.RayBias))
		if !occluder.RayOccluded(origin, d, maxDist) {
			unoccluded++
		}
	}
	return float32(unoccluded) / float32(n)
}
