// Package volumetrics selects a bounded, relevance-scored subset of
// scene lights for a participating-medium raymarcher each frame. The
// selection and its froxel clustering are cached behind rolling state
// hashes so an unchanged frame costs a hash comparison and nothing
// else. Static lights can additionally be baked offline by the bake
// subpackage.
package volumetrics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/volumetrics/cluster"
)

// FrameInput is everything the host hands over for one frame.
type FrameInput struct {
	Lights     []SceneLight
	FogByLight map[LightId]LightFogSettings
	Observer   ObserverState
}

// FrameContext owns all per-volume mutable state: the current proxy
// generation, the bounded selection, the froxel grid and the
// invalidation hashes. One context per fog volume; nothing here is
// process-global, so multiple volumes and tests never alias state.
type FrameContext struct {
	cfg     FogSettings
	log     Logger
	sel     *Selector
	builder *cluster.Builder

	proxies       []LightProxy
	observerPos   mgl32.Vec3
	mainLight     int // proxy index, -1 when absent
	boundsScratch []cluster.LightBounds

	selectionHash uint64
	clusterHash   uint64
	hashValid     bool

	selectionToken uuid.UUID
	clusterToken   uuid.UUID

	selectionRebuilds int
	clusterRebuilds   int

	bakeRevision uint64
	staticsBaked bool

	grid *cluster.Grid

	Diag Diagnostics
}

func NewFrameContext(cfg FogSettings, clusterCfg cluster.Config, log Logger) *FrameContext {
	cfg.Clamp()
	if log == nil {
		log = NewNopLogger()
	}
	return &FrameContext{
		cfg:       cfg,
		log:       log,
		sel:       NewSelector(cfg.MaxAdditionalLights),
		builder:   cluster.NewBuilder(clusterCfg),
		mainLight: -1,
	}
}

// Update runs the per-frame path: extract a fresh proxy generation,
// then rebuild selection and clustering only when their input hashes
// changed. It never fails; degraded inputs produce empty outputs.
//
// Selection is gated on configuration and light state; the camera only
// gates clustering, quantized to half a froxel cell so sub-cell jitter
// cannot thrash the cache.
func (c *FrameContext) Update(in FrameInput) {
	c.Diag.Reset()
	c.observerPos = in.Observer.Position
	c.proxies = ExtractProxies(in.Lights, in.FogByLight, &c.Diag)
	if c.Diag.DefaultedLights > 0 {
		c.log.Debugf("volumetrics: %d light(s) using default fog settings", c.Diag.DefaultedLights)
	}

	selHash := combineHash(HashFogSettings(&c.cfg), HashLightState(c.proxies))
	selHash = combineHash(selHash, c.bakeRevision)
	if !c.hashValid || selHash != c.selectionHash {
		c.rebuildSelection()
		c.selectionHash = selHash
		c.selectionToken = uuid.New()
		c.selectionRebuilds++
	}

	clHash := combineHash(selHash,
		HashObserverQuantized(&in.Observer, c.builder.GridHeight(), c.builder.GridDepth()))
	if !c.hashValid || clHash != c.clusterHash {
		c.rebuildCluster(&in.Observer)
		c.clusterHash = clHash
		c.clusterToken = uuid.New()
		c.clusterRebuilds++
	}
	c.hashValid = true
}

func (c *FrameContext) rebuildSelection() {
	c.sel.Reset()
	c.mainLight = -1

	for i := range c.proxies {
		p := &c.proxies[i]
		if p.Kind == LightKindDirectional {
			// Single global slot, outside the bounded selection.
			if c.cfg.EnableMainLight && c.mainLight < 0 {
				c.mainLight = i
			}
			continue
		}
		if !c.cfg.EnableAdditionalLights {
			continue
		}
		cand, ok := ScoreLight(p, i, c.observerPos, &c.cfg)
		if !ok {
			continue
		}
		c.sel.Offer(SelectedSlot{
			Index:             EncodeSlotIndex(cand.Index, p.Static && c.staticsBaked),
			Score:             cand.Score,
			Anisotropy:        p.Anisotropy,
			Scattering:        p.Scattering,
			SmoothingRadiusSq: p.SmoothingRadius * p.SmoothingRadius,
			BoundsCenter:      cand.Bounds.Center,
			BoundsRadius:      cand.Bounds.Radius,
		})
	}
}

func (c *FrameContext) rebuildCluster(obs *ObserverState) {
	slots := c.sel.Slots()
	bounds := c.boundsScratch[:0]
	for i := range slots {
		bounds = append(bounds, cluster.LightBounds{
			Center: slots[i].BoundsCenter,
			Radius: slots[i].BoundsRadius,
		})
	}
	c.boundsScratch = bounds
	c.grid = c.builder.Build(obs.View, obs.Projection, obs.Near, obs.Far, bounds)
}

// Slots returns the current selection, highest score first.
func (c *FrameContext) Slots() []SelectedSlot { return c.sel.Slots() }

// MainLight returns the directional main-light proxy, if one was
// selected this generation.
func (c *FrameContext) MainLight() (LightProxy, bool) {
	if c.mainLight < 0 || c.mainLight >= len(c.proxies) {
		return LightProxy{}, false
	}
	return c.proxies[c.mainLight], true
}

// Proxies exposes the current generation; slot indices decode into it.
func (c *FrameContext) Proxies() []LightProxy { return c.proxies }

// Grid returns the froxel grid built by the last Update, or nil before
// the first one.
func (c *FrameContext) Grid() *cluster.Grid { return c.grid }

// SelectionToken and ClusterToken change exactly when the published
// arrays change, letting downstream uploads skip unchanged frames.
func (c *FrameContext) SelectionToken() uuid.UUID { return c.selectionToken }
func (c *FrameContext) ClusterToken() uuid.UUID   { return c.clusterToken }

// Rebuild counters, observable for cache determinism tests.
func (c *FrameContext) SelectionRebuilds() int { return c.selectionRebuilds }
func (c *FrameContext) ClusterRebuilds() int   { return c.clusterRebuilds }

// BumpBakeRevision signals that static bake data was re-published.
// Selection is invalidated so static slots pick up negative encoding.
func (c *FrameContext) BumpBakeRevision(baked bool) {
	c.bakeRevision++
	c.staticsBaked = baked
}

func (c *FrameContext) BakeRevision() uint64 { return c.bakeRevision }
