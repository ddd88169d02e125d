package volumetrics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/volumetrics/cluster"
)

func exampleFrameInput() FrameInput {
	return FrameInput{
		Lights: []SceneLight{
			{
				Id:          "point",
				Kind:        LightKindPoint,
				Position:    mgl32.Vec3{0, 10, 0},
				Range:       20,
				ColorLinear: mgl32.Vec3{1, 1, 1},
				Intensity:   5,
				Enabled:     true,
				Volumetric:  true,
			},
			{
				Id:          "sun",
				Kind:        LightKindDirectional,
				Forward:     mgl32.Vec3{0, -1, 0},
				ColorLinear: mgl32.Vec3{1, 0.9, 0.8},
				Intensity:   1,
				Enabled:     true,
				Volumetric:  true,
			},
		},
		Observer: testObserver(),
	}
}

func exampleContext(t *testing.T) *FrameContext {
	t.Helper()
	cfg := DefaultFogSettings()
	cfg.MaxDistance = 64
	cfg.BaseHeight = 0
	cfg.MaxHeight = 50
	cfg.MaxAdditionalLights = 8
	return NewFrameContext(cfg, cluster.DefaultConfig(), nil)
}

func TestFrameContext_ExampleScenario(t *testing.T) {
	ctx := exampleContext(t)
	in := exampleFrameInput()
	ctx.Update(in)

	slots := ctx.Slots()
	require.Len(t, slots, 1, "the point light must be selected")

	// score = scattering * intensity * range^2/distSq * spotFactor
	distSq := in.Lights[0].Position.Sub(in.Observer.Position).LenSqr()
	assert.InEpsilon(t, 1*5*(400/distSq)*1, slots[0].Score, 1e-5)
	assert.Equal(t, int32(0), slots[0].Index)

	main, ok := ctx.MainLight()
	require.True(t, ok, "directional light must fill the main slot")
	assert.Equal(t, LightId("sun"), main.Id)

	grid := ctx.Grid()
	require.NotNil(t, grid)
	x, y, z, ok := grid.CellForPoint(mgl32.Vec3{0, 10, 5})
	require.True(t, ok, "(0,10,5) must be inside the frustum")
	assert.Contains(t, grid.LightsInCell(x, y, z), int32(0),
		"the froxel cell containing (0,10,5) must list the light")
}

func TestFrameContext_CacheHitDeterminism(t *testing.T) {
	ctx := exampleContext(t)
	in := exampleFrameInput()

	ctx.Update(in)
	selToken := ctx.SelectionToken()
	clToken := ctx.ClusterToken()

	ctx.Update(in)
	assert.Equal(t, 1, ctx.SelectionRebuilds(), "identical input must skip selection rebuild")
	assert.Equal(t, 1, ctx.ClusterRebuilds(), "identical input must skip cluster rebuild")
	assert.Equal(t, selToken, ctx.SelectionToken())
	assert.Equal(t, clToken, ctx.ClusterToken())
}

func TestFrameContext_SubCellJitterKeepsCache(t *testing.T) {
	ctx := exampleContext(t)
	in := exampleFrameInput()
	ctx.Update(in)

	in.Observer.Position = in.Observer.Position.Add(mgl32.Vec3{1e-4, 0, 0})
	ctx.Update(in)
	assert.Equal(t, 1, ctx.ClusterRebuilds(), "sub-cell jitter must not thrash the cluster cache")
}

func TestFrameContext_CameraMoveRebuildsClusterOnly(t *testing.T) {
	ctx := exampleContext(t)
	in := exampleFrameInput()
	ctx.Update(in)

	moved := in.Observer
	moved.Position = moved.Position.Add(mgl32.Vec3{5, 0, 0})
	moved.View = mgl32.LookAtV(moved.Position, mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 1, 0})
	in.Observer = moved
	ctx.Update(in)

	assert.Equal(t, 1, ctx.SelectionRebuilds(), "camera motion alone must not rebuild selection")
	assert.Equal(t, 2, ctx.ClusterRebuilds())
}

func TestFrameContext_LightChangeRebuildsSelection(t *testing.T) {
	ctx := exampleContext(t)
	in := exampleFrameInput()
	ctx.Update(in)

	in.Lights[0].Intensity = 7
	ctx.Update(in)
	assert.Equal(t, 2, ctx.SelectionRebuilds())
	assert.Equal(t, 2, ctx.ClusterRebuilds(), "selection change invalidates clustering too")
}

func TestFrameContext_BakeRevisionEncodesStaticSlots(t *testing.T) {
	ctx := exampleContext(t)
	in := exampleFrameInput()
	in.Lights[0].Static = true
	ctx.Update(in)
	require.Equal(t, int32(0), ctx.Slots()[0].Index)

	ctx.BumpBakeRevision(true)
	ctx.Update(in)
	require.Equal(t, 2, ctx.SelectionRebuilds(), "bake revision bump must invalidate selection")

	idx, baked := DecodeSlotIndex(ctx.Slots()[0].Index)
	assert.True(t, baked, "static light must be negative-encoded after a bake")
	assert.Equal(t, 0, idx)
}

func TestFrameContext_DisabledAdditionalLights(t *testing.T) {
	cfg := DefaultFogSettings()
	cfg.EnableAdditionalLights = false
	ctx := NewFrameContext(cfg, cluster.DefaultConfig(), nil)

	ctx.Update(exampleFrameInput())
	assert.Empty(t, ctx.Slots())
	require.NotNil(t, ctx.Grid())
	for _, n := range ctx.Grid().Counts {
		assert.Zero(t, n, "empty selection must produce an empty grid")
	}
}

func TestFrameContext_EmptyInputDegradesGracefully(t *testing.T) {
	ctx := exampleContext(t)
	ctx.Update(FrameInput{Observer: testObserver()})

	assert.Empty(t, ctx.Slots())
	_, ok := ctx.MainLight()
	assert.False(t, ok)
	require.NotNil(t, ctx.Grid())
}
