// Package cluster partitions the observer frustum into a froxel grid
// (screen-space tiles crossed with logarithmic depth slices) and
// assigns selected lights to every cell their bounding sphere overlaps.
package cluster

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultGridWidth        = 16
	DefaultGridHeight       = 9
	DefaultGridDepth        = 24
	DefaultMaxLightsPerCell = 24

	// minDepthGap clamps degenerate frustums where far <= near.
	minDepthGap = 1e-3
)

type Config struct {
	Width            int
	Height           int
	Depth            int
	MaxLightsPerCell int
}

func DefaultConfig() Config {
	return Config{
		Width:            DefaultGridWidth,
		Height:           DefaultGridHeight,
		Depth:            DefaultGridDepth,
		MaxLightsPerCell: DefaultMaxLightsPerCell,
	}
}

func (c *Config) clamp() {
	if c.Width < 1 {
		c.Width = DefaultGridWidth
	}
	if c.Height < 1 {
		c.Height = DefaultGridHeight
	}
	if c.Depth < 1 {
		c.Depth = DefaultGridDepth
	}
	if c.MaxLightsPerCell < 1 {
		c.MaxLightsPerCell = DefaultMaxLightsPerCell
	}
}

// LightBounds is one selected light's world-space bounding sphere, in
// selection order (highest score first). When a cell is full, earlier
// lights win, so the slice order is the priority order.
type LightBounds struct {
	Center mgl32.Vec3
	Radius float32
}

// Grid is the built froxel table. Cell (x,y,z) occupies slot
// (z*Height + y)*Width + x; its light indices live at
// LightIndices[cell*MaxLightsPerCell : ...+Counts[cell]].
type Grid struct {
	Width            int
	Height           int
	Depth            int
	MaxLightsPerCell int
	Near             float32
	Far              float32

	Counts       []uint32
	LightIndices []int32

	view mgl32.Mat4
	proj mgl32.Mat4
}

func (g *Grid) Cells() int {
	return g.Width * g.Height * g.Depth
}

// CellOffset returns the fixed offset of a cell's index run.
func (g *Grid) CellOffset(cell int) uint32 {
	return uint32(cell * g.MaxLightsPerCell)
}

func (g *Grid) cellIndex(x, y, z int) int {
	return (z*g.Height+y)*g.Width + x
}

// LightsInCell returns the compact light indices assigned to a cell.
// The slice aliases the grid's storage.
func (g *Grid) LightsInCell(x, y, z int) []int32 {
	cell := g.cellIndex(x, y, z)
	off := int(g.CellOffset(cell))
	return g.LightIndices[off : off+int(g.Counts[cell])]
}

// CellForPoint maps a world-space point to its froxel coordinates
// using the matrices the grid was built with. ok is false outside the
// frustum.
func (g *Grid) CellForPoint(p mgl32.Vec3) (x, y, z int, ok bool) {
	clip := g.proj.Mul4(g.view).Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-6 {
		return 0, 0, 0, false
	}
	ndcX := clip.X() / clip.W()
	ndcY := clip.Y() / clip.W()
	if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 {
		return 0, 0, 0, false
	}
	depth := -mgl32.TransformCoordinate(p, g.view).Z()
	if depth < g.Near || depth > g.Far {
		return 0, 0, 0, false
	}
	x = clampInt(int((ndcX+1)*0.5*float32(g.Width)), 0, g.Width-1)
	y = clampInt(int((ndcY+1)*0.5*float32(g.Height)), 0, g.Height-1)
	z = clampInt(g.sliceForDepth(depth), 0, g.Depth-1)
	return x, y, z, true
}

// sliceForDepth inverts the logarithmic slicing: slice i covers eye
// depth [near*(far/near)^(i/D), near*(far/near)^((i+1)/D)).
func (g *Grid) sliceForDepth(depth float32) int {
	if depth <= g.Near {
		return 0
	}
	ratio := float64(g.Far / g.Near)
	t := math.Log(float64(depth/g.Near)) / math.Log(ratio)
	return int(float64(g.Depth) * t)
}

// Builder reuses its grid buffers across rebuilds; the grid is fully
// overwritten on every Build, never patched.
type Builder struct {
	cfg  Config
	grid Grid
}

func NewBuilder(cfg Config) *Builder {
	cfg.clamp()
	cells := cfg.Width * cfg.Height * cfg.Depth
	return &Builder{
		cfg: cfg,
		grid: Grid{
			Width:            cfg.Width,
			Height:           cfg.Height,
			Depth:            cfg.Depth,
			MaxLightsPerCell: cfg.MaxLightsPerCell,
			Counts:           make([]uint32, cells),
			LightIndices:     make([]int32, cells*cfg.MaxLightsPerCell),
		},
	}
}

func (b *Builder) GridWidth() int  { return b.cfg.Width }
func (b *Builder) GridHeight() int { return b.cfg.Height }
func (b *Builder) GridDepth() int  { return b.cfg.Depth }

// Build assigns every light to the cells its bounding sphere overlaps
// and returns the rebuilt grid. Lights are processed in slice order,
// so on cell overflow the earliest (highest-priority) lights are the
// ones retained.
func (b *Builder) Build(view, proj mgl32.Mat4, near, far float32, lights []LightBounds) *Grid {
	g := &b.grid
	if far <= near {
		far = near + minDepthGap
	}
	g.Near = near
	g.Far = far
	g.view = view
	g.proj = proj

	for i := range g.Counts {
		g.Counts[i] = 0
	}

	viewProj := proj.Mul4(view)
	// Camera right/up in world space: rows of the view rotation.
	right := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
	up := mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)}

	for li, l := range lights {
		depth := -mgl32.TransformCoordinate(l.Center, view).Z()
		minDepth := depth - l.Radius
		maxDepth := depth + l.Radius
		if maxDepth < near || minDepth > far {
			continue
		}
		minDepth = mgl32.Clamp(minDepth, near, far)
		maxDepth = mgl32.Clamp(maxDepth, near, far)
		z0 := clampInt(g.sliceForDepth(minDepth), 0, g.Depth-1)
		z1 := clampInt(g.sliceForDepth(maxDepth), 0, g.Depth-1)

		minX, minY, maxX, maxY, ok := screenBounds(viewProj, l.Center, right, up, l.Radius)
		if !ok {
			continue
		}
		if maxX < -1 || minX > 1 || maxY < -1 || minY > 1 {
			continue
		}
		x0 := clampInt(int((minX+1)*0.5*float32(g.Width)), 0, g.Width-1)
		x1 := clampInt(int((maxX+1)*0.5*float32(g.Width)), 0, g.Width-1)
		y0 := clampInt(int((minY+1)*0.5*float32(g.Height)), 0, g.Height-1)
		y1 := clampInt(int((maxY+1)*0.5*float32(g.Height)), 0, g.Height-1)

		for z := z0; z <= z1; z++ {
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					cell := g.cellIndex(x, y, z)
					n := g.Counts[cell]
					if int(n) >= g.MaxLightsPerCell {
						continue // full cell: earlier lights win
					}
					g.LightIndices[int(g.CellOffset(cell))+int(n)] = int32(li)
					g.Counts[cell] = n + 1
				}
			}
		}
	}
	return g
}

// screenBounds projects the sphere center plus four radius offsets
// along the camera right/up axes into NDC. ok is false when the center
// is at or behind the observer plane.
func screenBounds(viewProj mgl32.Mat4, center, right, up mgl32.Vec3, radius float32) (minX, minY, maxX, maxY float32, ok bool) {
	cc := viewProj.Mul4x1(center.Vec4(1))
	if cc.W() <= 1e-6 {
		return 0, 0, 0, 0, false
	}
	minX = cc.X() / cc.W()
	maxX = minX
	minY = cc.Y() / cc.W()
	maxY = minY

	offsets := [4]mgl32.Vec3{
		center.Add(right.Mul(radius)),
		center.Sub(right.Mul(radius)),
		center.Add(up.Mul(radius)),
		center.Sub(up.Mul(radius)),
	}
	for _, p := range offsets {
		c := viewProj.Mul4x1(p.Vec4(1))
		if c.W() <= 1e-6 {
			// Offset point behind the observer: the sphere straddles
			// the camera plane, extend to the full screen on both axes.
			return -1, -1, 1, 1, true
		}
		x := c.X() / c.W()
		y := c.Y() / c.W()
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return minX, minY, maxX, maxY, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
