package volumetrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ObserverState is the camera snapshot consumed by clustering and
// cache invalidation.
type ObserverState struct {
	Position   mgl32.Vec3
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Near       float32
	Far        float32
	FovY       float32 // vertical field of view, radians; ignored when orthographic
	Aspect     float32
	OrthoSize  float32 // > 0 selects orthographic projection
}

// FNV-1a, accumulated field by field. The pack hashes with plain
// integer mixes; 64-bit FNV keeps the same spirit with fewer collisions.
const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3
)

type stateHasher struct {
	sum uint64
}

func newStateHasher() stateHasher {
	return stateHasher{sum: fnvOffset64}
}

func (h *stateHasher) addByte(b byte) {
	h.sum ^= uint64(b)
	h.sum *= fnvPrime64
}

func (h *stateHasher) addUint32(v uint32) {
	h.addByte(byte(v))
	h.addByte(byte(v >> 8))
	h.addByte(byte(v >> 16))
	h.addByte(byte(v >> 24))
}

func (h *stateHasher) addUint64(v uint64) {
	h.addUint32(uint32(v))
	h.addUint32(uint32(v >> 32))
}

func (h *stateHasher) addFloat(f float32) {
	h.addUint32(math.Float32bits(f))
}

func (h *stateHasher) addVec3(v mgl32.Vec3) {
	h.addFloat(v.X())
	h.addFloat(v.Y())
	h.addFloat(v.Z())
}

func (h *stateHasher) addBool(b bool) {
	if b {
		h.addByte(1)
	} else {
		h.addByte(0)
	}
}

func (h *stateHasher) addString(s string) {
	for i := 0; i < len(s); i++ {
		h.addByte(s[i])
	}
	h.addByte(0)
}

// addQuantized folds f rounded to the nearest multiple of step.
func (h *stateHasher) addQuantized(f, step float32) {
	if step <= 0 {
		h.addFloat(f)
		return
	}
	h.addUint32(uint32(int32(math.Round(float64(f / step)))))
}

// HashLightState folds every selection-relevant field of the proxy
// generation. Any change forces a selection rebuild.
func HashLightState(proxies []LightProxy) uint64 {
	h := newStateHasher()
	h.addUint32(uint32(len(proxies)))
	for i := range proxies {
		p := &proxies[i]
		h.addString(string(p.Id))
		h.addUint32(uint32(p.Kind))
		h.addVec3(p.Position)
		h.addVec3(p.Forward)
		h.addFloat(p.Range)
		h.addVec3(p.Color)
		h.addFloat(p.Intensity)
		h.addFloat(p.Scattering)
		h.addFloat(p.Anisotropy)
		h.addFloat(p.SmoothingRadius)
		h.addFloat(p.SpotOuterCos)
		h.addFloat(p.SpotInnerCos)
		h.addBool(p.CastsShadows)
		h.addBool(p.SoftShadows)
		h.addFloat(p.ShadowStrength)
		h.addBool(p.Static)
	}
	return h.sum
}

// HashFogSettings folds the configuration scalars that influence
// selection.
func HashFogSettings(s *FogSettings) uint64 {
	h := newStateHasher()
	h.addFloat(s.MaxDistance)
	h.addFloat(s.BaseHeight)
	h.addFloat(s.MaxHeight)
	h.addBool(s.GroundHeightEnabled)
	h.addFloat(s.GroundHeight)
	h.addUint32(uint32(s.MaxAdditionalLights))
	h.addBool(s.EnableMainLight)
	h.addBool(s.EnableAdditionalLights)
	h.addFloat(s.MinIntensity)
	return h.sum
}

// HashObserverQuantized folds the camera pose quantized to half a
// froxel cell, so sub-cell jitter cannot thrash the cluster cache.
// gridH and gridD are the froxel grid's vertical and depth dimensions.
func HashObserverQuantized(o *ObserverState, gridH, gridD int) uint64 {
	if gridH < 1 {
		gridH = 1
	}
	if gridD < 1 {
		gridD = 1
	}

	// Half a cell's angular extent, and half a near-plane cell's linear
	// extent. Orthographic cameras quantize position by cell height.
	angStep := float32(0.01)
	posStep := float32(0.01)
	if o.OrthoSize > 0 {
		posStep = o.OrthoSize / float32(gridH)
	} else if o.FovY > 0 {
		angStep = 0.5 * o.FovY / float32(gridH)
		halfExtent := o.Near * float32(math.Tan(float64(o.FovY)*0.5))
		posStep = max32(halfExtent/float32(gridH), 1e-3)
	}

	h := newStateHasher()
	h.addQuantized(o.Position.X(), posStep)
	h.addQuantized(o.Position.Y(), posStep)
	h.addQuantized(o.Position.Z(), posStep)

	// The rotation part of the view matrix has entries in [-1,1];
	// quantizing them by the angular step bounds the orientation error
	// below half a cell.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			h.addQuantized(o.View.At(row, col), angStep)
		}
	}

	h.addQuantized(o.FovY, angStep)
	h.addFloat(o.Near)
	h.addFloat(o.Far)
	h.addQuantized(o.Aspect, 1.0/float32(gridD))
	h.addFloat(o.OrthoSize)
	return h.sum
}

func combineHash(a, b uint64) uint64 {
	h := newStateHasher()
	h.addUint64(a)
	h.addUint64(b)
	return h.sum
}
