// Package gpu uploads the fog lighting outputs to the GPU: the
// selected-light slot array, the froxel meta/index tables, and the two
// baked 3D textures. Uploads are gated by the pipeline's revision
// tokens so unchanged frames cost nothing.
package gpu

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/gekko3d/volumetrics"
	"github.com/gekko3d/volumetrics/bake"
	"github.com/gekko3d/volumetrics/cluster"
)

// Headroom keeps small selection-count changes from reallocating
// buffers every frame.
const headroomBytes = 16 * 1024

const slotStride = 32 // bytes per SelectedSlot on the GPU

type FogBufferManager struct {
	Device *wgpu.Device

	SlotsBuf       *wgpu.Buffer
	FroxelMetaBuf  *wgpu.Buffer
	FroxelIndexBuf *wgpu.Buffer

	LightingTex   *wgpu.Texture
	DirectionTex  *wgpu.Texture
	LightingView  *wgpu.TextureView
	DirectionView *wgpu.TextureView

	slotToken    uuid.UUID
	clusterToken uuid.UUID
	bakeRevision uuid.UUID
	texSize      [3]int
	initialized  bool
}

func NewFogBufferManager(device *wgpu.Device) *FogBufferManager {
	return &FogBufferManager{Device: device}
}

func (m *FogBufferManager) ensureBuffer(buf **wgpu.Buffer, label string, data []byte, usage wgpu.BufferUsage) error {
	needed := uint64(len(data))
	current := *buf
	if current == nil || current.GetSize() < needed {
		if current != nil {
			current.Release()
		}
		newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            label,
			Size:             needed + headroomBytes,
			Usage:            usage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		*buf = newBuf
	}
	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return nil
}

// UploadSelection writes the slot array unless the token matches the
// last upload. Returns whether a write happened.
func (m *FogBufferManager) UploadSelection(slots []volumetrics.SelectedSlot, token uuid.UUID) (bool, error) {
	if m.initialized && token == m.slotToken {
		return false, nil
	}
	data := packSlots(slots)
	if err := m.ensureBuffer(&m.SlotsBuf, "FogLightSlots", data, wgpu.BufferUsageStorage); err != nil {
		return false, err
	}
	m.slotToken = token
	return true, nil
}

// UploadFroxels writes the (offset,count) meta table and the flat
// light-index array unless the token matches the last upload.
func (m *FogBufferManager) UploadFroxels(g *cluster.Grid, token uuid.UUID) (bool, error) {
	if g == nil {
		return false, nil
	}
	if m.initialized && token == m.clusterToken {
		return false, nil
	}

	cells := g.Cells()
	meta := make([]byte, cells*8)
	for i := 0; i < cells; i++ {
		binary.LittleEndian.PutUint32(meta[i*8:], g.CellOffset(i))
		binary.LittleEndian.PutUint32(meta[i*8+4:], g.Counts[i])
	}
	if err := m.ensureBuffer(&m.FroxelMetaBuf, "FroxelMeta", meta, wgpu.BufferUsageStorage); err != nil {
		return false, err
	}

	idx := make([]byte, len(g.LightIndices)*4)
	for i, v := range g.LightIndices {
		binary.LittleEndian.PutUint32(idx[i*4:], uint32(v))
	}
	if err := m.ensureBuffer(&m.FroxelIndexBuf, "FroxelLightIndices", idx, wgpu.BufferUsageStorage); err != nil {
		return false, err
	}
	m.clusterToken = token
	return true, nil
}

// UploadBakedVolume publishes a bake revision as two RGBA32Float 3D
// textures. The previous textures stay live until both replacements
// exist, so a failed allocation never leaves a torn publish.
func (m *FogBufferManager) UploadBakedVolume(res *bake.VolumeResult) (bool, error) {
	if res == nil {
		return false, nil
	}
	if res.Revision == m.bakeRevision {
		return false, nil
	}

	if m.LightingTex == nil || m.texSize != res.Resolution {
		lighting, lightingView, err := m.createVolumeTexture("BakedFogLighting", res.Resolution)
		if err != nil {
			return false, err
		}
		direction, directionView, err := m.createVolumeTexture("BakedFogDirection", res.Resolution)
		if err != nil {
			lighting.Release()
			return false, err
		}
		m.releaseTextures()
		m.LightingTex, m.LightingView = lighting, lightingView
		m.DirectionTex, m.DirectionView = direction, directionView
		m.texSize = res.Resolution
	}

	if err := m.writeVolume(m.LightingTex, res.Lighting); err != nil {
		return false, err
	}
	if err := m.writeVolume(m.DirectionTex, res.Direction); err != nil {
		return false, err
	}
	m.bakeRevision = res.Revision
	return true, nil
}

func (m *FogBufferManager) createVolumeTexture(label string, size [3]int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := m.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(size[0]),
			Height:             uint32(size[1]),
			DepthOrArrayLayers: uint32(size[2]),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        wgpu.TextureFormatRGBA32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (m *FogBufferManager) writeVolume(tex *wgpu.Texture, t *bake.Texture3D) error {
	return m.Device.GetQueue().WriteTexture(
		tex.AsImageCopy(),
		wgpu.ToBytes(t.Pix),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.Width) * 16,
			RowsPerImage: uint32(t.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(t.Width),
			Height:             uint32(t.Height),
			DepthOrArrayLayers: uint32(t.Depth),
		},
	)
}

// MarkInitialized ends the forced-full-upload phase of the first frame.
func (m *FogBufferManager) MarkInitialized() { m.initialized = true }

func packSlots(slots []volumetrics.SelectedSlot) []byte {
	buf := make([]byte, len(slots)*slotStride)
	for i := range slots {
		s := &slots[i]
		o := i * slotStride
		binary.LittleEndian.PutUint32(buf[o:], uint32(s.Index))
		binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(s.Scattering))
		binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(s.Anisotropy))
		binary.LittleEndian.PutUint32(buf[o+12:], math.Float32bits(s.SmoothingRadiusSq))
		binary.LittleEndian.PutUint32(buf[o+16:], math.Float32bits(s.BoundsCenter.X()))
		binary.LittleEndian.PutUint32(buf[o+20:], math.Float32bits(s.BoundsCenter.Y()))
		binary.LittleEndian.PutUint32(buf[o+24:], math.Float32bits(s.BoundsCenter.Z()))
		binary.LittleEndian.PutUint32(buf[o+28:], math.Float32bits(s.BoundsRadius))
	}
	return buf
}

func (m *FogBufferManager) releaseTextures() {
	if m.LightingView != nil {
		m.LightingView.Release()
		m.LightingView = nil
	}
	if m.LightingTex != nil {
		m.LightingTex.Release()
		m.LightingTex = nil
	}
	if m.DirectionView != nil {
		m.DirectionView.Release()
		m.DirectionView = nil
	}
	if m.DirectionTex != nil {
		m.DirectionTex.Release()
		m.DirectionTex = nil
	}
}

// Release frees every GPU resource the manager owns.
func (m *FogBufferManager) Release() {
	if m.SlotsBuf != nil {
		m.SlotsBuf.Release()
		m.SlotsBuf = nil
	}
	if m.FroxelMetaBuf != nil {
		m.FroxelMetaBuf.Release()
		m.FroxelMetaBuf = nil
	}
	if m.FroxelIndexBuf != nil {
		m.FroxelIndexBuf.Release()
		m.FroxelIndexBuf = nil
	}
	m.releaseTextures()
	m.initialized = false
}
