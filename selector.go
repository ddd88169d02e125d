package volumetrics

import "github.com/go-gl/mathgl/mgl32"

// SelectedSlot is the compact shader-facing record for one selected
// light. Index refers into the proxy generation; static lights covered
// by a published bake are negative-encoded so the raymarcher reads the
// baked visibility grid instead of live shadow data.
type SelectedSlot struct {
	Index             int32
	Score             float32
	Anisotropy        float32
	Scattering        float32
	SmoothingRadiusSq float32
	BoundsCenter      mgl32.Vec3
	BoundsRadius      float32
}

// EncodeSlotIndex maps a proxy index to its slot encoding. Baked static
// slots use -(index+1) so index 0 stays distinguishable.
func EncodeSlotIndex(index int, bakedStatic bool) int32 {
	if bakedStatic {
		return -int32(index) - 1
	}
	return int32(index)
}

// DecodeSlotIndex reverses EncodeSlotIndex.
func DecodeSlotIndex(encoded int32) (index int, bakedStatic bool) {
	if encoded < 0 {
		return int(-encoded - 1), true
	}
	return int(encoded), false
}

// Selector keeps the K highest-scoring slots seen so far, sorted
// descending by score. Insertion is an O(K) bubble, which beats a heap
// here: K is at most 256 and displacements are rare once the list
// saturates.
type Selector struct {
	slots    []SelectedSlot
	capacity int
}

func NewSelector(capacity int) *Selector {
	if capacity < 0 {
		capacity = 0
	}
	if capacity > MaxAdditionalLightCap {
		capacity = MaxAdditionalLightCap
	}
	return &Selector{
		slots:    make([]SelectedSlot, 0, capacity),
		capacity: capacity,
	}
}

func (s *Selector) Capacity() int { return s.capacity }

// Reset drops all slots, keeping the backing array.
func (s *Selector) Reset() {
	s.slots = s.slots[:0]
}

// Offer inserts the slot if it ranks among the best K seen so far.
// Equal scores never displace an earlier entry (first-found wins).
func (s *Selector) Offer(slot SelectedSlot) bool {
	if s.capacity == 0 {
		return false
	}
	if len(s.slots) < s.capacity {
		s.slots = append(s.slots, slot)
		s.bubbleUp(len(s.slots) - 1)
		return true
	}
	last := len(s.slots) - 1
	if slot.Score <= s.slots[last].Score {
		return false
	}
	s.slots[last] = slot
	s.bubbleUp(last)
	return true
}

func (s *Selector) bubbleUp(i int) {
	for i > 0 && s.slots[i].Score > s.slots[i-1].Score {
		s.slots[i], s.slots[i-1] = s.slots[i-1], s.slots[i]
		i--
	}
}

// Slots returns the current selection, highest score first. The slice
// aliases the selector's storage and is only valid until the next
// Reset/Offer.
func (s *Selector) Slots() []SelectedSlot {
	return s.slots
}

func (s *Selector) Count() int { return len(s.slots) }
