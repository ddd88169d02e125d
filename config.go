package volumetrics

// Defaults applied when a light has no companion fog settings record.
const (
	DefaultScattering      = 1.0
	DefaultAnisotropy      = 0.25
	DefaultSmoothingRadius = 0.2
)

// MaxAdditionalLightCap is the hard upper bound on the per-frame light
// selection, regardless of configuration.
const MaxAdditionalLightCap = 256

// FogSettings is the fog-volume configuration handed in by the host.
type FogSettings struct {
	MaxDistance float32 // max fog raymarch distance from the observer
	BaseHeight  float32
	MaxHeight   float32

	// GroundHeight lowers the fog band below BaseHeight when enabled.
	GroundHeightEnabled bool
	GroundHeight        float32

	MaxAdditionalLights    int
	EnableMainLight        bool
	EnableAdditionalLights bool

	// MinIntensity excludes lights too dim to matter from selection.
	MinIntensity float32
}

func DefaultFogSettings() FogSettings {
	return FogSettings{
		MaxDistance:            64,
		BaseHeight:             0,
		MaxHeight:              50,
		MaxAdditionalLights:    32,
		EnableMainLight:        true,
		EnableAdditionalLights: true,
		MinIntensity:           0.001,
	}
}

// Clamp corrects out-of-range values in place. Invalid configuration is
// never an error on the per-frame path.
func (s *FogSettings) Clamp() {
	if s.MaxAdditionalLights < 0 {
		s.MaxAdditionalLights = 0
	}
	if s.MaxAdditionalLights > MaxAdditionalLightCap {
		s.MaxAdditionalLights = MaxAdditionalLightCap
	}
	if s.MaxDistance < 0 {
		s.MaxDistance = 0
	}
	if s.MaxHeight < s.BaseHeight {
		s.MaxHeight = s.BaseHeight
	}
	if s.MinIntensity < 0 {
		s.MinIntensity = 0
	}
}

// HeightBand returns the world-space Y band the fog occupies.
func (s *FogSettings) HeightBand() (minY, maxY float32) {
	minY = s.BaseHeight
	if s.GroundHeightEnabled && s.GroundHeight < minY {
		minY = s.GroundHeight
	}
	return minY, s.MaxHeight
}

// LightFogSettings is the optional companion record for a single light.
// Absent fields fall back to the documented defaults.
type LightFogSettings struct {
	Scattering      float32
	Anisotropy      float32
	SmoothingRadius float32
	Bake            bool // eligible for static baking
}

// Diagnostics accumulates non-fatal notices for the caller. It is reset
// by the operation that owns it, never by the components that write it.
type Diagnostics struct {
	DefaultedLights       int  // lights that used default fog settings
	ZeroLightsBaked       bool // bake produced a valid all-black volume
	TruncatedStaticLights int  // static lights kept after budget cut, 0 if none cut
	BakeCancelled         bool
}

func (d *Diagnostics) Reset() {
	*d = Diagnostics{}
}
