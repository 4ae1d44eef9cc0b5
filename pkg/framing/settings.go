package framing

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Defaults for a square isometric icon render.
const (
	DefaultPadding   = 1.15
	DefaultElevation = 35.264 // atan(1/sqrt(2)) in degrees, true isometric
	DefaultAzimuth   = -45.0
	DefaultMinRadius = 0.01

	// DefaultOrthoDistanceFactor places an orthographic camera at
	// radius*factor from the target. Distance does not affect ortho size.
	DefaultOrthoDistanceFactor = 4.0

	DefaultResolution = 256
)

// ClipConfig tunes the near/far clip calculation.
type ClipConfig struct {
	NearMargin float64 `json:"near_margin"`
	FarMargin  float64 `json:"far_margin"`
	Epsilon    float64 `json:"epsilon"` // smallest allowed near plane
}

// DefaultClipConfig returns the standard clip margins.
func DefaultClipConfig() ClipConfig {
	return ClipConfig{NearMargin: 1.5, FarMargin: 3, Epsilon: 0.01}
}

// AxisConvention describes how an oriented object (camera or light) is set up
// in its local space, and which world direction counts as up.
// Forward and Up are the local axes that must point at the target and
// upward; WorldUp resolves roll, and FallbackUp replaces it when the view
// direction is parallel to WorldUp.
type AxisConvention struct {
	Forward    v3.Vec `json:"forward"`
	Up         v3.Vec `json:"up"`
	WorldUp    v3.Vec `json:"world_up"`
	FallbackUp v3.Vec `json:"fallback_up"`
}

// DefaultAxisConvention looks down local -Z with local +Y up in a Z-up world.
func DefaultAxisConvention() AxisConvention {
	return AxisConvention{
		Forward:    v3.Vec{X: 0, Y: 0, Z: -1},
		Up:         v3.Vec{X: 0, Y: 1, Z: 0},
		WorldUp:    v3.Vec{X: 0, Y: 0, Z: 1},
		FallbackUp: v3.Vec{X: 0, Y: 1, Z: 0},
	}
}

// Validate rejects conventions no look-at can satisfy: a zero axis, local
// forward parallel to local up, or a fallback parallel to WorldUp.
func (a AxisConvention) Validate() error {
	for _, ax := range []struct {
		name string
		v    v3.Vec
	}{{"forward", a.Forward}, {"up", a.Up}, {"world up", a.WorldUp}, {"fallback up", a.FallbackUp}} {
		if !finite(ax.v.X, ax.v.Y, ax.v.Z) || ax.v.Length() < parallelEpsilon {
			return fmt.Errorf("%w: %s axis %v is zero", ErrSingularOrientation, ax.name, ax.v)
		}
	}
	if a.Forward.Normalize().Cross(a.Up.Normalize()).Length() < parallelEpsilon {
		return fmt.Errorf("%w: forward %v parallel to up %v", ErrSingularOrientation, a.Forward, a.Up)
	}
	if a.WorldUp.Normalize().Cross(a.FallbackUp.Normalize()).Length() < parallelEpsilon {
		return fmt.Errorf("%w: fallback up %v parallel to world up %v", ErrSingularOrientation, a.FallbackUp, a.WorldUp)
	}
	return nil
}

// RigConfig tunes the three-point rig. Energies of fill and rim are
// fractions of KeyEnergy; sizes are fractions of the reference distance.
type RigConfig struct {
	KeyEnergy float64 `json:"key_energy"`
	FillRatio float64 `json:"fill_ratio"`
	RimRatio  float64 `json:"rim_ratio"`
	KeySize   float64 `json:"key_size"`
	FillSize  float64 `json:"fill_size"`
	RimSize   float64 `json:"rim_size"`
}

// DefaultRigConfig returns the standard rig: fill at 40% and rim at 70% of key.
func DefaultRigConfig() RigConfig {
	return RigConfig{
		KeyEnergy: 2.5,
		FillRatio: 0.4,
		RimRatio:  0.7,
		KeySize:   0.25,
		FillSize:  0.5,
		RimSize:   0.15,
	}
}

// Validate checks the energy ordering contract: key > rim > fill > 0.
func (c RigConfig) Validate() error {
	if !finite(c.KeyEnergy, c.FillRatio, c.RimRatio, c.KeySize, c.FillSize, c.RimSize) {
		return fmt.Errorf("%w: non-finite rig parameter", ErrInvalidLight)
	}
	if c.KeyEnergy <= 0 {
		return fmt.Errorf("%w: key energy %.4g must be positive", ErrInvalidLight, c.KeyEnergy)
	}
	if c.FillRatio <= 0 || c.FillRatio >= c.RimRatio || c.RimRatio >= 1 {
		return fmt.Errorf("%w: need 0 < fill ratio (%.4g) < rim ratio (%.4g) < 1",
			ErrInvalidLight, c.FillRatio, c.RimRatio)
	}
	if c.KeySize < 0 || c.FillSize < 0 || c.RimSize < 0 {
		return fmt.Errorf("%w: light sizes must not be negative", ErrInvalidLight)
	}
	return nil
}

// Settings carries the tuning parameters of a framing computation.
type Settings struct {
	Clip                ClipConfig
	Axes                AxisConvention
	Rig                 RigConfig
	MinRadius           float64
	OrthoDistanceFactor float64
}

// DefaultSettings returns the standard tuning.
func DefaultSettings() Settings {
	return Settings{
		Clip:                DefaultClipConfig(),
		Axes:                DefaultAxisConvention(),
		Rig:                 DefaultRigConfig(),
		MinRadius:           DefaultMinRadius,
		OrthoDistanceFactor: DefaultOrthoDistanceFactor,
	}
}

// Validate checks the scalar tuning parameters. Axis conventions and the rig
// are checked where they are used.
func (s Settings) Validate() error {
	if !finite(s.Clip.NearMargin, s.Clip.FarMargin, s.Clip.Epsilon, s.MinRadius, s.OrthoDistanceFactor) {
		return fmt.Errorf("framing: non-finite setting")
	}
	if s.Clip.Epsilon <= 0 {
		return fmt.Errorf("framing: clip epsilon %.4g must be positive", s.Clip.Epsilon)
	}
	if s.Clip.NearMargin < 0 || s.Clip.FarMargin <= 0 {
		return fmt.Errorf("framing: clip margins near=%.4g far=%.4g out of range",
			s.Clip.NearMargin, s.Clip.FarMargin)
	}
	if s.MinRadius <= 0 {
		return fmt.Errorf("framing: min radius %.4g must be positive", s.MinRadius)
	}
	if s.OrthoDistanceFactor <= 1 {
		return fmt.Errorf("framing: ortho distance factor %.4g must exceed 1", s.OrthoDistanceFactor)
	}
	return nil
}

// degToRad converts degrees to radians.
func degToRad(d float64) float64 {
	return d * math.Pi / 180.0
}
