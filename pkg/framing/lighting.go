package framing

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// rigLight is one slot of the three-point rig, expressed as an offset from
// the target in units of the reference distance.
type rigLight struct {
	kind   LightKind
	offset v3.Vec
}

// threePoint lists the rig slots in output order. Key and fill sit on the
// camera side (-Y) of the subject; rim sits behind it (+Y).
var threePoint = [...]rigLight{
	{kind: LightKey, offset: v3.Vec{X: 0.7, Y: -0.7, Z: 0.6}},
	{kind: LightFill, offset: v3.Vec{X: -0.7, Y: -0.7, Z: 0.42}},
	{kind: LightRim, offset: v3.Vec{X: 0, Y: 1, Z: 0.9}},
}

// BuildThreePointRig places key, fill and rim lights around center, scaled
// by the reference distance d, each aimed at center.
func BuildThreePointRig(center v3.Vec, d float64, cfg RigConfig, axes AxisConvention) ([]LightSpec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !finite(d) || d <= 0 {
		return nil, fmt.Errorf("%w: reference distance %.6g must be positive", ErrInvalidLight, d)
	}

	lights := make([]LightSpec, 0, len(threePoint))
	for _, slot := range threePoint {
		pos := center.Add(slot.offset.MulScalar(d))
		o, err := Orient(pos, center, axes)
		if err != nil {
			return nil, fmt.Errorf("framing: orient %s light: %w", slot.kind, err)
		}
		energy, size := cfg.slot(slot.kind)
		lights = append(lights, LightSpec{
			Kind:        slot.kind,
			Position:    pos,
			Orientation: &o,
			Energy:      energy,
			Size:        size * d,
		})
	}
	return lights, nil
}

// slot returns the energy and relative size for a rig light kind.
func (c RigConfig) slot(kind LightKind) (energy, size float64) {
	switch kind {
	case LightKey:
		return c.KeyEnergy, c.KeySize
	case LightFill:
		return c.KeyEnergy * c.FillRatio, c.FillSize
	case LightRim:
		return c.KeyEnergy * c.RimRatio, c.RimSize
	}
	return 0, 0
}

// BuildEnvironmentLight returns a descriptor for an image-based light.
// The image itself is decoded by whoever applies the light.
func BuildEnvironmentLight(image string, strength float64) (LightSpec, error) {
	if strings.TrimSpace(image) == "" {
		return LightSpec{}, fmt.Errorf("%w: empty environment image reference", ErrInvalidLight)
	}
	if !finite(strength) || strength < 0 {
		return LightSpec{}, fmt.Errorf("%w: environment strength %.6g must be >= 0", ErrInvalidLight, strength)
	}
	return LightSpec{Kind: LightEnvironment, Image: image, Strength: strength}, nil
}

// BuildLighting dispatches on the lighting selection.
func BuildLighting(l Lighting, center v3.Vec, d float64, s Settings) ([]LightSpec, error) {
	switch l := l.(type) {
	case ThreePoint:
		return BuildThreePointRig(center, d, s.Rig, s.Axes)
	case Environment:
		env, err := BuildEnvironmentLight(l.Image, l.Strength)
		if err != nil {
			return nil, err
		}
		return []LightSpec{env}, nil
	case nil:
		return nil, fmt.Errorf("%w: no lighting selected", ErrInvalidLight)
	default:
		return nil, fmt.Errorf("%w: unsupported lighting %T", ErrInvalidLight, l)
	}
}
