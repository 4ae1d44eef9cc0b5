package framing

import (
	"fmt"
	"math"
)

// ClipRange is a near/far depth pair with Near < Far.
type ClipRange struct {
	Near float64 `json:"near"`
	Far  float64 `json:"far"`
}

// ComputeClipPlanes derives clip planes bracketing a sphere of radius seen
// from distance:
//
//	near = max(Epsilon, distance - radius*NearMargin)
//	far  = distance + radius*FarMargin
//
// When that leaves near >= far in front of the camera (a zero radius, or a
// camera closer than Epsilon) near falls back to far/2. It fails only when
// no positive range exists, i.e. far <= 0.
func ComputeClipPlanes(distance, radius float64, cfg ClipConfig) (ClipRange, error) {
	if !finite(distance, radius) {
		return ClipRange{}, fmt.Errorf("%w: non-finite distance %.6g or radius %.6g",
			ErrInvalidClipRange, distance, radius)
	}
	near := math.Max(cfg.Epsilon, distance-radius*cfg.NearMargin)
	far := distance + radius*cfg.FarMargin
	if near >= far && far > 0 {
		near = far / 2
	}
	if near <= 0 || near >= far {
		return ClipRange{}, fmt.Errorf("%w: near %.6g >= far %.6g (distance %.6g, radius %.6g)",
			ErrInvalidClipRange, near, far, distance, radius)
	}
	return ClipRange{Near: near, Far: far}, nil
}
