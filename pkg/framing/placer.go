package framing

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Place returns the point at distance from center along the direction given
// by elevation (above the XY plane) and azimuth (from +X toward +Y), both in
// degrees. Elevation is expected in (-90, 90); azimuth is periodic.
func Place(center v3.Vec, distance, elevationDeg, azimuthDeg float64) v3.Vec {
	e := degToRad(elevationDeg)
	a := degToRad(azimuthDeg)
	return v3.Vec{
		X: center.X + distance*math.Cos(e)*math.Cos(a),
		Y: center.Y + distance*math.Cos(e)*math.Sin(a),
		Z: center.Z + distance*math.Sin(e),
	}
}

// PlaceAndOrient places a camera on the sphere around center and aims it
// back at center.
func PlaceAndOrient(center v3.Vec, distance, elevationDeg, azimuthDeg float64, axes AxisConvention) (v3.Vec, Orientation, error) {
	pos := Place(center, distance, elevationDeg, azimuthDeg)
	o, err := Orient(pos, center, axes)
	if err != nil {
		return v3.Vec{}, Orientation{}, err
	}
	return pos, o, nil
}
