// Package proj re-projects geographic (longitude, latitude) points into
// the engine's projected working plane, spherical Web Mercator by
// default, and back. Spec §6: "Projection: project(lonLat) ->
// projectedGeo, unproject(projectedGeo) -> lonLat (default Mercator)".
package proj

import "math"

// Projector re-projects between geographic and projectedGeo coordinates.
// A caller may substitute an alternate CRS by implementing this
// interface; the engine ships Mercator as the default.
type Projector interface {
	Project(lonLat [2]float64) [2]float64
	Unproject(projected [2]float64) [2]float64
}

const earthRadius = 6378137.0 // WGS84 semi-major axis, meters

// maxLat is the Web Mercator latitude clamp (arctan(sinh(pi)) in
// degrees), beyond which the projection is undefined.
const maxLat = 85.05112878

// Mercator is the default spherical Web Mercator (EPSG:3857) projection.
type Mercator struct{}

// Project converts (lon, lat) in degrees to projectedGeo meters.
func (Mercator) Project(lonLat [2]float64) [2]float64 {
	lon, lat := lonLat[0], lonLat[1]
	if lat > maxLat {
		lat = maxLat
	} else if lat < -maxLat {
		lat = -maxLat
	}
	x := earthRadius * lon * math.Pi / 180
	latRad := lat * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+latRad/2))
	return [2]float64{x, y}
}

// Unproject converts projectedGeo meters back to (lon, lat) in degrees.
func (Mercator) Unproject(p [2]float64) [2]float64 {
	lon := p[0] / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(p[1]/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return [2]float64{lon, lat}
}

// Default is the projection used when an annotation does not request a
// different one.
var Default Projector = Mercator{}
