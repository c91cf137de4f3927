// Package geo implements the spherical geometry used for flight path
// planning: great-circle distances, initial bearings, and interpolation
// along the arc between two coordinates. All functions are pure.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for distance calculations.
const EarthRadiusKm = 6371.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// AngularDistance returns the central angle between a and b in radians,
// computed with the haversine formula for numerical stability on short arcs.
func AngularDistance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	h = math.Min(1, math.Max(0, h))

	return 2 * math.Asin(math.Sqrt(h))
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	return AngularDistance(a, b) * EarthRadiusKm
}

// InitialBearing returns the initial bearing of the great-circle segment from
// a to b, in degrees clockwise from north, normalized to [0, 360).
func InitialBearing(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// Intermediate returns the point at fraction f (0..1) along the great-circle
// arc from a to b. f=0 yields a, f=1 yields b. For coincident points a is
// returned unchanged. The result is undefined for exactly antipodal points;
// callers must split such legs first (see NearAntipodal).
func Intermediate(a, b Point, f float64) Point {
	delta := AngularDistance(a, b)
	if delta < 1e-12 {
		return a
	}

	sinDelta := math.Sin(delta)
	fa := math.Sin((1-f)*delta) / sinDelta
	fb := math.Sin(f*delta) / sinDelta

	lat1 := radians(a.Lat)
	lon1 := radians(a.Lon)
	lat2 := radians(b.Lat)
	lon2 := radians(b.Lon)

	x := fa*math.Cos(lat1)*math.Cos(lon1) + fb*math.Cos(lat2)*math.Cos(lon2)
	y := fa*math.Cos(lat1)*math.Sin(lon1) + fb*math.Cos(lat2)*math.Sin(lon2)
	z := fa*math.Sin(lat1) + fb*math.Sin(lat2)

	return Point{
		Lat: degrees(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lon: degrees(math.Atan2(y, x)),
	}
}

// NearAntipodal reports whether a and b are within tolerance radians of being
// antipodal, where the great circle through them is ill-defined.
func NearAntipodal(a, b Point, tolerance float64) bool {
	return math.Pi-AngularDistance(a, b) < tolerance
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
