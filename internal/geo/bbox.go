package geo

import "math"

// kmPerDegree is the approximate length of one degree of latitude.
const kmPerDegree = 111.0

type Box struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LngMin float64 `json:"lng_min"`
	LngMax float64 `json:"lng_max"`
}

// BoundingBox derives an axis-aligned rectangle around center+radius.
// A rectangle, not a circle: points near the corners may lie outside
// the nominal radius, and the longitude delta degrades as |lat| → 90
// because cos(lat) → 0. Both are accepted limitations; there is no
// post-filter by exact distance and no special casing at the poles.
func BoundingBox(lat, lng, radiusKm float64) Box {
	latDelta := radiusKm / kmPerDegree
	lngDelta := radiusKm / (kmPerDegree * math.Cos(lat*math.Pi/180))

	return Box{
		LatMin: lat - latDelta,
		LatMax: lat + latDelta,
		LngMin: lng - lngDelta,
		LngMax: lng + lngDelta,
	}
}

// Contains reports whether the point falls inside the box, bounds
// inclusive.
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax &&
		lng >= b.LngMin && lng <= b.LngMax
}
