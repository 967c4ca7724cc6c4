package geo

import "math"

// RoundCoordinates rounds a point to 3 decimal places (~100 m) before
// anything is stored or published. Raw device precision never leaves
// the request handler. Idempotent: rounding twice equals rounding once.
func RoundCoordinates(lat, lng float64) (float64, float64) {
	return roundTo(lat, 3), roundTo(lng, 3)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

const geohashBase32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// EncodeGeohash produces the standard interleaved-bit base-32 geohash
// of a point. The returned string length equals precision. Shared
// prefixes imply spatial proximity, not a strict distance bound.
func EncodeGeohash(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latMin, latMax := -90.0, 90.0
	lngMin, lngMax := -180.0, 180.0

	var (
		out     = make([]byte, 0, precision)
		bit     int
		ch      int
		evenBit = true
	)

	for len(out) < precision {
		if evenBit {
			mid := (lngMin + lngMax) / 2
			if lng >= mid {
				ch = ch<<1 | 1
				lngMin = mid
			} else {
				ch <<= 1
				lngMax = mid
			}
		} else {
			mid := (latMin + latMax) / 2
			if lat >= mid {
				ch = ch<<1 | 1
				latMin = mid
			} else {
				ch <<= 1
				latMax = mid
			}
		}
		evenBit = !evenBit

		bit++
		if bit == 5 {
			out = append(out, geohashBase32[ch])
			bit = 0
			ch = 0
		}
	}

	return string(out)
}
