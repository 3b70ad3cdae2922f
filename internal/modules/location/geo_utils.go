// README: Pure geographic helpers: great-circle distance and nearest-first ordering.
package location

import (
	"math"
	"sort"

	"pickmeup/internal/types"
)

const earthRadiusKm = 6371.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm is the haversine distance between a and b in kilometres.
func DistanceKm(a, b types.Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// OrderByDistance returns a copy of points sorted nearest-first from origin.
// Equidistant points keep their input order.
func OrderByDistance(origin types.Point, points []types.Point) []types.Point {
	type ranked struct {
		p types.Point
		d float64
	}
	rs := make([]ranked, len(points))
	for i, p := range points {
		rs[i] = ranked{p: p, d: DistanceKm(origin, p)}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].d < rs[j].d })

	out := make([]types.Point, len(rs))
	for i, r := range rs {
		out[i] = r.p
	}
	return out
}
