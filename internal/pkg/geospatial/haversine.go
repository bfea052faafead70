package geospatial

import (
	"math"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two coordinates. It is symmetric and returns
// exactly 0 for equal inputs. Coordinates are not range-checked.
func Distance(a, b domain.Coordinate) float64 {
	if a == b {
		return 0
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Interpolate returns the point at fraction t along a->b, linear in degrees.
// Segments between route waypoints are short enough for this to stay well
// under a meter of the great-circle position.
func Interpolate(a, b domain.Coordinate, t float64) domain.Coordinate {
	return domain.Coordinate{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
}

// BoundsOf returns the smallest box containing all points. ok is false for
// an empty slice.
func BoundsOf(points []domain.Coordinate) (b domain.Bounds, ok bool) {
	if len(points) == 0 {
		return domain.Bounds{}, false
	}
	b = domain.Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
