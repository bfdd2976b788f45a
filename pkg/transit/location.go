package transit

import "math"

const earthRadiusMeters = 6371000

// DistanceMeters returns the haversine great-circle distance between two
// coordinates in meters
func DistanceMeters(lat1 float64, lon1 float64, lat2 float64, lon2 float64) float64 {
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Pow(math.Sin(dlon/2), 2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// BoundingBox is a coarse geographic service area. Anything reporting a
// position outside of it is considered off route
type BoundingBox struct {
	MinLatitude  float64 `json:"min_lat" yaml:"min_lat"`
	MaxLatitude  float64 `json:"max_lat" yaml:"max_lat"`
	MinLongitude float64 `json:"min_lon" yaml:"min_lon"`
	MaxLongitude float64 `json:"max_lon" yaml:"max_lon"`
}

func (b *BoundingBox) Contains(lat float64, lon float64) bool {
	return lat >= b.MinLatitude && lat <= b.MaxLatitude &&
		lon >= b.MinLongitude && lon <= b.MaxLongitude
}
