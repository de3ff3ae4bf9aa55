// Package geo holds the small amount of spherical math the report endpoints need.
package geo

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// kmPerDegreeLat is the length of one degree of latitude on the same sphere
// HaversineKm uses.
const kmPerDegreeLat = earthRadiusKm * math.Pi / 180

// boxPadding widens the prefilter box so edge points are never dropped.
const boxPadding = 1.01

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ValidCoordinates reports whether lat/lng are finite and in range.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Box is an inclusive lat/lng rectangle. When WrapLng is set the longitude
// range is not usable and callers must only filter on latitude.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	WrapLng        bool
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of (lat, lng). It is a coarse prefilter; HaversineKm decides membership.
func BoundingBox(lat, lng, radiusKm float64) Box {
	dLat := radiusKm / kmPerDegreeLat * boxPadding
	b := Box{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
	}

	cosLat := math.Cos(radians(lat))
	if cosLat < 0.01 || b.MinLat == -90 || b.MaxLat == 90 {
		b.WrapLng = true
		return b
	}
	dLng := dLat / cosLat
	b.MinLng, b.MaxLng = lng-dLng, lng+dLng
	if b.MinLng < -180 || b.MaxLng > 180 {
		b.WrapLng = true
	}
	return b
}

// Round3 rounds to three decimals, roughly a 110 m grid cell.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Point is a bare coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// HeatPoint is one heatmap cell.
type HeatPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int     `json:"count"`
}

// Heatmap groups points whose coordinates round to the same 3-decimal pair.
// Cells are ordered by count descending, then by lat and lng.
func Heatmap(points []Point) []HeatPoint {
	type key struct{ lat, lng float64 }
	buckets := make(map[key]int)
	for _, p := range points {
		buckets[key{Round3(p.Lat), Round3(p.Lng)}]++
	}

	out := make([]HeatPoint, 0, len(buckets))
	for k, n := range buckets {
		out = append(out, HeatPoint{Lat: k.lat, Lng: k.lng, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Lat != out[j].Lat {
			return out[i].Lat < out[j].Lat
		}
		return out[i].Lng < out[j].Lng
	})
	return out
}
