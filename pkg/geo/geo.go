package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geoscan/pkg/model"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// FromOrb converts an orb point (lon, lat).
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	const R = 6371000 // Earth radius in meters
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// AssistanceFeature renders the assistance position as a GeoJSON collection.
// The collection is empty while no position is known.
func AssistanceFeature(pos model.AssistancePosition) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if !pos.Known {
		return fc
	}
	f := geojson.NewFeature(pos.Point())
	f.Properties["mode"] = string(pos.Mode)
	if pos.Label != "" {
		f.Properties["label"] = pos.Label
	}
	if !pos.UpdatedAt.IsZero() {
		f.Properties["updated_at"] = pos.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	fc.Append(f)
	return fc
}
