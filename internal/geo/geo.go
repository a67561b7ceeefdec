// Package geo holds the great-circle distance used by location filters.
//
// Distances use the haversine formula on a sphere with the mean Earth radius
// (IUGG, 6 371 008.8 m). Error against the WGS84 ellipsoid stays under 0.5%.
package geo

import "math"

const EarthRadiusMeters = 6371008.8

// DistanceMeters returns the great-circle distance between two lat/lon points in degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// SQLDistance is the same formula as a Postgres expression over the lat/lon columns
// of table. It expects three bind vars: origin lat, origin lat, origin lon.
func SQLDistance(table string) string {
	lat := table + ".lat"
	lon := table + ".lon"
	return "(2 * 6371008.8 * ASIN(LEAST(1, SQRT(" +
		"POWER(SIN(RADIANS(" + lat + " - ?) / 2), 2) + " +
		"COS(RADIANS(?)) * COS(RADIANS(" + lat + ")) * " +
		"POWER(SIN(RADIANS(" + lon + " - ?) / 2), 2)))))"
}

// Point is an optional search origin with a radius.
type Point struct {
	Lat      *float64
	Lon      *float64
	Distance *float64
}

// Complete reports whether all three parts are present; partial input disables the filter.
func (p Point) Complete() bool {
	return p.Lat != nil && p.Lon != nil && p.Distance != nil
}
