// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package geo provides geographic coordinate types and great-circle distance
// calculation.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// TruncPrecision is the number of decimal places position providers truncate
// coordinates to. Six decimal places is roughly 0.1 m at the equator.
const TruncPrecision = 6

// Coordinate represents a geographic coordinate. Accuracy is the estimated
// horizontal accuracy in meters; zero means unknown.
type Coordinate struct {
	Lat float64
	Lon float64
	Acc float64
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// String returns the coordinate as a "lat,lon" pair with 6 decimal places.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Distance returns the great-circle distance between two coordinates in
// meters, using the Haversine formula. Inputs are assumed to be valid
// degrees, range validation is up to the caller.
func Distance(from, to Coordinate) float64 {
	dLat := (to.Lat - from.Lat) * math.Pi / 180
	dLon := (to.Lon - from.Lon) * math.Pi / 180
	lat1 := from.Lat * math.Pi / 180
	lat2 := to.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Truncate cuts a float down to the given number of decimal places.
func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
