// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package geo

import (
	"math"
	"testing"
)

const relTolerance = 1e-6

var (
	seoulCityHall = Coordinate{Lat: 37.5665, Lon: 126.978}
	gangnam       = Coordinate{Lat: 37.498095, Lon: 127.02761}
	newYork       = Coordinate{Lat: 40.7128, Lon: -74.006}
)

func TestDistance(t *testing.T) {
	t.Run("distance of a coordinate to itself is zero", func(t *testing.T) {
		for _, c := range []Coordinate{seoulCityHall, gangnam, newYork, {}} {
			if got := Distance(c, c); got != 0 {
				t.Errorf("expected zero distance for %s, got %f", c, got)
			}
		}
	})
	t.Run("distance is symmetric", func(t *testing.T) {
		tests := []struct {
			name     string
			from, to Coordinate
		}{
			{"city hall to gangnam", seoulCityHall, gangnam},
			{"gangnam to new york", gangnam, newYork},
			{"across the antimeridian", Coordinate{Lat: 0, Lon: 179.9}, Coordinate{Lat: 0, Lon: -179.9}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				ab, ba := Distance(tc.from, tc.to), Distance(tc.to, tc.from)
				if math.Abs(ab-ba) > relTolerance*math.Max(ab, ba) {
					t.Errorf("expected symmetric distance, got %f and %f", ab, ba)
				}
			})
		}
	})
	t.Run("known distances match within tolerance", func(t *testing.T) {
		tests := []struct {
			name      string
			from, to  Coordinate
			want      float64
			tolerance float64
		}{
			{"city hall to gangnam", seoulCityHall, gangnam, 8750, 100},
			{"one degree on the equator", Coordinate{}, Coordinate{Lon: 1}, 111195, 10},
			{"ten meters north", seoulCityHall, Coordinate{Lat: seoulCityHall.Lat + 9e-5, Lon: seoulCityHall.Lon}, 10, 0.1},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				got := Distance(tc.from, tc.to)
				if math.Abs(got-tc.want) > tc.tolerance {
					t.Errorf("expected distance of %f (±%f), got %f", tc.want, tc.tolerance, got)
				}
			})
		}
	})
	t.Run("distance grows monotonically with angular separation", func(t *testing.T) {
		prev := 0.0
		for _, dLon := range []float64{0.001, 0.01, 0.1, 1, 10, 90} {
			got := Distance(seoulCityHall, Coordinate{Lat: seoulCityHall.Lat, Lon: seoulCityHall.Lon + dLon})
			if got <= prev {
				t.Fatalf("expected distance for dLon=%f to exceed %f, got %f", dLon, prev, got)
			}
			prev = got
		}
	})
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		valid bool
	}{
		{"zero coordinate", Coordinate{}, true},
		{"seoul city hall", seoulCityHall, true},
		{"latitude bounds", Coordinate{Lat: 90, Lon: -180}, true},
		{"latitude too high", Coordinate{Lat: 90.1}, false},
		{"latitude too low", Coordinate{Lat: -90.1}, false},
		{"longitude too high", Coordinate{Lon: 180.1}, false},
		{"longitude too low", Coordinate{Lon: -180.1}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coord.Valid(); got != tc.valid {
				t.Errorf("expected Valid to return %t, got %t", tc.valid, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		precision int
		want      float64
	}{
		{"four digits", 37.56656789, 4, 37.5665},
		{"negative value", -74.00601, 2, -74.0},
		{"zero precision", 126.978, 0, 126},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Truncate(tc.value, tc.precision); got != tc.want {
				t.Errorf("expected %f, got %f", tc.want, got)
			}
		})
	}
}
