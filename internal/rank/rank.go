// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package rank computes distance-annotated, distance-ordered views of the
// saved locations. Rankings are derived values: they are recomputed per
// call and never cached across position updates.
package rank

import (
	"sort"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/store"
	"github.com/fieldsync/fieldsync/internal/vartype"
)

// NearbyThreshold is the maximum distance in meters at which a location is
// classified as nearby.
const NearbyThreshold = 500.0

// RankedLocation annotates a Location with its distance from the current
// position. Distance stays unset when no position is known; it is never
// substituted with 0.
type RankedLocation struct {
	store.Location
	Distance vartype.Variable[float64]
}

// Nearby reports whether the location is within NearbyThreshold of the
// position it was ranked against. A location without a known distance is
// never nearby.
func (r RankedLocation) Nearby() bool {
	return r.Distance.IsSet() && r.Distance.Value() <= NearbyThreshold
}

// Rank annotates the given locations with their distance from position and
// sorts them by ascending distance. The sort is stable: locations at equal
// distance keep their relative input order.
func Rank(position geo.Coordinate, locations []store.Location) []RankedLocation {
	ranked := make([]RankedLocation, 0, len(locations))
	for _, location := range locations {
		ranked = append(ranked, RankedLocation{
			Location: location,
			Distance: vartype.NewVariable(geo.Distance(position, location.Coordinate())),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance.Value() < ranked[j].Distance.Value()
	})
	return ranked
}

// Unranked wraps the given locations in store order without distance
// annotation. It is the "no position yet" counterpart of Rank: callers must
// treat the unset distances as a distinct state.
func Unranked(locations []store.Location) []RankedLocation {
	ranked := make([]RankedLocation, 0, len(locations))
	for _, location := range locations {
		ranked = append(ranked, RankedLocation{Location: location})
	}
	return ranked
}
