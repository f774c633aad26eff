// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package geocode resolves coordinates to human readable addresses and
// addresses back to coordinates.
package geocode

import (
	"context"
	"strings"

	"github.com/fieldsync/fieldsync/internal/geo"
)

// Address is a provider independent representation of a resolved address.
type Address struct {
	AddressFound bool
	CacheHit     bool
	Latitude     float64
	Longitude    float64
	DisplayName  string
	Country      string
	State        string
	City         string
	District     string
	Neighborhood string
	Street       string
	HouseNumber  string
	Building     string
	Postcode     string
}

// Geocoder resolves a coordinate to an Address.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords geo.Coordinate) (Address, error)
}

// Searcher resolves a free-form address query to a coordinate.
type Searcher interface {
	Search(ctx context.Context, query string) (geo.Coordinate, error)
}

// Short returns a compact single-line rendition of the address, preferring
// the street-level parts over the administrative ones.
func (a Address) Short() string {
	if !a.AddressFound {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, part := range []string{a.City, a.District, a.Street, a.HouseNumber} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return a.DisplayName
	}
	short := strings.Join(parts, " ")
	if a.Building != "" {
		short += " (" + a.Building + ")"
	}
	return short
}
