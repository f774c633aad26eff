// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/rank"
	"github.com/fieldsync/fieldsync/internal/report"
	"github.com/fieldsync/fieldsync/internal/store"
)

var (
	ErrEmptyName         = errors.New("location name must not be empty")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrNoSearcher        = errors.New("no address search provider available")
)

// SaveLocation stores a new named location.
func (s *Service) SaveLocation(name, address string, lat, lon float64) (store.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Location{}, ErrEmptyName
	}
	if !(geo.Coordinate{Lat: lat, Lon: lon}).Valid() {
		return store.Location{}, ErrInvalidCoordinate
	}
	return s.locations.Create(name, address, lat, lon), nil
}

// SaveLocationFromSearch resolves a free-form address query through the
// forward geocoder and stores the result under the given name.
func (s *Service) SaveLocationFromSearch(ctx context.Context, name, query string) (store.Location, error) {
	if s.searcher == nil {
		return store.Location{}, ErrNoSearcher
	}
	coordinate, err := s.searcher.Search(ctx, query)
	if err != nil {
		return store.Location{}, fmt.Errorf("failed to search address: %w", err)
	}
	return s.SaveLocation(name, query, coordinate.Lat, coordinate.Lon)
}

// UpdateLocation replaces the mutable fields of a saved location.
func (s *Service) UpdateLocation(id, name, address string, lat, lon float64) (store.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Location{}, ErrEmptyName
	}
	if !(geo.Coordinate{Lat: lat, Lon: lon}).Valid() {
		return store.Location{}, ErrInvalidCoordinate
	}
	return s.locations.Update(id, name, address, lat, lon)
}

// DeleteLocation removes a saved location and purges it from the report
// history, so the history never refers to a location that no longer exists.
func (s *Service) DeleteLocation(id string) error {
	if _, err := s.locations.Delete(id); err != nil {
		return err
	}
	s.history.Remove(id)
	return nil
}

// Locations returns all saved locations in storage order.
func (s *Service) Locations() []store.Location {
	return s.locations.List()
}

// Ranked returns the saved locations ordered by distance from the current
// position. Without a known position the locations are returned in storage
// order with their distances unset.
func (s *Service) Ranked() []rank.RankedLocation {
	if position, ok := s.bus.Current(); ok {
		return rank.Rank(position, s.locations.List())
	}
	return rank.Unranked(s.locations.List())
}

// RecentLocations resolves the report history to locations, most recent
// first.
func (s *Service) RecentLocations() []store.Location {
	ids := s.history.IDs()
	recent := make([]store.Location, 0, len(ids))
	for _, id := range ids {
		if location, ok := s.locations.Get(id); ok {
			recent = append(recent, location)
		}
	}
	return recent
}

// RemoveHistoryEntry removes a single id from the report history, the saved
// location itself is untouched.
func (s *Service) RemoveHistoryEntry(id string) {
	s.history.Remove(id)
}

// ClearHistory drops the whole report history.
func (s *Service) ClearHistory() {
	s.history.Clear()
}

// OpenReport starts a report composition over the current ranking. The most
// recently reported location is preselected when it still exists, otherwise
// the nearest one.
func (s *Service) OpenReport() (*report.Composer, error) {
	ranked := s.Ranked()
	target, err := s.history.SelectDefaultTarget(ranked)
	if err != nil {
		return nil, err
	}
	if err = s.composer.Open(ranked, target); err != nil {
		return nil, err
	}
	return s.composer, nil
}

// Composer returns the report composer for state inspection.
func (s *Service) Composer() *report.Composer {
	return s.composer
}
