// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package store holds the named locations of the field worker. The store
// owns its Location entities exclusively and keeps them synchronized to the
// persistence boundary.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/persist"
)

// ErrNotFound is returned when an operation references an unknown location id.
var ErrNotFound = errors.New("location not found")

// Location represents a named place saved by the user.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinate returns the location's position as a geo.Coordinate.
func (l Location) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: l.Latitude, Lon: l.Longitude}
}

// seedLocations is written on first run when no locations have been
// persisted yet.
var seedLocations = []Location{
	{ID: "1", Name: "본사", Latitude: 37.5665, Longitude: 126.978},
	{ID: "2", Name: "지사", Latitude: 37.498095, Longitude: 127.02761},
}

// Store is an in-memory collection of locations backed by the persistence
// boundary. Mutations replace the backing slice wholesale, so readers always
// observe a consistent snapshot. Store is single-writer, read-many.
type Store struct {
	mu        sync.RWMutex
	persist   persist.Store
	logger    *logger.Logger
	locations []Location
}

// New returns a Store loaded from persistence. On a first run with no
// persisted data the store is seeded with the default locations.
func New(p persist.Store, log *logger.Logger) (*Store, error) {
	s := &Store{
		persist: p,
		logger:  log,
	}

	data, found, err := p.Load(persist.KeyLocations)
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	if !found {
		s.locations = append([]Location(nil), seedLocations...)
		s.sync()
		return s, nil
	}
	if err = json.Unmarshal(data, &s.locations); err != nil {
		return nil, fmt.Errorf("failed to parse persisted locations: %w", err)
	}
	return s, nil
}

// Create adds a new location with a fresh id and triggers a persistence
// sync. It does not fail: persistence trouble is logged, the in-memory state
// stays authoritative.
func (s *Store) Create(name, address string, lat, lon float64) Location {
	location := Location{
		ID:        newID(),
		Name:      name,
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Location, 0, len(s.locations)+1)
	next = append(next, s.locations...)
	next = append(next, location)
	s.locations = next
	s.sync()
	return location
}

// Update replaces all mutable fields of the location with the given id. The
// id itself is immutable.
func (s *Store) Update(id, name, address string, lat, lon float64) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Location{}, ErrNotFound
	}

	next := append([]Location(nil), s.locations...)
	next[idx] = Location{
		ID:        id,
		Name:      name,
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
	}
	s.locations = next
	s.sync()
	return next[idx], nil
}

// Delete removes the location with the given id. Callers are responsible
// for purging the id from the recency history afterwards.
func (s *Store) Delete(id string) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Location{}, ErrNotFound
	}

	removed := s.locations[idx]
	next := make([]Location, 0, len(s.locations)-1)
	next = append(next, s.locations[:idx]...)
	next = append(next, s.locations[idx+1:]...)
	s.locations = next
	s.sync()
	return removed, nil
}

// Get returns the location with the given id.
func (s *Store) Get(id string) (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.locations[idx], true
	}
	return Location{}, false
}

// List returns all locations in insertion order. The returned slice is a
// copy and safe to hold across further mutations.
func (s *Store) List() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Location(nil), s.locations...)
}

// Len returns the number of stored locations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id string) int {
	for i, location := range s.locations {
		if location.ID == id {
			return i
		}
	}
	return -1
}

// sync must be called with the lock held.
func (s *Store) sync() {
	data, err := json.Marshal(s.locations)
	if err != nil {
		s.logger.Error("failed to marshal locations", logger.Err(err))
		return
	}
	if err = s.persist.Save(persist.KeyLocations, data); err != nil {
		s.logger.Error("failed to persist locations", logger.Err(err))
	}
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID generates a collision-resistant identifier from a millisecond
// timestamp prefix and a random base36 suffix.
func newID() string {
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + string(suffix)
}
