// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package coordfile reads position fixes from a plain text file. This is
// mainly useful for testing and for stationary setups without positioning
// hardware.
package coordfile

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/posbus"
)

const (
	name = "coordfile"

	// Accuracy assigned to fixes read from a file. Hand-maintained
	// coordinates are treated as precise.
	Accuracy = 5.0
)

var ErrNoCoordinates = fmt.Errorf("no valid coordinates found in coordinate file")

// Provider periodically reads a "lat,lon" pair from a file and emits a fix
// whenever the coordinates change. Lines starting with # are skipped.
type Provider struct {
	name     string
	path     string
	period   time.Duration
	locateFn func() (geo.Coordinate, error)
}

func New(path string) *Provider {
	provider := &Provider{
		name:   name,
		path:   path,
		period: time.Minute * 2,
	}
	provider.locateFn = provider.readFile
	return provider
}

func (p *Provider) Name() string {
	return p.name
}

// WatchStream reads the coordinate file on a fixed cadence and emits a fix
// for every successful read with changed coordinates. An unreadable file is
// reported as a fault once per failure streak.
func (p *Provider) WatchStream(ctx context.Context) <-chan posbus.Event {
	out := make(chan posbus.Event)
	go func() {
		defer close(out)
		var last geo.Coordinate
		var haveLast, faulted bool
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
				}
			}
			firstRun = false

			coords, err := p.locateFn()
			if err != nil {
				if !faulted {
					faulted = true
					fault := posbus.Fault{
						Source: p.name,
						Reason: posbus.ReasonUnavailable,
						Err:    err,
						At:     time.Now(),
					}
					select {
					case <-ctx.Done():
						return
					case out <- posbus.Event{Fault: &fault}:
					}
				}
				continue
			}
			faulted = false

			if haveLast && coords == last {
				continue
			}
			last = coords
			haveLast = true

			fix := posbus.Fix{
				Coordinate: coords,
				Source:     p.name,
				At:         time.Now(),
			}
			select {
			case <-ctx.Done():
				return
			case out <- posbus.Event{Fix: &fix}:
			}
		}
	}()
	return out
}

// readFile parses the first non-comment "lat,lon" line of the file.
func (p *Provider) readFile() (geo.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to read coordinate file %q: %w", p.path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			continue
		}
		coords := geo.Coordinate{Lat: lat, Lon: lon, Acc: Accuracy}
		if !coords.Valid() {
			continue
		}
		return coords, nil
	}
	return geo.Coordinate{}, ErrNoCoordinates
}
