// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package posbus coordinates the delivery of position fixes from positioning
// providers to consumers. Fixes pass through a movement-threshold sampler so
// that GPS jitter does not ripple through address lookups and the UI.
package posbus

import (
	"context"
	"sync"
	"time"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/logger"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Reason classifies a positioning fault reported by a provider.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonUnavailable      Reason = "unavailable"
	ReasonTimeout          Reason = "timeout"
)

// Fix represents a single position fix delivered by a provider.
type Fix struct {
	Coordinate geo.Coordinate
	Source     string
	At         time.Time
}

// Fault represents a positioning failure reported by a provider. Faults are
// informational, providers keep retrying on their own cadence.
type Fault struct {
	Source string
	Reason Reason
	Err    error
	At     time.Time
}

// Event carries either a fix or a fault from a provider. Exactly one of the
// two fields is set.
type Event struct {
	Fix   *Fix
	Fault *Fault
}

// Provider defines an interface for positioning providers. WatchStream
// delivers fixes and faults until the context is cancelled.
type Provider interface {
	Name() string
	WatchStream(ctx context.Context) <-chan Event
}

// Bus fans position events out to subscribers. Fixes are filtered through a
// Sampler before they are broadcast, faults are recorded and broadcast as-is.
type Bus struct {
	mu        sync.RWMutex
	logger    *logger.Logger
	sampler   Sampler
	lastFault *Fault
	subs      map[chan Event]struct{}
}

// New initializes and returns a new Bus.
func New(log *logger.Logger) *Bus {
	return &Bus{
		logger: log,
		subs:   make(map[chan Event]struct{}),
	}
}

// NewOrchestrator returns an Orchestrator feeding this bus from the given
// providers.
func (b *Bus) NewOrchestrator(providers []Provider) *Orchestrator {
	return &Orchestrator{
		Bus:       b,
		Providers: providers,
	}
}

// Publish offers a fix to the sampler and broadcasts it to all subscribers
// if it was accepted. Returns true if the fix passed the movement threshold.
// Fixes are processed one at a time, in arrival order.
func (b *Bus) Publish(fix Fix) bool {
	if !fix.Coordinate.Valid() {
		return false
	}
	if fix.At.IsZero() {
		fix.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.sampler.Offer(fix.Coordinate) {
		return false
	}
	b.lastFault = nil
	b.broadcast(Event{Fix: &fix})
	return true
}

// ReportFault records a positioning fault and broadcasts it to all
// subscribers. The last stable position is retained.
func (b *Bus) ReportFault(fault Fault) {
	if fault.At.IsZero() {
		fault.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFault = &fault
	b.broadcast(Event{Fault: &fault})
}

// Current returns the last stable position, if any fix has been accepted yet.
func (b *Bus) Current() (geo.Coordinate, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sampler.Current()
}

// LastFault returns the most recent fault since the last accepted fix.
func (b *Bus) LastFault() (Fault, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastFault == nil {
		return Fault{}, false
	}
	return *b.lastFault, true
}

// Subscribe adds a subscriber with the given buffer size, returning an event
// channel and an unsubscribe function. If a stable position is already known
// it is replayed to the new subscriber.
func (b *Bus) Subscribe(size int) (<-chan Event, func()) {
	eventChan := make(chan Event, size)
	b.mu.Lock()
	b.subs[eventChan] = struct{}{}
	if current, ok := b.sampler.Current(); ok {
		eventChan <- Event{Fix: &Fix{Coordinate: current}}
	}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.subs, eventChan)
		b.mu.Unlock()
		close(eventChan)
	}

	return eventChan, unsub
}

func (b *Bus) broadcast(event Event) {
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
