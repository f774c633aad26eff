// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/fieldsync/fieldsync/internal/geo"
)

// bucketSize is the quantization step for cache keys in degrees. 0.01° is
// roughly 1.1 km, well above the movement threshold, so jittering around the
// same spot resolves to the same bucket.
const bucketSize = 1e-2

// bucket addresses one quantized cell per backing provider.
type bucket struct {
	provider string
	lat, lon int32
}

func bucketFor(provider string, coords geo.Coordinate) bucket {
	return bucket{
		provider: provider,
		lat:      int32(math.Round(coords.Lat / bucketSize)),
		lon:      int32(math.Round(coords.Lon / bucketSize)),
	}
}

type cached struct {
	address Address
	expiry  time.Time
}

// CachedGeocoder wraps a Geocoder and remembers resolved addresses per
// quantized coordinate bucket. Found and not-found results carry separate
// TTLs, lookup errors are never cached.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration

	mu      sync.RWMutex
	entries map[bucket]cached
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:   coder,
		ttlHit:  ttlHit,
		ttlMiss: ttlMiss,
		entries: make(map[bucket]cached),
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

// Reverse returns the cached address for the coordinate's bucket when one is
// still fresh, and falls through to the backing provider otherwise.
func (c *CachedGeocoder) Reverse(ctx context.Context, coords geo.Coordinate) (Address, error) {
	key := bucketFor(c.coder.Name(), coords)

	if address, ok := c.lookup(key); ok {
		address.CacheHit = true
		return address, nil
	}

	address, err := c.coder.Reverse(ctx, coords)
	if err != nil {
		return address, err
	}
	c.store(key, address)
	return address, nil
}

func (c *CachedGeocoder) lookup(key bucket) (Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiry) {
		return Address{}, false
	}
	return entry.address, true
}

func (c *CachedGeocoder) store(key bucket, address Address) {
	ttl := c.ttlHit
	if !address.AddressFound {
		ttl = c.ttlMiss
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cached{address: address, expiry: time.Now().Add(ttl)}
}
