// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package posbus

import (
	"github.com/fieldsync/fieldsync/internal/geo"
)

// MinMovement is the minimum distance in meters a new fix has to be away
// from the last stable position to be accepted. Anything below is treated
// as GPS jitter.
const MinMovement = 10.0

// Sampler suppresses position fixes that represent less than MinMovement of
// actual movement. The zero value is ready to use. A Sampler is not safe for
// concurrent use, callers have to serialize fix delivery.
type Sampler struct {
	last     geo.Coordinate
	haveLast bool
}

// Offer hands a fix to the sampler. The first fix is accepted
// unconditionally, subsequent fixes only when they moved more than
// MinMovement from the last accepted one. Returns whether the fix was
// accepted as the new stable position.
func (s *Sampler) Offer(c geo.Coordinate) bool {
	if s.haveLast && geo.Distance(s.last, c) <= MinMovement {
		return false
	}
	s.last = c
	s.haveLast = true
	return true
}

// Current returns the last stable position and whether one exists.
func (s *Sampler) Current() (geo.Coordinate, bool) {
	return s.last, s.haveLast
}

// Reset clears the stable position, the next fix will be accepted
// unconditionally.
func (s *Sampler) Reset() {
	s.last = geo.Coordinate{}
	s.haveLast = false
}
