// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package report drives the report flow: picking a target location from a
// ranking snapshot, assembling the share payload, and recording the report
// in the recency history once dispatch succeeded.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fieldsync/fieldsync/internal/rank"
)

// MaxNoteLen caps the free-text note in characters.
const MaxNoteLen = 127

var (
	// ErrCancelled is returned by a Sharer when the user aborted the share.
	ErrCancelled = errors.New("share cancelled by user")

	ErrNotComposing  = errors.New("no report composition in progress")
	ErrBusy          = errors.New("a report composition is already in progress")
	ErrUnknownTarget = errors.New("selected target is not part of the snapshot")
)

// Sharer is the outbound share/clipboard boundary. Share returns nil on
// success, ErrCancelled when the user aborted, and any other error on
// dispatch failure.
type Sharer interface {
	Name() string
	Share(ctx context.Context, text string) error
}

// Recorder receives the id of a successfully reported location.
// *history.History satisfies it.
type Recorder interface {
	Record(id string)
}

// State enumerates the phases of a report composition.
type State int

const (
	StateIdle State = iota
	StateComposing
	StateDispatching
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateDispatching:
		return "dispatching"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Composer is the report state machine. The ranking snapshot is fixed at
// Open and not affected by store edits during composition: the user selects
// among a stable list.
type Composer struct {
	sharer      Sharer
	recorder    Recorder
	defaultNote string

	mu         sync.Mutex
	state      State
	snapshot   []rank.RankedLocation
	selectedID string
	note       string
}

// NewComposer returns an idle Composer. defaultNote is used when the user
// leaves the note empty.
func NewComposer(sharer Sharer, recorder Recorder, defaultNote string) *Composer {
	return &Composer{
		sharer:      sharer,
		recorder:    recorder,
		defaultNote: defaultNote,
	}
}

// State returns the current phase.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open starts a composition over the given ranking snapshot with the given
// preselected target. The snapshot is copied and held fixed until the
// composition ends.
func (c *Composer) Open(snapshot []rank.RankedLocation, defaultTarget string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrBusy
	}
	if !targetInSnapshot(snapshot, defaultTarget) {
		return ErrUnknownTarget
	}

	c.state = StateComposing
	c.snapshot = append([]rank.RankedLocation(nil), snapshot...)
	c.selectedID = defaultTarget
	c.note = ""
	return nil
}

// Snapshot returns a copy of the ranking snapshot of the current
// composition.
func (c *Composer) Snapshot() []rank.RankedLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]rank.RankedLocation(nil), c.snapshot...)
}

// Select changes the target location. The id has to resolve within the
// snapshot.
func (c *Composer) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateComposing {
		return ErrNotComposing
	}
	if !targetInSnapshot(c.snapshot, id) {
		return ErrUnknownTarget
	}
	c.selectedID = id
	return nil
}

// SetNote sets the free-text note, clipped to MaxNoteLen characters.
func (c *Composer) SetNote(note string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateComposing {
		return ErrNotComposing
	}
	if runes := []rune(note); len(runes) > MaxNoteLen {
		note = string(runes[:MaxNoteLen])
	}
	c.note = note
	return nil
}

// Message assembles the share payload for the current selection.
func (c *Composer) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message()
}

// Submit dispatches the report through the Sharer. On success the selected
// id is recorded in the recency history and the composer resets to Idle. A
// cancelled share returns ErrCancelled and stays in Composing with the
// history untouched; any other dispatch error moves to Failed, from where
// Retry resumes the composition.
func (c *Composer) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateComposing {
		c.mu.Unlock()
		return ErrNotComposing
	}
	if !targetInSnapshot(c.snapshot, c.selectedID) {
		c.mu.Unlock()
		return ErrUnknownTarget
	}
	c.state = StateDispatching
	selected := c.selectedID
	message := c.message()
	c.mu.Unlock()

	// The dispatch itself runs unlocked: the share boundary may block on
	// user interaction.
	err := c.sharer.Share(ctx, message)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.recorder.Record(selected)
		c.state = StateIdle
		c.snapshot = nil
		c.selectedID = ""
		c.note = ""
		return nil
	case errors.Is(err, ErrCancelled):
		c.state = StateComposing
		return ErrCancelled
	default:
		c.state = StateFailed
		return fmt.Errorf("failed to dispatch report: %w", err)
	}
}

// Retry returns a failed composition to Composing so the user can submit
// again.
func (c *Composer) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFailed {
		return ErrNotComposing
	}
	c.state = StateComposing
	return nil
}

// Close abandons the composition and returns the composer to Idle. Closing
// an idle composer is a no-op.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDispatching {
		return
	}
	c.state = StateIdle
	c.snapshot = nil
	c.selectedID = ""
	c.note = ""
}

// message must be called with the lock held.
func (c *Composer) message() string {
	name := ""
	for _, r := range c.snapshot {
		if r.ID == c.selectedID {
			name = r.Name
			break
		}
	}
	note := c.note
	if note == "" {
		note = c.defaultNote
	}
	return "[" + name + "]" + note
}

func targetInSnapshot(snapshot []rank.RankedLocation, id string) bool {
	if id == "" {
		return false
	}
	for _, r := range snapshot {
		if r.ID == id {
			return true
		}
	}
	return false
}
