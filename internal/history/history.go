// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package history keeps a bounded, deduplicated, most-recent-first list of
// reported location ids, synchronized to the persistence boundary. The
// history holds ids only: it does not own the locations and silently
// tolerates ids whose location has since been deleted.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/persist"
	"github.com/fieldsync/fieldsync/internal/rank"
)

// MaxEntries bounds the number of remembered reports.
const MaxEntries = 5

// ErrNoTarget is returned by SelectDefaultTarget when there is no location
// to report at all.
var ErrNoTarget = errors.New("no reportable location available")

// History is single-writer, read-many. Mutations replace the backing slice
// wholesale so readers always observe a consistent snapshot.
type History struct {
	mu      sync.RWMutex
	persist persist.Store
	logger  *logger.Logger
	ids     []string
}

// New returns a History loaded from persistence.
func New(p persist.Store, log *logger.Logger) (*History, error) {
	h := &History{
		persist: p,
		logger:  log,
	}

	data, found, err := p.Load(persist.KeyRecentReports)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent reports: %w", err)
	}
	if found {
		if err = json.Unmarshal(data, &h.ids); err != nil {
			return nil, fmt.Errorf("failed to parse persisted recent reports: %w", err)
		}
		h.ids = dedupe(h.ids)
		if len(h.ids) > MaxEntries {
			h.ids = h.ids[:MaxEntries]
		}
	}
	return h, nil
}

// Record notes that the location with the given id was just reported: any
// prior occurrence is removed, the id is prepended, and the list is
// truncated to MaxEntries. Recording the same id twice in a row is a no-op
// by effect.
func (h *History) Record(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]string, 0, len(h.ids)+1)
	next = append(next, id)
	for _, existing := range h.ids {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	h.ids = next
	h.sync()
}

// Remove purges all occurrences of id, used when a location is deleted or a
// single history entry is cleared.
func (h *History) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]string, 0, len(h.ids))
	for _, existing := range h.ids {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) == len(h.ids) {
		return
	}
	h.ids = next
	h.sync()
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = nil
	h.sync()
}

// IDs returns the remembered ids, most recent first. The returned slice is
// a copy.
func (h *History) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.ids...)
}

// Front returns the most recently reported id, if any.
func (h *History) Front() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.ids) == 0 {
		return "", false
	}
	return h.ids[0], true
}

// SelectDefaultTarget picks the report target to preselect: the most
// recently reported location if it still exists in the ranking, otherwise
// the nearest one. Returns ErrNoTarget when the ranking is empty.
func (h *History) SelectDefaultTarget(ranked []rank.RankedLocation) (string, error) {
	if len(ranked) == 0 {
		return "", ErrNoTarget
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.ids) > 0 {
		for _, r := range ranked {
			if r.ID == h.ids[0] {
				return h.ids[0], nil
			}
		}
	}
	return ranked[0].ID, nil
}

// sync must be called with the lock held.
func (h *History) sync() {
	ids := h.ids
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		h.logger.Error("failed to marshal recent reports", logger.Err(err))
		return
	}
	if err = h.persist.Save(persist.KeyRecentReports, data); err != nil {
		h.logger.Error("failed to persist recent reports", logger.Err(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
