// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fieldsync/fieldsync/internal/rank"
	"github.com/fieldsync/fieldsync/internal/store"
)

// scriptSharer returns the scripted errors in order and remembers dispatched
// payloads.
type scriptSharer struct {
	errs     []error
	payloads []string
}

func (s *scriptSharer) Name() string { return "script" }

func (s *scriptSharer) Share(_ context.Context, text string) error {
	s.payloads = append(s.payloads, text)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

// memRecorder remembers recorded ids.
type memRecorder struct {
	ids []string
}

func (r *memRecorder) Record(id string) {
	r.ids = append(r.ids, id)
}

func snapshot() []rank.RankedLocation {
	return []rank.RankedLocation{
		{Location: store.Location{ID: "a", Name: "본사"}},
		{Location: store.Location{ID: "b", Name: "지사"}},
	}
}

func testComposer(sharer Sharer) (*Composer, *memRecorder) {
	recorder := &memRecorder{}
	return NewComposer(sharer, recorder, "도착했습니다"), recorder
}

func TestComposer_Open(t *testing.T) {
	t.Run("open moves from idle to composing", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if c.State() != StateComposing {
			t.Errorf("expected state composing, got %s", c.State())
		}
	})
	t.Run("open rejects a target outside the snapshot", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "missing"); !errors.Is(err, ErrUnknownTarget) {
			t.Errorf("expected ErrUnknownTarget, got %v", err)
		}
		if c.State() != StateIdle {
			t.Errorf("expected state idle, got %s", c.State())
		}
	})
	t.Run("open while composing is rejected", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.Open(snapshot(), "b"); !errors.Is(err, ErrBusy) {
			t.Errorf("expected ErrBusy, got %v", err)
		}
	})
	t.Run("snapshot is detached from the input slice", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		input := snapshot()
		if err := c.Open(input, "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		input[0].Name = "edited"
		if got := c.Snapshot(); got[0].Name != "본사" {
			t.Errorf("expected snapshot to be unaffected by input edits, got %q", got[0].Name)
		}
	})
}

func TestComposer_Select(t *testing.T) {
	c, _ := testComposer(&scriptSharer{})
	if err := c.Select("a"); !errors.Is(err, ErrNotComposing) {
		t.Errorf("expected ErrNotComposing before open, got %v", err)
	}
	if err := c.Open(snapshot(), "a"); err != nil {
		t.Fatalf("failed to open composition: %s", err)
	}
	if err := c.Select("b"); err != nil {
		t.Errorf("failed to select target: %s", err)
	}
	if err := c.Select("missing"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("expected ErrUnknownTarget, got %v", err)
	}
}

func TestComposer_Message(t *testing.T) {
	t.Run("empty note falls back to the default", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if got := c.Message(); got != "[본사]도착했습니다" {
			t.Errorf("expected default note payload, got %q", got)
		}
	})
	t.Run("note follows the bracketed name without a separator", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.SetNote("지금 도착"); err != nil {
			t.Fatalf("failed to set note: %s", err)
		}
		if got := c.Message(); got != "[본사]지금 도착" {
			t.Errorf("expected payload without separator, got %q", got)
		}
	})
	t.Run("whitespace-only note is kept verbatim", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.SetNote("   "); err != nil {
			t.Fatalf("failed to set note: %s", err)
		}
		if got := c.Message(); got != "[본사]   " {
			t.Errorf("expected whitespace note payload, got %q", got)
		}
	})
	t.Run("note and selection shape the payload", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.Select("b"); err != nil {
			t.Fatalf("failed to select target: %s", err)
		}
		if err := c.SetNote("회의 시작합니다"); err != nil {
			t.Fatalf("failed to set note: %s", err)
		}
		if got := c.Message(); got != "[지사]회의 시작합니다" {
			t.Errorf("expected custom payload, got %q", got)
		}
	})
	t.Run("overlong notes are clipped to the character cap", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.SetNote(strings.Repeat("가", MaxNoteLen+10)); err != nil {
			t.Fatalf("failed to set note: %s", err)
		}
		want := "[본사]" + strings.Repeat("가", MaxNoteLen)
		if got := c.Message(); got != want {
			t.Errorf("expected note clipped to %d characters, got %d", MaxNoteLen, len([]rune(got))-len([]rune("[본사]")))
		}
	})
}

func TestComposer_Submit(t *testing.T) {
	t.Run("successful dispatch records the report and resets to idle", func(t *testing.T) {
		sharer := &scriptSharer{}
		c, recorder := testComposer(sharer)
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.Submit(t.Context()); err != nil {
			t.Fatalf("failed to submit report: %s", err)
		}
		if c.State() != StateIdle {
			t.Errorf("expected state idle, got %s", c.State())
		}
		if len(recorder.ids) != 1 || recorder.ids[0] != "a" {
			t.Errorf("expected recorded id a, got %v", recorder.ids)
		}
		if len(sharer.payloads) != 1 || sharer.payloads[0] != "[본사]도착했습니다" {
			t.Errorf("expected dispatched payload, got %v", sharer.payloads)
		}
	})
	t.Run("submit without composing is rejected", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Submit(t.Context()); !errors.Is(err, ErrNotComposing) {
			t.Errorf("expected ErrNotComposing, got %v", err)
		}
	})
	t.Run("cancelled share returns to composing without history mutation", func(t *testing.T) {
		sharer := &scriptSharer{errs: []error{ErrCancelled}}
		c, recorder := testComposer(sharer)
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.Submit(t.Context()); !errors.Is(err, ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", err)
		}
		if c.State() != StateComposing {
			t.Errorf("expected state composing, got %s", c.State())
		}
		if len(recorder.ids) != 0 {
			t.Errorf("expected no recorded ids, got %v", recorder.ids)
		}
	})
	t.Run("failed dispatch allows a retry", func(t *testing.T) {
		sharer := &scriptSharer{errs: []error{errors.New("clipboard unavailable")}}
		c, recorder := testComposer(sharer)
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.Submit(t.Context()); err == nil {
			t.Fatal("expected error, but didn't get one")
		}
		if c.State() != StateFailed {
			t.Errorf("expected state failed, got %s", c.State())
		}
		if len(recorder.ids) != 0 {
			t.Errorf("expected no recorded ids after failure, got %v", recorder.ids)
		}

		if err := c.Retry(); err != nil {
			t.Fatalf("failed to retry: %s", err)
		}
		if err := c.Submit(t.Context()); err != nil {
			t.Fatalf("failed to submit on retry: %s", err)
		}
		if len(recorder.ids) != 1 || recorder.ids[0] != "a" {
			t.Errorf("expected recorded id a after retry, got %v", recorder.ids)
		}
	})
	t.Run("new composition can start after a submitted report", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		if err := c.Submit(t.Context()); err != nil {
			t.Fatalf("failed to submit report: %s", err)
		}
		if err := c.Open(snapshot(), "b"); err != nil {
			t.Errorf("expected a fresh composition after submit, got %v", err)
		}
	})
	t.Run("close abandons a composition", func(t *testing.T) {
		c, _ := testComposer(&scriptSharer{})
		if err := c.Open(snapshot(), "a"); err != nil {
			t.Fatalf("failed to open composition: %s", err)
		}
		c.Close()
		if c.State() != StateIdle {
			t.Errorf("expected state idle, got %s", c.State())
		}
	})
}
