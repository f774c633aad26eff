// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package coordfile

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/posbus"
)

const (
	testFile = "../../../../testdata/coordinates"
	testLat  = 37.5665
	testLon  = 126.9780
)

func TestNew(t *testing.T) {
	t.Run("new coordinate file provider succeeds", func(t *testing.T) {
		provider := New(testFile)
		if provider == nil {
			t.Fatal("expected provider to be non-nil")
		}
	})
	t.Run("provider name is correct", func(t *testing.T) {
		provider := New(testFile)
		if provider.Name() != name {
			t.Errorf("expected provider name to be %q, got %q", name, provider.Name())
		}
	})
}

func TestProvider_readFile(t *testing.T) {
	t.Run("read file succeeds and skips comments", func(t *testing.T) {
		provider := New(testFile)
		coords, err := provider.readFile()
		if err != nil {
			t.Fatalf("failed to read file: %s", err)
		}
		if coords.Lat != testLat {
			t.Errorf("expected latitude to be %f, got %f", testLat, coords.Lat)
		}
		if coords.Lon != testLon {
			t.Errorf("expected longitude to be %f, got %f", testLon, coords.Lon)
		}
		if coords.Acc != Accuracy {
			t.Errorf("expected accuracy to be %f, got %f", Accuracy, coords.Acc)
		}
	})
	t.Run("read of non-existent file fails", func(t *testing.T) {
		provider := New("non-existent.txt")
		if _, err := provider.readFile(); err == nil {
			t.Error("expected error, but didn't get one")
		}
	})
	t.Run("file without usable coordinates fails", func(t *testing.T) {
		provider := New(testFile + "_nocoord")
		_, err := provider.readFile()
		if err == nil {
			t.Error("expected error, but didn't get one")
		}
		if !errors.Is(err, ErrNoCoordinates) {
			t.Errorf("expected error to be %s, got %s", ErrNoCoordinates, err)
		}
	})
}

func TestProvider_WatchStream(t *testing.T) {
	t.Run("changed coordinates are emitted, repeats are not", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			reads := 0
			provider := New(testFile)
			provider.period = time.Millisecond * 10
			provider.locateFn = func() (geo.Coordinate, error) {
				reads++
				switch {
				case reads <= 2:
					return geo.Coordinate{Lat: testLat, Lon: testLon, Acc: Accuracy}, nil
				default:
					return geo.Coordinate{Lat: testLat + 1, Lon: testLon, Acc: Accuracy}, nil
				}
			}

			stream := provider.WatchStream(ctx)
			event := <-stream
			if event.Fix == nil {
				t.Fatal("expected a fix event")
			}
			if event.Fix.Coordinate.Lat != testLat {
				t.Errorf("expected latitude to be %f, got %f", testLat, event.Fix.Coordinate.Lat)
			}

			event = <-stream
			if event.Fix == nil {
				t.Fatal("expected a fix event")
			}
			if event.Fix.Coordinate.Lat != testLat+1 {
				t.Errorf("expected changed latitude %f, got %f", testLat+1, event.Fix.Coordinate.Lat)
			}
			if reads < 3 {
				t.Errorf("expected at least three reads, got %d", reads)
			}
			cancel()
		})
	})
	t.Run("a failing read emits a single fault per streak", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			reads := 0
			provider := New(testFile)
			provider.period = time.Millisecond * 10
			provider.locateFn = func() (geo.Coordinate, error) {
				reads++
				if reads <= 2 {
					return geo.Coordinate{}, errors.New("intentionally failing")
				}
				return geo.Coordinate{Lat: testLat, Lon: testLon, Acc: Accuracy}, nil
			}

			stream := provider.WatchStream(ctx)
			event := <-stream
			if event.Fault == nil {
				t.Fatal("expected a fault event")
			}
			if event.Fault.Reason != posbus.ReasonUnavailable {
				t.Errorf("expected fault reason %q, got %q", posbus.ReasonUnavailable, event.Fault.Reason)
			}

			event = <-stream
			if event.Fix == nil {
				t.Fatal("expected a fix event after recovery, second fault was emitted")
			}
			cancel()
		})
	})
	t.Run("cancelling the context closes the stream", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())

			provider := New(testFile)
			stream := provider.WatchStream(ctx)
			event := <-stream
			if event.Fix == nil {
				t.Fatal("expected a fix event")
			}
			cancel()
			synctest.Wait()
			if _, open := <-stream; open {
				t.Error("expected stream to be closed after context cancellation")
			}
		})
	})
}
