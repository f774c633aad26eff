// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package gpsd streams position fixes from a local gpsd daemon.
package gpsd

import (
	"context"
	"math"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/posbus"
)

const (
	DefaultHost = "localhost"
	DefaultPort = "2947"
	name        = "gpsd"

	fallbackAccuracy3DFix = 10.0
	fallbackAccuracy2DFix = 25.0
)

// session is the subset of the gpsd.Session API the provider needs. Split
// out so the stream logic can be tested without a running gpsd.
type session interface {
	AddFilter(class string, f gpsd.Filter)
	Watch() chan bool
}

type Provider struct {
	name   string
	addr   string
	retry  time.Duration
	logger *logger.Logger
	dialFn func(addr string) (session, error)
}

func New(host, port string, log *logger.Logger) *Provider {
	provider := &Provider{
		name:   name,
		addr:   net.JoinHostPort(host, port),
		retry:  time.Second * 30,
		logger: log,
	}
	provider.dialFn = func(addr string) (session, error) {
		return gpsd.Dial(addr)
	}
	return provider
}

func (p *Provider) Name() string {
	return p.name
}

// WatchStream connects to gpsd and emits a fix for every TPV report with at
// least a 2D fix. Lost connections are reported as faults and retried.
func (p *Provider) WatchStream(ctx context.Context) <-chan posbus.Event {
	out := make(chan posbus.Event)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			sess, err := p.dialFn(p.addr)
			if err != nil {
				p.logger.Debug("failed to connect to gpsd", "address", p.addr, logger.Err(err))
				p.emitFault(ctx, out, posbus.ReasonUnavailable, err)
				if !sleepOrDone(ctx, p.retry) {
					return
				}
				continue
			}

			sess.AddFilter("TPV", func(r interface{}) {
				tpv, ok := r.(*gpsd.TPVReport)
				if !ok {
					return
				}
				if tpv.Mode < gpsd.Mode2D {
					return
				}

				fix := posbus.Fix{
					Coordinate: geo.Coordinate{
						Lat: geo.Truncate(tpv.Lat, geo.TruncPrecision),
						Lon: geo.Truncate(tpv.Lon, geo.TruncPrecision),
						Acc: horizontalAccuracy(tpv),
					},
					Source: p.name,
					At:     time.Now(),
				}
				select {
				case <-ctx.Done():
				case out <- posbus.Event{Fix: &fix}:
				}
			})

			// Watch returns once the connection to gpsd ends. go-gpsd has
			// no Close(), the connection is torn down with the process.
			done := sess.Watch()

			select {
			case <-ctx.Done():
				return
			case <-done:
			}

			p.emitFault(ctx, out, posbus.ReasonUnavailable, nil)
			if !sleepOrDone(ctx, p.retry) {
				return
			}
		}
	}()

	return out
}

func (p *Provider) emitFault(ctx context.Context, out chan<- posbus.Event, reason posbus.Reason, err error) {
	fault := posbus.Fault{
		Source: p.name,
		Reason: reason,
		Err:    err,
		At:     time.Now(),
	}
	select {
	case <-ctx.Done():
	case out <- posbus.Event{Fault: &fault}:
	}
}

// horizontalAccuracy estimates the horizontal position error in meters from
// the per-axis error estimates, falling back to typical consumer GPS values
// when the receiver does not report them.
func horizontalAccuracy(tpv *gpsd.TPVReport) float64 {
	if tpv.Epx > 0 && tpv.Epy > 0 {
		return geo.Truncate(math.Hypot(tpv.Epx, tpv.Epy), geo.TruncPrecision)
	}
	if tpv.Mode >= gpsd.Mode3D {
		return fallbackAccuracy3DFix
	}
	return fallbackAccuracy2DFix
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
