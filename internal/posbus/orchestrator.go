// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package posbus

import (
	"context"
	"sync"
)

// Orchestrator coordinates the delivery of position events from multiple
// providers into a Bus.
type Orchestrator struct {
	Bus       *Bus
	Providers []Provider
}

// Track runs all providers concurrently until the context is cancelled.
func (o *Orchestrator) Track(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range o.Providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			o.trackProvider(ctx, p)
		}(p)
	}
	<-ctx.Done()
	wg.Wait()
}

// trackProvider continuously consumes a provider's event stream, routing
// fixes and faults into the Bus and backing off when the stream ends.
func (o *Orchestrator) trackProvider(ctx context.Context, p Provider) {
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		watchChan := o.safeWatch(ctx, p)
		if watchChan == nil {
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

	consume:
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watchChan:
				if !ok {
					if !sleepOrDone(ctx, backoff) {
						return
					}
					backoff = nextBackoff(backoff)
					break consume
				}
				switch {
				case event.Fix != nil:
					o.Bus.Publish(*event.Fix)
					backoff = initialBackoff
				case event.Fault != nil:
					o.Bus.ReportFault(*event.Fault)
				}
			}
		}
	}
}

// safeWatch safely invokes the WatchStream method on a Provider and recovers
// from potential panics. Returns a read-only event channel or nil if the
// provider failed to start.
func (o *Orchestrator) safeWatch(ctx context.Context, provider Provider) (ch <-chan Event) {
	defer func() { _ = recover() }()
	return provider.WatchStream(ctx)
}
