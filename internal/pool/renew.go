package pool

import (
	"context"
	"log"
)

// startRenewal launches the background task that keeps a won lease fresh.
// Cancelling ctx is the only release path: renewal stops and the lease
// expires on its own, which is what makes recovery after a crash automatic.
func (p *Pool) startRenewal(ctx context.Context, resource string) {
	done := make(chan struct{})
	p.done = done
	go func() {
		defer close(done)
		p.renew(ctx, resource)
	}()
}

// Done closes when the renewal task from the most recent successful Acquire
// exits, whether by cancellation or by losing a renewal race. It returns nil
// before the first successful Acquire.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

func (p *Pool) renew(ctx context.Context, resource string) {
	if p.noLock {
		// Nothing to coordinate; stay alive until the owner cancels.
		<-ctx.Done()
		return
	}

	key := leaseKey(p.namespace, resource)
	interval := p.leaseDur / 3

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(interval):
		}

		rec := LeaseRecord{
			HolderID:  p.lockName,
			ExpiresAt: unixSeconds(p.clock.Now().Add(p.leaseDur)),
		}
		committed, current, err := p.store.CompareAndSwap(ctx, key, rec, p.lockName)
		if err != nil {
			log.Printf("pool renew_error resource=%s holder=%s err=%v", resource, p.lockName, err)
			return
		}
		if !committed {
			// A holder that renews on time should never lose this race;
			// it means the lease window was exceeded (store outage, clock
			// skew) and another competitor took over. Retrying would
			// violate that competitor's exclusivity.
			takenBy := ""
			if current != nil {
				takenBy = current.HolderID
			}
			log.Printf("pool renew_lost resource=%s holder=%s taken_by=%s", resource, p.lockName, takenBy)
			return
		}
	}
}
