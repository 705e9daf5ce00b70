// Package pool implements a lease-based exclusive resource pool: many
// independent worker processes compete for exclusive, time-bounded ownership
// of a small fixed set of scarce resources (outbound proxy addresses), using
// a shared key-value store's compare-and-swap as the only synchronization
// point. There is no lock server and no explicit release: a holder keeps its
// lease alive through a background renewal task, and a crashed holder's lease
// simply expires.
package pool

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultLeaseDuration bounds how long a lease survives without renewal.
const DefaultLeaseDuration = 15 * time.Second

// Config describes one pool instance competing for a set of resources.
type Config struct {
	// Resources is the candidate set of resource identifiers. Must be
	// non-empty; read-only after construction.
	Resources []string

	// LockName identifies the competitor class, not the process: it is both
	// the holder written into won leases and the token the compare-and-swap
	// expects. Two processes configured with the same LockName are treated
	// as one competitor and will silently take over each other's lease, so
	// exclusivity holds per distinct LockName, not per process.
	LockName string

	// Namespace prefixes every lease key so pools sharing one store
	// instance never collide.
	Namespace string

	// LeaseDuration defaults to DefaultLeaseDuration when zero.
	LeaseDuration time.Duration

	// NoLock selects the single-resource fast path: Acquire returns the
	// first configured resource with no store access and no coordination.
	// For deployments with one resource and no competitors.
	NoLock bool
}

// Pool coordinates exclusive ownership of one resource out of a small
// candidate set. All mutual exclusion is externalized to the store's
// compare-and-swap; the pool holds no in-process locks, so correctness is
// unchanged when competitors run in separate processes.
type Pool struct {
	store     LeaseStore
	resources []string
	lockName  string
	namespace string
	leaseDur  time.Duration
	noLock    bool

	clock clock.Clock
	done  chan struct{}
}

func New(store LeaseStore, cfg Config) (*Pool, error) {
	if len(cfg.Resources) == 0 {
		return nil, errors.New("pool: empty resource set")
	}
	dur := cfg.LeaseDuration
	if dur <= 0 {
		dur = DefaultLeaseDuration
	}
	resources := make([]string, len(cfg.Resources))
	copy(resources, cfg.Resources)
	return &Pool{
		store:     store,
		resources: resources,
		lockName:  cfg.LockName,
		namespace: cfg.Namespace,
		leaseDur:  dur,
		noLock:    cfg.NoLock,
		clock:     clock.New(),
	}, nil
}

// Acquire tries to win exclusive ownership of one resource. On success it
// starts the background renewal task, bound to ctx, and returns the winning
// resource identifier. ok is false when no candidate could be won; the caller
// owns the retry policy. A store error during the scan counts as a lost
// attempt on that candidate, so an unreachable store is indistinguishable
// from full contention.
func (p *Pool) Acquire(ctx context.Context) (resource string, ok bool) {
	if p.noLock {
		p.startRenewal(ctx, p.resources[0])
		return p.resources[0], true
	}

	order := p.shuffled()
	p.cleanupExpired(ctx, order)

	for _, id := range order {
		rec := LeaseRecord{
			HolderID:  p.lockName,
			ExpiresAt: unixSeconds(p.clock.Now().Add(p.leaseDur)),
		}
		committed, _, err := p.store.CompareAndSwap(ctx, leaseKey(p.namespace, id), rec, p.lockName)
		if err != nil {
			log.Printf("pool acquire_cas_error resource=%s err=%v", id, err)
			continue
		}
		if committed {
			p.startRenewal(ctx, id)
			return id, true
		}
	}
	return "", false
}

// cleanupExpired deletes records whose expiry has passed, to bound storage
// growth. Purely advisory: errors are skipped, and a racing competitor may
// delete or re-acquire the same key concurrently.
func (p *Pool) cleanupExpired(ctx context.Context, order []string) {
	now := p.clock.Now()
	for _, id := range order {
		key := leaseKey(p.namespace, id)
		rec, err := p.store.Get(ctx, key)
		if err != nil || rec == nil {
			continue
		}
		if rec.Expired(now) {
			if err := p.store.Delete(ctx, key); err != nil {
				log.Printf("pool cleanup_delete_error resource=%s err=%v", id, err)
			}
		}
	}
}

// shuffled returns the candidate set in a fresh random order. Reshuffling on
// every call spreads competitors across resources; with a fixed order every
// instance would fight over the same candidate at startup.
func (p *Pool) shuffled() []string {
	order := make([]string, len(p.resources))
	copy(order, p.resources)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
