//go:build integration

package pool_test

import (
	"context"
	"testing"
	"time"

	"egress-pool-worker/internal/pool"
)

func TestPool_Integration_CompetitorsSplitAndReclaim(t *testing.T) {
	client, _ := newTestRedis(t)
	store := pool.NewRedisStore(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := pool.Config{
		Resources:     []string{"A", "B"},
		Namespace:     "it/socks-pool",
		LeaseDuration: time.Second,
	}

	cfgX := cfg
	cfgX.LockName = "worker-x"
	x, err := pool.New(store, cfgX)
	if err != nil {
		t.Fatal(err)
	}

	cfgY := cfg
	cfgY.LockName = "worker-y"
	y, err := pool.New(store, cfgY)
	if err != nil {
		t.Fatal(err)
	}

	ctxX, cancelX := context.WithCancel(ctx)

	gotX, ok := x.Acquire(ctxX)
	if !ok {
		t.Fatal("expected X to acquire")
	}

	gotY, ok := y.Acquire(ctx)
	if !ok {
		t.Fatal("expected Y to acquire the remaining resource")
	}
	if gotY == gotX {
		t.Fatalf("X and Y both hold %q", gotX)
	}

	cfgZ := cfg
	cfgZ.LockName = "worker-z"
	z, err := pool.New(store, cfgZ)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := z.Acquire(ctx); ok {
		t.Fatalf("expected Z to acquire nothing, got %q", got)
	}

	// Stop X's renewal and wait out the lease; Z reclaims X's resource.
	cancelX()
	<-x.Done()
	time.Sleep(cfg.LeaseDuration + 500*time.Millisecond)

	gotZ, ok := z.Acquire(ctx)
	if !ok {
		t.Fatal("expected Z to reclaim the expired resource")
	}
	if gotZ != gotX {
		t.Fatalf("expected Z to win %q, got %q", gotX, gotZ)
	}
}
