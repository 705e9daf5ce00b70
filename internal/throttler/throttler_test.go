package throttler

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestThrottler(interval time.Duration) (*Throttler, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	th := New(interval)
	th.clock = mock
	return th, mock
}

func TestMayPass_FirstCallPasses(t *testing.T) {
	th, _ := newTestThrottler(10 * time.Second)

	if !th.MayPass("orderbook", "binance") {
		t.Fatal("expected first call to pass")
	}
}

func TestMayPass_BlocksInsideCooldown(t *testing.T) {
	th, mock := newTestThrottler(10 * time.Second)

	th.MayPass("orderbook", "binance")

	mock.Add(5 * time.Second)
	if th.MayPass("orderbook", "binance") {
		t.Fatal("expected call inside cooldown to be blocked")
	}

	mock.Add(6 * time.Second)
	if !th.MayPass("orderbook", "binance") {
		t.Fatal("expected call after cooldown to pass")
	}
}

func TestMayPass_TagsAreIndependent(t *testing.T) {
	th, _ := newTestThrottler(10 * time.Second)

	if !th.MayPass("orderbook", "binance") {
		t.Fatal("expected first call to pass")
	}
	if !th.MayPass("orderbook", "bybit") {
		t.Fatal("expected call with a different tag to pass")
	}
}

func TestUntil_ReportsRemainingCooldown(t *testing.T) {
	th, mock := newTestThrottler(10 * time.Second)

	if got := th.Until("orderbook", "binance"); got != 0 {
		t.Fatalf("expected zero cooldown before first pass, got %v", got)
	}

	th.MayPass("orderbook", "binance")
	mock.Add(4 * time.Second)

	if got := th.Until("orderbook", "binance"); got != 6*time.Second {
		t.Fatalf("expected 6s remaining, got %v", got)
	}

	mock.Add(7 * time.Second)
	if got := th.Until("orderbook", "binance"); got != 0 {
		t.Fatalf("expected zero cooldown after interval, got %v", got)
	}
}
