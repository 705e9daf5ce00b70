package pool

import "context"

// LeaseStore is the shared coordination medium. CompareAndSwap is the only
// cross-process synchronization point the pool relies on; it is assumed atomic
// and totally ordered per key, with no ordering assumed across keys.
type LeaseStore interface {
	// Get returns the record stored at key, or nil if the key is absent.
	Get(ctx context.Context, key string) (*LeaseRecord, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndSwap writes rec at key if the key is absent or if the stored
	// record's holder equals expectedHolder. It reports whether the write
	// committed and, when it did not, the record actually present.
	CompareAndSwap(ctx context.Context, key string, rec LeaseRecord, expectedHolder string) (committed bool, current *LeaseRecord, err error)
}
