package pool

import "time"

// LeaseRecord is the value stored per resource: who holds it and until when.
// ExpiresAt is absolute unix seconds. A record whose ExpiresAt has passed
// imposes no exclusivity regardless of HolderID; its presence and its absence
// both mean "free".
type LeaseRecord struct {
	HolderID  string  `json:"holder_id"`
	ExpiresAt float64 `json:"expires_at"`
}

func (r LeaseRecord) Expired(now time.Time) bool {
	return r.ExpiresAt < unixSeconds(now)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// leaseKey derives the store key for one resource. It is a pure function of
// (namespace, resourceID), so pools with distinct namespaces never collide on
// the same resource.
func leaseKey(namespace, resourceID string) string {
	return namespace + "/" + resourceID
}
