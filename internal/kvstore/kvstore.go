// Package kvstore defines the namespaced put/get store consumed by the
// admission pipeline (job dedup) and the dispatcher (JobEntry durability).
// The production implementation persists to bbolt, the durable store the
// teacher already reaches for (orchestrator/persistence.go); a Memory
// implementation backs tests. A Consul-backed implementation is out of
// scope (spec.md §1) — callers depend only on the KVStore interface.
package kvstore

import "fmt"

// KVStore is a namespaced put/get store of UTF-8 string values.
type KVStore interface {
	// ID returns this server instance's identifier, recorded in every
	// JobEntry as lastRunFrom.
	ID() string

	// SetKey idempotently stores value at key.
	SetKey(key, value string) error

	// GetKey returns the stored value and true, or ("", false, nil) if
	// key is absent. An error indicates a store failure, not absence.
	GetKey(key string) (string, bool, error)

	// PrependNamespace renders "{namespace}/{key}".
	PrependNamespace(key string) string

	Close() error
}

// NamespaceKey is a small helper mirroring KVStore.PrependNamespace for
// call sites that only have a namespace string, not a store instance.
func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s/%s", namespace, key)
}
