// Package dht implements the DHT record engine: namespaced
// keys, a schema registry of merge-on-put functions, a local put filter
// backed by go-libp2p-kad-dht, and a single coordinator task that owns the
// libp2p host and serializes all get/put traffic.
//
// The engine is deliberately schema-agnostic: it knows nothing about FileHolders, Supplier, or any
// other marketplace type. Callers register a MergeFunc per namespace;
// RegisterMarketplaceSchemas (namespaces.go) is what wires
// marketplace.UpdateHolders in under marketplace.HoldersNamespace.
package dht

import (
	"sync"

	"github.com/NebulousLabs/errors"

	"github.com/daminals/orcanet-go/build"
)

// ErrUnknownNamespace is returned when a key's namespace has no registered
// merge function.
var ErrUnknownNamespace = errors.New("dht: no merge function registered for namespace")

// MergeFunc is a schema-specific put filter: given the raw content portion
// of a key (the part after "<namespace>/") and the current and incoming
// serialized values, it returns the serialized value that should replace the
// local copy. Implementations must be deterministic, idempotent, and
// monotone; in particular they must never panic on
// adversarial input, and any rejected input should simply fall back to
// returning current unchanged.
type MergeFunc func(content string, current, incoming []byte) []byte

// Registry maps DHT key namespaces to their merge function.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]MergeFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]MergeFunc)}
}

// Register installs fn as the merge function for namespace. It is safe to
// call concurrently with Merge, but registering the same namespace twice
// overwrites the previous registration, so callers should register all
// namespaces during startup before traffic begins.
func (r *Registry) Register(namespace string, fn MergeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[namespace] = fn
}

// Merge looks up the merge function for key's namespace and applies it. If
// no namespace is registered, ErrUnknownNamespace is returned and the caller
// should treat the write as rejected (never persisted, never propagated).
func (r *Registry) Merge(namespace, content string, current, incoming []byte) (merged []byte, err error) {
	r.mu.RLock()
	fn, ok := r.funcs[namespace]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownNamespace
	}

	// A MergeFunc panicking is a contract violation (it must be total over
	// its input), not an adversarial-input case; surface it the way a failed
	// sanity check anywhere else in the program would.
	defer func() {
		if rec := recover(); rec != nil {
			build.Critical("merge function panicked", namespace, rec)
			merged, err = current, nil
		}
	}()
	return fn(content, current, incoming), nil
}
