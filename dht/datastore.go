package dht

import (
	"context"

	ds "github.com/ipfs/go-datastore"
	dsquery "github.com/ipfs/go-datastore/query"

	"github.com/daminals/orcanet-go/marketplace"
)

// MergingDatastore wraps a go-datastore Batching store and runs every Put —
// whether it originates from our own PutValue call or arrives over the wire
// through go-libp2p-kad-dht's Kademlia protocol handler — through the
// registered namespace's merge function before it is persisted. This is the
// concrete realization of the engine's local put filter: by installing
// this type as the DHT's backing datastore (the dht.Datastore(...) libp2p
// option), every record put anywhere in the system is filtered the same way,
// regardless of whether the write was local or remote.
type MergingDatastore struct {
	ds.Batching
	registry *Registry
}

// NewMergingDatastore wraps backing with the put filter driven by registry.
func NewMergingDatastore(backing ds.Batching, registry *Registry) *MergingDatastore {
	return &MergingDatastore{Batching: backing, registry: registry}
}

// Put implements ds.Datastore. key is expected to carry the
// "/<namespace>/<content>" layout go-libp2p-kad-dht uses internally for
// provider/value records; namespace and content are recovered from it via
// SplitDatastoreKey.
func (m *MergingDatastore) Put(ctx context.Context, key ds.Key, value []byte) error {
	namespace, content, ok := SplitDatastoreKey(key)
	if !ok {
		// Not a key shape any registered schema recognizes (e.g. internal
		// bookkeeping keys go-libp2p-kad-dht itself uses); pass through
		// unfiltered.
		return m.Batching.Put(ctx, key, value)
	}

	current, err := m.Batching.Get(ctx, key)
	if err != nil && err != ds.ErrNotFound {
		return err
	}

	merged, mergeErr := m.registry.Merge(namespace, content, current, value)
	if mergeErr != nil {
		// Unknown namespace: drop adversarial/unrecognized input silently
		// rather than surface an error to the remote writer.
		return nil
	}
	return m.Batching.Put(ctx, key, merged)
}

// Query delegates to the backing store; the merge filter only concerns
// writes.
func (m *MergingDatastore) Query(ctx context.Context, q dsquery.Query) (dsquery.Results, error) {
	return m.Batching.Query(ctx, q)
}

// SplitDatastoreKey recovers the "<namespace>/<content>" pair from a
// go-datastore Key of the form "/<namespace>/<content>".
func SplitDatastoreKey(key ds.Key) (namespace, content string, ok bool) {
	return marketplace.SplitKey(trimLeadingSlash(key.String()))
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}
