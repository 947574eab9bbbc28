package dht

import (
	"context"

	kaddht "github.com/libp2p/go-libp2p-kad-dht"
)

// RecordStore is the narrow surface the coordinator needs from a DHT
// implementation. It exists so the coordinator's serialization behavior can
// be exercised in tests against an in-memory fake instead of a real libp2p
// swarm.
type RecordStore interface {
	PutRecord(ctx context.Context, key string, value []byte) error
	GetRecord(ctx context.Context, key string) ([]byte, error)
}

// Libp2pStore adapts a *kaddht.IpfsDHT to RecordStore. Key namespacing is the
// caller's responsibility (marketplace.BuildKey); the "/" prefix
// go-libp2p-kad-dht itself requires on top of that is added here.
type Libp2pStore struct {
	DHT *kaddht.IpfsDHT
}

// NewLibp2pStore wraps d.
func NewLibp2pStore(d *kaddht.IpfsDHT) *Libp2pStore {
	return &Libp2pStore{DHT: d}
}

func (s *Libp2pStore) PutRecord(ctx context.Context, key string, value []byte) error {
	return s.DHT.PutValue(ctx, "/"+key, value)
}

func (s *Libp2pStore) GetRecord(ctx context.Context, key string) ([]byte, error) {
	return s.DHT.GetValue(ctx, "/"+key)
}
