package market

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/marketplace"
)

// memStore is a RecordStore fake that applies marketplace.UpdateHolders on
// every Put, the same way dht.MergingDatastore does in production, so these
// tests exercise the facade against realistic merge semantics without
// pulling in libp2p.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	now  func() int64
}

func newMemStore(now func() int64) *memStore {
	return &memStore{data: make(map[string][]byte), now: now}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, content, _ := marketplace.SplitKey(key)
	var current, incoming marketplace.FileHolders
	_ = json.Unmarshal(m.data[key], &current)
	if err := json.Unmarshal(value, &incoming); err != nil {
		return nil
	}
	merged := marketplace.UpdateHolders(content, current, incoming, m.now())
	body, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	m.data[key] = body
	return nil
}

func testFileInfo() fileinfo.FileInfo {
	return fileinfo.FileInfo{FileHash: "deadbeef", ChunkHashes: []string{"a", "b"}, FileSize: 2048, FileName: "movie.mp4"}
}

func TestFacadeRegisterThenCheckHolders(t *testing.T) {
	now := int64(1_700_000_000)
	clock := func() int64 { return now }
	f := New(newMemStore(clock), clock)

	fi := testFileInfo()
	s1 := marketplace.Supplier{ID: "s1", Name: "alice"}

	if err := f.RegisterFile(context.Background(), s1, fi, 0); err != nil {
		t.Fatal(err)
	}

	resp, err := f.CheckHolders(context.Background(), fi.HashString())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Holders) != 1 || resp.Holders[0].ID != "s1" {
		t.Fatalf("expected [s1], got %+v", resp.Holders)
	}
}

func TestFacadeCheckHoldersNotFound(t *testing.T) {
	clock := func() int64 { return 1000 }
	f := New(newMemStore(clock), clock)

	_, err := f.CheckHolders(context.Background(), "nonexistent")
	if err != marketplace.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFacadeMaliciousShortenedExpirationScenario(t *testing.T) {
	now := int64(1_700_000_000)
	clock := func() int64 { return now }
	store := newMemStore(clock)
	f := New(store, clock)
	fi := testFileInfo()
	s1 := marketplace.Supplier{ID: "s1"}

	if err := f.RegisterFile(context.Background(), s1, fi, now+1000); err != nil {
		t.Fatal(err)
	}

	// A malicious write attempts to shorten s1's own expiration directly
	// against the store (bypassing RegisterFile, the way a remote peer's
	// put would arrive).
	key, _ := holdersKey(fi)
	malicious := marketplace.FileHolders{
		FileInfo: fi,
		Holders:  []marketplace.Holder{{Supplier: s1, Expiration: now - 1000}},
	}
	body, _ := json.Marshal(malicious)
	if err := store.Put(context.Background(), key, body); err != nil {
		t.Fatal(err)
	}

	resp, err := f.CheckHolders(context.Background(), fi.HashString())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Holders) != 1 || resp.Holders[0].ID != "s1" {
		t.Fatalf("expected s1 to survive the malicious shortened write, got %+v", resp.Holders)
	}
}

func TestFacadeTwoSupplierMergeScenario(t *testing.T) {
	now := int64(1_700_000_000)
	clock := func() int64 { return now }
	store := newMemStore(clock)
	f1 := New(store, clock)
	f2 := New(store, clock)
	fi := testFileInfo()

	if err := f1.RegisterFile(context.Background(), marketplace.Supplier{ID: "s1"}, fi, now+1000); err != nil {
		t.Fatal(err)
	}
	if err := f2.RegisterFile(context.Background(), marketplace.Supplier{ID: "s2"}, fi, now+1000); err != nil {
		t.Fatal(err)
	}

	resp, err := f1.CheckHolders(context.Background(), fi.HashString())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Holders) != 2 {
		t.Fatalf("expected both suppliers, got %+v", resp.Holders)
	}
}

func TestFacadeSelfOwnershipAugmentationNotWrittenToStore(t *testing.T) {
	now := int64(1_700_000_000)
	clock := func() int64 { return now }
	store := newMemStore(clock)
	f := New(store, clock)
	fi := testFileInfo()

	if err := f.RegisterFile(context.Background(), marketplace.Supplier{ID: "self"}, fi, now+1000); err != nil {
		t.Fatal(err)
	}

	// Reading the same store directly shows only what was actually written,
	// without self's non-DHT augmentation duplicated.
	key, _ := holdersKey(fi)
	raw, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	var stored marketplace.FileHolders
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.Holders) != 1 {
		t.Fatalf("expected exactly one stored holder, got %d", len(stored.Holders))
	}
}

func TestFacadeExpirationSweep(t *testing.T) {
	now := int64(1_700_000_000)
	clock := func() int64 { return now }
	store := newMemStore(clock)
	f := New(store, clock)
	fi := testFileInfo()

	if err := f.RegisterFile(context.Background(), marketplace.Supplier{ID: "s1"}, fi, now-1); err != nil {
		t.Fatal(err)
	}

	resp, err := f.CheckHolders(context.Background(), fi.HashString())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Holders) != 0 {
		t.Fatalf("expected expired holder to be swept, got %+v", resp.Holders)
	}
}
