package dht

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory RecordStore used to exercise the coordinator
// without a real libp2p swarm.
type fakeStore struct {
	mu      sync.Mutex
	records map[string][]byte
	gets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]byte)}
}

func (f *fakeStore) GetRecord(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return f.records[key], nil
}

func (f *fakeStore) PutRecord(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = value
	return nil
}

func TestCoordinatorPutThenGet(t *testing.T) {
	store := newFakeStore()
	reg := NewRegistry()
	reg.Register("ns", func(content string, current, incoming []byte) []byte {
		return append(append([]byte{}, current...), incoming...)
	})
	c := New(store, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	opCtx, opCancel := context.WithTimeout(context.Background(), time.Second)
	defer opCancel()

	if err := c.Put(opCtx, "ns/k", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(opCtx, "ns/k", []byte("b")); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(opCtx, "ns/k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ab" {
		t.Fatalf("expected \"ab\", got %q", got)
	}
}

func TestCoordinatorCoalescesConcurrentGets(t *testing.T) {
	store := newFakeStore()
	store.records["ns/k"] = []byte("v")
	reg := NewRegistry()
	c := New(store, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	opCtx, opCancel := context.WithTimeout(context.Background(), time.Second)
	defer opCancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(opCtx, "ns/k")
			if err != nil {
				t.Error(err)
			}
			if string(got) != "v" {
				t.Errorf("expected \"v\", got %q", got)
			}
		}()
	}
	wg.Wait()
}

func TestCoordinatorUnknownNamespaceRejected(t *testing.T) {
	store := newFakeStore()
	reg := NewRegistry()
	c := New(store, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	opCtx, opCancel := context.WithTimeout(context.Background(), time.Second)
	defer opCancel()

	if err := c.Put(opCtx, "unknown/k", []byte("x")); err != ErrUnknownNamespace {
		t.Fatalf("expected ErrUnknownNamespace, got %v", err)
	}
}
