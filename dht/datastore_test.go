package dht

import (
	"context"
	"encoding/json"
	"testing"

	ds "github.com/ipfs/go-datastore"

	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/marketplace"
)

func TestMergingDatastorePassesThroughUnknownNamespace(t *testing.T) {
	backing := ds.NewMapDatastore()
	reg := NewRegistry()
	m := NewMergingDatastore(backing, reg)

	key := ds.NewKey("/bogus")
	if err := m.Put(context.Background(), key, []byte("raw")); err != nil {
		t.Fatal(err)
	}
	got, err := backing.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "raw" {
		t.Fatalf("expected passthrough value, got %q", got)
	}
}

func TestMergingDatastoreAppliesMergeFunc(t *testing.T) {
	backing := ds.NewMapDatastore()
	reg := NewRegistry()
	RegisterMarketplaceSchemas(reg)
	m := NewMergingDatastore(backing, reg)

	fi := fileinfo.FileInfo{FileHash: "deadbeef", ChunkHashes: []string{"a"}, FileSize: 10, FileName: "f"}
	hash := fi.HashString()
	key := ds.NewKey("/" + marketplace.HoldersNamespace + "/" + hash)

	first := marketplace.FileHolders{
		FileInfo: fi,
		Holders: []marketplace.Holder{{
			Supplier:   marketplace.Supplier{ID: "s1"},
			Expiration: 1000,
		}},
	}
	b, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Put(context.Background(), key, b); err != nil {
		t.Fatal(err)
	}

	second := marketplace.FileHolders{
		FileInfo: fi,
		Holders: []marketplace.Holder{{
			Supplier:   marketplace.Supplier{ID: "s2"},
			Expiration: 1000,
		}},
	}
	b2, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Put(context.Background(), key, b2); err != nil {
		t.Fatal(err)
	}

	stored, err := backing.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	var merged marketplace.FileHolders
	if err := json.Unmarshal(stored, &merged); err != nil {
		t.Fatal(err)
	}
	if len(merged.Holders) != 2 {
		t.Fatalf("expected both holders to survive the merge, got %d", len(merged.Holders))
	}
}
