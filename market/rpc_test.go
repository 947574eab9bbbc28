package market

import (
	"net/http/httptest"
	"testing"

	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/marketplace"
)

func TestRPCRoundTrip(t *testing.T) {
	now := int64(1_700_000_000)
	clock := func() int64 { return now }
	facade := New(newMemStore(clock), clock)
	srv := NewServer(facade)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	client := NewClient(ts.URL)

	fi := fileinfo.FileInfo{FileHash: "deadbeef", ChunkHashes: []string{"a"}, FileSize: 1024, FileName: "movie.mp4"}
	supplier := marketplace.Supplier{ID: "s1", Name: "alice", Port: 4001, Price: 5}

	hash, err := client.RegisterFile(supplier, fi, now+1000)
	if err != nil {
		t.Fatal(err)
	}
	if hash != fi.HashString() {
		t.Fatalf("expected hash %s, got %s", fi.HashString(), hash)
	}

	resp, err := client.CheckHolders(hash)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Holders) != 1 || resp.Holders[0].ID != "s1" {
		t.Fatalf("expected [s1], got %+v", resp.Holders)
	}
}

func TestRPCCheckHoldersNotFound(t *testing.T) {
	clock := func() int64 { return 1000 }
	facade := New(newMemStore(clock), clock)
	srv := NewServer(facade)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	client := NewClient(ts.URL)

	if _, err := client.CheckHolders("nonexistent"); err != marketplace.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
