// Package market implements the Market Facade: the
// operations a supplier and a consumer actually call (RegisterFile,
// CheckHolders), sitting on top of the schema-agnostic dht.Coordinator and
// the marketplace merge semantics. It plays the role the teacher's
// modules/renter and modules/hostdb packages jointly play for Sia: a
// validation layer between the raw record store and the peer-facing API.
package market

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NebulousLabs/demotemutex"

	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/marketplace"
)

// Clock abstracts time.Now so tests can pin "now" exactly for deterministic
// expiration checks.
type Clock func() int64

// RealClock returns the current unix time in seconds.
func RealClock() int64 { return time.Now().Unix() }

// RecordStore is the subset of dht.Coordinator the facade depends on. It is
// declared locally (rather than importing the dht package's type) so the
// facade can be tested against a fake without pulling in libp2p.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Facade is the Market Facade: it owns no state of its own beyond the local
// self-ownership map (owned files not yet reflected by a round trip through
// the DHT).
type Facade struct {
	store RecordStore
	clock Clock

	mu    demotemutex.DemoteMutex
	owned map[string]marketplace.Supplier // FileInfoHash -> local identity
}

// New creates a Facade around store. If clock is nil, RealClock is used.
func New(store RecordStore, clock Clock) *Facade {
	if clock == nil {
		clock = RealClock
	}
	return &Facade{store: store, clock: clock, owned: make(map[string]marketplace.Supplier)}
}

func holdersKey(fi fileinfo.FileInfo) (string, string) {
	hash := fi.HashString()
	return marketplace.HoldersNamespace + "/" + hash, hash
}

func (f *Facade) load(ctx context.Context, key string) (marketplace.FileHolders, error) {
	var holders marketplace.FileHolders
	raw, err := f.store.Get(ctx, key)
	if err != nil {
		return holders, err
	}
	if len(raw) == 0 {
		return holders, nil
	}
	if err := json.Unmarshal(raw, &holders); err != nil {
		return marketplace.FileHolders{}, err
	}
	return holders, nil
}

// RegisterFile advertises supplier as a holder of file_info, extending its
// registration through expiration (default now+ExpirationWindow). If that
// expiration is still in the future it also records the registration in the
// local self-ownership map so that future CheckHolders calls for this file
// augment the response with supplier even before the write round-trips
// through the DHT; otherwise it clears any such local entry for the file.
func (f *Facade) RegisterFile(ctx context.Context, supplier marketplace.Supplier, fi fileinfo.FileInfo, expiration int64) error {
	key, hash := holdersKey(fi)
	if expiration == 0 {
		expiration = f.clock() + marketplace.ExpirationWindow
	}

	current, err := f.load(ctx, key)
	if err != nil {
		return err
	}
	if len(current.Holders) == 0 {
		current.FileInfo = fi
	}

	// Drop any entry whose expiration is already past or that belongs to
	// this same supplier id (it is about to be re-added with a fresh
	// expiration); this is the local pre-write step, kept
	// separate from the DHT-side merge that happens on Put.
	now := f.clock()
	kept := current.Holders[:0:0]
	for _, h := range current.Holders {
		if h.Expiration <= now || h.Supplier.ID == supplier.ID {
			continue
		}
		kept = append(kept, h)
	}
	kept = append(kept, marketplace.Holder{Supplier: supplier, Expiration: expiration})

	updated := marketplace.FileHolders{FileInfo: fi, Holders: kept}
	body, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	if err := f.store.Put(ctx, key, body); err != nil {
		return err
	}

	f.mu.Lock()
	if expiration > now {
		f.owned[hash] = supplier
	} else {
		delete(f.owned, hash)
	}
	f.mu.Unlock()
	return nil
}

// CheckHolders returns the file info and currently live holders for
// fileInfoHash, sweeping expired entries and augmenting the result with the
// local peer's own identity if it is a registered supplier of the file and
// no live holder already carries that supplier ID.
// It returns marketplace.ErrNotFound if no record exists for the hash at all.
func (f *Facade) CheckHolders(ctx context.Context, fileInfoHash string) (marketplace.HoldersResponse, error) {
	key := marketplace.HoldersNamespace + "/" + fileInfoHash

	current, err := f.load(ctx, key)
	if err != nil {
		return marketplace.HoldersResponse{}, err
	}
	if current.Holders == nil && current.FileInfo.FileHash == "" {
		return marketplace.HoldersResponse{}, marketplace.ErrNotFound
	}

	now := f.clock()
	// Expirations are inserted approximately in arrival order, permitting a
	// linear or binary scan for the dropped prefix; a merge from concurrent
	// writers can still perturb strict ordering, so every entry is checked
	// rather than trusting the scan blindly.
	live := current.Holders[:0:0]
	for _, h := range current.Holders {
		if h.Expiration > now {
			live = append(live, h)
		}
	}
	if len(live) != len(current.Holders) {
		swept := marketplace.FileHolders{FileInfo: current.FileInfo, Holders: live}
		body, merr := json.Marshal(swept)
		if merr == nil {
			// Best effort: a failed re-store here does not change what we
			// return to this caller, only whether the sweep is persisted.
			_ = f.store.Put(ctx, key, body)
		}
	}

	suppliers := make([]marketplace.Supplier, 0, len(live)+1)
	for _, h := range live {
		suppliers = append(suppliers, h.Supplier)
	}

	f.mu.RLock()
	self, isOwner := f.owned[fileInfoHash]
	f.mu.RUnlock()
	if isOwner {
		listed := false
		for _, s := range suppliers {
			if s.ID == self.ID {
				listed = true
				break
			}
		}
		if !listed {
			suppliers = append(suppliers, self)
		}
	}

	return marketplace.HoldersResponse{FileInfo: current.FileInfo, Holders: suppliers}, nil
}
