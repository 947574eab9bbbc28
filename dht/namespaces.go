package dht

import (
	"encoding/json"
	"time"

	"github.com/daminals/orcanet-go/marketplace"
)

// RegisterMarketplaceSchemas installs the marketplace package's merge
// functions into registry. This is the one place in the dht package that
// knows about a concrete record schema; everything else in this package is
// schema-agnostic.
func RegisterMarketplaceSchemas(registry *Registry) {
	registry.Register(marketplace.HoldersNamespace, mergeFileHolders)
}

// mergeFileHolders adapts marketplace.UpdateHolders (which operates on typed
// FileHolders values) to the byte-oriented MergeFunc the registry expects.
// A malformed current record is treated as empty, so that a single corrupt
// stored payload can never wedge a key; a malformed incoming record is
// rejected and current is returned unchanged.
func mergeFileHolders(content string, current, incoming []byte) []byte {
	var currentHolders, incomingHolders marketplace.FileHolders
	_ = json.Unmarshal(current, &currentHolders)
	if err := json.Unmarshal(incoming, &incomingHolders); err != nil {
		// Incoming is not valid FileHolders JSON at all; reject by returning
		// current unchanged.
		if current == nil {
			return nil
		}
		return current
	}

	merged := marketplace.UpdateHolders(content, currentHolders, incomingHolders, time.Now().Unix())
	out, err := json.Marshal(merged)
	if err != nil {
		return current
	}
	return out
}
