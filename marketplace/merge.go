package marketplace

// UpdateHolders is the schema-specific merge function invoked on every
// local write to a FileHolders record, whether it originated
// locally or arrived from a remote peer. It is deterministic, idempotent,
// commutative for same-epoch inputs, and monotone: anti-deletion holds
// because current's entries are always present in the union before
// expiration filtering, and key-hash consistency holds because a mismatched
// incoming record is rejected wholesale.
//
// now is passed in explicitly (rather than read from a clock) so that the
// function is pure and trivially property-testable.
func UpdateHolders(key string, current, incoming FileHolders, now int64) FileHolders {
	// Key-hash consistency: an incoming record whose embedded file_info
	// doesn't match the key it's being written under is entirely rejected
	// and current is returned unchanged. This is the only defense against a
	// malicious writer overwriting another file's holder list by key
	// collision.
	if incoming.FileInfo.HashString() != key {
		return current
	}

	// Holders are kept in a slice, not a map, so that the arrival order
	// current.Holders was built up in survives a merge: check_holders relies
	// on expirations being approximately insertion-ordered for its scan.
	// A malicious writer submitting an empty or
	// reordered incoming list can still only ever grow this slice or bump an
	// existing entry's expiration upward, never remove or reorder entries
	// that came from current.
	holders := append([]Holder(nil), current.Holders...)
	index := make(map[string]int, len(holders))
	for i, h := range holders {
		index[h.Supplier.ID] = i
	}

	for _, h := range incoming.Holders {
		// Reject holder entries whose expiration is in the past or further
		// than ExpirationWindow in the future; such entries are dropped
		// individually, the rest of the incoming record is still processed.
		if h.Expiration < now || h.Expiration > now+ExpirationWindow {
			continue
		}
		if i, ok := index[h.Supplier.ID]; ok {
			// Union holders by supplier ID, keeping the maximum-but-capped
			// expiration. A malicious writer cannot shorten or delete an
			// existing live entry by resubmitting a shorter expiration or an
			// empty list: entries only ever move forward here.
			exp := holders[i].Expiration
			if h.Expiration > exp {
				exp = h.Expiration
			}
			if exp > now+ExpirationWindow {
				exp = now + ExpirationWindow
			}
			holders[i].Expiration = exp
		} else {
			index[h.Supplier.ID] = len(holders)
			holders = append(holders, h)
		}
	}

	fi := current.FileInfo
	if len(current.Holders) == 0 {
		// current was an empty template; adopt incoming's FileInfo (already
		// verified consistent with key above).
		fi = incoming.FileInfo
	}
	return FileHolders{FileInfo: fi, Holders: holders}
}
