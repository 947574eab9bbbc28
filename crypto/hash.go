package crypto

// hash.go supplies general-purpose hashing on top of SHA-256. The marketplace
// protocol is specified entirely in terms of SHA-256 (FileInfoHash, wallet
// addresses), so unlike the teacher's blake2b-based crypto package this one
// standardizes on the stdlib implementation rather than pulling in an
// alternate hash function.

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash"
)

const (
	// HashSize is the length, in bytes, of a Hash.
	HashSize = sha256.Size
)

type (
	// Hash is a SHA-256 digest.
	Hash [HashSize]byte

	// HashSlice is used for sorting hashes.
	HashSlice []Hash
)

var (
	// ErrHashWrongLen is returned when a hex string cannot be decoded into a
	// Hash because it has the wrong length.
	ErrHashWrongLen = errors.New("encoded value has the wrong length to be a hash")
)

// NewHash returns a new SHA-256 hasher.
func NewHash() hash.Hash {
	return sha256.New()
}

// HashBytes returns the SHA-256 digest of data.
func HashBytes(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// HashAll concatenates an encoding of each of objs and hashes the result:
// []byte and string values are appended as their raw bytes, every other
// value as its JSON encoding. It is used for ad-hoc hashing of heterogeneous values; wire
// identifiers with a precisely specified byte layout (FileInfoHash, the
// wallet address) are computed by their own packages instead of relying on
// this generic encoding.
func HashAll(objs ...interface{}) Hash {
	var b []byte
	for _, obj := range objs {
		switch v := obj.(type) {
		case []byte:
			b = append(b, v...)
		case string:
			b = append(b, []byte(v)...)
		default:
			enc, err := json.Marshal(obj)
			if err != nil {
				panic(err)
			}
			b = append(b, enc...)
		}
	}
	return HashBytes(b)
}

// HashObject JSON-encodes obj and hashes the result.
func HashObject(obj interface{}) Hash {
	return HashAll(obj)
}

// These functions implement sort.Interface, allowing hashes to be sorted.
func (hs HashSlice) Len() int           { return len(hs) }
func (hs HashSlice) Less(i, j int) bool { return bytes.Compare(hs[i][:], hs[j][:]) < 0 }
func (hs HashSlice) Swap(i, j int)      { hs[i], hs[j] = hs[j], hs[i] }

// String prints the hash in hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// LoadString loads a hash from a hex string.
func (h *Hash) LoadString(s string) error {
	if len(s) != HashSize*2 {
		return ErrHashWrongLen
	}
	hBytes, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(h[:], hBytes)
	return nil
}

// MarshalJSON marshals a hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes the JSON hex string of the hash.
func (h *Hash) UnmarshalJSON(b []byte) error {
	// *2 because there are 2 hex characters per byte.
	// +2 because the encoded JSON string has a `"` added at the beginning and end.
	if len(b) != HashSize*2+2 {
		return ErrHashWrongLen
	}

	// b[1 : len(b)-1] cuts off the leading and trailing `"` in the JSON string.
	hBytes, err := hex.DecodeString(string(b[1 : len(b)-1]))
	if err != nil {
		return errors.New("could not unmarshal crypto.Hash: " + err.Error())
	}
	copy(h[:], hBytes)
	return nil
}
