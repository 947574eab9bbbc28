// Package fileinfo defines the content-addressed identifier shared by every
// other package in this module: FileInfo and its canonical hash,
// FileInfoHash. Two FileInfos with the same FileInfoHash are semantically
// identical regardless of which peer computed them.
package fileinfo

import (
	"strconv"

	"github.com/daminals/orcanet-go/crypto"
)

// FileInfo describes a file available on the marketplace: its content hash,
// the ordered hashes of its fixed-size chunks, its total size, and its
// display name.
type FileInfo struct {
	FileHash    string   `json:"file_hash"`
	ChunkHashes []string `json:"chunk_hashes"`
	FileSize    int64    `json:"file_size"`
	FileName    string   `json:"file_name"`
}

// Hash computes the FileInfoHash: the SHA-256 digest of
// file_hash ∥ concat(chunk_hashes) ∥ decimal(file_size) ∥ file_name.
// The concatenation is over raw bytes, not a JSON or other self-describing
// encoding, so that two independently constructed FileInfos with identical
// fields always hash identically regardless of field ordering in memory.
func (fi FileInfo) Hash() crypto.Hash {
	var b []byte
	b = append(b, []byte(fi.FileHash)...)
	for _, ch := range fi.ChunkHashes {
		b = append(b, []byte(ch)...)
	}
	b = append(b, []byte(strconv.FormatInt(fi.FileSize, 10))...)
	b = append(b, []byte(fi.FileName)...)
	return crypto.HashBytes(b)
}

// HashString is a convenience wrapper around Hash that returns the hex
// representation used as the DHT key suffix and external content
// identifier.
func (fi FileInfo) HashString() string {
	return fi.Hash().String()
}

// Equal reports whether two FileInfos are semantically identical, i.e. share
// a FileInfoHash.
func (fi FileInfo) Equal(other FileInfo) bool {
	return fi.Hash() == other.Hash()
}
