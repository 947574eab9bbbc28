package fileinfo

import (
	"io"
	"os"
	"path/filepath"

	"github.com/daminals/orcanet-go/crypto"
)

// DefaultChunkSize is the chunk size used when a supplier registers a file
// without specifying one explicitly. It matches the transfer package's
// CHUNK_SIZE so that a freshly built FileInfo's chunk count always equals the
// number of chunk requests a consumer will make.
const DefaultChunkSize = 1 << 20 // 1 MiB

// BuildFileInfo reads the file at path and produces a FileInfo whose
// ChunkHashes are the SHA-256 digest of each fixed-size chunk (the final
// chunk may be short), the way Sia's renter hashes an upload's sectors before
// announcing them. chunkSize <= 0 selects DefaultChunkSize.
func BuildFileInfo(path string, chunkSize int64) (FileInfo, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return FileInfo{}, err
	}

	var chunkHashes []string
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			chunkHashes = append(chunkHashes, crypto.HashBytes(buf[:n]).String())
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return FileInfo{}, err
		}
	}

	whole, err := os.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	defer whole.Close()
	fileHash, err := crypto.ReaderMerkleRoot(whole)
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		FileHash:    fileHash.String(),
		ChunkHashes: chunkHashes,
		FileSize:    stat.Size(),
		FileName:    filepath.Base(path),
	}, nil
}

// NumChunks returns the number of fixed-size chunks a file of size
// fileSize is split into under chunkSize, matching the chunking the transfer
// package's chunk server uses to locate byte ranges.
func NumChunks(fileSize, chunkSize int64) int64 {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	n := fileSize / chunkSize
	if fileSize%chunkSize != 0 {
		n++
	}
	return n
}
