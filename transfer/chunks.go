package transfer

// DefaultChunkSize matches fileinfo.DefaultChunkSize; kept as a separate
// constant here since the transfer protocol's chunk size is a server
// configuration choice, not an inherent property of FileInfo, even though
// in practice suppliers register files chunked the same way they serve them.
const DefaultChunkSize = 1 << 20 // 1 MiB

const bytesPerMB = 1024 * 1024

// ceilMB rounds size up to the nearest whole megabyte count, as an integer
// number of MB: total_price = ceil_MB(file_size) * price_per_mb.
func ceilMB(size int64) int64 {
	return (size + bytesPerMB - 1) / bytesPerMB
}

// chunkByteRange returns the half-open [start, end) byte range of chunk
// index n within a file of the given size and chunkSize. ok is false if n is
// past the end of the file.
func chunkByteRange(fileSize, chunkSize, n int64) (start, end int64, ok bool) {
	start = n * chunkSize
	if start >= fileSize {
		return 0, 0, false
	}
	end = start + chunkSize
	if end > fileSize {
		end = fileSize
	}
	return start, end, true
}

// valueForBytes computes the ledger-unit cost (in the same currency the
// invoice/ledger amounts use) of n bytes at pricePerMB. This floating-point
// arithmetic is a known source of possible consumer under-payment at chunk
// boundaries; the formula is kept exact rather than pre-empting a fix that
// would change the wire-visible price.
func valueForBytes(n, pricePerMB int64) float64 {
	return float64(n) * float64(pricePerMB) / float64(bytesPerMB)
}
