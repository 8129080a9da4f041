package engine

// Chunk sizing is tiered by total file size: small files get small chunks to
// keep parallelism useful, huge files get large chunks to bound the request
// count (tens of thousands of range requests invite rate limiting and waste
// time on TLS handshakes).
const (
	chunkSizeSmall  = 512 * 1024
	chunkSizeMedium = 4 * 1024 * 1024
	chunkSizeLarge  = 16 * 1024 * 1024
	chunkSizeHuge   = 64 * 1024 * 1024
)

// ChunkSize returns the per-chunk byte size for a file of totalSize bytes.
func ChunkSize(totalSize int64) int64 {
	switch {
	case totalSize < 100*1024*1024:
		return chunkSizeSmall
	case totalSize < 1024*1024*1024:
		return chunkSizeMedium
	case totalSize < 10*1024*1024*1024:
		return chunkSizeLarge
	default:
		return chunkSizeHuge
	}
}

// Chunking describes how a file is split into byte-range chunks.
type Chunking struct {
	TotalSize   int64
	ChunkSize   int64
	TotalChunks int64
}

func Partition(totalSize int64) Chunking {
	size := ChunkSize(totalSize)
	return Chunking{
		TotalSize:   totalSize,
		ChunkSize:   size,
		TotalChunks: (totalSize + size - 1) / size,
	}
}

// Range returns the inclusive byte range and expected size of chunk idx.
// Only the final chunk may be shorter than ChunkSize.
func (c Chunking) Range(idx int64) (start, end, expected int64) {
	start = idx * c.ChunkSize
	end = start + c.ChunkSize - 1
	if end >= c.TotalSize {
		end = c.TotalSize - 1
	}
	return start, end, end - start + 1
}
