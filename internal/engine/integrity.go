package engine

// VerifyDownload reconciles the final counters against the expected totals.
// Both the byte count and the chunk count must match exactly; a passing
// check is the only path to reporting success. The engine does not retry at
// this level.
func VerifyDownload(downloadedBytes, totalSize, completedChunks, totalChunks int64) error {
	if downloadedBytes != totalSize || completedChunks != totalChunks {
		return &IntegrityError{
			DownloadedBytes: downloadedBytes,
			TotalSize:       totalSize,
			CompletedChunks: completedChunks,
			TotalChunks:     totalChunks,
		}
	}
	return nil
}
