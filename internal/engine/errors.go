package engine

import "fmt"

// NetworkError covers connect/read failures and non-success status codes.
// Chunk-level network errors are recovered by requeueing and never reach the
// caller; this type surfaces only from pre-download probes.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error during %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// FileSystemError covers allocation, write, rename and delete failures.
type FileSystemError struct {
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("filesystem error on %s: %v", e.Path, e.Err)
}
func (e *FileSystemError) Unwrap() error { return e.Err }

// IntegrityError reports a final byte or chunk-count mismatch with the exact
// achieved vs expected values.
type IntegrityError struct {
	DownloadedBytes int64
	TotalSize       int64
	CompletedChunks int64
	TotalChunks     int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed: %d / %d bytes (%d / %d chunks)",
		e.DownloadedBytes, e.TotalSize, e.CompletedChunks, e.TotalChunks)
}

// ParseError covers malformed size or filename metadata from the source.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error for %s: %v", e.What, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError rejects invalid settings before any work begins.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("configuration error: %s", e.Reason) }
