package pargethttp

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/utils"
)

// PerformSimpleDownload streams the whole body through a single connection.
// Used when the server does not support range requests or only one
// connection was requested. Writes go to a .part file renamed on success so
// a dead stream never leaves a truncated file at the target path.
func PerformSimpleDownload(link, outputPath string, client utils.HTTPDoer, fileSize int64, progressFn func(int64, int64)) error {
	log := utils.GetLogger("http-simple")
	req, err := http.NewRequest("GET", link, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return &engine.NetworkError{Op: "get", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return &engine.NetworkError{Op: "get", Err: fmt.Errorf("server returned error: %d", resp.StatusCode)}
	}
	if fileSize <= 0 {
		fileSize = resp.ContentLength
	}

	partPath := engine.PartPath(outputPath)
	file, err := os.Create(partPath)
	if err != nil {
		return &engine.FileSystemError{Path: partPath, Err: err}
	}

	buffer := make([]byte, utils.DefaultBufferSize)
	var received int64
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				file.Close()
				return &engine.FileSystemError{Path: partPath, Err: writeErr}
			}
			received += int64(n)
			if progressFn != nil {
				progressFn(received, fileSize)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			return &engine.NetworkError{Op: "read", Err: readErr}
		}
	}
	if err := file.Close(); err != nil {
		return &engine.FileSystemError{Path: partPath, Err: err}
	}
	if fileSize > 0 && received != fileSize {
		return &engine.IntegrityError{DownloadedBytes: received, TotalSize: fileSize, CompletedChunks: 0, TotalChunks: 1}
	}
	if err := engine.FinalizeFile(partPath); err != nil {
		return err
	}
	log.Debug().Str("output", outputPath).Int64("size", received).Msg("Simple download complete")
	return nil
}
