package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ostanik/parget/internal/utils"
)

// StateFilePath returns the sidecar path for a partial download file:
// file.zip.part -> file.zip.part.state
func StateFilePath(partPath string) string {
	return partPath + ".state"
}

// SaveState serializes metadata to the sidecar file. Chunk sets are written
// sorted so the sidecar diffs cleanly between saves.
func SaveState(m *Metadata) error {
	log := utils.GetLogger("persistence")
	sort.Slice(m.CompletedChunks, func(i, j int) bool { return m.CompletedChunks[i] < m.CompletedChunks[j] })
	sort.Slice(m.IncompleteChunks, func(i, j int) bool { return m.IncompleteChunks[i] < m.IncompleteChunks[j] })
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error serializing download state: %v", err)
	}
	statePath := StateFilePath(m.Filepath)
	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return &FileSystemError{Path: statePath, Err: err}
	}
	log.Debug().Str("path", statePath).Str("state", string(m.State)).
		Int64("downloadedBytes", m.DownloadedBytes).
		Str("progress", fmt.Sprintf("%.2f%%", m.Progress())).
		Msg("Download state saved")
	return nil
}

// LoadState reads the sidecar for partPath. Before trusting the completed
// chunk set it verifies that the partial file on disk still has the expected
// pre-allocated size; on mismatch every chunk is treated as incomplete,
// which costs a full re-download but never a corrupt file.
func LoadState(partPath string) (*Metadata, error) {
	log := utils.GetLogger("persistence")
	statePath := StateFilePath(partPath)
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, &FileSystemError{Path: statePath, Err: err}
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{What: "state file", Err: err}
	}
	info, err := os.Stat(partPath)
	if err != nil || info.Size() != m.TotalSize {
		onDisk := int64(-1)
		if err == nil {
			onDisk = info.Size()
		}
		log.Warn().Str("path", partPath).Int64("onDisk", onDisk).Int64("expected", m.TotalSize).
			Msg("Partial file size mismatch, discarding chunk progress")
		m.SyncChunks([]int64{}, 0)
	}
	log.Debug().Str("path", statePath).Str("state", string(m.State)).
		Int("completed", len(m.CompletedChunks)).Int("incomplete", len(m.IncompleteChunks)).
		Msg("Download state loaded")
	return &m, nil
}

// DeleteState removes the sidecar file; missing is not an error.
func DeleteState(partPath string) error {
	statePath := StateFilePath(partPath)
	if err := os.Remove(statePath); err != nil && !os.IsNotExist(err) {
		return &FileSystemError{Path: statePath, Err: err}
	}
	return nil
}

func StateExists(partPath string) bool {
	_, err := os.Stat(StateFilePath(partPath))
	return err == nil
}
