package engine

import (
	"os"
	"path/filepath"
	"strings"
)

// AllocateSparseFile establishes the final logical size of the partial file
// with a single seek-and-write at the last offset, so workers can write
// disjoint ranges in any order without ever overlapping.
func AllocateSparseFile(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return &FileSystemError{Path: path, Err: err}
	}
	defer f.Close()
	if _, err := f.WriteAt([]byte{0}, size-1); err != nil {
		return &FileSystemError{Path: path, Err: err}
	}
	return nil
}

// PartPath maps a target path to its partial-download path.
func PartPath(targetPath string) string {
	return targetPath + ".part"
}

// TargetPath maps a partial-download path back to its final path.
func TargetPath(partPath string) string {
	return strings.TrimSuffix(partPath, ".part")
}

// FinalizeFile promotes the byte-exact partial file to the target path.
func FinalizeFile(partPath string) error {
	if err := os.Rename(partPath, TargetPath(partPath)); err != nil {
		return &FileSystemError{Path: partPath, Err: err}
	}
	return nil
}

// CleanArtifacts removes leftover partial files and their sidecars from dir.
// Returns the paths it removed.
func CleanArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &FileSystemError{Path: dir, Err: err}
	}
	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".part") && !strings.HasSuffix(name, ".part.state") {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, &FileSystemError{Path: path, Err: err}
		}
		removed = append(removed, path)
	}
	return removed, nil
}
