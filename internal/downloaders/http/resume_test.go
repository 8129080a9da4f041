package pargethttp

import (
	"path/filepath"
	"testing"

	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/utils"
)

func TestResumeValidateRequiresSidecar(t *testing.T) {
	d := &ResumeDownloader{}
	job := &utils.Job{URL: filepath.Join(t.TempDir(), "missing.bin.part"), Metadata: map[string]any{}}
	if err := d.ValidateJob(job); err == nil {
		t.Fatal("ValidateJob accepted a part file with no sidecar")
	}
}

func TestResumeValidateNormalizesTargetPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.bin")
	partPath := engine.PartPath(target)
	meta := engine.NewMetadata("id-r", "http://example.com/file.bin", partPath, 1024, 2)
	meta.MarkStopped()
	if err := engine.SaveState(meta); err != nil {
		t.Fatal(err)
	}

	d := &ResumeDownloader{}
	// Passing the target path instead of the part path also works.
	job := &utils.Job{URL: target, Metadata: map[string]any{}}
	if err := d.ValidateJob(job); err != nil {
		t.Fatalf("ValidateJob: %v", err)
	}
	if job.URL != partPath {
		t.Fatalf("job URL = %q, want %q", job.URL, partPath)
	}
}

func TestResumeBuildJobLoadsMetadata(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.bin")
	partPath := engine.PartPath(target)
	size := int64(512 * 1024 * 3)
	if err := engine.AllocateSparseFile(partPath, size); err != nil {
		t.Fatal(err)
	}
	meta := engine.NewMetadata("id-b", "http://example.com/file.bin", partPath, size, 2)
	meta.MarkStopped()
	if err := engine.SaveState(meta); err != nil {
		t.Fatal(err)
	}

	d := &ResumeDownloader{}
	job := &utils.Job{JobType: "resume", URL: partPath, Metadata: map[string]any{}}
	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if job.OutputPath != target {
		t.Errorf("output path = %q, want %q", job.OutputPath, target)
	}
	if job.Metadata["fileSize"].(int64) != size {
		t.Errorf("fileSize = %v, want %d", job.Metadata["fileSize"], size)
	}
	if job.Metadata["sourceURL"].(string) != "http://example.com/file.bin" {
		t.Errorf("sourceURL = %v", job.Metadata["sourceURL"])
	}
	if job.Metadata["downloadID"].(string) != "id-b" {
		t.Errorf("downloadID = %v", job.Metadata["downloadID"])
	}
}
