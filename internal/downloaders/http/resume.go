package pargethttp

import (
	"fmt"
	"strings"

	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/utils"
)

// ResumeDownloader restarts an interrupted chunked download from its sidecar
// state file. The job URL carries the partial file path.
type ResumeDownloader struct {
	Registry *engine.Registry
}

func (d *ResumeDownloader) ValidateJob(job *utils.Job) error {
	partPath := job.URL
	if !strings.HasSuffix(partPath, ".part") {
		partPath = engine.PartPath(partPath)
		job.URL = partPath
	}
	if !engine.StateExists(partPath) {
		return &engine.ConfigError{Reason: fmt.Sprintf("no resumable state for %s", partPath)}
	}
	return nil
}

func (d *ResumeDownloader) BuildJob(job *utils.Job) error {
	meta, err := engine.LoadState(job.URL)
	if err != nil {
		return err
	}
	job.OutputPath = engine.TargetPath(job.URL)
	job.Metadata["fileSize"] = meta.TotalSize
	job.Metadata["sourceURL"] = meta.URL
	job.Metadata["downloadID"] = meta.ID
	return nil
}

func (d *ResumeDownloader) Download(job *utils.Job) error {
	registry := d.Registry
	if registry == nil {
		registry = engine.NewRegistry()
	}
	client := utils.NewWorkerClient(job.HTTPClientConfig)
	dl, err := engine.Load(registry, job.URL, client, job.ProgressFunc)
	if err != nil {
		return err
	}
	job.ID = dl.ID
	generation, err := registry.Resume(dl.ID)
	if err != nil {
		return err
	}
	res, err := dl.Run(generation)
	if err != nil {
		return err
	}
	job.Metadata["finalStatus"] = string(res.Status)
	return nil
}
