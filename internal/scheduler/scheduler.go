package scheduler

import (
	"fmt"
	"sync"

	pargethttp "github.com/ostanik/parget/internal/downloaders/http"
	"github.com/ostanik/parget/internal/downloaders/s3"
	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/output"
	"github.com/ostanik/parget/internal/utils"
)

// Scheduler fans a batch of jobs out across a bounded worker pool, driving
// each through validate, build, and download with live display updates.
type Scheduler struct {
	registry    *engine.Registry
	downloaders map[string]utils.Downloader
}

func New() *Scheduler {
	registry := engine.NewRegistry()
	return &Scheduler{
		registry: registry,
		downloaders: map[string]utils.Downloader{
			"http":   &pargethttp.Downloader{Registry: registry},
			"s3":     &s3.Downloader{},
			"resume": &pargethttp.ResumeDownloader{Registry: registry},
		},
	}
}

// Registry exposes the shared download registry for callers that pause,
// stop, or cancel in-flight downloads.
func (s *Scheduler) Registry() *engine.Registry {
	return s.registry
}

func (s *Scheduler) Run(jobs []utils.Job, numWorkers int) error {
	log := utils.GetLogger("scheduler")
	outputMgr := output.NewManager()
	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()

	jobCh := make(chan utils.Job, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	for i := 0; i < min(numWorkers, len(jobs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.processJobs(jobCh, outputMgr)
		}()
	}
	wg.Wait()
	log.Debug().Int("jobs", len(jobs)).Msg("Scheduler drained")
	return nil
}

func (s *Scheduler) processJobs(jobCh <-chan utils.Job, outputMgr *output.Manager) {
	for job := range jobCh {
		label := job.OutputPath
		if label == "" {
			label = job.URL
		}
		taskID := outputMgr.Register(label)

		downloader, exists := s.downloaders[job.JobType]
		if !exists {
			outputMgr.ReportError(taskID, fmt.Errorf("unknown job type: %s", job.JobType))
			continue
		}

		outputMgr.SetStatus(taskID, "pending")
		outputMgr.SetMessage(taskID, fmt.Sprintf("Validating %s job", job.JobType))
		if err := downloader.ValidateJob(&job); err != nil {
			outputMgr.ReportError(taskID, fmt.Errorf("validation failed: %v", err))
			continue
		}

		outputMgr.SetMessage(taskID, fmt.Sprintf("Building %s job", job.JobType))
		if err := downloader.BuildJob(&job); err != nil {
			outputMgr.ReportError(taskID, fmt.Errorf("build failed: %v", err))
			continue
		}

		outputMgr.SetStatus(taskID, "active")
		outputMgr.SetMessage(taskID, fmt.Sprintf("Downloading %s", job.OutputPath))
		job.ProgressFunc = func(downloaded, total int64) {
			outputMgr.SetProgress(taskID, downloaded, total)
		}
		if err := downloader.Download(&job); err != nil {
			outputMgr.ReportError(taskID, fmt.Errorf("download failed: %v", err))
			continue
		}

		if status, ok := job.Metadata["finalStatus"].(string); ok && status != string(engine.StateCompleted) {
			outputMgr.SetStatus(taskID, status)
			outputMgr.SetMessage(taskID, fmt.Sprintf("Download %s: %s", status, job.OutputPath))
			continue
		}
		outputMgr.Complete(taskID, fmt.Sprintf("Completed %s", job.OutputPath))
	}
}
