package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/utils"
)

func (d *Downloader) Download(job *utils.Job) error {
	log := utils.GetLogger("s3")
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	objectType := job.Metadata["objectType"].(string)
	profile, _ := job.Metadata["profile"].(string)
	client, err := newClient(profile)
	if err != nil {
		return fmt.Errorf("error creating S3 client: %v", err)
	}
	if objectType == "prefix" {
		log.Debug().Str("bucket", bucket).Str("prefix", key).Msg("Starting prefix download")
		return d.downloadPrefix(job, bucket, key, client)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Starting object download")
	return d.downloadObject(job, bucket, key, client)
}

// progressWriter counts bytes written by the transfer manager's concurrent
// part writers.
type progressWriter struct {
	file       *os.File
	downloaded atomic.Int64
	total      int64
	report     func(downloaded, total int64)
}

func (w *progressWriter) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.file.WriteAt(p, off)
	if n > 0 && w.report != nil {
		w.report(w.downloaded.Add(int64(n)), w.total)
	}
	return n, err
}

// downloadObject pulls a single object through the transfer manager, which
// issues ranged GETs in parallel. Writes land in a partial file renamed on
// success.
func (d *Downloader) downloadObject(job *utils.Job, bucket, key string, client *Client) error {
	size := job.Metadata["fileSize"].(int64)
	partPath := engine.PartPath(job.OutputPath)
	file, err := os.Create(partPath)
	if err != nil {
		return &engine.FileSystemError{Path: partPath, Err: err}
	}

	downloader := manager.NewDownloader(client.api, func(dl *manager.Downloader) {
		dl.Concurrency = job.Connections
		dl.PartSize = engine.ChunkSize(size)
	})
	writer := &progressWriter{file: file, total: size, report: job.ProgressFunc}
	received, err := downloader.Download(context.Background(), writer, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		file.Close()
		return &engine.NetworkError{Op: "s3 download", Err: err}
	}
	if err := file.Close(); err != nil {
		return &engine.FileSystemError{Path: partPath, Err: err}
	}
	if size > 0 && received != size {
		return &engine.IntegrityError{DownloadedBytes: received, TotalSize: size, CompletedChunks: 0, TotalChunks: 1}
	}
	return engine.FinalizeFile(partPath)
}

// downloadPrefix lists every object under the prefix and fans them out
// across up to job.Connections workers, preserving relative key paths.
func (d *Downloader) downloadPrefix(job *utils.Job, bucket, prefix string, client *Client) error {
	objects, err := listObjects(bucket, prefix, client)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("no objects found in s3://%s/%s", bucket, prefix)
	}
	var totalSize int64
	for _, obj := range objects {
		totalSize += obj.Size
	}

	var totalDownloaded atomic.Int64
	var mu sync.Mutex
	var downloadErr error
	jobCh := make(chan object, len(objects))
	for _, obj := range objects {
		jobCh <- obj
	}
	close(jobCh)
	numWorkers := min(job.Connections, len(objects))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range jobCh {
				relPath := strings.TrimPrefix(obj.Key, prefix)
				relPath = strings.TrimPrefix(relPath, "/")
				outputPath := filepath.Join(job.OutputPath, relPath)
				if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
					mu.Lock()
					if downloadErr == nil {
						downloadErr = &engine.FileSystemError{Path: filepath.Dir(outputPath), Err: err}
					}
					mu.Unlock()
					return
				}
				progressCh := make(chan int64, 100)
				go func(ch <-chan int64) {
					for bytes := range ch {
						downloaded := totalDownloaded.Add(bytes)
						if job.ProgressFunc != nil {
							job.ProgressFunc(downloaded, totalSize)
						}
					}
				}(progressCh)

				err := streamObject(bucket, obj.Key, outputPath, client, progressCh)
				close(progressCh)
				if err != nil {
					mu.Lock()
					if downloadErr == nil {
						downloadErr = fmt.Errorf("error downloading %s: %v", obj.Key, err)
					}
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	return downloadErr
}
