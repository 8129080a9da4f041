package s3

import (
	"fmt"
	"strings"

	"github.com/ostanik/parget/internal/utils"
)

// Downloader fetches single objects or whole prefixes from S3. Single
// objects use the transfer manager's concurrent ranged GETs; prefixes fan
// out across a worker pool.
type Downloader struct{}

func (d *Downloader) ValidateJob(job *utils.Job) error {
	bucket, key, err := parseS3URL(job.URL)
	if err != nil {
		return err
	}
	job.Metadata["bucket"] = bucket
	job.Metadata["key"] = key
	return nil
}

func (d *Downloader) BuildJob(job *utils.Job) error {
	log := utils.GetLogger("s3")
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	profile, _ := job.Metadata["profile"].(string)
	client, err := newClient(profile)
	if err != nil {
		return fmt.Errorf("error creating S3 client: %v", err)
	}

	objectType, size, err := getObjectInfo(bucket, key, client)
	if err != nil {
		return fmt.Errorf("error getting S3 object info: %v", err)
	}
	job.Metadata["objectType"] = objectType
	job.Metadata["fileSize"] = size
	log.Debug().Str("bucket", bucket).Str("key", key).Str("type", objectType).Int64("size", size).Msg("Resolved S3 object")

	if job.OutputPath == "" {
		if objectType == "prefix" {
			parts := strings.Split(strings.TrimSuffix(key, "/"), "/")
			job.OutputPath = parts[len(parts)-1]
			if job.OutputPath == "" {
				job.OutputPath = bucket
			}
		} else {
			parts := strings.Split(key, "/")
			job.OutputPath = parts[len(parts)-1]
		}
	}
	if pathExists(job.OutputPath) {
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}
	return nil
}

func parseS3URL(url string) (string, string, error) {
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if len(parts) < 1 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format")
	}
	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}
