package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/utils"
)

type Client struct {
	api *awss3.Client
}

type object struct {
	Key  string
	Size int64
}

func newClient(profile string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode("adaptive"),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	return &Client{api: awss3.NewFromConfig(cfg)}, nil
}

// getObjectInfo distinguishes a single object from a prefix. HEAD failing on
// the exact key but a non-empty listing under it means a prefix.
func getObjectInfo(bucket, key string, client *Client) (string, int64, error) {
	headObj, err := client.api.HeadObject(context.Background(), &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		size := int64(0)
		if headObj.ContentLength != nil {
			size = *headObj.ContentLength
		}
		return "object", size, nil
	}

	result, err := client.api.ListObjectsV2(context.Background(), &awss3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", 0, &engine.NetworkError{Op: "s3 list", Err: err}
	}
	if len(result.Contents) > 0 || len(result.CommonPrefixes) > 0 {
		return "prefix", -1, nil
	}
	return "", 0, fmt.Errorf("S3 object not found")
}

func listObjects(bucket, prefix string, client *Client) ([]object, error) {
	var objects []object
	paginator := awss3.NewListObjectsV2Paginator(client.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, &engine.NetworkError{Op: "s3 list", Err: err}
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.Size == nil {
				continue
			}
			// Zero-byte keys ending in / are directory markers.
			if *obj.Size == 0 && strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			objects = append(objects, object{Key: *obj.Key, Size: *obj.Size})
		}
	}
	return objects, nil
}

// streamObject fetches one object through a single GET, reporting byte
// deltas on progressCh.
func streamObject(bucket, key, outputPath string, client *Client, progressCh chan<- int64) error {
	result, err := client.api.GetObject(context.Background(), &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &engine.NetworkError{Op: "s3 get", Err: err}
	}
	defer result.Body.Close()

	file, err := os.Create(outputPath)
	if err != nil {
		return &engine.FileSystemError{Path: outputPath, Err: err}
	}
	defer file.Close()

	buffer := make([]byte, utils.DefaultBufferSize)
	for {
		n, err := result.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				return &engine.FileSystemError{Path: outputPath, Err: writeErr}
			}
			progressCh <- int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return &engine.NetworkError{Op: "s3 read", Err: err}
		}
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
