package pargethttp

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ostanik/parget/internal/engine"
	"github.com/ostanik/parget/internal/utils"
)

// Downloader is the HTTP/HTTPS source: it probes the server for size and
// range support, resolves the output path, and drives the chunked engine
// (or the single-stream fallback when ranges are unavailable).
type Downloader struct {
	Registry *engine.Registry
}

func (d *Downloader) ValidateJob(job *utils.Job) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return &engine.ParseError{What: "url", Err: err}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &engine.ConfigError{Reason: fmt.Sprintf("unsupported scheme: %s", parsedURL.Scheme)}
	}

	client := utils.NewClient(job.HTTPClientConfig)
	req, err := http.NewRequest("HEAD", job.URL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return &engine.NetworkError{Op: "probe", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		if location := resp.Header.Get("Location"); location != "" {
			job.URL = location
		}
	} else if resp.StatusCode == http.StatusNotFound {
		return &engine.NetworkError{Op: "probe", Err: errors.New("URL not found (404)")}
	}
	return nil
}

func (d *Downloader) BuildJob(job *utils.Job) error {
	client := utils.NewClient(job.HTTPClientConfig)

	fileSize, fileName, rangeSupported, err := getFileInfo(job.URL, client)
	if err != nil {
		return fmt.Errorf("error getting file info: %v", err)
	}

	if job.OutputPath == "" && fileName != "" {
		job.OutputPath = fileName
	} else if job.OutputPath == "" {
		parsedURL, _ := url.Parse(job.URL)
		pathParts := strings.Split(parsedURL.Path, "/")
		job.OutputPath = pathParts[len(pathParts)-1]
		if job.OutputPath == "" {
			job.OutputPath = "download.dat"
		}
	}

	if existingFile, err := os.Stat(job.OutputPath); err == nil {
		if fileSize > 0 && existingFile.Size() == fileSize {
			return fmt.Errorf("file already exists with same size")
		}
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}

	job.Metadata["fileSize"] = fileSize
	job.Metadata["rangeSupported"] = rangeSupported
	return nil
}

func (d *Downloader) Download(job *utils.Job) error {
	fileSize, _ := job.Metadata["fileSize"].(int64)
	rangeSupported, _ := job.Metadata["rangeSupported"].(bool)

	if !rangeSupported || job.Connections == 1 || fileSize < 1 {
		if !rangeSupported && job.Connections > 1 {
			log := utils.GetLogger("http")
			log.Warn().Err(utils.ErrRangeRequestsNotSupported).
				Str("url", job.URL).Msg("Falling back to single-connection download")
		}
		client := utils.NewClient(job.HTTPClientConfig)
		return PerformSimpleDownload(job.URL, job.OutputPath, client, fileSize, job.ProgressFunc)
	}

	registry := d.Registry
	if registry == nil {
		registry = engine.NewRegistry()
	}
	client := utils.NewWorkerClient(job.HTTPClientConfig)
	dl, err := engine.New(registry, engine.Config{
		URL:          job.URL,
		TargetPath:   job.OutputPath,
		TotalSize:    fileSize,
		Threads:      job.Connections,
		Client:       client,
		ProgressFunc: job.ProgressFunc,
	})
	if err != nil {
		return err
	}
	job.ID = dl.ID
	res, err := dl.Run(0)
	if err != nil {
		return err
	}
	job.Metadata["finalStatus"] = string(res.Status)
	return nil
}

var filenameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// getFileInfo probes the server with a HEAD request, falling back to a
// one-byte ranged GET for servers that reject HEAD. The fallback also
// doubles as a range-support check.
func getFileInfo(link string, client utils.HTTPDoer) (int64, string, bool, error) {
	req, err := http.NewRequest("HEAD", link, nil)
	if err != nil {
		return 0, "", false, err
	}
	resp, err := client.Do(req)
	if err != nil || resp.StatusCode >= 400 {
		if resp != nil {
			resp.Body.Close()
		}
		return probeWithRangedGet(link, client)
	}
	defer resp.Body.Close()

	filename := filenameFromHeaders(resp.Header)
	rangeSupported := resp.Header.Get("Accept-Ranges") == "bytes"
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		return 0, filename, rangeSupported, &engine.ParseError{What: "content length", Err: errors.New("server didn't provide Content-Length header")}
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return 0, filename, rangeSupported, &engine.ParseError{What: "content length", Err: err}
	}
	if size <= 0 {
		return 0, filename, rangeSupported, &engine.ParseError{What: "content length", Err: errors.New("invalid file size reported by server")}
	}
	return size, filename, rangeSupported, nil
}

// probeWithRangedGet asks for bytes=0-0; a 206 with a Content-Range total is
// both a size report and proof of range support.
func probeWithRangedGet(link string, client utils.HTTPDoer) (int64, string, bool, error) {
	req, err := http.NewRequest("GET", link, nil)
	if err != nil {
		return 0, "", false, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", false, &engine.NetworkError{Op: "probe", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, "", false, &engine.NetworkError{Op: "probe", Err: fmt.Errorf("server returned error: %d", resp.StatusCode)}
	}
	filename := filenameFromHeaders(resp.Header)
	if resp.StatusCode == http.StatusPartialContent {
		contentRange := resp.Header.Get("Content-Range")
		slash := strings.LastIndex(contentRange, "/")
		if slash < 0 {
			return 0, filename, false, &engine.ParseError{What: "content range", Err: errors.New("missing total in Content-Range header")}
		}
		size, err := strconv.ParseInt(contentRange[slash+1:], 10, 64)
		if err != nil {
			return 0, filename, false, &engine.ParseError{What: "content range", Err: err}
		}
		return size, filename, true, nil
	}
	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return size, filename, false, nil
}

func filenameFromHeaders(header http.Header) string {
	contentDisposition := header.Get("Content-Disposition")
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn, ok := params["filename"]; ok && fn != "" {
		return filenameRegex.ReplaceAllString(fn, "_")
	}
	if fn, ok := params["filename*"]; ok && strings.HasPrefix(fn, "UTF-8''") {
		unescaped, _ := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		return filenameRegex.ReplaceAllString(unescaped, "_")
	}
	return ""
}
