package pargethttp

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ostanik/parget/internal/utils"
)

func testClient() utils.HTTPDoer {
	return utils.NewClient(utils.HTTPClientConfig{})
}

func TestGetFileInfoFromHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "HEAD" {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "4096")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
	}))
	defer srv.Close()

	size, filename, rangeSupported, err := getFileInfo(srv.URL, testClient())
	if err != nil {
		t.Fatalf("getFileInfo: %v", err)
	}
	if size != 4096 {
		t.Errorf("size = %d, want 4096", size)
	}
	if filename != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", filename)
	}
	if !rangeSupported {
		t.Error("range support not detected")
	}
}

func TestGetFileInfoFallsBackToRangedGet(t *testing.T) {
	content := []byte("0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HEAD is rejected; the probe must retry with a one-byte GET.
		if r.Method == "HEAD" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Range") != "bytes=0-0" {
			t.Errorf("Range header = %q, want bytes=0-0", r.Header.Get("Range"))
		}
		http.ServeContent(w, r, "data.bin", time.Time{}, bytes.NewReader(content))
	}))
	defer srv.Close()

	size, _, rangeSupported, err := getFileInfo(srv.URL, testClient())
	if err != nil {
		t.Fatalf("getFileInfo: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	if !rangeSupported {
		t.Error("206 response did not register as range support")
	}
}

func TestGetFileInfoNoRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		// Plain 200 regardless of the Range header.
		w.Header().Set("Content-Length", "20")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	size, _, rangeSupported, err := getFileInfo(srv.URL, testClient())
	if err != nil {
		t.Fatalf("getFileInfo: %v", err)
	}
	if size != 20 {
		t.Errorf("size = %d, want 20", size)
	}
	if rangeSupported {
		t.Error("plain 200 must not register as range support")
	}
}

func TestFilenameFromHeaders(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"plain filename", `attachment; filename="archive.tar.gz"`, "archive.tar.gz"},
		{"no disposition", "", ""},
		{"sanitized", `attachment; filename="ev;l|name.bin"`, "ev_l_name.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.disposition != "" {
				header.Set("Content-Disposition", tt.disposition)
			}
			if got := filenameFromHeaders(header); got != tt.want {
				t.Errorf("filenameFromHeaders = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateJobRejectsBadScheme(t *testing.T) {
	d := &Downloader{}
	job := &utils.Job{URL: "ftp://example.com/file", Metadata: map[string]any{}}
	if err := d.ValidateJob(job); err == nil {
		t.Fatal("ValidateJob accepted ftp scheme")
	}
}

func TestBuildJobResolvesOutputPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "100")
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := &Downloader{}
	job := &utils.Job{URL: srv.URL + "/some/path/file.iso", Metadata: map[string]any{}}
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	if err := d.BuildJob(job); err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if job.OutputPath != "file.iso" {
		t.Errorf("output path = %q, want file.iso", job.OutputPath)
	}
	if job.Metadata["fileSize"].(int64) != 100 {
		t.Errorf("fileSize = %v, want 100", job.Metadata["fileSize"])
	}
	if !job.Metadata["rangeSupported"].(bool) {
		t.Error("rangeSupported not recorded")
	}
}

func TestBuildJobSkipsIdenticalExistingFile(t *testing.T) {
	content := []byte("same content here")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "dup.bin")
	if err := os.WriteFile(existing, content, 0644); err != nil {
		t.Fatal(err)
	}

	d := &Downloader{}
	job := &utils.Job{URL: srv.URL, OutputPath: existing, Metadata: map[string]any{}}
	if err := d.BuildJob(job); err == nil {
		t.Fatal("BuildJob did not refuse a same-size existing file")
	}
}

func TestPerformSimpleDownload(t *testing.T) {
	content := []byte("simple download body contents")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "simple.bin")
	var lastReported int64
	err := PerformSimpleDownload(srv.URL, target, testClient(), int64(len(content)), func(downloaded, total int64) {
		lastReported = downloaded
	})
	if err != nil {
		t.Fatalf("PerformSimpleDownload: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("downloaded content differs from source")
	}
	if lastReported != int64(len(content)) {
		t.Errorf("final progress = %d, want %d", lastReported, len(content))
	}
}

func TestPerformSimpleDownloadSizeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "short.bin")
	if err := PerformSimpleDownload(srv.URL, target, testClient(), 100, nil); err == nil {
		t.Fatal("size mismatch went unreported")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target file created despite size mismatch")
	}
}
