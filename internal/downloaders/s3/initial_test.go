package s3

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"scheme prefix", "s3://mybucket/path/to/file.zip", "mybucket", "path/to/file.zip", false},
		{"no scheme", "mybucket/file.zip", "mybucket", "file.zip", false},
		{"bucket only", "mybucket", "mybucket", "", false},
		{"prefix with trailing slash", "s3://mybucket/folder/", "mybucket", "folder/", false},
		{"empty", "", "", "", true},
		{"scheme only", "s3://", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := parseS3URL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("parsed (%q, %q), want (%q, %q)", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestProgressWriterCountsBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw.bin")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var lastDownloaded, lastTotal int64
	w := &progressWriter{file: file, total: 10, report: func(downloaded, total int64) {
		lastDownloaded, lastTotal = downloaded, total
	}}

	if _, err := w.WriteAt([]byte("56789"), 5); err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteAt([]byte("01234"), 0); err != nil {
		t.Fatal(err)
	}
	if lastDownloaded != 10 || lastTotal != 10 {
		t.Errorf("reported (%d, %d), want (10, 10)", lastDownloaded, lastTotal)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0123456789" {
		t.Errorf("file content = %q", data)
	}
}
