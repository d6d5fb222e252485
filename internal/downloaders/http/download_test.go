package rangehttp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tanq16/rangedl/internal/utils"
)

type testServer struct {
	*httptest.Server
	mu     sync.Mutex
	ranges []string
}

func (s *testServer) requestedRanges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

// startRangeServer serves data with range support. Every GET records its
// Range header; handler, if set, may take over a request by returning true.
func startRangeServer(t *testing.T, data []byte, handler func(w http.ResponseWriter, r *http.Request, n int) bool) *testServer {
	t.Helper()
	s := &testServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if r.Method == http.MethodGet {
			s.mu.Lock()
			s.ranges = append(s.ranges, r.Header.Get("Range"))
			n = len(s.ranges)
			s.mu.Unlock()
		}
		if handler != nil && handler(w, r, n) {
			return
		}
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(s.Close)
	return s
}

func newJob(t *testing.T, url string, chunkSize int64) *utils.RangeJob {
	t.Helper()
	return &utils.RangeJob{
		ID:         "test-job",
		JobType:    "http",
		URL:        url,
		OutputPath: filepath.Join(t.TempDir(), "out.bin"),
		ChunkSize:  chunkSize,
		Metadata:   make(map[string]any),
	}
}

func runJob(ctx context.Context, job *utils.RangeJob) error {
	d := &HTTPDownloader{}
	if err := d.ValidateJob(job); err != nil {
		return err
	}
	if err := d.BuildJob(ctx, job); err != nil {
		return err
	}
	return d.Download(ctx, job)
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func TestDownloadScenarios(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		chunkSize  int64
		wantRanges []string
	}{
		{"three ranges with short tail", 25, 10, []string{"bytes=0-9", "bytes=10-19", "bytes=20-24"}},
		{"single exact range", 10, 10, []string{"bytes=0-9"}},
		{"chunk larger than file", 7, 1024, []string{"bytes=0-6"}},
		{"empty resource", 0, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testData(tt.length)
			server := startRangeServer(t, data, nil)
			job := newJob(t, server.URL+"/file.bin", tt.chunkSize)

			var lastDownloaded, lastTotal int64
			job.ProgressFunc = func(downloaded, total int64) {
				lastDownloaded, lastTotal = downloaded, total
			}
			if err := runJob(context.Background(), job); err != nil {
				t.Fatalf("download failed: %v", err)
			}

			if got := server.requestedRanges(); !reflect.DeepEqual(got, tt.wantRanges) {
				t.Errorf("expected ranges %v, got %v", tt.wantRanges, got)
			}
			got, err := os.ReadFile(job.OutputPath)
			if err != nil {
				t.Fatalf("reading output: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("output mismatch: expected %d bytes, got %d", len(data), len(got))
			}
			if lastDownloaded != int64(tt.length) || lastTotal != int64(tt.length) {
				t.Errorf("final progress %d/%d, expected %d", lastDownloaded, lastTotal, tt.length)
			}
			if _, err := os.Stat(filepath.Join(filepath.Dir(job.OutputPath), utils.TempDirName)); !os.IsNotExist(err) {
				t.Errorf("expected temp dir to be gone after success, stat err = %v", err)
			}
		})
	}
}

func TestDownloadAbortsOnFullContentResponse(t *testing.T) {
	data := testData(25)
	server := startRangeServer(t, data, func(w http.ResponseWriter, r *http.Request, n int) bool {
		if r.Method == http.MethodGet {
			// ignore the Range header and send everything
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return true
		}
		return false
	})
	job := newJob(t, server.URL+"/file.bin", 10)

	err := runJob(context.Background(), job)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if got := server.requestedRanges(); len(got) != 1 {
		t.Fatalf("expected the download to stop after one request, got %v", got)
	}
	if _, err := os.Stat(job.OutputPath); !os.IsNotExist(err) {
		t.Errorf("output file must not exist after a failed download, stat err = %v", err)
	}
}

func TestDownloadAbortsMidway(t *testing.T) {
	data := testData(25)
	server := startRangeServer(t, data, func(w http.ResponseWriter, r *http.Request, n int) bool {
		if n == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return true
		}
		return false
	})
	job := newJob(t, server.URL+"/file.bin", 10)

	err := runJob(context.Background(), job)
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) || rangeErr.Range.Start != 10 {
		t.Fatalf("expected failure on the second range, got %v", err)
	}
	if got := server.requestedRanges(); len(got) != 2 {
		t.Fatalf("expected exactly two requests, got %v", got)
	}
	partial, err := os.ReadFile(utils.TempPath(job.OutputPath))
	if err != nil {
		t.Fatalf("expected partial file to be left in place: %v", err)
	}
	if !bytes.Equal(partial, data[:10]) {
		t.Errorf("partial file should hold the first range, got %q", partial)
	}
}

func TestDownloadAbortsWithoutContentLength(t *testing.T) {
	server := startRangeServer(t, testData(25), func(w http.ResponseWriter, r *http.Request, n int) bool {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return true
		}
		return false
	})
	job := newJob(t, server.URL+"/file.bin", 10)

	err := runJob(context.Background(), job)
	if !errors.Is(err, ErrMetadata) || !errors.Is(err, ErrMissingLengthHeader) {
		t.Fatalf("expected missing length metadata error, got %v", err)
	}
	if got := server.requestedRanges(); len(got) != 0 {
		t.Fatalf("expected no range requests, got %v", got)
	}
}

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		chunkSize int64
	}{
		{"zero chunk size", "http://example.com/a", 0},
		{"negative chunk size", "http://example.com/a", -1},
		{"ftp scheme", "ftp://example.com/a", 10},
		{"no host", "http:///a", 10},
		{"unparsable", "http://[::1", 10},
	}
	d := &HTTPDownloader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &utils.RangeJob{URL: tt.url, ChunkSize: tt.chunkSize}
			if err := d.ValidateJob(job); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestDownloadRequiresBuild(t *testing.T) {
	job := newJob(t, "http://example.com/a", 10)
	if err := (&HTTPDownloader{}).Download(context.Background(), job); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildJobOutputPath(t *testing.T) {
	data := testData(12)
	server := startRangeServer(t, data, func(w http.ResponseWriter, r *http.Request, n int) bool {
		if r.URL.Path == "/named" {
			w.Header().Set("Content-Disposition", `attachment; filename="named.tar.gz"`)
		}
		return false
	})

	dir := t.TempDir()
	t.Chdir(dir)

	job := newJob(t, server.URL+"/path/archive.zip", 5)
	job.OutputPath = ""
	if err := (&HTTPDownloader{}).BuildJob(context.Background(), job); err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if job.OutputPath != "archive.zip" {
		t.Errorf("expected name from URL, got %q", job.OutputPath)
	}
	if job.Metadata["rangeCount"] != int64(3) || job.Metadata["fileSize"] != int64(12) {
		t.Errorf("unexpected metadata %v", job.Metadata)
	}

	job = newJob(t, server.URL+"/named", 5)
	job.OutputPath = ""
	if err := (&HTTPDownloader{}).BuildJob(context.Background(), job); err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if job.OutputPath != "named.tar.gz" {
		t.Errorf("expected name from Content-Disposition, got %q", job.OutputPath)
	}

	existing := filepath.Join(dir, "taken.bin")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	job = newJob(t, server.URL+"/path/archive.zip", 5)
	job.OutputPath = existing
	if err := (&HTTPDownloader{}).BuildJob(context.Background(), job); err != nil {
		t.Fatalf("BuildJob: %v", err)
	}
	if job.OutputPath != filepath.Join(dir, "taken-(1).bin") {
		t.Errorf("expected renewed path, got %q", job.OutputPath)
	}
}
