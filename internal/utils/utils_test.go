package utils

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{
		"Authorization: Basic dXNlcjpwYXNz",
		"X-Empty:",
		"X-Colon: a:b",
		"malformed",
		": no-key",
	})
	want := map[string]string{
		"Authorization": "Basic dXNlcjpwYXNz",
		"X-Empty":       "",
		"X-Colon":       "a:b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseChunkSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10240", 10240, false},
		{"10KiB", 10240, false},
		{"8 MB", 8_000_000, false},
		{"1MiB", 1 << 20, false},
		{"0", 0, true},
		{"", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChunkSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChunkSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChunkSize(%q) = %d, expected %d", tt.in, got, tt.want)
		}
	}
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	first := RenewOutputPath(path)
	if first != filepath.Join(dir, "file-(1).bin") {
		t.Fatalf("unexpected renewed path %s", first)
	}
	if err := os.WriteFile(first, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if second := RenewOutputPath(path); second != filepath.Join(dir, "file-(2).bin") {
		t.Fatalf("unexpected renewed path %s", second)
	}
}

func TestCleanOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "video.mp4")
	part := TempPath(out)
	if err := os.MkdirAll(filepath.Dir(part), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(part, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CleanOutput(out); err != nil {
		t.Fatalf("CleanOutput: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, TempDirName)); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir to be removed, stat err = %v", err)
	}
	// nothing left to clean is not an error
	if err := CleanOutput(out); err != nil {
		t.Fatalf("CleanOutput on clean dir: %v", err)
	}
}

func TestCleanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.part", "b.part"} {
		p := TempPath(filepath.Join(dir, name[:1]))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := CleanDir(dir); err != nil {
		t.Fatalf("CleanDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, TempDirName)); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir to be removed, stat err = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rangedl.yaml")
	data := []byte(`
chunk-size: 64KiB
timeout: 30s
user-agent: test-agent
headers:
  Authorization: Bearer abc
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ChunkSize != "64KiB" {
		t.Errorf("expected chunk size 64KiB, got %s", cfg.ChunkSize)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", cfg.Timeout)
	}
	if cfg.KATimeout != DefaultKATimeout {
		t.Errorf("expected default keep-alive timeout, got %s", cfg.KATimeout)
	}
	hc := cfg.HTTPClientConfig()
	if hc.UserAgent != "test-agent" || hc.Headers["Authorization"] != "Bearer abc" {
		t.Errorf("unexpected client config %+v", hc)
	}
}

func TestLoadConfigRejectsBadChunkSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rangedl.yaml")
	if err := os.WriteFile(path, []byte("chunk-size: \"0\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
}

func TestHTTPClientHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientConfig{
		UserAgent: "agent/1",
		Headers:   map[string]string{"X-Token": "abc", "Range": "bytes=0-0"},
	})
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Range", "bytes=5-9")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if got.Get("User-Agent") != "agent/1" {
		t.Errorf("expected user agent agent/1, got %q", got.Get("User-Agent"))
	}
	if got.Get("X-Token") != "abc" {
		t.Errorf("expected X-Token header, got %q", got.Get("X-Token"))
	}
	if got.Get("Range") != "bytes=5-9" {
		t.Errorf("custom headers must not override Range, got %q", got.Get("Range"))
	}
}
