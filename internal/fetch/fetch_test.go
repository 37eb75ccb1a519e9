package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkgmirror/conda-mirror/internal/config"
)

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryBaseInterval
	retryBaseInterval = time.Millisecond
	t.Cleanup(func() { retryBaseInterval = old })
}

func TestReadLocal(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "conda-mirror-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "pkg.conda")
	os.WriteFile(path, []byte("content"), 0644)

	for _, url := range []string{path, "file://" + path} {
		content, err := ReadLocal(url)
		if err != nil {
			t.Errorf("ReadLocal(%q) failed: %v", url, err)
			continue
		}
		if string(content) != "content" {
			t.Errorf("ReadLocal(%q) = %q, want %q", url, content, "content")
		}
	}

	if _, err := ReadLocal(filepath.Join(tmpDir, "missing.conda")); err == nil {
		t.Error("ReadLocal should fail for a missing file")
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	cfg := config.Default()
	content, err := Download(context.Background(), NewClient(cfg), server.URL, cfg)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(content) != "payload" {
		t.Errorf("Download = %q, want %q", content, "payload")
	}
}

func TestDownloadRetriesUntilSuccess(t *testing.T) {
	fastRetries(t)

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	cfg := config.Default() // 3 attempts
	content, err := Download(context.Background(), NewClient(cfg), server.URL, cfg)
	if err != nil {
		t.Fatalf("Download failed after retries: %v", err)
	}
	if string(content) != "payload" {
		t.Errorf("Download = %q, want %q", content, "payload")
	}
	if calls != 3 {
		t.Errorf("Server saw %d calls, want 3", calls)
	}
}

func TestDownloadExhaustsRetries(t *testing.T) {
	fastRetries(t)

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.RetryAttempts = 2

	if _, err := Download(context.Background(), NewClient(cfg), server.URL, cfg); err == nil {
		t.Fatal("Download should fail when every attempt fails")
	}
	if calls != 2 {
		t.Errorf("Server saw %d calls, want 2", calls)
	}
}

func TestDownloadLocalPassthrough(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "conda-mirror-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "pkg.conda")
	os.WriteFile(path, []byte("content"), 0644)

	cfg := config.Default()
	content, err := Download(context.Background(), NewClient(cfg), "file://"+path, cfg)
	if err != nil {
		t.Fatalf("Download failed for file:// URL: %v", err)
	}
	if string(content) != "content" {
		t.Errorf("Download = %q, want %q", content, "content")
	}
}
