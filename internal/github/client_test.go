package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkgmirror/conda-mirror/internal/config"
)

func TestParseRepository(t *testing.T) {
	cases := []struct {
		input string
		owner string
		repo  string
	}{
		{"octocat/hello-world", "octocat", "hello-world"},
		{"octocat/hello-world#123", "octocat", "hello-world"},
		{"https://github.com/octocat/hello-world", "octocat", "hello-world"},
		{"https://github.com/octocat/hello-world/", "octocat", "hello-world"},
		{"http://github.com/octocat/hello-world#9", "octocat", "hello-world"},
	}

	for _, tc := range cases {
		owner, repo, err := ParseRepository(tc.input)
		if err != nil {
			t.Errorf("ParseRepository(%q) failed: %v", tc.input, err)
			continue
		}
		if owner != tc.owner || repo != tc.repo {
			t.Errorf("ParseRepository(%q) = %s/%s, want %s/%s",
				tc.input, owner, repo, tc.owner, tc.repo)
		}
	}

	for _, input := range []string{"", "justowner", "/repo", "owner/"} {
		if _, _, err := ParseRepository(input); err == nil {
			t.Errorf("ParseRepository(%q) should fail", input)
		}
	}
}

func TestParseArtifactID(t *testing.T) {
	id, err := ParseArtifactID("123456")
	if err != nil {
		t.Fatalf("ParseArtifactID failed: %v", err)
	}
	if id != 123456 {
		t.Errorf("ParseArtifactID = %d, want 123456", id)
	}

	if _, err := ParseArtifactID("latest"); err == nil {
		t.Error("ParseArtifactID should reject non-numeric input")
	}
}

func TestFilterByName(t *testing.T) {
	artifacts := []Artifact{
		{Name: "conda-packages-linux"},
		{Name: "conda-packages-osx"},
		{Name: "coverage-report"},
	}

	filtered := FilterByName(artifacts, `^conda-packages-`)
	if len(filtered) != 2 {
		t.Fatalf("FilterByName kept %d artifacts, want 2", len(filtered))
	}

	// An invalid pattern keeps everything rather than failing
	if got := FilterByName(artifacts, "(["); len(got) != 3 {
		t.Errorf("Invalid pattern kept %d artifacts, want all 3", len(got))
	}

	if got := FilterByName(artifacts, ""); len(got) != 3 {
		t.Errorf("Empty pattern kept %d artifacts, want all 3", len(got))
	}
}

func TestFilterNonExpired(t *testing.T) {
	artifacts := []Artifact{
		{Name: "fresh", Expired: false},
		{Name: "stale", Expired: true},
	}

	kept := FilterNonExpired(artifacts)
	if len(kept) != 1 || kept[0].Name != "fresh" {
		t.Errorf("FilterNonExpired = %v, want only the fresh artifact", kept)
	}
}

func TestListArtifacts(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octocat/hello-world/actions/artifacts" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{
			"total_count": 2,
			"artifacts": [
				{"id": 11, "name": "conda-packages", "size_in_bytes": 1024, "expired": false},
				{"id": 12, "name": "logs", "size_in_bytes": 64, "expired": true}
			]
		}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.GithubToken = "test-token"
	client := NewClient(cfg)
	client.baseURL = server.URL

	artifacts, err := client.ListArtifacts(context.Background(), "octocat", "hello-world")
	if err != nil {
		t.Fatalf("ListArtifacts failed: %v", err)
	}

	if len(artifacts) != 2 {
		t.Fatalf("ListArtifacts returned %d artifacts, want 2", len(artifacts))
	}
	if artifacts[0].ID != 11 || artifacts[0].Name != "conda-packages" {
		t.Errorf("First artifact = %+v", artifacts[0])
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotAccept != "application/vnd.github+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestListArtifactsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(config.Default())
	client.baseURL = server.URL

	if _, err := client.ListArtifacts(context.Background(), "octocat", "missing"); err == nil {
		t.Fatal("ListArtifacts should surface HTTP errors")
	}
}
