package azure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkgmirror/conda-mirror/internal/config"
)

func TestParseSource(t *testing.T) {
	cases := []struct {
		input    string
		org      string
		project  string
		buildID  uint64
		hasBuild bool
	}{
		{"myorg/myproject", "myorg", "myproject", 0, false},
		{"myorg/myproject#42", "myorg", "myproject", 42, true},
		{"https://dev.azure.com/myorg/myproject", "myorg", "myproject", 0, false},
		{"https://dev.azure.com/myorg/myproject#7", "myorg", "myproject", 7, true},
	}

	for _, tc := range cases {
		org, project, buildID, hasBuild, err := ParseSource(tc.input)
		if err != nil {
			t.Errorf("ParseSource(%q) failed: %v", tc.input, err)
			continue
		}
		if org != tc.org || project != tc.project {
			t.Errorf("ParseSource(%q) = %s/%s, want %s/%s",
				tc.input, org, project, tc.org, tc.project)
		}
		if hasBuild != tc.hasBuild || buildID != tc.buildID {
			t.Errorf("ParseSource(%q) build = (%d, %v), want (%d, %v)",
				tc.input, buildID, hasBuild, tc.buildID, tc.hasBuild)
		}
	}

	for _, input := range []string{"", "orgonly", "org/", "org/project#notanumber"} {
		if _, _, _, _, err := ParseSource(input); err == nil {
			t.Errorf("ParseSource(%q) should fail", input)
		}
	}
}

func TestFilterBuildsByDescription(t *testing.T) {
	builds := []Build{
		{ID: 1, BuildNumber: "20240101.1", Definition: Definition{Name: "conda-packages"}},
		{ID: 2, BuildNumber: "20240102.1", Definition: Definition{Name: "docs"}},
	}

	filtered, err := FilterBuildsByDescription(builds, "conda")
	if err != nil {
		t.Fatalf("FilterBuildsByDescription failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != 1 {
		t.Errorf("Filtered builds = %v, want only build 1", filtered)
	}

	// Build numbers match too
	filtered, err = FilterBuildsByDescription(builds, `20240102\.`)
	if err != nil {
		t.Fatalf("FilterBuildsByDescription failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != 2 {
		t.Errorf("Filtered builds = %v, want only build 2", filtered)
	}

	if _, err := FilterBuildsByDescription(builds, "(["); err == nil {
		t.Error("FilterBuildsByDescription should reject invalid patterns")
	}
}

func TestDownloadable(t *testing.T) {
	cases := []struct {
		artifact Artifact
		want     bool
	}{
		{Artifact{Resource: Resource{Type: "Container"}}, true},
		{Artifact{Resource: Resource{Type: "FilePath"}}, true},
		{Artifact{Resource: Resource{Type: "PipelineArtifact", DownloadURL: "https://example.com/a.zip"}}, true},
		{Artifact{Resource: Resource{Type: "SymbolStore"}}, false},
	}

	for _, tc := range cases {
		if got := Downloadable(tc.artifact); got != tc.want {
			t.Errorf("Downloadable(%+v) = %v, want %v", tc.artifact.Resource, got, tc.want)
		}
	}
}

func TestListBuilds(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/myorg/myproject/_apis/build/builds" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"count": 1,
			"value": [
				{"id": 42, "buildNumber": "20240101.1", "status": "completed",
				 "result": "succeeded", "definition": {"id": 5, "name": "conda-packages"}}
			]
		}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.AzureDevopsToken = "pat"
	client := NewClient(cfg)
	client.baseURL = server.URL

	builds, err := client.ListBuilds(context.Background(), "myorg", "myproject")
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}

	if len(builds) != 1 || builds[0].ID != 42 {
		t.Fatalf("ListBuilds = %+v, want one build with id 42", builds)
	}
	if builds[0].Definition.Name != "conda-packages" {
		t.Errorf("Definition name = %q", builds[0].Definition.Name)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("Authorization = %q, want basic auth with the PAT", gotAuth)
	}
}

func TestListBuildsHTMLLoginResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!DOCTYPE html><html><body><a href="/_signin">Sign in</a></body></html>`))
	}))
	defer server.Close()

	client := NewClient(config.Default())
	client.baseURL = server.URL

	_, err := client.ListBuilds(context.Background(), "myorg", "myproject")
	if err == nil {
		t.Fatal("ListBuilds should fail on an HTML sign-in response")
	}
	if !strings.Contains(err.Error(), "Personal Access Token") {
		t.Errorf("Error should carry PAT guidance, got:\n%v", err)
	}
}
