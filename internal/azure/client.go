package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/models"
)

const apiBase = "https://dev.azure.com"

// Artifact is one Azure DevOps build artifact record.
type Artifact struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Source   string   `json:"source,omitempty"`
	Resource Resource `json:"resource"`
}

// Resource describes where and how an artifact can be fetched.
type Resource struct {
	Type        string      `json:"type"`
	Data        string      `json:"data"`
	Properties  *Properties `json:"properties,omitempty"`
	URL         string      `json:"url"`
	DownloadURL string      `json:"downloadUrl,omitempty"`
}

// Properties carries optional artifact storage metadata.
type Properties struct {
	RootID       string `json:"RootId,omitempty"`
	ArtifactSize string `json:"artifactsize,omitempty"`
	HashType     string `json:"HashType,omitempty"`
	DomainID     string `json:"DomainId,omitempty"`
}

// Build is one Azure DevOps build record.
type Build struct {
	ID            uint64     `json:"id"`
	BuildNumber   string     `json:"buildNumber,omitempty"`
	Status        string     `json:"status"`
	Result        string     `json:"result,omitempty"`
	QueueTime     string     `json:"queueTime,omitempty"`
	StartTime     string     `json:"startTime,omitempty"`
	FinishTime    string     `json:"finishTime,omitempty"`
	URL           string     `json:"url,omitempty"`
	Definition    Definition `json:"definition"`
	Project       Project    `json:"project"`
	SourceBranch  string     `json:"sourceBranch,omitempty"`
	SourceVersion string     `json:"sourceVersion,omitempty"`
}

// Definition identifies the build pipeline.
type Definition struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Project identifies the Azure DevOps project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type artifactsResponse struct {
	Count uint64     `json:"count"`
	Value []Artifact `json:"value"`
}

type buildsResponse struct {
	Count uint64  `json:"count"`
	Value []Build `json:"value"`
}

// Client talks to the Azure DevOps build API.
type Client struct {
	client  *http.Client
	token   string
	baseURL string
}

// NewClient builds a client using the configured timeout and PAT.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout()},
		token:   cfg.AzureDevopsToken,
		baseURL: apiBase,
	}
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		// Azure DevOps uses basic auth with an empty username and the
		// PAT as password.
		req.SetBasicAuth("", c.token)
	}
	return req, nil
}

// ListBuilds lists recent builds for a project.
func (c *Client) ListBuilds(ctx context.Context, organization, project string) ([]Build, error) {
	url := fmt.Sprintf("%s/%s/%s/_apis/build/builds?api-version=6.0",
		c.baseURL, organization, project)

	var response buildsResponse
	if err := c.getJSON(ctx, url, &response, "list Azure DevOps builds"); err != nil {
		return nil, err
	}

	logrus.Infof("Found %d builds for %s/%s", response.Count, organization, project)
	return response.Value, nil
}

// ListArtifacts lists artifacts for a specific build.
func (c *Client) ListArtifacts(ctx context.Context, organization, project string, buildID uint64) ([]Artifact, error) {
	url := fmt.Sprintf("%s/%s/%s/_apis/build/builds/%d/artifacts?api-version=6.0",
		c.baseURL, organization, project, buildID)

	var response artifactsResponse
	if err := c.getJSON(ctx, url, &response, "list Azure DevOps artifacts"); err != nil {
		return nil, err
	}

	logrus.Infof("Found %d artifacts for build %d in %s/%s",
		response.Count, buildID, organization, project)
	return response.Value, nil
}

// DownloadArtifact downloads a build artifact as a ZIP.
func (c *Client) DownloadArtifact(ctx context.Context, organization, project string, buildID uint64, artifactName string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/_apis/build/builds/%d/artifacts?artifactName=%s&api-version=6.0&%%24format=zip",
		c.baseURL, organization, project, buildID, artifactName)

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return nil, &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &models.MirrorError{
			Type: models.ErrNetwork,
			Err: fmt.Errorf("failed to download Azure DevOps artifact %q: %s - %s",
				artifactName, resp.Status, body),
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}

	logrus.Infof("Downloaded artifact %q (%d bytes) from build %d", artifactName, len(content), buildID)
	return content, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any, what string) error {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.MirrorError{
			Type: models.ErrNetwork,
			Err:  fmt.Errorf("failed to %s: %s - %s", what, resp.Status, body),
		}
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}

	if err := json.Unmarshal(text, out); err != nil {
		return &models.MirrorError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("failed to parse %s response as JSON: %w%s", what, err, parseFailureGuidance(text)),
		}
	}
	return nil
}

// parseFailureGuidance inspects a non-JSON API response and explains
// the likely cause. Azure DevOps redirects unauthenticated requests to
// an HTML sign-in page instead of returning 401.
func parseFailureGuidance(body []byte) string {
	preview := body
	if len(preview) > 2048 {
		preview = preview[:2048]
	}
	text := string(preview)

	guidance := "\n\nExpected JSON response from Azure DevOps API."
	if strings.Contains(text, "<html") || strings.Contains(text, "<!DOCTYPE html") {
		if strings.Contains(text, "_signin") || strings.Contains(text, "login") {
			guidance = "\n\nThis appears to be an authentication redirect. Azure DevOps requires a Personal Access Token (PAT).\n" +
				"Create a config file with {\"azure_devops_token\": \"your_pat_here\"} or set AZURE_DEVOPS_TOKEN."
		} else {
			guidance = "\n\nReceived HTML instead of JSON. This usually indicates an authentication or API endpoint issue."
		}
	}
	return fmt.Sprintf("\nResponse preview:\n%s%s", text, guidance)
}

// FilterArtifactsByName keeps artifacts whose name matches the regex
// pattern; empty or invalid patterns keep everything.
func FilterArtifactsByName(artifacts []Artifact, pattern string) []Artifact {
	if pattern == "" {
		return artifacts
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logrus.Warnf("Invalid regex pattern %q: %v", pattern, err)
		return artifacts
	}

	var filtered []Artifact
	for _, a := range artifacts {
		if re.MatchString(a.Name) {
			filtered = append(filtered, a)
		}
	}
	logrus.Infof("Filtered %d artifacts to %d matching pattern %q",
		len(artifacts), len(filtered), pattern)
	return filtered
}

// FilterBuildsByDescription keeps builds whose pipeline name or build
// number matches the regex pattern.
func FilterBuildsByDescription(builds []Build, pattern string) ([]Build, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("invalid description filter %q: %w", pattern, err),
		}
	}

	var filtered []Build
	for _, b := range builds {
		if re.MatchString(b.Definition.Name) || re.MatchString(b.BuildNumber) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// Downloadable reports whether an artifact can be fetched as a file.
func Downloadable(a Artifact) bool {
	return strings.EqualFold(a.Resource.Type, "Container") ||
		strings.EqualFold(a.Resource.Type, "FilePath") ||
		a.Resource.DownloadURL != ""
}

// ParseSource parses "org/project", "org/project#build" or a
// dev.azure.com URL into organization, project and an optional build
// ID.
func ParseSource(input string) (string, string, uint64, bool, error) {
	spec := input
	var buildID uint64
	hasBuild := false

	if before, after, found := strings.Cut(spec, "#"); found {
		id, err := ParseBuildID(after)
		if err != nil {
			return "", "", 0, false, err
		}
		spec = before
		buildID = id
		hasBuild = true
	}

	for _, prefix := range []string{"https://dev.azure.com/", "http://dev.azure.com/"} {
		if rest, ok := strings.CutPrefix(spec, prefix); ok {
			spec = rest
			break
		}
	}

	parts := strings.Split(strings.Trim(spec, "/"), "/")
	if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		return parts[0], parts[1], buildID, hasBuild, nil
	}

	return "", "", 0, false, &models.MirrorError{
		Type: models.ErrInvalidInput,
		Err:  fmt.Errorf("invalid Azure DevOps format %q, expected 'org/project[#build_id]' or a dev.azure.com URL", input),
	}
}

// ParseBuildID parses a numeric build ID.
func ParseBuildID(input string) (uint64, error) {
	id, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("invalid build ID %q, must be a number", input),
		}
	}
	return id, nil
}
