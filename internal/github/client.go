package github

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

const apiBase = "https://api.github.com"

// Artifact is one GitHub Actions artifact record.
type Artifact struct {
	ID                 uint64       `json:"id"`
	Name               string       `json:"name"`
	SizeInBytes        uint64       `json:"size_in_bytes"`
	URL                string       `json:"url"`
	ArchiveDownloadURL string       `json:"archive_download_url"`
	Expired            bool         `json:"expired"`
	CreatedAt          string       `json:"created_at"`
	UpdatedAt          string       `json:"updated_at"`
	ExpiresAt          string       `json:"expires_at"`
	WorkflowRun        *WorkflowRun `json:"workflow_run,omitempty"`
}

// WorkflowRun identifies the workflow run that produced an artifact.
type WorkflowRun struct {
	ID               uint64 `json:"id"`
	RepositoryID     uint64 `json:"repository_id"`
	HeadRepositoryID uint64 `json:"head_repository_id,omitempty"`
	HeadBranch       string `json:"head_branch"`
	HeadSHA          string `json:"head_sha"`
}

type artifactsResponse struct {
	TotalCount uint64     `json:"total_count"`
	Artifacts  []Artifact `json:"artifacts"`
}

// Client talks to the GitHub Actions artifacts API.
type Client struct {
	client  *http.Client
	token   string
	baseURL string
}

// NewClient builds a client using the configured timeout and token.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout()},
		token:   cfg.GithubToken,
		baseURL: apiBase,
	}
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return req, nil
}

// ListArtifacts lists all artifacts for a repository.
func (c *Client) ListArtifacts(ctx context.Context, owner, repo string) ([]Artifact, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/artifacts", c.baseURL, owner, repo)

	var response artifactsResponse
	if err := c.getJSON(ctx, url, &response, "list GitHub artifacts"); err != nil {
		return nil, err
	}

	logrus.Infof("Found %d artifacts for %s/%s", response.TotalCount, owner, repo)
	return response.Artifacts, nil
}

// GetArtifact fetches a single artifact record by ID.
func (c *Client) GetArtifact(ctx context.Context, owner, repo string, artifactID uint64) (*Artifact, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/artifacts/%d", c.baseURL, owner, repo, artifactID)

	var artifact Artifact
	if err := c.getJSON(ctx, url, &artifact, fmt.Sprintf("get GitHub artifact %d", artifactID)); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// DownloadArtifact downloads an artifact's ZIP content.
func (c *Client) DownloadArtifact(ctx context.Context, owner, repo string, artifactID uint64) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/artifacts/%d/zip", c.baseURL, owner, repo, artifactID)

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
			Err: fmt.Errorf("failed to download GitHub artifact %d: %s - %s",
				artifactID, resp.Status, body),
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.MirrorError{Type: models.ErrNetwork, Err: err}
	}

	logrus.Infof("Downloaded artifact %d (%d bytes) from %s/%s",
		artifactID, len(content), owner, repo)
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

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.MirrorError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("failed to decode %s response: %w", what, err),
		}
	}
	return nil
}

// FilterByName keeps artifacts whose name matches the regex pattern.
// An empty or invalid pattern keeps everything (invalid logs a
// warning).
func FilterByName(artifacts []Artifact, pattern string) []Artifact {
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

// FilterNonExpired drops expired artifacts.
func FilterNonExpired(artifacts []Artifact) []Artifact {
	var kept []Artifact
	for _, a := range artifacts {
		if !a.Expired {
			kept = append(kept, a)
		}
	}
	if len(kept) != len(artifacts) {
		logrus.Infof("Filtered out %d expired artifacts, %d remaining",
			len(artifacts)-len(kept), len(kept))
	}
	return kept
}

// ParseRepository accepts "owner/repo" or a github.com URL and returns
// the owner and repository names. A "#id" suffix on the repo part is
// ignored here; ParseArtifactID handles it.
func ParseRepository(input string) (string, string, error) {
	spec := input
	if idx := strings.Index(spec, "#"); idx >= 0 {
		spec = spec[:idx]
	}

	for _, prefix := range []string{"https://github.com/", "http://github.com/"} {
		if rest, ok := strings.CutPrefix(spec, prefix); ok {
			spec = rest
			break
		}
	}

	parts := strings.Split(strings.Trim(spec, "/"), "/")
	if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		return parts[0], parts[1], nil
	}

	return "", "", &models.MirrorError{
		Type: models.ErrInvalidInput,
		Err:  fmt.Errorf("invalid GitHub repository format %q, expected 'owner/repo' or a github.com URL", input),
	}
}

// ParseArtifactID parses a numeric artifact ID.
func ParseArtifactID(input string) (uint64, error) {
	id, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, &models.MirrorError{
			Type: models.ErrInvalidInput,
			Err:  fmt.Errorf("invalid artifact ID %q, must be a number", input),
		}
	}
	return id, nil
}
