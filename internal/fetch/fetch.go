package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/pkgmirror/conda-mirror/internal/config"
	"github.com/pkgmirror/conda-mirror/internal/models"
)

// retryBaseInterval is the first retry delay; doubles per attempt.
var retryBaseInterval = 2 * time.Second

// NewClient builds the shared HTTP client with the configured global
// timeout.
func NewClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Timeout()}
}

// Download fetches url with bounded retry. file:// URLs and bare
// filesystem paths are read from disk without retrying.
func Download(ctx context.Context, client *http.Client, url string, cfg *config.Config) ([]byte, error) {
	if strings.HasPrefix(url, "file://") ||
		(!strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://")) {
		return ReadLocal(url)
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryBaseInterval
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	var content []byte
	operation := func() error {
		attempt++
		logrus.Infof("Downloading from %s (attempt %d/%d)", url, attempt, attempts)

		data, err := fetchOnce(ctx, client, url)
		if err != nil {
			logrus.Warnf("Download failed: %v, retrying...", err)
			return err
		}
		content = data
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx))
	if err != nil {
		return nil, &models.MirrorError{
			Type: models.ErrNetwork,
			Err:  fmt.Errorf("failed to download %s: %w", url, err),
		}
	}

	logrus.Infof("Successfully downloaded %d bytes", len(content))
	return content, nil
}

func fetchOnce(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// ReadLocal reads a file:// URL or plain path from disk.
func ReadLocal(url string) ([]byte, error) {
	path := strings.TrimPrefix(url, "file://")
	logrus.Infof("Reading local file: %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.MirrorError{
			Type: models.ErrStorage,
			Err:  fmt.Errorf("failed to read local file %q: %w", path, err),
		}
	}

	logrus.Infof("Successfully read %d bytes from local file", len(content))
	return content, nil
}
