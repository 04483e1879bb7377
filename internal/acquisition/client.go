package acquisition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilias-t/griblet/pkg/logger"
)

// Config contains the remote provider settings
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	MaxRetries     int
}

// Client downloads GRIB files from the configured weather-data provider
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new acquisition client
func NewClient(config Config, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: log.Named("acquisition-client"),
	}
}

// Fetch downloads the file selected by the provider query parameters into
// destDir and returns the path of the downloaded file. Downloads go through
// a temporary file so a partial transfer never masquerades as a usable GRIB.
func (c *Client) Fetch(ctx context.Context, params url.Values, destDir, name string) (string, error) {
	reqURL := c.config.BaseURL
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	destPath := filepath.Join(destDir, name)
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying GRIB download",
				logger.String("name", name),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.download(ctx, reqURL, destPath); err != nil {
			lastErr = err
			c.logger.Warn("GRIB download failed, may retry",
				logger.String("name", name),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		if attempt > 0 {
			c.logger.Info("GRIB download succeeded after retries",
				logger.String("name", name),
				logger.Int("attempts_needed", attempt+1))
		}
		return destPath, nil
	}

	c.logger.Error("All attempts to download GRIB file failed",
		logger.String("name", name),
		logger.Error(lastErr))
	return "", lastErr
}

func (c *Client) download(ctx context.Context, reqURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("error building provider request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error requesting provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("error staging download: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("error writing download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error finalizing download: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("error moving download into place: %w", err)
	}

	c.logger.Info("GRIB file downloaded",
		logger.String("path", destPath),
		logger.Int64("bytes", written))
	return nil
}
