package grib

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ilias-t/griblet/internal/observability"
	"github.com/ilias-t/griblet/pkg/logger"
)

// Cache memoizes assembled time series on disk, one artifact per source
// file. An artifact is created lazily on the first successful parse, read
// back on every later request, and never invalidated automatically; a new
// parse fully replaces it. There is no freshness check against the source
// file's modification time.
type Cache struct {
	parser  *Parser
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewCache creates a result cache over the given parser.
func NewCache(parser *Parser, metrics *observability.Metrics, log *logger.Logger) *Cache {
	return &Cache{
		parser:  parser,
		metrics: metrics,
		logger:  log.Named("grib-cache"),
	}
}

// GetOrCompute returns the cached series at cachePath, or runs the full
// pipeline against sourcePath and persists the result. Concurrent callers
// for the same cache path share one in-flight computation instead of each
// running the decoder.
func (c *Cache) GetOrCompute(ctx context.Context, sourcePath, cachePath string, refTime *time.Time) (*MultiTimeVelocityData, error) {
	result, err, shared := c.group.Do(cachePath, func() (interface{}, error) {
		// The computation serves every coalesced caller, so it must outlive
		// the leader's request: a client disconnect cancels only the leader,
		// never the shared work.
		return c.getOrCompute(context.WithoutCancel(ctx), sourcePath, cachePath, refTime)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("Coalesced concurrent cache computation",
			logger.String("cache_path", cachePath))
	}
	return result.(*MultiTimeVelocityData), nil
}

func (c *Cache) getOrCompute(ctx context.Context, sourcePath, cachePath string, refTime *time.Time) (*MultiTimeVelocityData, error) {
	if data, err := c.read(cachePath); err == nil {
		c.metrics.CacheHits.Inc()
		c.logger.Debug("Cache hit", logger.String("cache_path", cachePath))
		return data, nil
	} else if !os.IsNotExist(err) {
		// An unreadable artifact is replaced by a fresh parse rather than
		// failing the request.
		c.logger.Warn("Discarding unreadable cache artifact",
			logger.String("cache_path", cachePath),
			logger.Error(err))
	}
	c.metrics.CacheMisses.Inc()

	data, err := c.parser.ParseFile(ctx, sourcePath, refTime)
	if err != nil {
		return nil, err
	}

	if err := c.write(cachePath, data); err != nil {
		// The parse succeeded; a write failure only costs the next request
		// a re-decode.
		c.logger.Warn("Failed to persist cache artifact",
			logger.String("cache_path", cachePath),
			logger.Error(err))
	}
	return data, nil
}

func (c *Cache) read(cachePath string) (*MultiTimeVelocityData, error) {
	raw, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	var data MultiTimeVelocityData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("corrupt cache artifact: %w", err)
	}
	return &data, nil
}

func (c *Cache) write(cachePath string, data *MultiTimeVelocityData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize series: %w", err)
	}
	if err := os.WriteFile(cachePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write cache artifact: %w", err)
	}
	c.logger.Info("Cache artifact written",
		logger.String("cache_path", cachePath),
		logger.Int("bytes", len(raw)))
	return nil
}
