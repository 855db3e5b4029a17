// Package download coordinates media acquisition: cache-first resolution
// with singleflight-based deduplication of concurrent fetches. When multiple
// requests arrive for the same uncached media, only one extraction runs.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/amotivv/youtube-tools-llm-context/media"
	"github.com/amotivv/youtube-tools-llm-context/telemetry"
	"golang.org/x/sync/singleflight"
)

// Coordinator resolves media requests against the cache and deduplicates
// cache-miss extractions per key. It uses DoChan so each caller can respect
// its own context deadline without cancelling the in-flight extraction for
// other waiters.
type Coordinator struct {
	cache     *cache.Store
	extractor media.Extractor
	tempDir   string
	group     singleflight.Group
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithTempDir sets the working directory for in-flight extractions. Defaults
// to the system temp directory.
func WithTempDir(dir string) Option {
	return func(c *Coordinator) {
		if dir != "" {
			c.tempDir = dir
		}
	}
}

// New creates a coordinator backed by the given cache and extractor.
func New(store *cache.Store, extractor media.Extractor, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:     store,
		extractor: extractor,
		tempDir:   os.TempDir(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outcome reports a resolved media request.
type Outcome struct {
	Entry *cache.Entry
	Title string
	// Duration is the media runtime when a fresh extraction reported one.
	Duration time.Duration
	// Cached is true when the entry was served from the cache without a new
	// extraction.
	Cached bool
}

// Obtain returns a cache entry for (url, kind, quality), extracting and
// publishing on a miss. Concurrent calls for the same key share one
// extraction; each caller still honors its own context deadline, and a
// caller timing out does not cancel the extraction for the others.
//
// A shared extraction failure is delivered to every waiter, and the key is
// forgotten so the next call retries fresh.
func (c *Coordinator) Obtain(ctx context.Context, url string, kind youtubetools.Kind, quality string) (*Outcome, error) {
	key := youtubetools.NewKey(url, kind, quality)

	if entry, err := c.cache.Resolve(ctx, key, kind); err == nil {
		telemetry.RecordCacheLookup(ctx, string(kind), true)
		return &Outcome{Entry: entry, Cached: true}, nil
	}
	telemetry.RecordCacheLookup(ctx, string(kind), false)

	ch := c.group.DoChan(key.String()+"/"+string(kind), func() (any, error) {
		// Detached context so that no single caller's cancellation stops
		// the extraction for everyone else.
		outcome, err := c.fetch(context.WithoutCancel(ctx), key, url, kind, quality)
		if err != nil {
			c.group.Forget(key.String() + "/" + string(kind))
			return nil, err
		}
		return outcome, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		outcome := res.Val.(*Outcome)
		if res.Shared {
			c.logger.Debug("extraction shared with concurrent caller", "key", key.ShortString(), "kind", kind)
		}
		return outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch runs one extraction and publishes the result into the cache.
func (c *Coordinator) fetch(ctx context.Context, key youtubetools.Key, url string, kind youtubetools.Kind, quality string) (*Outcome, error) {
	start := time.Now()
	workPath := filepath.Join(c.tempDir, fmt.Sprintf("dl-%s%s", key.String(), kind.Ext()))
	defer os.Remove(workPath)

	result, err := c.extractor.Extract(ctx, media.Request{
		URL:        url,
		Kind:       kind,
		Quality:    quality,
		OutputPath: workPath,
	})
	if err != nil {
		telemetry.RecordDownload(ctx, string(kind), "error", 0, time.Since(start))
		return nil, fmt.Errorf("extracting %s: %w", url, err)
	}

	entry, err := c.cache.Publish(ctx, key, kind, result.Path)
	if err != nil {
		telemetry.RecordDownload(ctx, string(kind), "error", 0, time.Since(start))
		return nil, fmt.Errorf("publishing %s: %w", key.ShortString(), err)
	}

	telemetry.RecordDownload(ctx, string(kind), "ok", entry.Size, time.Since(start))
	c.logger.Info("media cached",
		"key", key.ShortString(),
		"kind", kind,
		"size", entry.Size,
		"elapsed", time.Since(start))

	return &Outcome{Entry: entry, Title: result.Title, Duration: result.Duration}, nil
}
