// Package media wraps the external media-extraction engine. The engine's
// format-negotiation internals are out of scope; this package only shapes
// requests and results.
package media

import (
	"context"
	"errors"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
)

// ErrUnsupportedSource is returned when the extraction engine rejects the
// source URL.
var ErrUnsupportedSource = errors.New("media: unsupported source")

// ProgressEvent reports extraction progress. Events are delivered
// synchronously on the extraction goroutine; handlers must not block.
type ProgressEvent struct {
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
}

// ProgressFunc observes extraction progress.
type ProgressFunc func(ProgressEvent)

// Request describes one extraction.
type Request struct {
	URL     string
	Kind    youtubetools.Kind
	Quality string

	// OutputPath is where the extracted file must be written. The extractor
	// owns the file until Extract returns.
	OutputPath string

	// OnProgress, if set, receives progress events during the download.
	OnProgress ProgressFunc
}

// Result describes a completed extraction.
type Result struct {
	Path     string
	Title    string
	Duration time.Duration
	Size     int64
}

// Info is source metadata returned without downloading.
type Info struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    float64  `json:"duration"`
	Uploader    string   `json:"uploader"`
	UploadDate  string   `json:"upload_date"`
	ViewCount   int64    `json:"view_count"`
	LikeCount   int64    `json:"like_count"`
	Thumbnail   string   `json:"thumbnail"`
	Formats     int      `json:"formats"`
	Subtitles   []string `json:"subtitles"`
}

// Extractor fetches remote media. Implementations must be safe for
// concurrent use; the download coordinator guarantees at most one Extract
// call per cache key but runs distinct keys in parallel.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
	Probe(ctx context.Context, url string) (*Info, error)
}
