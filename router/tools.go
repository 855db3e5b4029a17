package router

import (
	"context"
	"fmt"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/amotivv/youtube-tools-llm-context/download"
	"github.com/amotivv/youtube-tools-llm-context/media"
	"github.com/amotivv/youtube-tools-llm-context/transcribe"
)

// DownloadVideoInput requests an MP4 download.
type DownloadVideoInput struct {
	URL     string `json:"url" jsonschema:"YouTube video URL"`
	Quality string `json:"quality,omitempty" jsonschema:"Video quality (best, 1080, 720, 480, 360)"`
}

// DownloadAudioInput requests an MP3 extraction.
type DownloadAudioInput struct {
	URL     string `json:"url" jsonschema:"YouTube video URL"`
	Quality string `json:"quality,omitempty" jsonschema:"Audio bitrate (320, 256, 192, 128)"`
}

// TranscribeInput requests a download-and-transcribe run.
type TranscribeInput struct {
	URL           string `json:"url" jsonschema:"YouTube video URL"`
	SpeakerLabels bool   `json:"speaker_labels,omitempty" jsonschema:"Enable speaker diarization"`
}

// InfoInput requests source metadata.
type InfoInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

// DownloadResult reports a completed download with a tokenized retrieval
// link.
type DownloadResult struct {
	Success   bool    `json:"success"`
	FilePath  string  `json:"file_path"`
	URL       string  `json:"url"`
	Title     string  `json:"title,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Size      int64   `json:"size"`
	Cached    bool    `json:"cached"`
	ExpiresAt string  `json:"expires_at"`
}

// TranscriptResult reports a completed transcription with a tokenized link
// to the raw payload.
type TranscriptResult struct {
	Success       bool    `json:"success"`
	Text          string  `json:"text"`
	TranscriptURL string  `json:"transcript_url"`
	Duration      float64 `json:"duration"`
	Confidence    float64 `json:"confidence"`
	Cached        bool    `json:"cached"`
	ExpiresAt     string  `json:"expires_at"`
}

// TranscribeResult pairs the audio download with its transcript.
type TranscribeResult struct {
	Audio      DownloadResult   `json:"audio"`
	Transcript TranscriptResult `json:"transcript"`
}

// CacheFile describes one cached artifact.
type CacheFile struct {
	Filename    string  `json:"filename"`
	CacheKey    string  `json:"cache_key"`
	Type        string  `json:"type"`
	Size        int64   `json:"size"`
	SizeMB      float64 `json:"size_mb"`
	Created     string  `json:"created"`
	ExpiresAt   string  `json:"expires_at"`
	ResourceURI string  `json:"resource_uri,omitempty"`
}

// ListCacheResult is the cache inventory.
type ListCacheResult struct {
	Success    bool        `json:"success"`
	CacheDir   string      `json:"cache_dir"`
	TotalFiles int         `json:"total_files"`
	Files      []CacheFile `json:"files"`
	Note       string      `json:"note"`
}

// DownloadVideo downloads an MP4 and returns its retrieval link.
func (r *Router) DownloadVideo(ctx context.Context, in DownloadVideoInput) (*DownloadResult, error) {
	if in.URL == "" {
		return nil, fmt.Errorf("%w: url is required", errInvalidArgument)
	}
	quality := in.Quality
	if quality == "" {
		quality = "best"
	}
	return r.obtain(ctx, in.URL, youtubetools.KindVideo, quality)
}

// DownloadAudio extracts an MP3 and returns its retrieval link.
func (r *Router) DownloadAudio(ctx context.Context, in DownloadAudioInput) (*DownloadResult, error) {
	if in.URL == "" {
		return nil, fmt.Errorf("%w: url is required", errInvalidArgument)
	}
	quality := in.Quality
	if quality == "" {
		quality = "192"
	}
	return r.obtain(ctx, in.URL, youtubetools.KindAudio, quality)
}

func (r *Router) obtain(ctx context.Context, url string, kind youtubetools.Kind, quality string) (*DownloadResult, error) {
	outcome, err := r.downloads.Obtain(ctx, url, kind, quality)
	if err != nil {
		return nil, err
	}
	return r.downloadResult(outcome)
}

func (r *Router) downloadResult(outcome *download.Outcome) (*DownloadResult, error) {
	link, expiresAt, err := r.fileLink(outcome.Entry)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{
		Success:   true,
		FilePath:  outcome.Entry.Path,
		URL:       link,
		Title:     outcome.Title,
		Duration:  outcome.Duration.Seconds(),
		Size:      outcome.Entry.Size,
		Cached:    outcome.Cached,
		ExpiresAt: expiresAt,
	}, nil
}

// Transcribe downloads the audio track and transcribes it. The audio step
// reuses the standard 192 kbps extraction so repeat transcriptions hit the
// same cache entry.
func (r *Router) Transcribe(ctx context.Context, in TranscribeInput) (*TranscribeResult, error) {
	if in.URL == "" {
		return nil, fmt.Errorf("%w: url is required", errInvalidArgument)
	}
	if r.transcriber == nil {
		return nil, ErrNotConfigured
	}

	audioOutcome, err := r.downloads.Obtain(ctx, in.URL, youtubetools.KindAudio, "192")
	if err != nil {
		return nil, err
	}
	audio, err := r.downloadResult(audioOutcome)
	if err != nil {
		return nil, err
	}

	outcome, err := r.transcriber.Transcribe(ctx, audioOutcome.Entry.Key, audioOutcome.Entry.Path, transcribe.SubmitOptions{
		SpeakerLabels: in.SpeakerLabels,
	})
	if err != nil {
		return nil, err
	}

	link, expiresAt, err := r.fileLink(outcome.Entry)
	if err != nil {
		return nil, err
	}
	return &TranscribeResult{
		Audio: *audio,
		Transcript: TranscriptResult{
			Success:       true,
			Text:          transcribe.PlainText(outcome.Result),
			TranscriptURL: link,
			Duration:      outcome.Result.AudioDuration,
			Confidence:    outcome.Result.Confidence,
			Cached:        outcome.Cached,
			ExpiresAt:     expiresAt,
		},
	}, nil
}

// GetInfo probes source metadata without downloading.
func (r *Router) GetInfo(ctx context.Context, in InfoInput) (*media.Info, error) {
	if in.URL == "" {
		return nil, fmt.Errorf("%w: url is required", errInvalidArgument)
	}
	return r.extractor.Probe(ctx, in.URL)
}

// ListCache returns the cache inventory, newest first.
func (r *Router) ListCache(ctx context.Context) (*ListCacheResult, error) {
	entries, err := r.cache.List(ctx)
	if err != nil {
		return nil, err
	}

	files := make([]CacheFile, 0, len(entries))
	for _, entry := range entries {
		files = append(files, CacheFile{
			Filename:    entry.Kind.Filename(entry.Key),
			CacheKey:    entry.Key.String(),
			Type:        string(entry.Kind),
			Size:        entry.Size,
			SizeMB:      float64(entry.Size) / (1 << 20),
			Created:     entry.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt:   entry.ExpiresAt.UTC().Format(time.RFC3339),
			ResourceURI: resourceURI(entry.Key, entry.Kind),
		})
	}
	return &ListCacheResult{
		Success:    true,
		CacheDir:   r.cache.Dir(),
		TotalFiles: len(files),
		Files:      files,
		Note:       "Cached audio and transcripts are also readable via the resource URIs listed",
	}, nil
}
