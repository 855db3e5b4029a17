package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/amotivv/youtube-tools-llm-context/telemetry"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPollInterval matches the provider's recommended polling cadence.
	DefaultPollInterval = 3 * time.Second
	// DefaultMaxWait bounds how long one request waits for a job to finish.
	DefaultMaxWait = 30 * time.Minute
)

// Coordinator runs transcription jobs against a Provider and persists the
// raw result in the cache under the source audio's key. Concurrent requests
// for the same audio share one job.
type Coordinator struct {
	cache        *cache.Store
	provider     Provider
	pollInterval time.Duration
	maxWait      time.Duration
	group        singleflight.Group
	logger       *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPollInterval sets the job polling cadence.
func WithPollInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxWait bounds the polling window per job.
func WithMaxWait(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// WithLogger sets the logger for the coordinator.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a transcription coordinator.
func NewCoordinator(store *cache.Store, provider Provider, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		cache:        store,
		provider:     provider,
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outcome reports a resolved transcription request.
type Outcome struct {
	Result *Result
	Entry  *cache.Entry
	// Cached is true when the transcript was served from the cache without
	// running a new job.
	Cached bool
}

// Transcribe returns the transcript for the audio cached under key,
// submitting and polling a new job on a miss. The transcript is stored as
// its own cache entry under the same key as the audio, so it expires with
// its retention window independently.
//
// ErrTimeout and FailedError are terminal for the request: the failed or
// abandoned job is never recorded, so a later request starts fresh.
func (c *Coordinator) Transcribe(ctx context.Context, key youtubetools.Key, audioPath string, opts SubmitOptions) (*Outcome, error) {
	if entry, err := c.cache.Resolve(ctx, key, youtubetools.KindTranscript); err == nil {
		result, err := loadResult(entry.Path)
		if err == nil {
			telemetry.RecordCacheLookup(ctx, string(youtubetools.KindTranscript), true)
			return &Outcome{Result: result, Entry: entry, Cached: true}, nil
		}
		c.logger.Warn("cached transcript unreadable, re-transcribing", "key", key.ShortString(), "error", err)
	}
	telemetry.RecordCacheLookup(ctx, string(youtubetools.KindTranscript), false)

	ch := c.group.DoChan(key.String(), func() (any, error) {
		outcome, err := c.run(context.WithoutCancel(ctx), key, audioPath, opts)
		if err != nil {
			c.group.Forget(key.String())
			return nil, err
		}
		return outcome, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Outcome), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run executes one job end to end: upload, submit, poll, persist.
func (c *Coordinator) run(ctx context.Context, key youtubetools.Key, audioPath string, opts SubmitOptions) (*Outcome, error) {
	start := time.Now()

	audioURL, err := c.provider.Upload(ctx, audioPath)
	if err != nil {
		telemetry.RecordTranscription(ctx, "upload_error", time.Since(start))
		return nil, err
	}

	id, err := c.provider.Submit(ctx, audioURL, opts)
	if err != nil {
		telemetry.RecordTranscription(ctx, "submit_error", time.Since(start))
		return nil, err
	}
	c.logger.Info("transcription job submitted", "key", key.ShortString(), "job_id", id)

	result, err := c.poll(ctx, id)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrTimeout) {
			outcome = "timeout"
		}
		telemetry.RecordTranscription(ctx, outcome, time.Since(start))
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding transcript: %w", err)
	}
	entry, err := c.cache.PublishBytes(ctx, key, youtubetools.KindTranscript, raw)
	if err != nil {
		telemetry.RecordTranscription(ctx, "error", time.Since(start))
		return nil, fmt.Errorf("caching transcript: %w", err)
	}

	telemetry.RecordTranscription(ctx, "ok", time.Since(start))
	c.logger.Info("transcription complete",
		"key", key.ShortString(),
		"job_id", id,
		"audio_duration", result.AudioDuration,
		"elapsed", time.Since(start))

	return &Outcome{Result: result, Entry: entry}, nil
}

// poll fetches job state at the configured cadence until the job reaches a
// terminal state or the polling window closes.
func (c *Coordinator) poll(ctx context.Context, id string) (*Result, error) {
	deadline := time.Now().Add(c.maxWait)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		result, err := c.provider.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case StatusCompleted:
			return result, nil
		case StatusError:
			return nil, &FailedError{ID: id, Message: result.Error}
		}

		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Load reads a previously cached raw transcript.
func (c *Coordinator) Load(ctx context.Context, key youtubetools.Key) (*Result, *cache.Entry, error) {
	entry, err := c.cache.Resolve(ctx, key, youtubetools.KindTranscript)
	if err != nil {
		return nil, nil, err
	}
	result, err := loadResult(entry.Path)
	if err != nil {
		return nil, nil, err
	}
	return result, entry, nil
}

func loadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}
	return &result, nil
}
