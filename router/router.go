// Package router is the protocol surface: it defines the tool, resource,
// and prompt catalog once and serves it over both the stdio MCP transport
// and the HTTP endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/amotivv/youtube-tools-llm-context/download"
	"github.com/amotivv/youtube-tools-llm-context/media"
	"github.com/amotivv/youtube-tools-llm-context/telemetry"
	"github.com/amotivv/youtube-tools-llm-context/token"
	"github.com/amotivv/youtube-tools-llm-context/transcribe"
)

var (
	// ErrUnknownTool is returned for tool names outside the catalog.
	ErrUnknownTool = errors.New("router: unknown tool")
	// ErrResourceNotFound is returned when a resource URI does not resolve
	// to a cached entry.
	ErrResourceNotFound = errors.New("router: resource not found")
	// ErrUnknownPrompt is returned for prompt names outside the catalog.
	ErrUnknownPrompt = errors.New("router: unknown prompt")
	// ErrNotConfigured is returned when a tool needs a collaborator that
	// was not configured, such as transcription without a provider key.
	ErrNotConfigured = errors.New("router: transcription provider not configured")
)

// errInvalidArgument marks caller mistakes in tool arguments.
var errInvalidArgument = errors.New("router: invalid argument")

// Router dispatches tool calls, resource reads, and prompt requests to the
// underlying coordinators. The transcriber may be nil when no provider key
// is configured; the transcription tool then fails with ErrNotConfigured.
type Router struct {
	cache       *cache.Store
	downloads   *download.Coordinator
	transcriber *transcribe.Coordinator
	tokens      *token.Service
	extractor   media.Extractor
	baseURL     string
	logger      *slog.Logger
	now         func() time.Time
}

// Config wires the Router's collaborators.
type Config struct {
	Cache       *cache.Store
	Downloads   *download.Coordinator
	Transcriber *transcribe.Coordinator
	Tokens      *token.Service
	Extractor   media.Extractor
	// BaseURL is the externally reachable root for file links, without a
	// trailing slash.
	BaseURL string
	Logger  *slog.Logger
}

// New creates a Router.
func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cache:       cfg.Cache,
		downloads:   cfg.Downloads,
		transcriber: cfg.Transcriber,
		tokens:      cfg.Tokens,
		extractor:   cfg.Extractor,
		baseURL:     cfg.BaseURL,
		logger:      logger,
		now:         time.Now,
	}
}

// ToolError is the failure envelope returned in place of a tool result.
// Tool failures are data, not protocol errors: the caller always receives
// a well-formed payload it can inspect.
type ToolError struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

// CallTool executes a tool by name with raw JSON arguments and returns the
// result payload. Failures are reported as a ToolError value, never as a
// Go error; argument decoding mistakes go through the same envelope.
func (r *Router) CallTool(ctx context.Context, name string, args json.RawMessage) any {
	start := time.Now()
	result, err := r.dispatch(ctx, name, args)
	telemetry.RecordToolCall(ctx, name, err == nil, time.Since(start))
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "error", err)
		return ToolError{Error: err.Error(), ErrorKind: errorKind(err)}
	}
	return result
}

func (r *Router) dispatch(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case "youtube_download_video":
		var in DownloadVideoInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return r.DownloadVideo(ctx, in)
	case "youtube_download_audio":
		var in DownloadAudioInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return r.DownloadAudio(ctx, in)
	case "youtube_transcribe":
		var in TranscribeInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return r.Transcribe(ctx, in)
	case "youtube_get_info":
		var in InfoInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return r.GetInfo(ctx, in)
	case "youtube_list_cache":
		return r.ListCache(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func decodeArgs(args json.RawMessage, out any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgument, err)
	}
	return nil
}

// errorKind names an error category for the failure envelope.
func errorKind(err error) string {
	var failed *transcribe.FailedError
	switch {
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, errInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, transcribe.ErrTimeout):
		return "transcription_timeout"
	case errors.As(err, &failed):
		return "transcription_failed"
	case errors.Is(err, media.ErrUnsupportedSource):
		return "unsupported_source"
	default:
		return "download_error"
	}
}

// fileLink issues a retrieval token and returns the gateway URL plus the
// link's expiry.
func (r *Router) fileLink(entry *cache.Entry) (string, string, error) {
	tok, err := r.tokens.Issue(entry.Key, entry.Kind)
	if err != nil {
		return "", "", fmt.Errorf("issuing file token: %w", err)
	}
	expiresAt := r.now().UTC().Add(r.tokens.TTL()).Format(time.RFC3339)
	return r.baseURL + "/files/" + tok, expiresAt, nil
}
