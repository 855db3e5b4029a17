package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
)

// DefaultBinary is the extraction engine binary resolved from PATH when no
// explicit path is configured.
const DefaultBinary = "yt-dlp"

// YtDlp extracts media by driving the yt-dlp binary as a subprocess.
type YtDlp struct {
	path   string
	logger *slog.Logger
}

var _ Extractor = (*YtDlp)(nil)

// YtDlpOption configures a YtDlp extractor.
type YtDlpOption func(*YtDlp)

// WithBinary sets an explicit path to the yt-dlp binary.
func WithBinary(path string) YtDlpOption {
	return func(y *YtDlp) {
		if path != "" {
			y.path = path
		}
	}
}

// WithLogger sets the logger used for subprocess diagnostics.
func WithLogger(logger *slog.Logger) YtDlpOption {
	return func(y *YtDlp) {
		y.logger = logger
	}
}

// NewYtDlp creates a subprocess-backed extractor.
func NewYtDlp(opts ...YtDlpOption) *YtDlp {
	y := &YtDlp{
		path:   DefaultBinary,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// progressRe matches yt-dlp's --newline download progress lines, e.g.
// "[download]  42.5% of 10.00MiB at 1.2MiB/s ETA 00:05".
var progressRe = regexp.MustCompile(`^\[download\]\s+([0-9.]+)%(?:\s+of\s+~?\s*([0-9.]+)(KiB|MiB|GiB|B))?`)

// Extract downloads the requested media into req.OutputPath. The output
// extension must match the kind's container (.mp3 for audio, .mp4 for video);
// the subprocess writes through a sibling working name and the post-processed
// file lands at req.OutputPath on success.
func (y *YtDlp) Extract(ctx context.Context, req Request) (*Result, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("media: empty url")
	}

	base := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath))
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--write-info-json",
		"-o", base + ".%(ext)s",
	}
	switch req.Kind {
	case youtubetools.KindAudio:
		quality := req.Quality
		if quality == "" {
			quality = "192"
		}
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", quality,
		)
	case youtubetools.KindVideo:
		args = append(args,
			"-f", videoFormat(req.Quality),
			"--merge-output-format", "mp4",
		)
	default:
		return nil, fmt.Errorf("media: kind %q is not extractable", req.Kind)
	}
	args = append(args, req.URL)

	start := time.Now()
	cmd := exec.CommandContext(ctx, y.path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", y.path, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if req.OnProgress == nil {
			continue
		}
		if ev, ok := parseProgress(scanner.Text()); ok {
			req.OnProgress(ev)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyExtractError(err, stderr.String())
	}

	stat, err := os.Stat(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("extraction produced no output at %s: %w", req.OutputPath, err)
	}

	result := &Result{
		Path: req.OutputPath,
		Size: stat.Size(),
	}

	infoPath := base + ".info.json"
	if meta, err := readSidecarInfo(infoPath); err == nil {
		result.Title = meta.Title
		result.Duration = time.Duration(meta.Duration * float64(time.Second))
	} else {
		y.logger.Warn("extraction metadata unavailable", "path", infoPath, "error", err)
	}
	_ = os.Remove(infoPath)

	y.logger.Info("extraction complete",
		"url", req.URL,
		"kind", req.Kind,
		"size", result.Size,
		"duration", time.Since(start))
	return result, nil
}

// Probe fetches source metadata without downloading.
func (y *YtDlp) Probe(ctx context.Context, url string) (*Info, error) {
	if url == "" {
		return nil, fmt.Errorf("media: empty url")
	}

	cmd := exec.CommandContext(ctx, y.path, "-J", "--no-download", "--no-playlist", "--no-warnings", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyExtractError(err, stderr.String())
	}

	var raw struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Duration    float64 `json:"duration"`
		Uploader    string  `json:"uploader"`
		UploadDate  string  `json:"upload_date"`
		ViewCount   int64   `json:"view_count"`
		LikeCount   int64   `json:"like_count"`
		Thumbnail   string  `json:"thumbnail"`
		Formats     []struct {
			FormatID string `json:"format_id"`
		} `json:"formats"`
		Subtitles map[string]json.RawMessage `json:"subtitles"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("decoding probe output: %w", err)
	}

	info := &Info{
		Title:       raw.Title,
		Description: raw.Description,
		Duration:    raw.Duration,
		Uploader:    raw.Uploader,
		UploadDate:  raw.UploadDate,
		ViewCount:   raw.ViewCount,
		LikeCount:   raw.LikeCount,
		Thumbnail:   raw.Thumbnail,
		Formats:     len(raw.Formats),
		Subtitles:   make([]string, 0, len(raw.Subtitles)),
	}
	for lang := range raw.Subtitles {
		info.Subtitles = append(info.Subtitles, lang)
	}
	return info, nil
}

// videoFormat builds the yt-dlp format selector for a video request. Quality
// is a height cap like "720"; "best" or empty means no cap.
func videoFormat(quality string) string {
	if quality == "" || quality == "best" {
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return fmt.Sprintf(
		"bestvideo[height<=%[1]s][ext=mp4]+bestaudio[ext=m4a]/best[height<=%[1]s][ext=mp4]/best[height<=%[1]s]/best",
		quality)
}

func parseProgress(line string) (ProgressEvent, bool) {
	m := progressRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ProgressEvent{}, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return ProgressEvent{}, false
	}
	ev := ProgressEvent{Percent: percent}
	if m[2] != "" {
		if size, err := strconv.ParseFloat(m[2], 64); err == nil {
			ev.TotalBytes = int64(size * unitBytes(m[3]))
			ev.DownloadedBytes = int64(float64(ev.TotalBytes) * percent / 100)
		}
	}
	return ev, true
}

func unitBytes(unit string) float64 {
	switch unit {
	case "KiB":
		return 1 << 10
	case "MiB":
		return 1 << 20
	case "GiB":
		return 1 << 30
	default:
		return 1
	}
}

func classifyExtractError(err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if strings.Contains(msg, "Unsupported URL") || strings.Contains(msg, "is not a valid URL") {
		return fmt.Errorf("%w: %s", ErrUnsupportedSource, firstLine(msg))
	}
	if msg != "" {
		return fmt.Errorf("extraction failed: %s: %w", firstLine(msg), err)
	}
	return fmt.Errorf("extraction failed: %w", err)
}

func firstLine(s string) string {
	for line := range strings.Lines(s) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR") {
			return line
		}
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type sidecarInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

func readSidecarInfo(path string) (*sidecarInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta sidecarInfo
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &meta, nil
}
