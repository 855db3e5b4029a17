package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the provider API root.
const DefaultBaseURL = "https://api.assemblyai.com"

// SubmitOptions carries per-job provider settings.
type SubmitOptions struct {
	SpeakerLabels bool
}

// Provider is the speech-to-text backend. Upload stores a local file with
// the provider and returns its transient URL, Submit starts a job for an
// uploaded URL, and Status fetches the current job state.
type Provider interface {
	Upload(ctx context.Context, path string) (string, error)
	Submit(ctx context.Context, audioURL string, opts SubmitOptions) (string, error)
	Status(ctx context.Context, id string) (*Result, error)
}

// Client is the AssemblyAI-backed Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the provider API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates an AssemblyAI client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("transcribe: empty api key")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload streams a local audio file to the provider and returns the upload
// URL to submit against.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", f)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", "application/octet-stream")

	var payload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, &payload); err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}
	if payload.UploadURL == "" {
		return "", fmt.Errorf("uploading audio: provider returned no upload_url")
	}
	return payload.UploadURL, nil
}

// Submit starts a transcription job for an uploaded audio URL and returns
// the job ID.
func (c *Client) Submit(ctx context.Context, audioURL string, opts SubmitOptions) (string, error) {
	body, err := json.Marshal(map[string]any{
		"audio_url":      audioURL,
		"speech_model":   "best",
		"speaker_labels": opts.SpeakerLabels,
	})
	if err != nil {
		return "", fmt.Errorf("encoding submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building submit request: %w", err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("content-type", "application/json")

	var payload Result
	if err := c.do(req, &payload); err != nil {
		return "", fmt.Errorf("submitting job: %w", err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("submitting job: provider returned no id")
	}
	return payload.ID, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, id string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("authorization", c.apiKey)

	var payload Result
	if err := c.do(req, &payload); err != nil {
		return nil, fmt.Errorf("fetching job %s: %w", id, err)
	}
	return &payload, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
