package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClient_Upload(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/upload", r.URL.Path)
		gotAuth = r.Header.Get("authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/u/1"})
	}))
	defer srv.Close()

	c, err := NewClient("key-123", WithBaseURL(srv.URL))
	require.NoError(t, err)

	url, err := c.Upload(context.Background(), writeAudio(t, "mp3 bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/u/1", url)
	require.Equal(t, "key-123", gotAuth)
	require.Equal(t, "mp3 bytes", string(gotBody))
}

func TestClient_Submit(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/transcript", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(Result{ID: "job-1", Status: StatusQueued})
	}))
	defer srv.Close()

	c, err := NewClient("key-123", WithBaseURL(srv.URL))
	require.NoError(t, err)

	id, err := c.Submit(context.Background(), "https://cdn.example/u/1", SubmitOptions{SpeakerLabels: true})
	require.NoError(t, err)
	require.Equal(t, "job-1", id)
	require.Equal(t, "https://cdn.example/u/1", gotPayload["audio_url"])
	require.Equal(t, "best", gotPayload["speech_model"])
	require.Equal(t, true, gotPayload["speaker_labels"])
}

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/transcript/job-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Result{ID: "job-1", Status: StatusCompleted, Text: "hi"})
	}))
	defer srv.Close()

	c, err := NewClient("key-123", WithBaseURL(srv.URL))
	require.NoError(t, err)

	result, err := c.Status(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	require.Equal(t, "hi", result.Text)
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient("wrong", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Status(context.Background(), "job-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
}
