package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/amotivv/youtube-tools-llm-context/download"
	"github.com/amotivv/youtube-tools-llm-context/media"
	"github.com/amotivv/youtube-tools-llm-context/router"
	"github.com/amotivv/youtube-tools-llm-context/token"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, req media.Request) (*media.Result, error) {
	if err := os.WriteFile(req.OutputPath, []byte("audio bytes"), 0o644); err != nil {
		return nil, err
	}
	return &media.Result{Path: req.OutputPath, Title: "A Clip", Size: int64(len("audio bytes"))}, nil
}

func (stubExtractor) Probe(ctx context.Context, url string) (*media.Info, error) {
	return &media.Info{Title: "A Clip"}, nil
}

func newTestServer(t *testing.T, apiKey string) (*Server, *router.Router, *token.Service) {
	t.Helper()
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := token.New([]byte("test-secret"))
	require.NoError(t, err)

	rt := router.New(router.Config{
		Cache:     store,
		Downloads: download.New(store, stubExtractor{}, download.WithTempDir(t.TempDir())),
		Tokens:    tokens,
		Extractor: stubExtractor{},
		BaseURL:   "http://localhost:9000",
	})

	s, err := New(Config{
		Address: ":0",
		APIKey:  apiKey,
		Router:  rt,
		Cache:   store,
		Tokens:  tokens,
	})
	require.NoError(t, err)
	return s, rt, tokens
}

func postJSON(t *testing.T, handler http.Handler, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints_OpenWithoutAuth(t *testing.T) {
	s, _, _ := newTestServer(t, "secret-key")

	for _, path := range []string{"/health", "/mcp/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, "healthy", payload["status"])
	}
}

func TestAuth_MCPEndpointsRequireBearer(t *testing.T) {
	s, _, _ := newTestServer(t, "secret-key")

	rec := postJSON(t, s.Handler(), "/mcp/list_tools", `{"jsonrpc":"2.0","id":1}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, s.Handler(), "/mcp/list_tools", `{"jsonrpc":"2.0","id":1}`, "wrong-key")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, s.Handler(), "/mcp/list_tools", `{"jsonrpc":"2.0","id":1}`, "secret-key")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_DisabledWhenNoKey(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	rec := postJSON(t, s.Handler(), "/mcp/list_tools", `{"jsonrpc":"2.0","id":1}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInitialize_Envelope(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	rec := postJSON(t, s.Handler(), "/mcp/initialize", `{"jsonrpc":"2.0","id":7,"clientInfo":{"name":"test"}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		Result  struct {
			ProtocolVersion string `json:"protocolVersion"`
			ServerInfo      struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
			Capabilities map[string]bool `json:"capabilities"`
			SessionID    string          `json:"sessionId"`
		} `json:"result"`
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2.0", resp.JSONRPC)
	require.Equal(t, 7, resp.ID)
	require.Equal(t, ServerName, resp.Result.ServerInfo.Name)
	require.True(t, resp.Result.Capabilities["tools"])
	require.True(t, resp.Result.Capabilities["resources"])
	require.True(t, resp.Result.Capabilities["prompts"])
	require.NotEmpty(t, resp.Result.SessionID)
}

func TestListTools_ReturnsCatalog(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	rec := postJSON(t, s.Handler(), "/mcp/list_tools", `{"jsonrpc":"2.0","id":1}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string         `json:"name"`
				InputSchema map[string]any `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Tools, 5)
	require.Equal(t, "youtube_download_video", resp.Result.Tools[0].Name)
}

func TestCallTool_ListCache(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	body := `{"jsonrpc":"2.0","id":1,"params":{"name":"youtube_list_cache","arguments":{}}}`
	rec := postJSON(t, s.Handler(), "/mcp/call_tool", body, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Content, 1)
	require.Equal(t, "text", resp.Result.Content[0].Type)

	var result router.ListCacheResult
	require.NoError(t, json.Unmarshal([]byte(resp.Result.Content[0].Text), &result))
	require.True(t, result.Success)
	require.Equal(t, 0, result.TotalFiles)
}

func TestCallTool_UnknownToolReportedAsData(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	body := `{"jsonrpc":"2.0","id":1,"params":{"name":"nope","arguments":{}}}`
	rec := postJSON(t, s.Handler(), "/mcp/call_tool", body, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var toolErr router.ToolError
	require.NoError(t, json.Unmarshal([]byte(resp.Result.Content[0].Text), &toolErr))
	require.False(t, toolErr.Success)
	require.Equal(t, "unknown_tool", toolErr.ErrorKind)
}

func TestCallTool_MalformedBody(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	rec := postJSON(t, s.Handler(), "/mcp/call_tool", `{not json`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, -32700, resp.Error.Code)
}

func TestFileGateway_ServesCachedFile(t *testing.T) {
	s, rt, _ := newTestServer(t, "secret-key")

	result, err := rt.DownloadAudio(context.Background(), router.DownloadAudioInput{URL: "https://youtu.be/abc"})
	require.NoError(t, err)
	tok := strings.TrimPrefix(result.URL, "http://localhost:9000/files/")

	// No bearer needed: the file token is the credential.
	req := httptest.NewRequest(http.MethodGet, "/files/"+tok, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	require.Equal(t, "audio bytes", rec.Body.String())
}

func TestFileGateway_RejectsBadTokens(t *testing.T) {
	s, rt, tokens := newTestServer(t, "")

	_, err := rt.DownloadAudio(context.Background(), router.DownloadAudioInput{URL: "https://youtu.be/abc"})
	require.NoError(t, err)
	key := youtubetools.NewKey("https://youtu.be/abc", youtubetools.KindAudio, "192")

	expired, err := tokens.IssueTTL(key, youtubetools.KindAudio, -time.Minute)
	require.NoError(t, err)

	missing, err := tokens.Issue(youtubetools.NewKey("https://youtu.be/none", youtubetools.KindAudio, "192"), youtubetools.KindAudio)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":        "not-a-token",
		"expired":        expired,
		"uncached entry": missing,
	} {
		req := httptest.NewRequest(http.MethodGet, "/files/"+tok, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Address: ":0"})
	require.Error(t, err)
}
