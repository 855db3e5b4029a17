package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	cacheListURI        = "youtube://cache/list"
	audioURIPrefix      = "youtube://cache/audio/"
	transcriptURIPrefix = "youtube://cache/transcript/"
)

// resourceURI returns the stable resource URI for a cached entry, or empty
// for kinds that are not exposed as resources.
func resourceURI(key youtubetools.Key, kind youtubetools.Kind) string {
	switch kind {
	case youtubetools.KindAudio:
		return audioURIPrefix + key.String()
	case youtubetools.KindTranscript:
		return transcriptURIPrefix + key.String()
	default:
		return ""
	}
}

// ListResources enumerates the cache-list resource plus one resource per
// cached audio file and transcript.
func (r *Router) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	resources := []*mcp.Resource{{
		URI:         cacheListURI,
		Name:        "Cached Files List",
		Description: "List all cached YouTube downloads",
		MIMEType:    "application/json",
	}}

	entries, err := r.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		uri := resourceURI(entry.Key, entry.Kind)
		if uri == "" {
			continue
		}
		name := "Audio: " + entry.Key.ShortString()
		description := "Cached audio file"
		if entry.Kind == youtubetools.KindTranscript {
			name = "Transcript: " + entry.Key.ShortString()
			description = "Cached transcript"
		}
		resources = append(resources, &mcp.Resource{
			URI:         uri,
			Name:        name,
			Description: description,
			MIMEType:    entry.Kind.ContentType(),
		})
	}
	return resources, nil
}

// ReadResource resolves a resource URI to its contents. Audio is returned
// as a binary blob, transcripts and the cache list as JSON text.
func (r *Router) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	switch {
	case uri == cacheListURI:
		return r.readCacheList(ctx)
	case strings.HasPrefix(uri, audioURIPrefix):
		return r.readEntry(ctx, uri, strings.TrimPrefix(uri, audioURIPrefix), youtubetools.KindAudio)
	case strings.HasPrefix(uri, transcriptURIPrefix):
		return r.readEntry(ctx, uri, strings.TrimPrefix(uri, transcriptURIPrefix), youtubetools.KindTranscript)
	default:
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
}

func (r *Router) readCacheList(ctx context.Context) (*mcp.ReadResourceResult, error) {
	entries, err := r.cache.List(ctx)
	if err != nil {
		return nil, err
	}

	type fileInfo struct {
		Filename  string `json:"filename"`
		Type      string `json:"type"`
		Size      int64  `json:"size"`
		Created   string `json:"created"`
		ExpiresAt string `json:"expires_at"`
	}
	infos := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, fileInfo{
			Filename:  entry.Kind.Filename(entry.Key),
			Type:      string(entry.Kind),
			Size:      entry.Size,
			Created:   entry.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt: entry.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	text, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      cacheListURI,
			MIMEType: "application/json",
			Text:     string(text),
		}},
	}, nil
}

func (r *Router) readEntry(ctx context.Context, uri, keyText string, kind youtubetools.Kind) (*mcp.ReadResourceResult, error) {
	key, err := youtubetools.ParseKey(keyText)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
	entry, err := r.cache.Resolve(ctx, key, kind)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
		}
		return nil, err
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entry.Path, err)
	}

	contents := &mcp.ResourceContents{
		URI:      uri,
		MIMEType: kind.ContentType(),
	}
	if kind == youtubetools.KindTranscript {
		contents.Text = string(data)
	} else {
		contents.Blob = data
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{contents}}, nil
}
