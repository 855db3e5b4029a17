package router

import (
	"context"

	"github.com/amotivv/youtube-tools-llm-context/media"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register wires the full catalog into an MCP server for the stdio
// transport. Tool failures surface as protocol errors; the SDK renders
// them as error content for the client.
func (r *Router) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_download_video",
		Description: "Download a YouTube video in MP4 format",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DownloadVideoInput) (*mcp.CallToolResult, DownloadResult, error) {
		result, err := r.DownloadVideo(ctx, input)
		if err != nil {
			return nil, DownloadResult{}, err
		}
		return nil, *result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_download_audio",
		Description: "Download audio from YouTube video in MP3 format",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DownloadAudioInput) (*mcp.CallToolResult, DownloadResult, error) {
		result, err := r.DownloadAudio(ctx, input)
		if err != nil {
			return nil, DownloadResult{}, err
		}
		return nil, *result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcribe",
		Description: "Download and transcribe YouTube video audio",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscribeInput) (*mcp.CallToolResult, TranscribeResult, error) {
		result, err := r.Transcribe(ctx, input)
		if err != nil {
			return nil, TranscribeResult{}, err
		}
		return nil, *result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_get_info",
		Description: "Get metadata about a YouTube video",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input InfoInput) (*mcp.CallToolResult, media.Info, error) {
		result, err := r.GetInfo(ctx, input)
		if err != nil {
			return nil, media.Info{}, err
		}
		return nil, *result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_list_cache",
		Description: "List all cached YouTube files. Use this to see what videos/audio/transcripts are already downloaded. You can also access cached files via resources: youtube://cache/list",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, ListCacheResult, error) {
		result, err := r.ListCache(ctx)
		if err != nil {
			return nil, ListCacheResult{}, err
		}
		return nil, *result, nil
	})

	server.AddResource(&mcp.Resource{
		URI:         cacheListURI,
		Name:        "cache_list",
		Title:       "Cached Files List",
		Description: "List all cached YouTube downloads",
		MIMEType:    "application/json",
	}, r.resourceHandler())

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "cached_audio",
		Title:       "Cached Audio",
		Description: "Cached audio file. URI format: youtube://cache/audio/{key}",
		MIMEType:    "audio/mpeg",
		URITemplate: audioURIPrefix + "{key}",
	}, r.resourceHandler())

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "cached_transcript",
		Title:       "Cached Transcript",
		Description: "Cached transcript. URI format: youtube://cache/transcript/{key}",
		MIMEType:    "application/json",
		URITemplate: transcriptURIPrefix + "{key}",
	}, r.resourceHandler())

	for _, prompt := range r.Prompts() {
		name := prompt.Name
		server.AddPrompt(prompt, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			var args map[string]string
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			return r.GetPrompt(name, args)
		})
	}
}

func (r *Router) resourceHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return r.ReadResource(ctx, req.Params.URI)
	}
}
