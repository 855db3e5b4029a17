package router

// ToolDescriptor is the wire shape of a tool listing entry on the HTTP
// endpoints, mirroring the MCP tool declaration.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolDescriptors returns the tool catalog for HTTP listing. The schemas
// are maintained by hand so the HTTP surface matches the stdio one without
// pulling schema inference into the request path.
func ToolDescriptors() []ToolDescriptor {
	urlProp := map[string]any{
		"type":        "string",
		"description": "YouTube video URL",
	}
	return []ToolDescriptor{
		{
			Name:        "youtube_download_video",
			Description: "Download a YouTube video in MP4 format",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": urlProp,
					"quality": map[string]any{
						"type":        "string",
						"description": "Video quality (best, 1080, 720, 480, 360)",
						"default":     "best",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "youtube_download_audio",
			Description: "Download audio from YouTube video in MP3 format",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": urlProp,
					"quality": map[string]any{
						"type":        "string",
						"description": "Audio bitrate (320, 256, 192, 128)",
						"default":     "192",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "youtube_transcribe",
			Description: "Download and transcribe YouTube video audio",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": urlProp,
					"speaker_labels": map[string]any{
						"type":        "boolean",
						"description": "Enable speaker diarization",
						"default":     false,
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "youtube_get_info",
			Description: "Get metadata about a YouTube video",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": urlProp,
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "youtube_list_cache",
			Description: "List all cached YouTube files. Use this to see what videos/audio/transcripts are already downloaded. You can also access cached files via resources: youtube://cache/list",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
	}
}
