package router

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Prompts returns the prompt catalog.
func (r *Router) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "youtube-quick-summary",
			Description: "Get a quick summary of a YouTube video",
			Arguments: []*mcp.PromptArgument{
				{Name: "url", Description: "YouTube video URL", Required: true},
			},
		},
		{
			Name:        "youtube-to-notes",
			Description: "Convert YouTube video to structured notes",
			Arguments: []*mcp.PromptArgument{
				{Name: "url", Description: "YouTube video URL", Required: true},
				{Name: "style", Description: "Note style: bullet, outline, or markdown"},
			},
		},
		{
			Name:        "youtube-extract-quotes",
			Description: "Extract key quotes from a YouTube video",
			Arguments: []*mcp.PromptArgument{
				{Name: "url", Description: "YouTube video URL", Required: true},
				{Name: "topic", Description: "Specific topic to focus on (optional)"},
			},
		},
		{
			Name:        "youtube-to-blog",
			Description: "Convert YouTube video to blog post",
			Arguments: []*mcp.PromptArgument{
				{Name: "url", Description: "YouTube video URL", Required: true},
				{Name: "tone", Description: "Blog tone: professional, casual, or technical"},
			},
		},
	}
}

// GetPrompt renders a prompt from the catalog with its arguments applied.
func (r *Router) GetPrompt(name string, args map[string]string) (*mcp.GetPromptResult, error) {
	text, err := promptText(name, args)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}

func promptText(name string, args map[string]string) (string, error) {
	url := args["url"]
	switch name {
	case "youtube-quick-summary":
		return fmt.Sprintf("Please provide a quick summary of this YouTube video: %s\n\n"+
			"First, use the youtube_transcribe tool to get the transcript, "+
			"then provide a concise summary covering the main points.", url), nil

	case "youtube-to-notes":
		styles := map[string]string{
			"bullet":   "Use bullet points with main topics and sub-points",
			"outline":  "Use a numbered outline format with hierarchical structure",
			"markdown": "Use markdown formatting with headers, lists, and emphasis",
		}
		style, ok := styles[args["style"]]
		if !ok {
			style = styles["bullet"]
		}
		return fmt.Sprintf("Convert this YouTube video into structured notes: %s\n\n"+
			"Instructions:\n"+
			"1. First, use youtube_transcribe to get the transcript\n"+
			"2. Create organized notes using this style: %s\n"+
			"3. Include key concepts, main points, and important details\n"+
			"4. Add timestamps for major sections", url, style), nil

	case "youtube-extract-quotes":
		topicInstruction := ""
		if topic := args["topic"]; topic != "" {
			topicInstruction = " focusing on " + topic
		}
		return fmt.Sprintf("Extract notable quotes from this YouTube video%s: %s\n\n"+
			"Instructions:\n"+
			"1. Use youtube_transcribe to get the full transcript\n"+
			"2. Identify the most impactful, insightful, or memorable quotes\n"+
			"3. For each quote, provide:\n"+
			"   - The exact quote\n"+
			"   - The timestamp\n"+
			"   - Brief context about why it's significant\n"+
			"4. Organize quotes thematically if possible", topicInstruction, url), nil

	case "youtube-to-blog":
		tones := map[string]string{
			"professional": "formal, authoritative, and well-researched",
			"casual":       "conversational, friendly, and accessible",
			"technical":    "detailed, precise, and industry-focused",
		}
		tone, ok := tones[args["tone"]]
		if !ok {
			tone = tones["professional"]
		}
		return fmt.Sprintf("Transform this YouTube video into a blog post: %s\n\n"+
			"Blog Requirements:\n"+
			"1. First, use youtube_transcribe to get the transcript\n"+
			"2. Write in a %s tone\n"+
			"3. Structure:\n"+
			"   - Engaging introduction that hooks the reader\n"+
			"   - Clear sections with descriptive headings\n"+
			"   - Key takeaways or insights from the video\n"+
			"   - Relevant quotes with attribution\n"+
			"   - Compelling conclusion with call-to-action\n"+
			"4. Make it SEO-friendly with natural keyword usage\n"+
			"5. Length: 800-1200 words\n"+
			"6. Include a note crediting the original video", url, tone), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}
}
